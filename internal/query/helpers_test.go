package query

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var identity = uuid.MustParse("44444444-4444-4444-4444-444444444444")

// key returns an id whose byte order follows n.
func key(n byte) uuid.UUID {
	var id uuid.UUID
	id[0] = 0x01
	id[15] = n
	return id
}

func stdFilter() Filter {
	fst := models.FileSystemTypeStandard
	return Filter{FileSystemType: &fst, SecurityGroup: &IntRange{Start: 0, End: 0}}
}

type fixture struct {
	t      *testing.T
	db     *sql.DB
	rm     repomanager.RepositoryManager
	engine *Engine
	drive  uuid.UUID
	now    int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	rm, err := repomanager.NewSQLRepositoryManager(dbx.SQLite, identity, nil)
	require.NoError(t, err)
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	return &fixture{
		t:      t,
		db:     db,
		rm:     rm,
		engine: NewEngine(db, dbx.SQLite, identity, nil),
		drive:  uuid.MustParse("d0000000-0000-0000-0000-00000000000d"),
		now:    1_000,
	}
}

type fileOpt func(r *models.MainIndexRecord, m *memberSet)

type memberSet struct {
	acl, tags, localTags []uuid.UUID
}

func withACL(ids ...uuid.UUID) fileOpt {
	return func(_ *models.MainIndexRecord, m *memberSet) { m.acl = ids }
}

func withTags(ids ...uuid.UUID) fileOpt {
	return func(_ *models.MainIndexRecord, m *memberSet) { m.tags = ids }
}

func withLocalTags(ids ...uuid.UUID) fileOpt {
	return func(_ *models.MainIndexRecord, m *memberSet) { m.localTags = ids }
}

func withRecord(fn func(r *models.MainIndexRecord)) fileOpt {
	return func(r *models.MainIndexRecord, _ *memberSet) { fn(r) }
}

// add inserts a file into the fixture drive, advancing the clock by one
// millisecond per call.
func (f *fixture) add(id uuid.UUID, opts ...fileOpt) *models.MainIndexRecord {
	f.t.Helper()
	ctx := context.Background()
	rec := &models.MainIndexRecord{
		DriveID:        f.drive,
		FileID:         id,
		FileSystemType: models.FileSystemTypeStandard,
		UserDate:       f.now,
	}
	var m memberSet
	for _, o := range opts {
		o(rec, &m)
	}
	f.now++
	require.NoError(f.t, f.rm.MainIndex(f.db).Upsert(ctx, rec, f.now))
	require.NoError(f.t, f.rm.ACL(f.db).Insert(ctx, f.drive, id, m.acl))
	require.NoError(f.t, f.rm.Tags(f.db).Insert(ctx, f.drive, id, m.tags))
	require.NoError(f.t, f.rm.LocalTags(f.db).Insert(ctx, f.drive, id, m.localTags))
	return rec
}

// touch re-upserts rec at the next clock tick.
func (f *fixture) touch(rec *models.MainIndexRecord) {
	f.t.Helper()
	f.now++
	require.NoError(f.t, f.rm.MainIndex(f.db).Upsert(context.Background(), rec, f.now))
}

func (f *fixture) remove(id uuid.UUID) {
	f.t.Helper()
	_, err := f.rm.MainIndex(f.db).Delete(context.Background(), f.drive, id)
	require.NoError(f.t, err)
}

func ids(records []*models.MainIndexRecord) []uuid.UUID {
	out := make([]uuid.UUID, len(records))
	for i, r := range records {
		out[i] = r.FileID
	}
	return out
}
