package query

import (
	"context"
	"strconv"
	"testing"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) modified(limit int, cursor string, ceiling *int64) *ModifiedResult {
	f.t.Helper()
	res, err := f.engine.QueryModified(context.Background(), ModifiedParams{
		DriveID: f.drive, Limit: limit, Cursor: cursor, Ceiling: ceiling, Filter: stdFilter(),
	})
	require.NoError(f.t, err)
	return res
}

func TestQueryModified_AscendingAndResumable(t *testing.T) {
	fx := newFixture(t)
	r1 := fx.add(key(1))
	fx.add(key(2))
	fx.add(key(3))
	fx.touch(r1)

	res := fx.modified(2, "", nil)
	assert.Equal(t, []uuid.UUID{key(2), key(3)}, ids(res.Records))
	assert.True(t, res.MoreRows)

	res = fx.modified(2, res.Cursor, nil)
	assert.Equal(t, []uuid.UUID{key(1)}, ids(res.Records))
	assert.False(t, res.MoreRows)
	assert.Equal(t, ModifiedCursor{Modified: r1.Modified, RowID: r1.RowID}.String(), res.Cursor)

	again := fx.modified(2, res.Cursor, nil)
	assert.Empty(t, again.Records)
	assert.Equal(t, res.Cursor, again.Cursor, "an empty page keeps the cursor")
}

func TestQueryModified_TiesBrokenByRowID(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	repo := fx.rm.MainIndex(fx.db)

	for i := byte(1); i <= 4; i++ {
		rec := &models.MainIndexRecord{DriveID: fx.drive, FileID: key(10 - i), FileSystemType: models.FileSystemTypeStandard}
		require.NoError(t, repo.Upsert(ctx, rec, 5_000))
	}

	var got []uuid.UUID
	cursor := ""
	for {
		res := fx.modified(1, cursor, nil)
		got = append(got, ids(res.Records)...)
		cursor = res.Cursor
		if !res.MoreRows {
			break
		}
	}
	assert.Equal(t, []uuid.UUID{key(9), key(8), key(7), key(6)}, got, "same timestamp pages in insertion order")
}

func TestQueryModified_CeilingIsExclusive(t *testing.T) {
	fx := newFixture(t)
	a := fx.add(key(1))
	b := fx.add(key(2))
	fx.add(key(3))

	res := fx.modified(10, "", &b.Modified)
	assert.Equal(t, []uuid.UUID{key(1)}, ids(res.Records))
	assert.Equal(t, ModifiedCursor{Modified: a.Modified, RowID: a.RowID}.String(), res.Cursor)

	ceiling := b.Modified + 1
	res = fx.modified(10, "", &ceiling)
	assert.Equal(t, []uuid.UUID{key(1), key(2)}, ids(res.Records))
}

func TestQueryModified_CursorForms(t *testing.T) {
	fx := newFixture(t)
	a := fx.add(key(1))
	b := fx.add(key(2))

	res := fx.modified(10, strconv.FormatInt(a.Modified, 10), nil)
	assert.Equal(t, []uuid.UUID{key(1), key(2)}, ids(res.Records), "bare millis resumes with row 0")

	res = fx.modified(10, "not a cursor", nil)
	assert.Equal(t, []uuid.UUID{key(1), key(2)}, ids(res.Records), "malformed cursor starts over")

	res = fx.modified(10, ModifiedCursor{Modified: b.Modified, RowID: b.RowID}.String(), nil)
	assert.Empty(t, res.Records)
	assert.Equal(t, ModifiedCursor{Modified: b.Modified, RowID: b.RowID}.String(), res.Cursor)
}

func TestQueryModified_EmptyResultNormalisesCursor(t *testing.T) {
	fx := newFixture(t)

	res := fx.modified(10, "12345", nil)
	assert.Empty(t, res.Records)
	assert.Equal(t, "12345,0", res.Cursor)

	res = fx.modified(10, "bogus", nil)
	assert.Equal(t, "0,0", res.Cursor)
}

func TestQueryModified_Validation(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.engine.QueryModified(context.Background(), ModifiedParams{DriveID: fx.drive, Limit: -1, Filter: stdFilter()})
	require.ErrorIs(t, err, common.ErrValidation)

	_, err = fx.engine.QueryModified(context.Background(), ModifiedParams{DriveID: fx.drive, Limit: 1})
	require.ErrorIs(t, err, common.ErrValidation)
}
