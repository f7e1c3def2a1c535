package memberships

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = uuid.MustParse("22222222-2222-2222-2222-222222222222")

func newRepoWithMock(t *testing.T, d dbx.Dialect, table Table) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, d, identity, table), mock, db
}

func TestReplace_DeletesThenInsertsOnce(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite, ACL)
	defer db.Close()

	drive, file := uuid.New(), uuid.New()
	a := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b := uuid.MustParse("00000000-0000-0000-0000-00000000000b")

	mock.ExpectExec(`DELETE FROM driveAclIndex WHERE identityId = \? AND driveId = \? AND fileId = \?`).
		WithArgs(models.Key(identity), models.Key(drive), models.Key(file)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO driveAclIndex \(identityId, driveId, fileId, aclMemberId\) VALUES \(\?, \?, \?, \?\), \(\?, \?, \?, \?\)$`).
		WithArgs(
			models.Key(identity), models.Key(drive), models.Key(file), models.Key(a),
			models.Key(identity), models.Key(drive), models.Key(file), models.Key(b),
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Replace(context.Background(), drive, file, []uuid.UUID{b, a, b}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_EmptyListOnlyDeletes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.Postgres, Tags)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM driveTagIndex WHERE identityId = \$1 AND driveId = \$2 AND fileId = \$3`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Replace(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_DeleteErrorStops(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite, LocalTags)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM driveLocalTagIndex`).WillReturnError(errors.New("locked"))

	err := repo.Replace(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, common.ErrStorage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Error(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite, Tags)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO driveTagIndex`).WillReturnError(errors.New("constraint"))

	err := repo.Insert(context.Background(), uuid.New(), uuid.New(), []uuid.UUID{uuid.New()})
	require.ErrorIs(t, err, common.ErrStorage)
	assert.Contains(t, err.Error(), "insert driveTagIndex")
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite, Tags)
	defer db.Close()

	t1, t2 := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT tagId FROM driveTagIndex WHERE .* ORDER BY tagId ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"tagId"}).AddRow(models.Key(t1)).AddRow(models.Key(t2)))

	got, err := repo.List(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{t1, t2}, got)
}

func TestList_BadKey(t *testing.T) {
	repo, mock, db := newRepoWithMock(t, dbx.SQLite, ACL)
	defer db.Close()

	mock.ExpectQuery(`SELECT aclMemberId FROM driveAclIndex`).
		WillReturnRows(sqlmock.NewRows([]string{"aclMemberId"}).AddRow([]byte{1, 2}))

	_, err := repo.List(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
}

func TestDedupe(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	assert.Len(t, dedupe([]uuid.UUID{a, b, a, a, b}), 2)
	assert.Nil(t, dedupe(nil))
}
