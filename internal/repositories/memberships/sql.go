package memberships

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
)

// SQLRepository implements Repository for one side table and identity.
type SQLRepository struct {
	db       dbx.DBTX
	dialect  dbx.Dialect
	identity uuid.UUID
	table    Table
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect, identity uuid.UUID, table Table) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, identity: identity, table: table}
}

func (r *SQLRepository) Replace(ctx context.Context, driveID, fileID uuid.UUID, ids []uuid.UUID) error {
	if _, err := r.DeleteAll(ctx, driveID, fileID); err != nil {
		return err
	}
	return r.Insert(ctx, driveID, fileID, ids)
}

func (r *SQLRepository) DeleteAll(ctx context.Context, driveID, fileID uuid.UUID) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE identityId = ? AND driveId = ? AND fileId = ?`, r.table.Name)
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(driveID), models.Key(fileID))
	if err != nil {
		return 0, common.Storage("delete "+r.table.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.Storage("delete "+r.table.Name+": rows affected", err)
	}
	return n, nil
}

// Insert adds ids in a single statement. Duplicates in ids are collapsed
// so the primary key is never violated by the caller's list.
func (r *SQLRepository) Insert(ctx context.Context, driveID, fileID uuid.UUID, ids []uuid.UUID) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil
	}

	values := make([]string, len(ids))
	args := make([]any, 0, len(ids)*4)
	for i, id := range ids {
		values[i] = "(?, ?, ?, ?)"
		args = append(args, models.Key(r.identity), models.Key(driveID), models.Key(fileID), models.Key(id))
	}
	query := fmt.Sprintf(`INSERT INTO %s (identityId, driveId, fileId, %s) VALUES %s`,
		r.table.Name, r.table.Column, strings.Join(values, ", "))

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...); err != nil {
		return common.Storage("insert "+r.table.Name, err)
	}
	return nil
}

// List returns the members of a file in key order.
func (r *SQLRepository) List(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE identityId = ? AND driveId = ? AND fileId = ? ORDER BY %s ASC`,
		r.table.Column, r.table.Name, r.table.Column)

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(driveID), models.Key(fileID))
	if err != nil {
		return nil, common.Storage("select "+r.table.Name, err)
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, common.Storage("scan "+r.table.Name, err)
		}
		id, err := models.ParseKey(b)
		if err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("select "+r.table.Name, err)
	}
	return result, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) < 2 {
		return ids
	}
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}
