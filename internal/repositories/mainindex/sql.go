package mainindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx)
// for one identity.
type SQLRepository struct {
	db       dbx.DBTX
	dialect  dbx.Dialect
	identity uuid.UUID
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect, identity uuid.UUID) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect, identity: identity}
}

// Upsert inserts rec or updates the existing row with the same key. An
// existing row is only updated while its stored version tag equals
// rec.VersionTag; otherwise nothing is written and ErrVersionConflict is
// returned. Reaction summary and transfer history are left alone on update.
//
// On success rec carries the new version tag and the store-assigned
// created, modified and rowId values.
func (r *SQLRepository) Upsert(ctx context.Context, rec *models.MainIndexRecord, now int64) error {
	query := fmt.Sprintf(`
		INSERT INTO driveMainIndex (identityId, driveId, fileId, globalTransitId, fileState,
			requiredSecurityGroup, fileSystemType, userDate, fileType, dataType,
			archivalStatus, senderId, groupId, uniqueId, byteCount,
			hdrEncryptedKeyHeader, hdrVersionTag, hdrAppData, hdrReactionSummary,
			hdrServerData, hdrTransferHistory, hdrFileMetaData, created, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identityId, driveId, fileId)
		DO UPDATE SET
			globalTransitId = COALESCE(driveMainIndex.globalTransitId, excluded.globalTransitId),
			fileState = excluded.fileState,
			requiredSecurityGroup = excluded.requiredSecurityGroup,
			fileSystemType = excluded.fileSystemType,
			userDate = excluded.userDate,
			fileType = excluded.fileType,
			dataType = excluded.dataType,
			archivalStatus = excluded.archivalStatus,
			senderId = excluded.senderId,
			groupId = excluded.groupId,
			uniqueId = excluded.uniqueId,
			byteCount = excluded.byteCount,
			hdrEncryptedKeyHeader = excluded.hdrEncryptedKeyHeader,
			hdrVersionTag = excluded.hdrVersionTag,
			hdrAppData = excluded.hdrAppData,
			hdrServerData = excluded.hdrServerData,
			hdrFileMetaData = excluded.hdrFileMetaData,
			modified = %s(driveMainIndex.modified + 1, excluded.modified)
			WHERE driveMainIndex.hdrVersionTag = ?
		RETURNING created, modified, rowId`, r.dialect.Greatest())

	newTag := uuid.New()
	var sender any
	if rec.SenderID != nil {
		sender = *rec.SenderID
	}

	var created, modified, rowID int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(rec.DriveID), models.Key(rec.FileID), models.OptKey(rec.GlobalTransitID), int64(rec.FileState),
		int64(rec.RequiredSecurityGroup), int64(rec.FileSystemType), rec.UserDate, int64(rec.FileType), int64(rec.DataType),
		int64(rec.ArchivalStatus), sender, models.OptKey(rec.GroupID), models.OptKey(rec.UniqueID), rec.ByteCount,
		rec.EncryptedKeyHeader, models.Key(newTag), rec.AppData, rec.ReactionSummary,
		rec.ServerData, rec.TransferHistory, rec.FileMetaData, now, now,
		models.Key(rec.VersionTag),
	).Scan(&created, &modified, &rowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrVersionConflict
		}
		return common.Storage("upsert main index", err)
	}

	rec.IdentityID = r.identity
	rec.VersionTag = newTag
	rec.Created = created
	rec.Modified = modified
	rec.RowID = rowID
	return nil
}

// Delete removes the main row only; side tables are the caller's concern.
func (r *SQLRepository) Delete(ctx context.Context, driveID, fileID uuid.UUID) (int, error) {
	query := `DELETE FROM driveMainIndex WHERE identityId = ? AND driveId = ? AND fileId = ?`
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(driveID), models.Key(fileID))
	if err != nil {
		return 0, common.Storage("delete main index", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.Storage("delete main index: rows affected", err)
	}
	switch n {
	case 0, 1:
		return int(n), nil
	default:
		return 0, common.Invariant("delete removed %d main rows for file %s", n, fileID)
	}
}

func (r *SQLRepository) Get(ctx context.Context, driveID, fileID uuid.UUID) (*models.MainIndexRecord, error) {
	return r.selectOne(ctx, "fileId", fileID, driveID)
}

func (r *SQLRepository) GetByUniqueID(ctx context.Context, driveID, uniqueID uuid.UUID) (*models.MainIndexRecord, error) {
	return r.selectOne(ctx, "uniqueId", uniqueID, driveID)
}

func (r *SQLRepository) GetByGlobalTransitID(ctx context.Context, driveID, globalTransitID uuid.UUID) (*models.MainIndexRecord, error) {
	return r.selectOne(ctx, "globalTransitId", globalTransitID, driveID)
}

// selectOne loads the single row where column = id. Finding two rows for a
// unique column is reported as an invariant violation, never resolved by
// picking one.
func (r *SQLRepository) selectOne(ctx context.Context, column string, id, driveID uuid.UUID) (*models.MainIndexRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM driveMainIndex
		WHERE identityId = ? AND driveId = ? AND %s = ? LIMIT 2`, Columns(""), column)

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(driveID), models.Key(id))
	if err != nil {
		return nil, common.Storage("select main index", err)
	}
	defer rows.Close()

	var found *models.MainIndexRecord
	for rows.Next() {
		if found != nil {
			return nil, common.Invariant("more than one main row with %s %s", column, id)
		}
		rec, err := ScanRecord(rows)
		if err != nil {
			return nil, common.Storage("scan main index", err)
		}
		found = rec
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("select main index", err)
	}
	if found == nil {
		return nil, common.ErrorNotFound
	}
	return found, nil
}

// UpdateReactionSummary replaces the reaction summary and bumps modified.
// Returns the number of rows changed.
func (r *SQLRepository) UpdateReactionSummary(ctx context.Context, driveID, fileID uuid.UUID, summary []byte, now int64) (int, error) {
	query := fmt.Sprintf(`UPDATE driveMainIndex
		SET modified = %s(driveMainIndex.modified + 1, ?), hdrReactionSummary = ?
		WHERE identityId = ? AND driveId = ? AND fileId = ?`, r.dialect.Greatest())

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		now, summary, models.Key(r.identity), models.Key(driveID), models.Key(fileID))
	if err != nil {
		return 0, common.Storage("update reaction summary", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.Storage("update reaction summary: rows affected", err)
	}
	if n > 1 {
		return 0, common.Invariant("reaction update touched %d rows for file %s", n, fileID)
	}
	return int(n), nil
}

// UpdateTransferHistory replaces the transfer history, bumps modified and
// returns the new modified stamp together with the number of rows changed.
func (r *SQLRepository) UpdateTransferHistory(ctx context.Context, driveID, fileID uuid.UUID, history []byte, now int64) (int64, int, error) {
	query := fmt.Sprintf(`UPDATE driveMainIndex
		SET modified = %s(driveMainIndex.modified + 1, ?), hdrTransferHistory = ?
		WHERE identityId = ? AND driveId = ? AND fileId = ?
		RETURNING modified`, r.dialect.Greatest())

	var modified int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		now, history, models.Key(r.identity), models.Key(driveID), models.Key(fileID)).Scan(&modified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, common.Storage("update transfer history", err)
	}
	return modified, 1, nil
}

// UpdateLocalAppMetadata stores data as the local app data of a file and
// stamps newTag, provided the stored local version tag still equals oldTag.
// A file that never had local data matches uuid.Nil. modified is bumped and
// returned.
//
// A file that is missing yields common.ErrorNotFound; a tag mismatch yields
// common.ErrVersionConflict.
func (r *SQLRepository) UpdateLocalAppMetadata(ctx context.Context, driveID, fileID, oldTag, newTag uuid.UUID, data []byte, now int64) (int64, error) {
	query := fmt.Sprintf(`UPDATE driveMainIndex
		SET hdrLocalVersionTag = ?, hdrLocalAppData = ?, modified = %s(driveMainIndex.modified + 1, ?)
		WHERE identityId = ? AND driveId = ? AND fileId = ? AND COALESCE(hdrLocalVersionTag, ?) = ?
		RETURNING modified`, r.dialect.Greatest())

	var modified int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		models.Key(newTag), data, now,
		models.Key(r.identity), models.Key(driveID), models.Key(fileID),
		models.Key(uuid.Nil), models.Key(oldTag)).Scan(&modified)
	switch {
	case err == nil:
		return modified, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, common.Storage("update local app metadata", err)
	}

	var n int64
	err = r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM driveMainIndex
		WHERE identityId = ? AND driveId = ? AND fileId = ?`),
		models.Key(r.identity), models.Key(driveID), models.Key(fileID)).Scan(&n)
	if err != nil {
		return 0, common.Storage("update local app metadata: lookup", err)
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}
	return 0, common.ErrVersionConflict
}

// DriveSize returns the number of files and their summed byte count.
func (r *SQLRepository) DriveSize(ctx context.Context, driveID uuid.UUID) (int64, int64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(byteCount), 0) FROM driveMainIndex
		WHERE identityId = ? AND driveId = ?`

	var count, total int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		models.Key(r.identity), models.Key(driveID)).Scan(&count, &total)
	if err != nil {
		return 0, 0, common.Storage("drive size", err)
	}
	return count, total, nil
}

// TotalSize sums byte counts over every drive of the identity.
func (r *SQLRepository) TotalSize(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(byteCount), 0) FROM driveMainIndex WHERE identityId = ?`

	var total int64
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), models.Key(r.identity)).Scan(&total); err != nil {
		return 0, common.Storage("total size", err)
	}
	return total, nil
}
