// Package mainindex stores the driveMainIndex rows: one row per indexed
// file, keyed by (identity, drive, file).
package mainindex

import (
	"context"

	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
)

type Repository interface {
	Upsert(ctx context.Context, rec *models.MainIndexRecord, now int64) error
	Delete(ctx context.Context, driveID, fileID uuid.UUID) (int, error)
	Get(ctx context.Context, driveID, fileID uuid.UUID) (*models.MainIndexRecord, error)
	GetByUniqueID(ctx context.Context, driveID, uniqueID uuid.UUID) (*models.MainIndexRecord, error)
	GetByGlobalTransitID(ctx context.Context, driveID, globalTransitID uuid.UUID) (*models.MainIndexRecord, error)
	UpdateReactionSummary(ctx context.Context, driveID, fileID uuid.UUID, summary []byte, now int64) (int, error)
	UpdateTransferHistory(ctx context.Context, driveID, fileID uuid.UUID, history []byte, now int64) (int64, int, error)
	UpdateLocalAppMetadata(ctx context.Context, driveID, fileID, oldTag, newTag uuid.UUID, data []byte, now int64) (int64, error)
	DriveSize(ctx context.Context, driveID uuid.UUID) (count int64, bytes int64, err error)
	TotalSize(ctx context.Context) (int64, error)
}
