// Package index is the in-process entry point to a drive index: writes go
// to the store, reads go to the (optionally cached) query engines, and
// every successful write invalidates the cached results of its drive
// before returning.
package index

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/query"
	"github.com/dmitrijs2005/driveindex/internal/store"
	"github.com/google/uuid"
)

// Invalidator is implemented by queriers that hold per-drive state.
type Invalidator interface {
	InvalidateDrive(ctx context.Context, drive uuid.UUID)
}

type Options struct {
	// SerializeAccess funnels every call through one mutex, for
	// deployments sharing a single connection.
	SerializeAccess bool
}

type Index struct {
	store   *store.Store
	querier query.Querier
	inv     Invalidator
	mu      *sync.Mutex
	logger  logging.Logger
}

var _ query.Querier = (*Index)(nil)

func New(st *store.Store, q query.Querier, o Options, logger logging.Logger) *Index {
	if logger == nil {
		logger = logging.Nop()
	}
	ix := &Index{store: st, querier: q, logger: logger.With("component", "index")}
	if inv, ok := q.(Invalidator); ok {
		ix.inv = inv
	}
	if o.SerializeAccess {
		ix.mu = &sync.Mutex{}
	}
	return ix
}

func (ix *Index) lock() func() {
	if ix.mu == nil {
		return func() {}
	}
	ix.mu.Lock()
	return ix.mu.Unlock
}

func (ix *Index) invalidate(ctx context.Context, drive uuid.UUID) {
	if ix.inv != nil {
		ix.inv.InvalidateDrive(ctx, drive)
	}
}

// written logs a failed write and invalidates the drive after a
// successful one.
func (ix *Index) written(ctx context.Context, op string, drive, file uuid.UUID, err error) {
	switch {
	case errors.Is(err, common.ErrVersionConflict), errors.Is(err, common.ErrorNotFound):
		ix.logger.Warn(ctx, op+" rejected", "drive", drive, "file", file, "error", err)
		return
	case err != nil:
		ix.logger.Error(ctx, op+" failed", "drive", drive, "file", file, "error", err)
		return
	}
	ix.invalidate(ctx, drive)
}

func (ix *Index) Upsert(ctx context.Context, rec *models.MainIndexRecord, acl, tags []uuid.UUID) (int, error) {
	defer ix.lock()()
	n, err := ix.store.Upsert(ctx, rec, acl, tags)
	ix.written(ctx, "upsert", rec.DriveID, rec.FileID, err)
	return n, err
}

func (ix *Index) Delete(ctx context.Context, driveID, fileID uuid.UUID) (int, error) {
	defer ix.lock()()
	n, err := ix.store.Delete(ctx, driveID, fileID)
	ix.written(ctx, "delete", driveID, fileID, err)
	return n, err
}

func (ix *Index) UpdateLocalTags(ctx context.Context, driveID, fileID uuid.UUID, tags []uuid.UUID) error {
	defer ix.lock()()
	err := ix.store.UpdateLocalTags(ctx, driveID, fileID, tags)
	ix.written(ctx, "update local tags", driveID, fileID, err)
	return err
}

func (ix *Index) UpdateLocalMetadata(ctx context.Context, driveID, fileID, oldTag uuid.UUID, data []byte, tags []uuid.UUID) (uuid.UUID, error) {
	defer ix.lock()()
	tag, err := ix.store.UpdateLocalMetadata(ctx, driveID, fileID, oldTag, data, tags)
	ix.written(ctx, "update local metadata", driveID, fileID, err)
	return tag, err
}

func (ix *Index) UpdateReactionSummary(ctx context.Context, driveID, fileID uuid.UUID, summary []byte) (int, error) {
	defer ix.lock()()
	n, err := ix.store.UpdateReactionSummary(ctx, driveID, fileID, summary)
	ix.written(ctx, "update reaction summary", driveID, fileID, err)
	return n, err
}

func (ix *Index) UpdateTransferHistory(ctx context.Context, driveID, fileID uuid.UUID, history []byte) (int64, int, error) {
	defer ix.lock()()
	modified, n, err := ix.store.UpdateTransferHistory(ctx, driveID, fileID, history)
	ix.written(ctx, "update transfer history", driveID, fileID, err)
	return modified, n, err
}

func (ix *Index) QueryBatch(ctx context.Context, p query.BatchParams) (*query.BatchResult, error) {
	defer ix.lock()()
	return ix.querier.QueryBatch(ctx, p)
}

func (ix *Index) QueryBatchAuto(ctx context.Context, p query.AutoParams) (*query.BatchResult, error) {
	defer ix.lock()()
	return ix.querier.QueryBatchAuto(ctx, p)
}

func (ix *Index) QueryModified(ctx context.Context, p query.ModifiedParams) (*query.ModifiedResult, error) {
	defer ix.lock()()
	return ix.querier.QueryModified(ctx, p)
}

func (ix *Index) Get(ctx context.Context, driveID, fileID uuid.UUID) (*models.MainIndexRecord, error) {
	defer ix.lock()()
	return ix.store.Get(ctx, driveID, fileID)
}

func (ix *Index) GetByUniqueID(ctx context.Context, driveID, uniqueID uuid.UUID) (*models.MainIndexRecord, error) {
	defer ix.lock()()
	return ix.store.GetByUniqueID(ctx, driveID, uniqueID)
}

func (ix *Index) GetByGlobalTransitID(ctx context.Context, driveID, globalTransitID uuid.UUID) (*models.MainIndexRecord, error) {
	defer ix.lock()()
	return ix.store.GetByGlobalTransitID(ctx, driveID, globalTransitID)
}

func (ix *Index) DriveSize(ctx context.Context, driveID uuid.UUID) (int64, int64, error) {
	defer ix.lock()()
	return ix.store.DriveSize(ctx, driveID)
}

func (ix *Index) TotalSize(ctx context.Context) (int64, error) {
	defer ix.lock()()
	return ix.store.TotalSize(ctx)
}

func (ix *Index) ACL(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	defer ix.lock()()
	return ix.store.ACL(ctx, driveID, fileID)
}

func (ix *Index) Tags(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	defer ix.lock()()
	return ix.store.Tags(ctx, driveID, fileID)
}

func (ix *Index) LocalTags(ctx context.Context, driveID, fileID uuid.UUID) ([]uuid.UUID, error) {
	defer ix.lock()()
	return ix.store.LocalTags(ctx, driveID, fileID)
}
