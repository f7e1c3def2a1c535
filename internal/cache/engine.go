package cache

import (
	"context"

	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/query"
	"github.com/google/uuid"
)

// CachedEngine serves repeated queries from a Cache and forwards misses to
// the wrapped Querier. Values are copied on the way in and out so callers
// can never alter a cached result.
type CachedEngine struct {
	next     query.Querier
	cache    *Cache
	identity uuid.UUID
	logger   logging.Logger
}

var _ query.Querier = (*CachedEngine)(nil)

func NewCachedEngine(next query.Querier, c *Cache, identity uuid.UUID, logger logging.Logger) *CachedEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CachedEngine{next: next, cache: c, identity: identity, logger: logger.With("component", "cache")}
}

// InvalidateDrive forgets every cached result for the drive.
func (e *CachedEngine) InvalidateDrive(ctx context.Context, drive uuid.UUID) {
	n := e.cache.InvalidateDrive(e.identity, drive)
	e.logger.Debug(ctx, "invalidate", "drive", drive, "entries", n)
}

func (e *CachedEngine) QueryBatch(ctx context.Context, p query.BatchParams) (*query.BatchResult, error) {
	return cached(ctx, e, "batch", p.DriveID, p, cloneBatch, func() (*query.BatchResult, error) {
		return e.next.QueryBatch(ctx, p)
	})
}

func (e *CachedEngine) QueryBatchAuto(ctx context.Context, p query.AutoParams) (*query.BatchResult, error) {
	return cached(ctx, e, "auto", p.DriveID, p, cloneBatch, func() (*query.BatchResult, error) {
		return e.next.QueryBatchAuto(ctx, p)
	})
}

func (e *CachedEngine) QueryModified(ctx context.Context, p query.ModifiedParams) (*query.ModifiedResult, error) {
	return cached(ctx, e, "modified", p.DriveID, p, cloneModified, func() (*query.ModifiedResult, error) {
		return e.next.QueryModified(ctx, p)
	})
}

func cached[T any](ctx context.Context, e *CachedEngine, kind string, drive uuid.UUID, params any,
	clone func(*T) *T, run func() (*T, error)) (*T, error) {

	key, err := Key(e.identity, drive, kind, params)
	if err != nil {
		// Unhashable parameters simply bypass the cache.
		e.logger.Warn(ctx, "cache key", "kind", kind, "error", err)
		return run()
	}

	if v, ok := e.cache.Get(key); ok {
		e.logger.Debug(ctx, "hit", "kind", kind, "drive", drive)
		return clone(v.(*T)), nil
	}

	tag := DriveTag(e.identity, drive)
	gen := e.cache.Generation(tag)
	res, err := run()
	if err != nil {
		return nil, err
	}
	stored := e.cache.Put(tag, key, gen, clone(res))
	e.logger.Debug(ctx, "miss", "kind", kind, "drive", drive, "stored", stored)
	return res, nil
}

func cloneBatch(r *query.BatchResult) *query.BatchResult {
	if r == nil {
		return nil
	}
	out := &query.BatchResult{Records: models.CloneRecords(r.Records), MoreRows: r.MoreRows}
	if r.Cursor != nil {
		c := *r.Cursor
		out.Cursor = &c
	}
	return out
}

func cloneModified(r *query.ModifiedResult) *query.ModifiedResult {
	if r == nil {
		return nil
	}
	return &query.ModifiedResult{Records: models.CloneRecords(r.Records), MoreRows: r.MoreRows, Cursor: r.Cursor}
}
