package query

import (
	"context"

	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
)

// QueryBatch returns up to p.Limit records in key or (userDate, key) order.
// The returned cursor continues after the last record while more rows
// exist; once the dataset is exhausted its paging position is unset. The
// input cursor is not modified.
func (e *Engine) QueryBatch(ctx context.Context, p BatchParams) (*BatchResult, error) {
	n, err := limit(p.Limit)
	if err != nil {
		return nil, err
	}
	if err := p.Cursor.check(p.SortBy); err != nil {
		return nil, err
	}

	cursor := p.Cursor.clone()
	records, more, err := e.page(ctx, p.DriveID, n, cursor, p.Order, p.SortBy, p.Filter)
	if err != nil {
		return nil, err
	}
	if !more {
		cursor.Paging = nil
	}
	return &BatchResult{Records: records, MoreRows: more, Cursor: cursor}, nil
}

// page runs one batch statement and moves cursor.Paging to the last row
// returned. It leaves cursor.Paging alone when nothing came back.
func (e *Engine) page(ctx context.Context, drive uuid.UUID, n int, cursor *BatchCursor, order SortOrder, field SortField, f Filter) ([]*models.MainIndexRecord, bool, error) {
	pred, err := Build(e.identity, drive, f)
	if err != nil {
		return nil, false, err
	}

	pagingOp, stopOp, dir := "<", ">", "DESC"
	if order == OldestFirst {
		pagingOp, stopOp, dir = ">", "<", "ASC"
	}

	var (
		extra     []string
		extraArgs []any
	)
	if cursor.Paging != nil {
		cond, args := cursor.Paging.condition(pagingOp)
		extra = append(extra, cond)
		extraArgs = append(extraArgs, args...)
	}
	if cursor.Stop != nil {
		cond, args := cursor.Stop.condition(stopOp)
		extra = append(extra, cond)
		extraArgs = append(extraArgs, args...)
	}

	orderBy := "m.fileId " + dir
	if field == SortByUserDate {
		orderBy = "m.userDate " + dir + ", m.fileId " + dir
	}

	records, more, err := e.selectRecords(ctx, "query batch", pred, extra, extraArgs, orderBy, n)
	if err != nil {
		return nil, false, err
	}
	if len(records) > 0 {
		cursor.Paging = boundaryOf(field, records[len(records)-1])
	}

	e.logger.Debug(ctx, "batch page", "drive", drive, "sort", field, "rows", len(records), "more", more)
	return records, more, nil
}
