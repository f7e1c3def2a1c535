package query

import (
	"context"

	"github.com/dmitrijs2005/driveindex/internal/models"
)

// QueryBatchAuto delivers the newest records first and, on later calls with
// the returned cursor, only what is new since then, without skipping or
// repeating rows when files are deleted between calls.
//
// The first page of a pass that starts from the top remembers its newest
// row in Next. When a pass runs dry the stop boundary moves up to Next and
// paging restarts from the top, so the following statement only sees rows
// added since the pass began. A short page is topped up from that newer
// range within the same call; newer rows come first in the result.
func (e *Engine) QueryBatchAuto(ctx context.Context, p AutoParams) (*BatchResult, error) {
	want, err := limit(p.Limit)
	if err != nil {
		return nil, err
	}
	if err := p.Cursor.check(SortByFileID); err != nil {
		return nil, err
	}

	cursor := p.Cursor.clone()
	var (
		pages [][]*models.MainIndexRecord
		more  bool
		total int
	)

	for {
		fromTop := cursor.Paging == nil
		records, m, err := e.page(ctx, p.DriveID, want, cursor, NewestFirst, SortByFileID, p.Filter)
		if err != nil {
			return nil, err
		}

		if len(records) == 0 {
			if cursor.Next != nil {
				cursor.Stop, cursor.Next, cursor.Paging = cursor.Next, nil, nil
				continue
			}
			cursor.Next, cursor.Paging = nil, nil
			break
		}

		pages = append(pages, records)
		total += len(records)
		more = m

		if fromTop {
			cursor.Next = boundaryOf(SortByFileID, records[0])
		}
		if len(records) >= want {
			break
		}
		// Short page: this pass is exhausted.
		if cursor.Next != nil {
			cursor.Stop = cursor.Next
		}
		cursor.Next, cursor.Paging = nil, nil
		want -= len(records)
	}

	result := make([]*models.MainIndexRecord, 0, total)
	for i := len(pages) - 1; i >= 0; i-- {
		result = append(result, pages[i]...)
	}
	e.logger.Debug(ctx, "auto batch", "drive", p.DriveID, "pages", len(pages), "rows", total, "more", more)
	return &BatchResult{Records: result, MoreRows: more, Cursor: cursor}, nil
}
