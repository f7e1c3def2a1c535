package query

import (
	"context"
)

// QueryModified returns records changed after the cursor position in
// ascending (modified, rowId) order. Malformed cursors start from the
// beginning. The returned cursor is always in the two-field form.
func (e *Engine) QueryModified(ctx context.Context, p ModifiedParams) (*ModifiedResult, error) {
	n, err := limit(p.Limit)
	if err != nil {
		return nil, err
	}
	pred, err := Build(e.identity, p.DriveID, p.Filter)
	if err != nil {
		return nil, err
	}

	cursor := ParseModifiedCursor(p.Cursor)
	extra := []string{"(m.modified, m.rowId) > (?, ?)"}
	extraArgs := []any{cursor.Modified, cursor.RowID}
	if p.Ceiling != nil {
		extra = append(extra, "m.modified < ?")
		extraArgs = append(extraArgs, *p.Ceiling)
	}

	records, more, err := e.selectRecords(ctx, "query modified", pred, extra, extraArgs, "m.modified ASC, m.rowId ASC", n)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		last := records[len(records)-1]
		cursor = ModifiedCursor{Modified: last.Modified, RowID: last.RowID}
	}

	e.logger.Debug(ctx, "modified page", "drive", p.DriveID, "rows", len(records), "more", more, "cursor", cursor.String())
	return &ModifiedResult{Records: records, MoreRows: more, Cursor: cursor.String()}, nil
}
