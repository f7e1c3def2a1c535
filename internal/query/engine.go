package query

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/dbx"
	"github.com/dmitrijs2005/driveindex/internal/logging"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/dmitrijs2005/driveindex/internal/repositories/mainindex"
	"github.com/google/uuid"
)

// Querier is the read side of the index. Engine implements it directly and
// the cache wraps it.
type Querier interface {
	QueryBatch(ctx context.Context, p BatchParams) (*BatchResult, error)
	QueryBatchAuto(ctx context.Context, p AutoParams) (*BatchResult, error)
	QueryModified(ctx context.Context, p ModifiedParams) (*ModifiedResult, error)
}

type BatchParams struct {
	DriveID uuid.UUID    `json:"driveId"`
	Limit   int          `json:"limit"`
	Cursor  *BatchCursor `json:"cursor"`
	Order   SortOrder    `json:"order"`
	SortBy  SortField    `json:"sortBy"`
	Filter  Filter       `json:"filter"`
}

// AutoParams has no ordering knobs: auto queries always run newest first
// by file key.
type AutoParams struct {
	DriveID uuid.UUID    `json:"driveId"`
	Limit   int          `json:"limit"`
	Cursor  *BatchCursor `json:"cursor"`
	Filter  Filter       `json:"filter"`
}

type ModifiedParams struct {
	DriveID uuid.UUID `json:"driveId"`
	Limit   int       `json:"limit"`
	Cursor  string    `json:"cursor"`
	// Ceiling excludes rows modified at or after this epoch millisecond.
	Ceiling *int64 `json:"ceiling"`
	Filter  Filter `json:"filter"`
}

type BatchResult struct {
	Records  []*models.MainIndexRecord `json:"records"`
	MoreRows bool                      `json:"moreRows"`
	Cursor   *BatchCursor              `json:"cursor"`
}

type ModifiedResult struct {
	Records  []*models.MainIndexRecord `json:"records"`
	MoreRows bool                      `json:"moreRows"`
	Cursor   string                    `json:"cursor"`
}

// Engine runs queries for one identity. It holds no per-query state.
type Engine struct {
	db       dbx.DBTX
	dialect  dbx.Dialect
	identity uuid.UUID
	logger   logging.Logger
}

// NewEngine constructs an Engine. A nil logger discards debug output.
func NewEngine(db dbx.DBTX, dialect dbx.Dialect, identity uuid.UUID, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Engine{db: db, dialect: dialect, identity: identity, logger: logger}
}

// limit validates a page size and keeps room for the look-ahead row.
func limit(n int) (int, error) {
	if n < 1 {
		return 0, common.NewValidationError("limit", "must be at least 1")
	}
	if n == math.MaxInt {
		n--
	}
	return n, nil
}

// selectRecords runs one statement over the main table and reads at most
// n+1 rows, reporting whether the extra row existed.
func (e *Engine) selectRecords(ctx context.Context, op string, p Predicate, extra []string, extraArgs []any, orderBy string, n int) ([]*models.MainIndexRecord, bool, error) {
	where := append(append([]string{}, p.Where...), extra...)
	args := append(append([]any{}, p.Args...), extraArgs...)
	args = append(args, n+1)

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT DISTINCT %s FROM %s m", mainindex.Columns("m"), mainindex.Table)
	if p.Join != "" {
		b.WriteString(" ")
		b.WriteString(p.Join)
	}
	fmt.Fprintf(&b, " WHERE %s ORDER BY %s LIMIT ?", strings.Join(where, " AND "), orderBy)

	rows, err := e.db.QueryContext(ctx, e.dialect.Rebind(b.String()), args...)
	if err != nil {
		return nil, false, common.Storage(op, err)
	}
	defer rows.Close()

	result := make([]*models.MainIndexRecord, 0, min(n, 64))
	more := false
	for rows.Next() {
		if len(result) == n {
			more = true
			break
		}
		rec, err := mainindex.ScanRecord(rows)
		if err != nil {
			return nil, false, common.Storage(op, err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, common.Storage(op, err)
	}
	return result, more, nil
}
