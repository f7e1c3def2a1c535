package query

import (
	"strconv"
	"strings"
)

// LegacyCursorThreshold separates plain millisecond timestamps from the
// packed unique timestamps (millis << 16 | counter) older clients send as
// a bare integer cursor. 1<<50 ms is tens of thousands of years away.
const LegacyCursorThreshold int64 = 1 << 50

// ModifiedCursor is a position in (modified, rowId) order.
type ModifiedCursor struct {
	Modified int64
	RowID    int64
}

// String renders the two-field form "modified,rowId".
func (c ModifiedCursor) String() string {
	return strconv.FormatInt(c.Modified, 10) + "," + strconv.FormatInt(c.RowID, 10)
}

// ParseModifiedCursor accepts "modified,rowId" or a bare integer. A bare
// integer above LegacyCursorThreshold is a packed legacy timestamp and is
// shifted right by 16 bits. Anything unparsable starts from (0, 0).
func ParseModifiedCursor(s string) ModifiedCursor {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModifiedCursor{}
	}

	if ts, seq, ok := strings.Cut(s, ","); ok {
		m, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
		if err != nil || m < 0 {
			return ModifiedCursor{}
		}
		r, err := strconv.ParseInt(strings.TrimSpace(seq), 10, 64)
		if err != nil || r < 0 {
			return ModifiedCursor{}
		}
		return ModifiedCursor{Modified: m, RowID: r}
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return ModifiedCursor{}
	}
	if v > LegacyCursorThreshold {
		v >>= 16
	}
	return ModifiedCursor{Modified: v}
}
