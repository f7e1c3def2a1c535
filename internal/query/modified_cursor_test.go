package query

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseModifiedCursor(t *testing.T) {
	const ms = int64(1_700_000_000_123)
	packed := ms<<16 | 0x2a

	tests := []struct {
		name string
		in   string
		want ModifiedCursor
	}{
		{"empty", "", ModifiedCursor{}},
		{"pair", "1700000000123,42", ModifiedCursor{Modified: ms, RowID: 42}},
		{"pair with spaces", " 5 , 6 ", ModifiedCursor{Modified: 5, RowID: 6}},
		{"bare millis", "1700000000123", ModifiedCursor{Modified: ms}},
		{"legacy packed", strconv.FormatInt(packed, 10), ModifiedCursor{Modified: ms}},
		{"garbage", "yesterday", ModifiedCursor{}},
		{"half pair", "12,", ModifiedCursor{}},
		{"bad row", "12,x", ModifiedCursor{}},
		{"negative", "-5,1", ModifiedCursor{}},
		{"json object", `{"time":1}`, ModifiedCursor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseModifiedCursor(tt.in))
		})
	}
}

func TestModifiedCursor_RoundTrip(t *testing.T) {
	for _, c := range []ModifiedCursor{{}, {Modified: 1, RowID: 2}, {Modified: 1_700_000_000_000, RowID: 1 << 40}} {
		assert.Equal(t, c, ParseModifiedCursor(c.String()))
	}
	assert.Equal(t, "7,9", ModifiedCursor{Modified: 7, RowID: 9}.String())
}

func TestLegacyThresholdAboveRealTimestamps(t *testing.T) {
	year3000 := int64(32_503_680_000_000)
	assert.Less(t, year3000, LegacyCursorThreshold)
	assert.Greater(t, int64(1_700_000_000_000)<<16, LegacyCursorThreshold)
}
