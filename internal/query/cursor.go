package query

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/driveindex/internal/common"
	"github.com/dmitrijs2005/driveindex/internal/models"
	"github.com/google/uuid"
)

type SortField int

const (
	SortByFileID SortField = iota
	SortByUserDate
)

func (f SortField) String() string {
	switch f {
	case SortByFileID:
		return "fileId"
	case SortByUserDate:
		return "userDate"
	default:
		return fmt.Sprintf("SortField(%d)", int(f))
	}
}

type SortOrder int

const (
	NewestFirst SortOrder = iota
	OldestFirst
)

// Boundary is a position in a batch ordering. Each sort field has its own
// implementation, so a cursor cannot carry a user date for a key-only
// ordering or miss one for the compound ordering.
type Boundary interface {
	Field() SortField
	// KeyBytes returns the raw 16 bytes of the file key.
	KeyBytes() []byte
	// condition renders "position op boundary" over the main table alias.
	condition(op string) (string, []any)
	encode(dst []byte) []byte
}

// KeyBoundary is a position when sorting by file key only.
type KeyBoundary struct {
	FileID uuid.UUID
}

func (b KeyBoundary) Field() SortField { return SortByFileID }
func (b KeyBoundary) KeyBytes() []byte { return models.Key(b.FileID) }

func (b KeyBoundary) condition(op string) (string, []any) {
	return "m.fileId " + op + " ?", []any{models.Key(b.FileID)}
}

func (b KeyBoundary) encode(dst []byte) []byte {
	dst = append(dst, tagKey)
	return append(dst, b.FileID[:]...)
}

// UserDateBoundary is a position when sorting by (userDate, file key).
type UserDateBoundary struct {
	UserDate int64
	FileID   uuid.UUID
}

func (b UserDateBoundary) Field() SortField { return SortByUserDate }
func (b UserDateBoundary) KeyBytes() []byte { return models.Key(b.FileID) }

// condition continues across ties: same user date with a key past the
// boundary, or a user date strictly past it.
func (b UserDateBoundary) condition(op string) (string, []any) {
	return fmt.Sprintf("((m.userDate = ? AND m.fileId %s ?) OR m.userDate %s ?)", op, op),
		[]any{b.UserDate, models.Key(b.FileID), b.UserDate}
}

func (b UserDateBoundary) encode(dst []byte) []byte {
	dst = append(dst, tagUserDate)
	dst = binary.BigEndian.AppendUint64(dst, uint64(b.UserDate))
	return append(dst, b.FileID[:]...)
}

// boundaryOf returns the position of rec in the given ordering.
func boundaryOf(field SortField, rec *models.MainIndexRecord) Boundary {
	if field == SortByUserDate {
		return UserDateBoundary{UserDate: rec.UserDate, FileID: rec.FileID}
	}
	return KeyBoundary{FileID: rec.FileID}
}

// BatchCursor carries batch paging state between calls. Nil fields are
// unset. The zero value starts at the beginning of the dataset.
type BatchCursor struct {
	// Paging is the last row returned; the next page continues past it.
	Paging Boundary
	// Stop is where paging ends; rows at or beyond it are not returned.
	Stop Boundary
	// Next is the newest row seen by an auto query since it last started
	// from the top.
	Next Boundary
}

func (c *BatchCursor) clone() *BatchCursor {
	if c == nil {
		return &BatchCursor{}
	}
	cp := *c
	return &cp
}

// check rejects boundaries that belong to a different sort field.
func (c *BatchCursor) check(field SortField) error {
	if c == nil {
		return nil
	}
	slots := []struct {
		name string
		b    Boundary
	}{{"paging", c.Paging}, {"stop", c.Stop}, {"next", c.Next}}
	for _, slot := range slots {
		if slot.b != nil && slot.b.Field() != field {
			return common.NewValidationError("cursor", fmt.Sprintf("%s boundary is for %s, query sorts by %s", slot.name, slot.b.Field(), field))
		}
	}
	return nil
}

const (
	cursorVersion byte = 1

	tagUnset    byte = 0
	tagKey      byte = 1
	tagUserDate byte = 2
)

var errBadCursor = errors.New("malformed batch cursor")

// MarshalBinary encodes the cursor as a version byte followed by the
// paging, stop and next slots. Each slot is a tag byte and, when set, the
// big-endian user date (compound ordering only) and the 16 key bytes.
func (c BatchCursor) MarshalBinary() ([]byte, error) {
	out := []byte{cursorVersion}
	for _, b := range []Boundary{c.Paging, c.Stop, c.Next} {
		if b == nil {
			out = append(out, tagUnset)
			continue
		}
		out = b.encode(out)
	}
	return out, nil
}

func (c *BatchCursor) UnmarshalBinary(data []byte) error {
	if len(data) < 1 || data[0] != cursorVersion {
		return errBadCursor
	}
	rest := data[1:]
	var slots [3]Boundary
	for i := range slots {
		b, n, err := decodeBoundary(rest)
		if err != nil {
			return err
		}
		slots[i] = b
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return errBadCursor
	}
	c.Paging, c.Stop, c.Next = slots[0], slots[1], slots[2]
	return nil
}

func decodeBoundary(b []byte) (Boundary, int, error) {
	if len(b) < 1 {
		return nil, 0, errBadCursor
	}
	switch b[0] {
	case tagUnset:
		return nil, 1, nil
	case tagKey:
		if len(b) < 1+16 {
			return nil, 0, errBadCursor
		}
		var id uuid.UUID
		copy(id[:], b[1:17])
		return KeyBoundary{FileID: id}, 17, nil
	case tagUserDate:
		if len(b) < 1+8+16 {
			return nil, 0, errBadCursor
		}
		var id uuid.UUID
		copy(id[:], b[9:25])
		return UserDateBoundary{UserDate: int64(binary.BigEndian.Uint64(b[1:9])), FileID: id}, 25, nil
	default:
		return nil, 0, errBadCursor
	}
}

// MarshalText is the URL-safe base64 form of MarshalBinary. It is also what
// encoding/json emits for a cursor.
func (c BatchCursor) MarshalText() ([]byte, error) {
	raw, err := c.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(out, raw)
	return out, nil
}

func (c *BatchCursor) UnmarshalText(text []byte) error {
	raw := make([]byte, base64.RawURLEncoding.DecodedLen(len(text)))
	n, err := base64.RawURLEncoding.Decode(raw, text)
	if err != nil {
		return fmt.Errorf("%w: %v", errBadCursor, err)
	}
	return c.UnmarshalBinary(raw[:n])
}

// ParseBatchCursor decodes the text form. An empty string is a fresh cursor.
func ParseBatchCursor(s string) (*BatchCursor, error) {
	c := &BatchCursor{}
	if s == "" {
		return c, nil
	}
	if err := c.UnmarshalText([]byte(s)); err != nil {
		return nil, common.NewValidationError("cursor", err.Error())
	}
	return c, nil
}
