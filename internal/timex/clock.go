package timex

import "time"

// Clock returns the current time. The store takes one so tests can pin
// created/modified stamps.
type Clock func() time.Time

// UnixMilli returns c() in epoch milliseconds, falling back to time.Now
// when c is nil.
func (c Clock) UnixMilli() int64 {
	if c == nil {
		return time.Now().UnixMilli()
	}
	return c().UnixMilli()
}
