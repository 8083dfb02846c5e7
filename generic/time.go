package generic

import (
	"math"
	"time"
)

// =============================================================================
// CLOCK - Injectable "now" so reports are reproducible in tests
// =============================================================================

type Clock interface {
	Now() time.Time
}

// SystemClock returns the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// =============================================================================
// DAY ARITHMETIC
// =============================================================================

const day = 24 * time.Hour

// DaysOverdue is ceil((now - due) / 24h), never negative.
func DaysOverdue(due, now time.Time) int {
	if !due.Before(now) {
		return 0
	}
	return int(math.Ceil(float64(now.Sub(due)) / float64(day)))
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(day - time.Nanosecond)
}

func NewDate(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// DATE RANGE - Optional [From, To] bounds on report filters
// =============================================================================

// DateRange is inclusive on both ends. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains returns true if t is within [From, To].
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// Validate rejects a range whose end precedes its start.
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return NewValidation("date_to", "end before start")
	}
	return nil
}

func (r DateRange) String() string {
	f, t := "-inf", "+inf"
	if r.From != nil {
		f = r.From.Format("2006-01-02")
	}
	if r.To != nil {
		t = r.To.Format("2006-01-02")
	}
	return "[" + f + ", " + t + "]"
}
