package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInterval возвращается при попытке создать пустой или перевернутый интервал
	ErrInvalidInterval = errors.New("domain: interval start must be before end")

	// ErrDisjointIntervals возвращается при попытке слить непересекающиеся интервалы
	ErrDisjointIntervals = errors.New("domain: intervals neither overlap nor touch")
)

// Interval is a half-open time window [Start, End) in UTC.
// Intervals crossing a DST boundary are treated as raw UTC spans,
// no calendar-local adjustment is applied.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval constructs a half-open interval, normalizing both instants to UTC.
// Zero-length and inverted intervals are rejected with ErrInvalidInterval.
func NewInterval(start, end time.Time) (Interval, error) {
	start = start.UTC()
	end = end.UTC()

	if !end.After(start) {
		return Interval{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether the two half-open intervals share any instant.
// Touching boundaries ([10:00,11:00) vs [11:00,12:00)) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether the instant falls inside the interval.
// The start is inclusive, the end is exclusive.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Adjacent reports whether the intervals touch without overlapping.
func (i Interval) Adjacent(other Interval) bool {
	return i.End.Equal(other.Start) || other.End.Equal(i.Start)
}

// Merge returns the union of two intervals.
// Valid only for overlapping or adjacent intervals, otherwise ErrDisjointIntervals.
func (i Interval) Merge(other Interval) (Interval, error) {
	if !i.Overlaps(other) && !i.Adjacent(other) {
		return Interval{}, ErrDisjointIntervals
	}

	merged := i
	if other.Start.Before(merged.Start) {
		merged.Start = other.Start
	}
	if other.End.After(merged.End) {
		merged.End = other.End
	}

	return merged, nil
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// IsZero reports whether the interval is unset.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// Shift returns the interval moved forward so that it starts at the given instant,
// preserving the duration.
func (i Interval) Shift(start time.Time) Interval {
	return Interval{Start: start.UTC(), End: start.UTC().Add(i.Duration())}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s)", i.Start.Format(time.RFC3339), i.End.Format(time.RFC3339))
}
