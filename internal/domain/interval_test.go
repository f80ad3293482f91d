package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	iv, err := NewInterval(s, e)
	require.NoError(t, err)
	return iv
}

func TestNewInterval(t *testing.T) {
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

	t.Run("valid interval", func(t *testing.T) {
		iv, err := NewInterval(now, now.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, iv.Duration())
	})

	t.Run("zero-length interval rejected", func(t *testing.T) {
		_, err := NewInterval(now, now)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("inverted interval rejected", func(t *testing.T) {
		_, err := NewInterval(now.Add(time.Hour), now)
		assert.ErrorIs(t, err, ErrInvalidInterval)
	})

	t.Run("instants normalized to UTC", func(t *testing.T) {
		msk := time.FixedZone("MSK", 3*60*60)
		iv, err := NewInterval(now.In(msk), now.In(msk).Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, time.UTC, iv.Start.Location())
		assert.True(t, iv.Start.Equal(now))
	})
}

func TestInterval_Overlaps(t *testing.T) {
	base := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"partial overlap", mustInterval(t, "2025-10-15T10:30:00Z", "2025-10-15T11:30:00Z"), true},
		{"contained", mustInterval(t, "2025-10-15T10:15:00Z", "2025-10-15T10:45:00Z"), true},
		{"containing", mustInterval(t, "2025-10-15T09:00:00Z", "2025-10-15T12:00:00Z"), true},
		{"identical", mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z"), true},
		// Half-open boundary: touching intervals do not overlap
		{"adjacent after", mustInterval(t, "2025-10-15T11:00:00Z", "2025-10-15T12:00:00Z"), false},
		{"adjacent before", mustInterval(t, "2025-10-15T09:00:00Z", "2025-10-15T10:00:00Z"), false},
		{"disjoint", mustInterval(t, "2025-10-15T13:00:00Z", "2025-10-15T14:00:00Z"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestInterval_Contains(t *testing.T) {
	iv := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")

	assert.True(t, iv.Contains(time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)), "start is inclusive")
	assert.True(t, iv.Contains(time.Date(2025, 10, 15, 10, 30, 0, 0, time.UTC)))
	assert.False(t, iv.Contains(time.Date(2025, 10, 15, 11, 0, 0, 0, time.UTC)), "end is exclusive")
	assert.False(t, iv.Contains(time.Date(2025, 10, 15, 9, 59, 0, 0, time.UTC)))
}

func TestInterval_Merge(t *testing.T) {
	t.Run("overlapping intervals merge", func(t *testing.T) {
		a := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
		b := mustInterval(t, "2025-10-15T10:30:00Z", "2025-10-15T12:00:00Z")

		merged, err := a.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, a.Start, merged.Start)
		assert.Equal(t, b.End, merged.End)
	})

	t.Run("adjacent intervals merge", func(t *testing.T) {
		a := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
		b := mustInterval(t, "2025-10-15T11:00:00Z", "2025-10-15T12:00:00Z")

		merged, err := a.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, merged.Duration())
	})

	t.Run("disjoint intervals rejected", func(t *testing.T) {
		a := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
		b := mustInterval(t, "2025-10-15T12:00:00Z", "2025-10-15T13:00:00Z")

		_, err := a.Merge(b)
		assert.ErrorIs(t, err, ErrDisjointIntervals)
	})
}

func TestInterval_Shift(t *testing.T) {
	iv := mustInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:30:00Z")
	shifted := iv.Shift(time.Date(2025, 10, 22, 10, 0, 0, 0, time.UTC))

	assert.Equal(t, iv.Duration(), shifted.Duration())
	assert.Equal(t, time.Date(2025, 10, 22, 10, 0, 0, 0, time.UTC), shifted.Start)
}
