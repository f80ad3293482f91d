package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
)

func anchorAt(t *testing.T, start string, d time.Duration) domain.Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	iv, err := domain.NewInterval(s, s.Add(d))
	require.NoError(t, err)
	return iv
}

func TestExpand_MaxOccurrencesBound(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-10-06T09:00:00Z", time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyWeekly,
		MaxOccurrences: ptr.Ptr(4),
	}, anchor)
	require.NoError(t, err)

	require.Len(t, exp.Occurrences, 4)
	assert.False(t, exp.Truncated)

	// Шаг ровно 7 дней, длительность якоря сохраняется
	for i, occ := range exp.Occurrences {
		assert.Equal(t, anchor.Start.AddDate(0, 0, 7*i), occ.Start, "occurrence %d", i)
		assert.Equal(t, time.Hour, occ.Duration(), "occurrence %d", i)
	}
}

func TestExpand_EndDateBound(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-10-01T09:00:00Z", 30*time.Minute)
	end := time.Date(2025, 10, 5, 23, 59, 59, 0, time.UTC)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency: domain.FrequencyDaily,
		EndDate:   &end,
	}, anchor)
	require.NoError(t, err)

	// 1..5 октября включительно
	require.Len(t, exp.Occurrences, 5)
	assert.False(t, exp.Truncated)
	assert.Equal(t, time.Date(2025, 10, 5, 9, 0, 0, 0, time.UTC), exp.Occurrences[4].Start)
}

func TestExpand_MonthlyClampsToShorterMonth(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-01-31T10:00:00Z", time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyMonthly,
		MaxOccurrences: ptr.Ptr(4),
	}, anchor)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 4)

	// Jan 31 -> Feb 28 (2025 не високосный) -> Mar 31 -> Apr 30, не Mar 3
	assert.Equal(t, time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC), exp.Occurrences[0].Start)
	assert.Equal(t, time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC), exp.Occurrences[1].Start)
	assert.Equal(t, time.Date(2025, 3, 31, 10, 0, 0, 0, time.UTC), exp.Occurrences[2].Start)
	assert.Equal(t, time.Date(2025, 4, 30, 10, 0, 0, 0, time.UTC), exp.Occurrences[3].Start)
}

func TestExpand_MonthlyClampLeapYear(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2024-01-31T10:00:00Z", time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyMonthly,
		MaxOccurrences: ptr.Ptr(2),
	}, anchor)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 2)

	// 2024 високосный: Jan 31 -> Feb 29
	assert.Equal(t, time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), exp.Occurrences[1].Start)
}

func TestExpand_YearlyFeb29Clamps(t *testing.T) {
	e := NewExpander(10)
	anchor := anchorAt(t, "2024-02-29T08:00:00Z", time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyYearly,
		MaxOccurrences: ptr.Ptr(3),
	}, anchor)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 3)

	assert.Equal(t, time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), exp.Occurrences[1].Start)
	assert.Equal(t, time.Date(2026, 2, 28, 8, 0, 0, 0, time.UTC), exp.Occurrences[2].Start)
}

func TestExpand_QuarterlyStep(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-01-15T12:00:00Z", 2*time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyQuarterly,
		MaxOccurrences: ptr.Ptr(4),
	}, anchor)
	require.NoError(t, err)
	require.Len(t, exp.Occurrences, 4)

	assert.Equal(t, time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC), exp.Occurrences[1].Start)
	assert.Equal(t, time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC), exp.Occurrences[2].Start)
	assert.Equal(t, time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC), exp.Occurrences[3].Start)
}

func TestExpand_UnboundedTruncatedAtHorizon(t *testing.T) {
	e := NewExpander(2)
	anchor := anchorAt(t, "2025-10-06T09:00:00Z", time.Hour)

	exp, err := e.Expand(domain.RecurrenceRule{Frequency: domain.FrequencyMonthly}, anchor)
	require.NoError(t, err)

	// Без явной границы расширение обрезается по горизонту с предупреждением
	assert.True(t, exp.Truncated)
	require.NotEmpty(t, exp.Occurrences)

	horizon := anchor.Start.AddDate(2, 0, 0)
	last := exp.Occurrences[len(exp.Occurrences)-1]
	assert.True(t, last.Start.Before(horizon))
	assert.Len(t, exp.Occurrences, 24)
}

func TestExpand_Deterministic(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-10-06T09:00:00Z", time.Hour)
	rule := domain.RecurrenceRule{Frequency: domain.FrequencyDaily, MaxOccurrences: ptr.Ptr(30)}

	first, err := e.Expand(rule, anchor)
	require.NoError(t, err)
	second, err := e.Expand(rule, anchor)
	require.NoError(t, err)

	// Чистая функция: повторный вызов дает идентичную последовательность
	assert.Equal(t, first, second)
}

func TestExpand_InvalidRule(t *testing.T) {
	e := NewExpander(0)
	anchor := anchorAt(t, "2025-10-06T09:00:00Z", time.Hour)

	_, err := e.Expand(domain.RecurrenceRule{Frequency: "hourly"}, anchor)
	assert.ErrorIs(t, err, domain.ErrInvalidFrequency)

	_, err = e.Expand(domain.RecurrenceRule{Frequency: domain.FrequencyDaily}, domain.Interval{})
	assert.ErrorIs(t, err, ErrInvalidAnchor)

	_, err = e.Expand(domain.RecurrenceRule{
		Frequency:      domain.FrequencyDaily,
		MaxOccurrences: ptr.Ptr(domain.MaxOccurrencesPerRule + 1),
	}, anchor)
	assert.ErrorIs(t, err, ErrTooManyOccurrences)
}
