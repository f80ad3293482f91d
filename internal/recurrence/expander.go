// Package recurrence расширяет recurrence-правила в конечные последовательности интервалов
//
// Расширение - чистая функция правила и якорного интервала: без скрытого
// состояния, повторный вызов с теми же аргументами дает ту же последовательность.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

var (
	// ErrInvalidAnchor возвращается при пустом якорном интервале
	ErrInvalidAnchor = errors.New("recurrence: anchor interval is required")

	// ErrTooManyOccurrences возвращается, когда явная граница правила превышает системный лимит
	ErrTooManyOccurrences = errors.New("recurrence: rule expands to too many occurrences")
)

// Expansion результат расширения правила
type Expansion struct {
	// Occurrences упорядоченные по возрастанию интервалы, включая якорный (индекс 0)
	Occurrences []domain.Interval

	// Truncated выставляется, когда правило без явной границы уперлось в горизонт.
	// Это предупреждение (RecurrenceUnbounded), а не ошибка: последовательность
	// молча обрезана по горизонту
	Truncated bool
}

// Expander разворачивает правила в пределах системного горизонта
type Expander struct {
	horizonYears int
}

// NewExpander создает expander с горизонтом в годах от якоря
// При horizonYears <= 0 используется domain.DefaultHorizonYears
func NewExpander(horizonYears int) *Expander {
	if horizonYears <= 0 {
		horizonYears = domain.DefaultHorizonYears
	}
	return &Expander{horizonYears: horizonYears}
}

// Expand expands the rule anchored at the given occurrence into a bounded,
// ordered sequence of intervals. Every produced interval preserves the
// anchor's duration. Generation stops at the first of: EndDate exceeded,
// MaxOccurrences reached, or the horizon reached - whichever binds first.
//
// Step sizes: daily +1 day, weekly +7 days, monthly +1 calendar month,
// quarterly +3 months, yearly +1 year. Calendar steps clamp the day of
// month to the shorter month (Jan 31 + 1 month = Feb 28/29).
func (e *Expander) Expand(rule domain.RecurrenceRule, anchor domain.Interval) (Expansion, error) {
	if anchor.IsZero() {
		return Expansion{}, ErrInvalidAnchor
	}

	if err := rule.Validate(); err != nil {
		return Expansion{}, err
	}

	if rule.MaxOccurrences != nil && *rule.MaxOccurrences > domain.MaxOccurrencesPerRule {
		return Expansion{}, fmt.Errorf("%w: %d > %d", ErrTooManyOccurrences, *rule.MaxOccurrences, domain.MaxOccurrencesPerRule)
	}

	horizon := anchor.Start.AddDate(e.horizonYears, 0, 0)
	duration := anchor.Duration()

	occurrences := make([]domain.Interval, 0)
	truncated := false

	for n := 0; ; n++ {
		start := occurrenceStart(rule.Frequency, anchor.Start, n)

		if rule.MaxOccurrences != nil && n >= *rule.MaxOccurrences {
			break
		}
		if rule.EndDate != nil && start.After(*rule.EndDate) {
			break
		}
		if !start.Before(horizon) {
			// Горизонт связывает только правила без явной границы - для них
			// обрезка является предупреждением RecurrenceUnbounded
			if !rule.IsBounded() {
				truncated = true
			}
			break
		}
		// Защитный предел для явных границ, уходящих за системный максимум
		if n >= domain.MaxOccurrencesPerRule {
			truncated = true
			break
		}

		occurrences = append(occurrences, domain.Interval{Start: start, End: start.Add(duration)})
	}

	return Expansion{Occurrences: occurrences, Truncated: truncated}, nil
}

// occurrenceStart возвращает начало occurrence номер n (0 = якорь)
func occurrenceStart(freq domain.Frequency, anchor time.Time, n int) time.Time {
	switch freq {
	case domain.FrequencyDaily:
		return anchor.AddDate(0, 0, n)
	case domain.FrequencyWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case domain.FrequencyMonthly:
		return addMonthsClamped(anchor, n)
	case domain.FrequencyQuarterly:
		return addMonthsClamped(anchor, 3*n)
	case domain.FrequencyYearly:
		return addMonthsClamped(anchor, 12*n)
	default:
		return anchor
	}
}

// addMonthsClamped adds calendar months keeping the anchor's day of month,
// clamped to the target month's length. time.AddDate is not used here:
// it normalizes Jan 31 + 1 month into Mar 2/3 instead of clamping to
// the end of February.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Первое число целевого месяца, затем зажимаем день
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if maxDay := daysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > maxDay {
		day = maxDay
	}

	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// День 0 следующего месяца - последний день текущего
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
