package domain

import (
	"errors"
	"fmt"
	"time"
)

// Frequency шаг повторения recurrence-правила
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// IsValid проверяет, что частота поддерживается
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

var (
	// ErrInvalidFrequency возвращается при неподдерживаемой частоте
	ErrInvalidFrequency = errors.New("domain: invalid recurrence frequency")

	// ErrAmbiguousRecurrenceBound возвращается, когда заданы и endDate, и maxOccurrences
	ErrAmbiguousRecurrenceBound = errors.New("domain: recurrence rule must be bounded by endDate or maxOccurrences, not both")

	// ErrInvalidRecurrenceBound возвращается при некорректной границе правила
	ErrInvalidRecurrenceBound = errors.New("domain: invalid recurrence bound")
)

// RecurrenceRule describes how an anchor occurrence repeats.
// Exactly one of EndDate/MaxOccurrences should bound the expansion;
// with neither set the expansion is capped by the system horizon and
// reported as unbounded (a warning, not an error).
type RecurrenceRule struct {
	Frequency      Frequency
	EndDate        *time.Time
	MaxOccurrences *int
}

// Validate проверяет правило без учета горизонта
func (r RecurrenceRule) Validate() error {
	if !r.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidFrequency, r.Frequency)
	}

	if r.EndDate != nil && r.MaxOccurrences != nil {
		return ErrAmbiguousRecurrenceBound
	}

	if r.MaxOccurrences != nil && *r.MaxOccurrences < 1 {
		return fmt.Errorf("%w: maxOccurrences must be positive", ErrInvalidRecurrenceBound)
	}

	return nil
}

// IsBounded сообщает, ограничено ли правило явной границей
func (r RecurrenceRule) IsBounded() bool {
	return r.EndDate != nil || r.MaxOccurrences != nil
}
