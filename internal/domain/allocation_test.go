package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationTransitions(t *testing.T) {
	tests := []struct {
		name string
		from AllocationStatus
		to   AllocationStatus
		ok   bool
	}{
		{"pending to confirmed", StatusPendingApproval, StatusConfirmed, true},
		{"pending to rejected", StatusPendingApproval, StatusRejected, true},
		{"pending to cancelled", StatusPendingApproval, StatusCancelled, true},
		{"confirmed to in_progress", StatusConfirmed, StatusInProgress, true},
		{"confirmed to cancelled", StatusConfirmed, StatusCancelled, true},
		{"confirmed to expired", StatusConfirmed, StatusExpired, true},
		{"in_progress to completed", StatusInProgress, StatusCompleted, true},
		{"pending cannot start", StatusPendingApproval, StatusInProgress, false},
		{"completed is terminal", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusConfirmed, false},
		{"in_progress cannot cancel", StatusInProgress, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Allocation{Kind: KindReservation, Status: tt.from}
			err := a.Transition(tt.to)

			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, a.Status)
				return
			}

			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, a.Status, "failed transition must not mutate status")

			var ite *InvalidTransitionError
			require.True(t, errors.As(err, &ite))
			assert.Equal(t, tt.from, ite.Current)
			assert.Equal(t, tt.to, ite.Attempted)
		})
	}
}

func TestMaintenanceTransitions(t *testing.T) {
	tests := []struct {
		name string
		from AllocationStatus
		to   AllocationStatus
		ok   bool
	}{
		{"scheduled to in_progress", StatusScheduled, StatusInProgress, true},
		{"scheduled to cancelled", StatusScheduled, StatusCancelled, true},
		{"in_progress to completed", StatusInProgress, StatusCompleted, true},
		{"scheduled cannot complete directly", StatusScheduled, StatusCompleted, false},
		{"maintenance never pending approval", StatusScheduled, StatusPendingApproval, false},
		{"completed is terminal", StatusCompleted, StatusScheduled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Allocation{Kind: KindMaintenance, Status: tt.from}
			err := a.Transition(tt.to)

			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestAllocation_IsBlocking(t *testing.T) {
	blocking := []AllocationStatus{StatusConfirmed, StatusInProgress, StatusScheduled}
	for _, s := range blocking {
		assert.True(t, (&Allocation{Status: s}).IsBlocking(), "status %s must block", s)
	}

	nonBlocking := []AllocationStatus{StatusPendingApproval, StatusCompleted, StatusCancelled, StatusRejected, StatusExpired}
	for _, s := range nonBlocking {
		assert.False(t, (&Allocation{Status: s}).IsBlocking(), "status %s must not block", s)
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusConfirmed, InitialStatus(KindReservation, false))
	assert.Equal(t, StatusPendingApproval, InitialStatus(KindReservation, true))
	// Политика одобрения не влияет на обслуживание
	assert.Equal(t, StatusScheduled, InitialStatus(KindMaintenance, true))
	assert.Equal(t, StatusScheduled, InitialStatus(KindMaintenance, false))
}

func TestRecurrenceRule_Validate(t *testing.T) {
	end := mustInterval(t, "2026-01-01T00:00:00Z", "2026-01-02T00:00:00Z").Start
	three := 3

	assert.NoError(t, RecurrenceRule{Frequency: FrequencyWeekly, EndDate: &end}.Validate())
	assert.NoError(t, RecurrenceRule{Frequency: FrequencyDaily, MaxOccurrences: &three}.Validate())
	assert.NoError(t, RecurrenceRule{Frequency: FrequencyMonthly}.Validate(), "unbounded rule is valid, horizon caps it later")

	assert.ErrorIs(t, RecurrenceRule{Frequency: "hourly"}.Validate(), ErrInvalidFrequency)
	assert.ErrorIs(t,
		RecurrenceRule{Frequency: FrequencyWeekly, EndDate: &end, MaxOccurrences: &three}.Validate(),
		ErrAmbiguousRecurrenceBound)

	zero := 0
	assert.ErrorIs(t,
		RecurrenceRule{Frequency: FrequencyWeekly, MaxOccurrences: &zero}.Validate(),
		ErrInvalidRecurrenceBound)
}
