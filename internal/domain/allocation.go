package domain

import (
	"errors"
	"fmt"
	"time"
)

// AllocationKind discriminates the two allocation variants.
// A tagged kind field is used instead of a type hierarchy so that the
// conflict detector and the transition runner treat both uniformly.
type AllocationKind string

const (
	KindReservation AllocationKind = "reservation"
	KindMaintenance AllocationKind = "scheduled_maintenance"
)

// AllocationStatus represents the lifecycle state of an allocation
type AllocationStatus string

const (
	// Reservation lifecycle
	StatusPendingApproval AllocationStatus = "pending_approval"
	StatusConfirmed       AllocationStatus = "confirmed"
	StatusInProgress      AllocationStatus = "in_progress"
	StatusCompleted       AllocationStatus = "completed"
	StatusRejected        AllocationStatus = "rejected"
	StatusCancelled       AllocationStatus = "cancelled"
	StatusExpired         AllocationStatus = "expired"

	// Maintenance lifecycle (scheduled plays the role of confirmed)
	StatusScheduled AllocationStatus = "scheduled"
)

// Priority уровень приоритета запроса
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
	PriorityUrgent Priority = 4
)

// IsValid проверяет, что приоритет в допустимом диапазоне
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

// Allocation represents a committed or proposed occupation of a resource
// for a time interval. Reservations and scheduled maintenance share the
// struct and are told apart by Kind.
type Allocation struct {
	ID          int64
	ResourceID  string
	Interval    Interval
	Kind        AllocationKind
	Status      AllocationStatus
	Priority    Priority
	RequesterID string

	// Связь с recurrence-группой: все occurrence'ы одного правила
	// делят RecurrenceGroupID; ParentOccurrenceID указывает на первый occurrence
	RecurrenceGroupID  *string
	ParentOccurrenceID *int64

	// Ключ идемпотентности запроса (ответственность вызывающей стороны при retry)
	IdempotencyKey *string

	TerminationReason *string
	TerminatedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// reservationTransitions допустимые переходы жизненного цикла бронирования
var reservationTransitions = map[AllocationStatus][]AllocationStatus{
	StatusPendingApproval: {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:       {StatusInProgress, StatusRejected, StatusCancelled, StatusExpired},
	StatusInProgress:      {StatusCompleted},
}

// maintenanceTransitions допустимые переходы жизненного цикла обслуживания
// Postpone не меняет статус: SCHEDULED остается SCHEDULED с новым интервалом
var maintenanceTransitions = map[AllocationStatus][]AllocationStatus{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

// ErrInvalidTransition возвращается при недопустимом переходе статуса
var ErrInvalidTransition = errors.New("domain: invalid status transition")

// InvalidTransitionError carries the current and attempted statuses for reporting.
// errors.Is(err, ErrInvalidTransition) matches it.
type InvalidTransitionError struct {
	Kind      AllocationKind
	Current   AllocationStatus
	Attempted AllocationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("domain: invalid %s transition %s -> %s", e.Kind, e.Current, e.Attempted)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CanTransition reports whether the allocation may move to the target status.
func (a *Allocation) CanTransition(to AllocationStatus) bool {
	var allowed []AllocationStatus
	switch a.Kind {
	case KindMaintenance:
		allowed = maintenanceTransitions[a.Status]
	default:
		allowed = reservationTransitions[a.Status]
	}

	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Transition moves the allocation to the target status or fails with
// InvalidTransitionError carrying the current and attempted statuses.
func (a *Allocation) Transition(to AllocationStatus) error {
	if !a.CanTransition(to) {
		return &InvalidTransitionError{Kind: a.Kind, Current: a.Status, Attempted: to}
	}
	a.Status = to
	return nil
}

// IsTerminal reports whether the allocation reached a final state.
// Terminal allocations are never deleted, only kept for history.
func (a *Allocation) IsTerminal() bool {
	switch a.Status {
	case StatusCompleted, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsBlocking reports whether the allocation occupies capacity for
// conflict detection purposes.
func (a *Allocation) IsBlocking() bool {
	switch a.Status {
	case StatusConfirmed, StatusInProgress, StatusScheduled:
		return true
	}
	return false
}

// IsPending reports whether the allocation awaits approval.
func (a *Allocation) IsPending() bool {
	return a.Status == StatusPendingApproval
}

// CanBeCancelled reports whether cancellation is a valid transition.
func (a *Allocation) CanBeCancelled() bool {
	return a.CanTransition(StatusCancelled)
}

// BlockingStatuses статусы, участвующие в проверке конфликтов
// Для бронирований это CONFIRMED/IN_PROGRESS, для обслуживания SCHEDULED/IN_PROGRESS
var BlockingStatuses = []AllocationStatus{
	StatusConfirmed,
	StatusInProgress,
	StatusScheduled,
}

// TerminalStatuses терминальные статусы (soft-удаление)
var TerminalStatuses = []AllocationStatus{
	StatusCompleted,
	StatusRejected,
	StatusCancelled,
	StatusExpired,
}

// InitialStatus returns the status a fresh allocation of the given kind starts in.
func InitialStatus(kind AllocationKind, requiresApproval bool) AllocationStatus {
	if kind == KindMaintenance {
		return StatusScheduled
	}
	if requiresApproval {
		return StatusPendingApproval
	}
	return StatusConfirmed
}
