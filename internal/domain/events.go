package domain

import "time"

// Event is a domain event emitted after a state transition commits.
// Delivery to notification/audit/calendar-sync consumers is asynchronous
// and best-effort: a failing consumer never rolls back a scheduling decision.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// AllocationAllocated - allocation создан и занял слот (confirmed или scheduled)
type AllocationAllocated struct {
	AllocationID int64            `json:"allocationId"`
	ResourceID   string           `json:"resourceId"`
	Kind         AllocationKind   `json:"kind"`
	Status       AllocationStatus `json:"status"`
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	RequesterID  string           `json:"requesterId"`
	At           time.Time        `json:"at"`
}

func (e AllocationAllocated) EventName() string     { return "allocation.allocated" }
func (e AllocationAllocated) AggregateID() string   { return e.ResourceID }
func (e AllocationAllocated) OccurredAt() time.Time { return e.At }

// AllocationConflicted - запрос отклонен из-за конфликтов
type AllocationConflicted struct {
	ResourceID   string    `json:"resourceId"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	RequesterID  string    `json:"requesterId"`
	Reservations int       `json:"reservationConflicts"`
	Maintenance  int       `json:"maintenanceConflicts"`
	Blackouts    int       `json:"blackoutConflicts"`
	At           time.Time `json:"at"`
}

func (e AllocationConflicted) EventName() string     { return "allocation.conflicted" }
func (e AllocationConflicted) AggregateID() string   { return e.ResourceID }
func (e AllocationConflicted) OccurredAt() time.Time { return e.At }

// AllocationWaitlisted - проигравший запрос поставлен в лист ожидания
type AllocationWaitlisted struct {
	EntryID     string    `json:"entryId"`
	ResourceID  string    `json:"resourceId"`
	RequesterID string    `json:"requesterId"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ExpiresAt   time.Time `json:"expiresAt"`
	At          time.Time `json:"at"`
}

func (e AllocationWaitlisted) EventName() string     { return "allocation.waitlisted" }
func (e AllocationWaitlisted) AggregateID() string   { return e.ResourceID }
func (e AllocationWaitlisted) OccurredAt() time.Time { return e.At }

// WaitlistPromoted - запись листа ожидания превращена в allocation
type WaitlistPromoted struct {
	EntryID      string    `json:"entryId"`
	ResourceID   string    `json:"resourceId"`
	RequesterID  string    `json:"requesterId"`
	AllocationID int64     `json:"allocationId"`
	At           time.Time `json:"at"`
}

func (e WaitlistPromoted) EventName() string     { return "waitlist.promoted" }
func (e WaitlistPromoted) AggregateID() string   { return e.ResourceID }
func (e WaitlistPromoted) OccurredAt() time.Time { return e.At }

// WaitlistFull - запрос отвергнут переполненным листом ожидания.
// Отказ по вместимости никогда не бывает молчаливым
type WaitlistFull struct {
	ResourceID  string    `json:"resourceId"`
	RequesterID string    `json:"requesterId"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Cap         int       `json:"cap"`
	At          time.Time `json:"at"`
}

func (e WaitlistFull) EventName() string     { return "waitlist.full" }
func (e WaitlistFull) AggregateID() string   { return e.ResourceID }
func (e WaitlistFull) OccurredAt() time.Time { return e.At }

// WaitlistExpired - запись листа ожидания истекла (зачистка)
// Истечение никогда не бывает молчаливым: событие уходит в нотификации
type WaitlistExpired struct {
	EntryID     string    `json:"entryId"`
	ResourceID  string    `json:"resourceId"`
	RequesterID string    `json:"requesterId"`
	At          time.Time `json:"at"`
}

func (e WaitlistExpired) EventName() string     { return "waitlist.expired" }
func (e WaitlistExpired) AggregateID() string   { return e.ResourceID }
func (e WaitlistExpired) OccurredAt() time.Time { return e.At }

// AllocationReassigned - принятие proposal заменило allocation на новый
type AllocationReassigned struct {
	ProposalID      string    `json:"proposalId"`
	OldAllocationID int64     `json:"oldAllocationId"`
	NewAllocationID int64     `json:"newAllocationId"`
	OldResourceID   string    `json:"oldResourceId"`
	NewResourceID   string    `json:"newResourceId"`
	At              time.Time `json:"at"`
}

func (e AllocationReassigned) EventName() string     { return "allocation.reassigned" }
func (e AllocationReassigned) AggregateID() string   { return e.NewResourceID }
func (e AllocationReassigned) OccurredAt() time.Time { return e.At }

// ProposalExpired - предложение о переназначении осталось без ответа
type ProposalExpired struct {
	ProposalID   string    `json:"proposalId"`
	AllocationID int64     `json:"allocationId"`
	ResourceID   string    `json:"resourceId"`
	At           time.Time `json:"at"`
}

func (e ProposalExpired) EventName() string     { return "proposal.expired" }
func (e ProposalExpired) AggregateID() string   { return e.ResourceID }
func (e ProposalExpired) OccurredAt() time.Time { return e.At }

// AllocationCancelled - allocation отменен (пользователем или каскадом)
type AllocationCancelled struct {
	AllocationID int64     `json:"allocationId"`
	ResourceID   string    `json:"resourceId"`
	ActorID      string    `json:"actorId"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}

func (e AllocationCancelled) EventName() string     { return "allocation.cancelled" }
func (e AllocationCancelled) AggregateID() string   { return e.ResourceID }
func (e AllocationCancelled) OccurredAt() time.Time { return e.At }

// AllocationRejected - allocation отклонен (approver'ом или политикой обслуживания)
type AllocationRejected struct {
	AllocationID int64     `json:"allocationId"`
	ResourceID   string    `json:"resourceId"`
	ActorID      string    `json:"actorId"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}

func (e AllocationRejected) EventName() string     { return "allocation.rejected" }
func (e AllocationRejected) AggregateID() string   { return e.ResourceID }
func (e AllocationRejected) OccurredAt() time.Time { return e.At }

// AllocationExpired - подтвержденное бронирование истекло без check-in
type AllocationExpired struct {
	AllocationID int64     `json:"allocationId"`
	ResourceID   string    `json:"resourceId"`
	At           time.Time `json:"at"`
}

func (e AllocationExpired) EventName() string     { return "allocation.expired" }
func (e AllocationExpired) AggregateID() string   { return e.ResourceID }
func (e AllocationExpired) OccurredAt() time.Time { return e.At }

// MaintenancePostponed - окно обслуживания перенесено на новый интервал
type MaintenancePostponed struct {
	AllocationID int64     `json:"allocationId"`
	ResourceID   string    `json:"resourceId"`
	OldStart     time.Time `json:"oldStart"`
	OldEnd       time.Time `json:"oldEnd"`
	NewStart     time.Time `json:"newStart"`
	NewEnd       time.Time `json:"newEnd"`
	Reason       string    `json:"reason"`
	At           time.Time `json:"at"`
}

func (e MaintenancePostponed) EventName() string     { return "maintenance.postponed" }
func (e MaintenancePostponed) AggregateID() string   { return e.ResourceID }
func (e MaintenancePostponed) OccurredAt() time.Time { return e.At }
