package domain

import "time"

// WaitlistStatus статус записи в листе ожидания
type WaitlistStatus string

const (
	WaitlistStatusWaiting   WaitlistStatus = "waiting"
	WaitlistStatusPromoted  WaitlistStatus = "promoted"
	WaitlistStatusExpired   WaitlistStatus = "expired"
	WaitlistStatusWithdrawn WaitlistStatus = "withdrawn"
)

// WaitlistEntry is a pending request for a contested interval.
// Entries are ordered per resource by (priority desc, enqueued_at asc).
type WaitlistEntry struct {
	ID                string // uuid
	ResourceID        string
	RequestedInterval Interval
	RequesterID       string
	Priority          Priority
	Position          int
	Status            WaitlistStatus

	// Результат промоушена, заполняется при переходе в promoted
	PromotedAllocationID *int64

	EnqueuedAt time.Time
	ExpiresAt  time.Time
	UpdatedAt  time.Time
}

// IsWaiting сообщает, участвует ли запись в промоушене
func (w *WaitlistEntry) IsWaiting() bool {
	return w.Status == WaitlistStatusWaiting
}

// IsExpiredAt проверяет, истекла ли запись на момент now
func (w *WaitlistEntry) IsExpiredAt(now time.Time) bool {
	return now.After(w.ExpiresAt)
}
