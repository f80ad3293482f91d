package domain

// BlackoutReason причина жесткой недоступности ресурса
type BlackoutReason string

const (
	BlackoutResourceBlocked BlackoutReason = "resource_blocked"
	BlackoutOutsideHours    BlackoutReason = "outside_operating_hours"
)

// Blackout is a hard, non-waitlistable unavailability window.
type Blackout struct {
	ResourceID string
	Interval   Interval
	Reason     BlackoutReason
}

// ConflictSet partitions the allocations overlapping a candidate interval
// by allocation kind, plus hard blackouts.
type ConflictSet struct {
	Reservations []*Allocation
	Maintenance  []*Allocation
	Blackouts    []Blackout
}

// IsEmpty сообщает, что конфликтов нет
func (c ConflictSet) IsEmpty() bool {
	return len(c.Reservations) == 0 && len(c.Maintenance) == 0 && len(c.Blackouts) == 0
}

// HasBlackout сообщает о наличии жесткого конфликта (без пути через waitlist)
func (c ConflictSet) HasBlackout() bool {
	return len(c.Blackouts) > 0 || len(c.Maintenance) > 0
}

// HasConfirmedReservation сообщает, пересекается ли интервал с подтвержденным бронированием
// Используется политикой обслуживания: maintenance никогда не вытесняет CONFIRMED
func (c ConflictSet) HasConfirmedReservation() bool {
	for _, a := range c.Reservations {
		if a.Status == StatusConfirmed || a.Status == StatusInProgress {
			return true
		}
	}
	return false
}

// OccurrenceVerdict is the per-occurrence result for a recurrence request.
// A recurring request is never collapsed into one failure: the caller gets
// the full list and may accept the non-conflicting subset.
type OccurrenceVerdict struct {
	Index     int
	Interval  Interval
	Conflicts ConflictSet
}

// Placeable сообщает, свободен ли данный occurrence
func (v OccurrenceVerdict) Placeable() bool {
	return v.Conflicts.IsEmpty()
}
