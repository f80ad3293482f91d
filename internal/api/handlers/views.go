package handlers

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// AllocationView общая view-модель allocation для ответов API
type AllocationView struct {
	ID                 int64   `json:"id"`
	ResourceID         string  `json:"resourceId"`
	Start              string  `json:"start"`
	End                string  `json:"end"`
	Kind               string  `json:"kind"`
	Status             string  `json:"status"`
	Priority           int     `json:"priority"`
	RequesterID        string  `json:"requesterId"`
	RecurrenceGroupID  *string `json:"recurrenceGroupId,omitempty"`
	ParentOccurrenceID *int64  `json:"parentOccurrenceId,omitempty"`
	TerminationReason  *string `json:"terminationReason,omitempty"`
	TerminatedAt       *string `json:"terminatedAt,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

// FromDomainAllocation конвертирует domain.Allocation в view
func FromDomainAllocation(a *domain.Allocation) *AllocationView {
	view := &AllocationView{
		ID:                 a.ID,
		ResourceID:         a.ResourceID,
		Start:              a.Interval.Start.Format(time.RFC3339),
		End:                a.Interval.End.Format(time.RFC3339),
		Kind:               string(a.Kind),
		Status:             string(a.Status),
		Priority:           int(a.Priority),
		RequesterID:        a.RequesterID,
		RecurrenceGroupID:  a.RecurrenceGroupID,
		ParentOccurrenceID: a.ParentOccurrenceID,
		TerminationReason:  a.TerminationReason,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          a.UpdatedAt.Format(time.RFC3339),
	}

	if a.TerminatedAt != nil {
		terminated := a.TerminatedAt.Format(time.RFC3339)
		view.TerminatedAt = &terminated
	}

	return view
}

// ConflictItemView общая view-модель конфликта
type ConflictItemView struct {
	Type         string  `json:"type"` // reservation | maintenance | blackout
	AllocationID *int64  `json:"allocationId,omitempty"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Reason       *string `json:"reason,omitempty"`
}

// FromDomainConflictSet конвертирует ConflictSet в список view
func FromDomainConflictSet(set domain.ConflictSet) []ConflictItemView {
	views := make([]ConflictItemView, 0, len(set.Reservations)+len(set.Maintenance)+len(set.Blackouts))

	for _, a := range set.Reservations {
		id := a.ID
		views = append(views, ConflictItemView{
			Type:         "reservation",
			AllocationID: &id,
			Start:        a.Interval.Start.Format(time.RFC3339),
			End:          a.Interval.End.Format(time.RFC3339),
		})
	}
	for _, a := range set.Maintenance {
		id := a.ID
		views = append(views, ConflictItemView{
			Type:         "maintenance",
			AllocationID: &id,
			Start:        a.Interval.Start.Format(time.RFC3339),
			End:          a.Interval.End.Format(time.RFC3339),
		})
	}
	for _, b := range set.Blackouts {
		reason := string(b.Reason)
		views = append(views, ConflictItemView{
			Type:   "blackout",
			Start:  b.Interval.Start.Format(time.RFC3339),
			End:    b.Interval.End.Format(time.RFC3339),
			Reason: &reason,
		})
	}

	return views
}

// WaitlistEntryView общая view-модель записи листа ожидания
type WaitlistEntryView struct {
	ID                   string `json:"id"`
	ResourceID           string `json:"resourceId"`
	Start                string `json:"start"`
	End                  string `json:"end"`
	RequesterID          string `json:"requesterId"`
	Priority             int    `json:"priority"`
	Position             int    `json:"position"`
	Status               string `json:"status"`
	PromotedAllocationID *int64 `json:"promotedAllocationId,omitempty"`
	EnqueuedAt           string `json:"enqueuedAt"`
	ExpiresAt            string `json:"expiresAt"`
}

// FromDomainWaitlistEntry конвертирует domain.WaitlistEntry в view
func FromDomainWaitlistEntry(e *domain.WaitlistEntry) *WaitlistEntryView {
	return &WaitlistEntryView{
		ID:                   e.ID,
		ResourceID:           e.ResourceID,
		Start:                e.RequestedInterval.Start.Format(time.RFC3339),
		End:                  e.RequestedInterval.End.Format(time.RFC3339),
		RequesterID:          e.RequesterID,
		Priority:             int(e.Priority),
		Position:             e.Position,
		Status:               string(e.Status),
		PromotedAllocationID: e.PromotedAllocationID,
		EnqueuedAt:           e.EnqueuedAt.Format(time.RFC3339),
		ExpiresAt:            e.ExpiresAt.Format(time.RFC3339),
	}
}

// ProposalView общая view-модель предложения переназначения
type ProposalView struct {
	ID                      string  `json:"id"`
	OriginalAllocationID    int64   `json:"originalAllocationId"`
	ProposedResourceID      string  `json:"proposedResourceId"`
	Start                   string  `json:"start"`
	End                     string  `json:"end"`
	Status                  string  `json:"status"`
	Reason                  *string `json:"reason,omitempty"`
	Deadline                string  `json:"deadline"`
	ReplacementAllocationID *int64  `json:"replacementAllocationId,omitempty"`
	CreatedAt               string  `json:"createdAt"`
}

// FromDomainProposal конвертирует domain.ReassignmentProposal в view
func FromDomainProposal(p *domain.ReassignmentProposal) *ProposalView {
	return &ProposalView{
		ID:                      p.ID,
		OriginalAllocationID:    p.OriginalAllocationID,
		ProposedResourceID:      p.ProposedResourceID,
		Start:                   p.ProposedInterval.Start.Format(time.RFC3339),
		End:                     p.ProposedInterval.End.Format(time.RFC3339),
		Status:                  string(p.Status),
		Reason:                  p.Reason,
		Deadline:                p.Deadline.Format(time.RFC3339),
		ReplacementAllocationID: p.ReplacementAllocationID,
		CreatedAt:               p.CreatedAt.Format(time.RFC3339),
	}
}
