package request_allocation

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	requestAllocation "github.com/m04kA/SMC-SchedulingService/internal/usecase/request_allocation"
)

// RecurrenceRuleRequest правило повторения в HTTP запросе
type RecurrenceRuleRequest struct {
	Frequency      string  `json:"frequency"` // daily | weekly | monthly | quarterly | yearly
	EndDate        *string `json:"endDate,omitempty"`
	MaxOccurrences *int    `json:"maxOccurrences,omitempty"`
}

// RequestAllocationRequest HTTP request model
type RequestAllocationRequest struct {
	ResourceID     string                 `json:"resourceId"`
	Start          string                 `json:"start"` // RFC3339
	End            string                 `json:"end"`   // RFC3339
	Kind           string                 `json:"kind"`  // reservation | scheduled_maintenance
	Priority       int                    `json:"priority"`
	Recurrence     *RecurrenceRuleRequest `json:"recurrence,omitempty"`
	AllowPartial   bool                   `json:"allowPartial,omitempty"`
	WaitlistOptIn  bool                   `json:"waitlistOptIn,omitempty"`
	IdempotencyKey *string                `json:"idempotencyKey,omitempty"`
}

// OccurrenceResultResponse результат по одному occurrence
type OccurrenceResultResponse struct {
	Index        int                         `json:"index"`
	Start        string                      `json:"start"`
	End          string                      `json:"end"`
	Placed       bool                        `json:"placed"`
	AllocationID *int64                      `json:"allocationId,omitempty"`
	Conflicts    []handlers.ConflictItemView `json:"conflicts,omitempty"`
}

// RequestAllocationResponse HTTP response model
type RequestAllocationResponse struct {
	Outcome       string                      `json:"outcome"`
	Allocation    *handlers.AllocationView    `json:"allocation,omitempty"`
	WaitlistEntry *handlers.WaitlistEntryView `json:"waitlistEntry,omitempty"`
	Conflicts     []handlers.ConflictItemView `json:"conflicts,omitempty"`
	Occurrences   []OccurrenceResultResponse  `json:"occurrences,omitempty"`
	GroupID       *string                     `json:"groupId,omitempty"`
	Warnings      []string                    `json:"warnings,omitempty"`
	Replayed      bool                        `json:"replayed,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *RequestAllocationRequest) ToUseCaseRequest(requesterID string) (*requestAllocation.Request, error) {
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	req := &requestAllocation.Request{
		ResourceID:     r.ResourceID,
		Start:          start,
		End:            end,
		Kind:           domain.AllocationKind(r.Kind),
		RequesterID:    requesterID,
		Priority:       domain.Priority(r.Priority),
		AllowPartial:   r.AllowPartial,
		WaitlistOptIn:  r.WaitlistOptIn,
		IdempotencyKey: r.IdempotencyKey,
	}

	if r.Kind == "" {
		req.Kind = domain.KindReservation
	}
	if r.Priority == 0 {
		req.Priority = domain.PriorityNormal
	}

	if r.Recurrence != nil {
		rule := domain.RecurrenceRule{
			Frequency:      domain.Frequency(r.Recurrence.Frequency),
			MaxOccurrences: r.Recurrence.MaxOccurrences,
		}
		if r.Recurrence.EndDate != nil {
			endDate, err := time.Parse(time.RFC3339, *r.Recurrence.EndDate)
			if err != nil {
				return nil, fmt.Errorf("parse recurrence endDate: %w", err)
			}
			rule.EndDate = &endDate
		}
		req.Recurrence = &rule
	}

	return req, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *requestAllocation.Response) *RequestAllocationResponse {
	out := &RequestAllocationResponse{
		Outcome:  string(resp.Outcome),
		GroupID:  resp.GroupID,
		Warnings: resp.Warnings,
		Replayed: resp.Replayed,
	}

	if resp.Allocation != nil {
		out.Allocation = handlers.FromDomainAllocation(resp.Allocation)
	}
	if resp.WaitlistEntry != nil {
		out.WaitlistEntry = handlers.FromDomainWaitlistEntry(resp.WaitlistEntry)
	}

	out.Conflicts = conflictItems(resp.Conflicts)

	for _, occ := range resp.Occurrences {
		out.Occurrences = append(out.Occurrences, OccurrenceResultResponse{
			Index:        occ.Index,
			Start:        occ.Start.Format(time.RFC3339),
			End:          occ.End.Format(time.RFC3339),
			Placed:       occ.Placed,
			AllocationID: occ.AllocationID,
			Conflicts:    conflictItems(occ.Conflicts),
		})
	}

	return out
}

func conflictItems(conflicts []requestAllocation.ConflictView) []handlers.ConflictItemView {
	if len(conflicts) == 0 {
		return nil
	}

	items := make([]handlers.ConflictItemView, 0, len(conflicts))
	for _, c := range conflicts {
		items = append(items, handlers.ConflictItemView{
			Type:         c.Type,
			AllocationID: c.AllocationID,
			Start:        c.Start.Format(time.RFC3339),
			End:          c.End.Format(time.RFC3339),
			Reason:       c.Reason,
		})
	}
	return items
}
