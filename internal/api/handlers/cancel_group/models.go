package cancel_group

import (
	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

// CancelGroupRequest HTTP request model
type CancelGroupRequest struct {
	Reason string `json:"reason,omitempty"`
}

// GroupItemResponse результат отмены одного occurrence в группе
type GroupItemResponse struct {
	AllocationID int64  `json:"allocationId"`
	Status       string `json:"status"`
	Cancelled    bool   `json:"cancelled"`
	Skipped      string `json:"skipped,omitempty"`
}

// CancelGroupResponse HTTP response model
type CancelGroupResponse struct {
	GroupID string              `json:"groupId"`
	Items   []GroupItemResponse `json:"items"`
}

func toResponse(groupID string, results []allocationsSvc.GroupItemResult) CancelGroupResponse {
	items := make([]GroupItemResponse, 0, len(results))
	for _, item := range results {
		items = append(items, GroupItemResponse{
			AllocationID: item.AllocationID,
			Status:       string(item.Status),
			Cancelled:    item.Cancelled,
			Skipped:      item.Skipped,
		})
	}

	return CancelGroupResponse{
		GroupID: groupID,
		Items:   items,
	}
}
