package check_availability

import (
	"time"

	checkAvailabilityUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/check_availability"
)

// BusyIntervalResponse занятый отрезок окна в HTTP-ответе
type BusyIntervalResponse struct {
	AllocationID int64  `json:"allocationId"`
	Kind         string `json:"kind"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

// FreeIntervalResponse свободный отрезок окна в HTTP-ответе
type FreeIntervalResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AvailabilityResponse HTTP response model
type AvailabilityResponse struct {
	ResourceID    string                 `json:"resourceId"`
	Blocked       bool                   `json:"blocked"`
	BlockedReason *string                `json:"blockedReason,omitempty"`
	Busy          []BusyIntervalResponse `json:"busy"`
	Free          []FreeIntervalResponse `json:"free"`
}

func toResponse(result *checkAvailabilityUC.Response) AvailabilityResponse {
	resp := AvailabilityResponse{
		ResourceID:    result.ResourceID,
		Blocked:       result.Blocked,
		BlockedReason: result.BlockedReason,
		Busy:          make([]BusyIntervalResponse, 0, len(result.Busy)),
		Free:          make([]FreeIntervalResponse, 0, len(result.Free)),
	}

	for _, busy := range result.Busy {
		resp.Busy = append(resp.Busy, BusyIntervalResponse{
			AllocationID: busy.AllocationID,
			Kind:         string(busy.Kind),
			Start:        busy.Start.UTC().Format(time.RFC3339),
			End:          busy.End.UTC().Format(time.RFC3339),
		})
	}

	for _, free := range result.Free {
		resp.Free = append(resp.Free, FreeIntervalResponse{
			Start: free.Start.UTC().Format(time.RFC3339),
			End:   free.End.UTC().Format(time.RFC3339),
		})
	}

	return resp
}
