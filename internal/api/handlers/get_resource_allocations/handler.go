package get_resource_allocations

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

const (
	msgInvalidTimeFormat = "некорректный формат времени, ожидается RFC3339"
	msgInvalidKind       = "некорректный вид allocation"
	msgInvalidStatus     = "некорректный статус allocation"
)

var knownStatuses = map[domain.AllocationStatus]bool{
	domain.StatusPendingApproval: true,
	domain.StatusConfirmed:       true,
	domain.StatusInProgress:      true,
	domain.StatusCompleted:       true,
	domain.StatusRejected:        true,
	domain.StatusCancelled:       true,
	domain.StatusExpired:         true,
	domain.StatusScheduled:       true,
}

type Handler struct {
	service AllocationsService
	logger  Logger
}

func NewHandler(service AllocationsService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// AllocationListResponse HTTP response model
type AllocationListResponse struct {
	Allocations []*handlers.AllocationView `json:"allocations"`
	Total       int                        `json:"total"`
}

// Handle GET /api/v1/resources/{resourceId}/allocations
// Query параметры: from, to (RFC3339), kind, status, includeTerminal
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	resourceID := mux.Vars(r)["resourceId"]
	query := r.URL.Query()

	filter := domain.ResourceAllocationsFilter{
		ResourceID:      resourceID,
		IncludeTerminal: query.Get("includeTerminal") == "true",
	}

	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handlers.RespondBadRequest(w, msgInvalidTimeFormat)
			return
		}
		filter.From = &from
	}

	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			handlers.RespondBadRequest(w, msgInvalidTimeFormat)
			return
		}
		filter.To = &to
	}

	if raw := query.Get("kind"); raw != "" {
		kind := domain.AllocationKind(raw)
		if kind != domain.KindReservation && kind != domain.KindMaintenance {
			handlers.RespondBadRequest(w, msgInvalidKind)
			return
		}
		filter.Kind = &kind
	}

	if raw := query.Get("status"); raw != "" {
		status := domain.AllocationStatus(raw)
		if !knownStatuses[status] {
			handlers.RespondBadRequest(w, msgInvalidStatus)
			return
		}
		filter.Status = &status
	}

	allocations, err := h.service.ListByResource(r.Context(), filter)
	if err != nil {
		h.logger.Error("GET /resources/{id}/allocations - Failed: resource_id=%s, error=%v", resourceID, err)
		handlers.RespondInternalError(w)
		return
	}

	views := make([]*handlers.AllocationView, 0, len(allocations))
	for _, a := range allocations {
		views = append(views, handlers.FromDomainAllocation(a))
	}

	h.logger.Info("GET /resources/{id}/allocations - Fetched %d allocations: resource_id=%s", len(views), resourceID)
	handlers.RespondJSON(w, http.StatusOK, AllocationListResponse{
		Allocations: views,
		Total:       len(views),
	})
}
