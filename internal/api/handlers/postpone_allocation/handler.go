package postpone_allocation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

const (
	msgInvalidAllocationID = "некорректный ID"
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgInvalidTimeFormat   = "некорректный формат времени, ожидается RFC3339"
	msgInvalidInterval     = "некорректный интервал"
	msgAllocationNotFound  = "allocation не найден"
	msgNotMaintenance      = "перенос применим только к окнам обслуживания"
	msgInvalidTransition   = "окно обслуживания нельзя перенести в текущем статусе"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
	msgConflictsFound      = "перенос заблокирован конфликтами"
)

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

// conflictResponse тело 409 ответа при конфликте нового интервала
type conflictResponse struct {
	Message   string                      `json:"message"`
	Conflicts []handlers.ConflictItemView `json:"conflicts"`
}

// Handle PATCH /api/v1/allocations/{allocationId}/postpone
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	var req PostponeAllocationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /allocations/{id}/postpone - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	newInterval, err := domain.NewInterval(start.UTC(), end.UTC())
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidInterval)
		return
	}

	actorID := middleware.GetUserID(r.Context())

	allocation, conflicts, err := h.service.Postpone(r.Context(), id, actorID, newInterval, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrAllocationNotFound):
			h.logger.Warn("PATCH /allocations/{id}/postpone - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		case errors.Is(err, allocationsSvc.ErrNotMaintenance):
			h.logger.Warn("PATCH /allocations/{id}/postpone - Not maintenance: allocation_id=%d", id)
			handlers.RespondBadRequest(w, msgNotMaintenance)

		case errors.Is(err, domain.ErrInvalidTransition):
			h.logger.Warn("PATCH /allocations/{id}/postpone - Invalid transition: allocation_id=%d, error=%v", id, err)
			handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

		case errors.Is(err, allocationsSvc.ErrResourceUnavailable):
			h.logger.Error("PATCH /allocations/{id}/postpone - Registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("PATCH /allocations/{id}/postpone - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if !conflicts.IsEmpty() {
		h.logger.Warn("PATCH /allocations/{id}/postpone - Blocked by conflicts: allocation_id=%d", id)
		handlers.RespondConflict(w, conflictResponse{
			Message:   msgConflictsFound,
			Conflicts: handlers.FromDomainConflictSet(conflicts),
		})
		return
	}

	h.logger.Info("PATCH /allocations/{id}/postpone - Postponed: allocation_id=%d, actor=%s", id, actorID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainAllocation(allocation))
}
