package approve_allocation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

const (
	msgInvalidAllocationID = "некорректный ID"
	msgAllocationNotFound  = "allocation не найден"
	msgNotReservation      = "операция применима только к бронированиям"
	msgInvalidTransition   = "недопустимый переход статуса"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
	msgConflictsFound      = "подтверждение заблокировано конфликтами"
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

// conflictResponse тело 409 ответа при конфликте на момент подтверждения
type conflictResponse struct {
	Message   string                      `json:"message"`
	Conflicts []handlers.ConflictItemView `json:"conflicts"`
}

// Handle POST /api/v1/allocations/{allocationId}/approve
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	actorID := middleware.GetUserID(r.Context())

	allocation, conflicts, err := h.service.Approve(r.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrAllocationNotFound):
			h.logger.Warn("POST /allocations/{id}/approve - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		case errors.Is(err, allocationsSvc.ErrNotReservation):
			h.logger.Warn("POST /allocations/{id}/approve - Not a reservation: allocation_id=%d", id)
			handlers.RespondBadRequest(w, msgNotReservation)

		case errors.Is(err, domain.ErrInvalidTransition):
			h.logger.Warn("POST /allocations/{id}/approve - Invalid transition: allocation_id=%d, error=%v", id, err)
			handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

		case errors.Is(err, allocationsSvc.ErrResourceUnavailable):
			h.logger.Error("POST /allocations/{id}/approve - Registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("POST /allocations/{id}/approve - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if !conflicts.IsEmpty() {
		h.logger.Warn("POST /allocations/{id}/approve - Blocked by conflicts: allocation_id=%d", id)
		handlers.RespondConflict(w, conflictResponse{
			Message:   msgConflictsFound,
			Conflicts: handlers.FromDomainConflictSet(conflicts),
		})
		return
	}

	h.logger.Info("POST /allocations/{id}/approve - Confirmed: allocation_id=%d, actor=%s", id, actorID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainAllocation(allocation))
}
