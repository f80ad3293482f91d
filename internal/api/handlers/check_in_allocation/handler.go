package check_in_allocation

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
	msgAccessDenied        = "check-in доступен только владельцу бронирования"
	msgCheckInNotRequired  = "ресурс не требует check-in"
	msgInvalidTransition   = "check-in недоступен в текущем статусе"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
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

// Handle PATCH /api/v1/allocations/{allocationId}/check-in
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	actorID := middleware.GetUserID(r.Context())

	allocation, err := h.service.CheckIn(r.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrAllocationNotFound):
			h.logger.Warn("PATCH /allocations/{id}/check-in - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		case errors.Is(err, allocationsSvc.ErrAccessDenied):
			h.logger.Warn("PATCH /allocations/{id}/check-in - Access denied: allocation_id=%d, actor=%s", id, actorID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, allocationsSvc.ErrCheckInNotRequired),
			errors.Is(err, allocationsSvc.ErrNotReservation):
			h.logger.Warn("PATCH /allocations/{id}/check-in - Not applicable: allocation_id=%d, error=%v", id, err)
			handlers.RespondBadRequest(w, msgCheckInNotRequired)

		case errors.Is(err, domain.ErrInvalidTransition):
			h.logger.Warn("PATCH /allocations/{id}/check-in - Invalid transition: allocation_id=%d, error=%v", id, err)
			handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

		case errors.Is(err, allocationsSvc.ErrResourceUnavailable):
			h.logger.Error("PATCH /allocations/{id}/check-in - Registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("PATCH /allocations/{id}/check-in - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /allocations/{id}/check-in - In progress: allocation_id=%d, actor=%s", id, actorID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainAllocation(allocation))
}
