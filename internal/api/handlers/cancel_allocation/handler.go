package cancel_allocation

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
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgReasonTooLong       = "причина отмены слишком длинная"
	msgAllocationNotFound  = "allocation не найден"
	msgAccessDenied        = "нет прав на отмену этого allocation"
	msgInvalidTransition   = "allocation не может быть отменен в текущем статусе"
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

// Handle PATCH /api/v1/allocations/{allocationId}/cancel
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	var req CancelAllocationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PATCH /allocations/{id}/cancel - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	if len(req.Reason) > domain.MaxReasonLength {
		handlers.RespondBadRequest(w, msgReasonTooLong)
		return
	}

	actorID := middleware.GetUserID(r.Context())

	allocation, err := h.service.Cancel(r.Context(), id, actorID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrAllocationNotFound):
			h.logger.Warn("PATCH /allocations/{id}/cancel - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		case errors.Is(err, allocationsSvc.ErrAccessDenied):
			h.logger.Warn("PATCH /allocations/{id}/cancel - Access denied: allocation_id=%d, actor=%s", id, actorID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, domain.ErrInvalidTransition):
			h.logger.Warn("PATCH /allocations/{id}/cancel - Invalid transition: allocation_id=%d, error=%v", id, err)
			handlers.RespondError(w, http.StatusConflict, msgInvalidTransition)

		default:
			h.logger.Error("PATCH /allocations/{id}/cancel - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PATCH /allocations/{id}/cancel - Cancelled: allocation_id=%d, actor=%s", id, actorID)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainAllocation(allocation))
}
