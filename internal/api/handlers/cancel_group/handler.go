package cancel_group

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

const (
	msgGroupNotFound = "группа не найдена"
	msgAccessDenied  = "отмена группы доступна только владельцу бронирований"
	msgReasonTooLong = "причина превышает допустимую длину"
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

// Handle DELETE /api/v1/allocations/groups/{groupId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	actorID := middleware.GetUserID(r.Context())

	// Тело опционально: DELETE без причины допустим
	var req CancelGroupRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := handlers.DecodeJSON(r, &req); err != nil {
			handlers.RespondBadRequest(w, err.Error())
			return
		}
	}

	if len(req.Reason) > domain.MaxReasonLength {
		handlers.RespondBadRequest(w, msgReasonTooLong)
		return
	}

	results, err := h.service.CancelGroup(r.Context(), groupID, actorID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrGroupNotFound):
			h.logger.Warn("DELETE /allocations/groups/{id} - Not found: group_id=%s", groupID)
			handlers.RespondNotFound(w, msgGroupNotFound)

		case errors.Is(err, allocationsSvc.ErrAccessDenied):
			h.logger.Warn("DELETE /allocations/groups/{id} - Access denied: group_id=%s, actor=%s", groupID, actorID)
			handlers.RespondForbidden(w, msgAccessDenied)

		default:
			h.logger.Error("DELETE /allocations/groups/{id} - Failed: group_id=%s, error=%v", groupID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /allocations/groups/{id} - Done: group_id=%s, items=%d", groupID, len(results))
	handlers.RespondJSON(w, http.StatusOK, toResponse(groupID, results))
}
