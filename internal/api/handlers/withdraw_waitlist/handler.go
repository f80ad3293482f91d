package withdraw_waitlist

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	waitlistSvc "github.com/m04kA/SMC-SchedulingService/internal/service/waitlist"
)

const (
	msgEntryNotFound   = "запись листа ожидания не найдена"
	msgAccessDenied    = "снятие записи доступно только её владельцу"
	msgEntryNotWaiting = "запись уже покинула лист ожидания"
)

type Handler struct {
	service WaitlistService
	logger  Logger
}

func NewHandler(service WaitlistService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle DELETE /api/v1/waitlist/{entryId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	entryID := mux.Vars(r)["entryId"]
	actorID := middleware.GetUserID(r.Context())

	if err := h.service.Withdraw(r.Context(), entryID, actorID); err != nil {
		switch {
		case errors.Is(err, waitlistSvc.ErrEntryNotFound):
			h.logger.Warn("DELETE /waitlist/{id} - Not found: entry_id=%s", entryID)
			handlers.RespondNotFound(w, msgEntryNotFound)

		case errors.Is(err, waitlistSvc.ErrAccessDenied):
			h.logger.Warn("DELETE /waitlist/{id} - Access denied: entry_id=%s, actor=%s", entryID, actorID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, waitlistSvc.ErrEntryNotWaiting):
			h.logger.Warn("DELETE /waitlist/{id} - Not waiting: entry_id=%s", entryID)
			handlers.RespondError(w, http.StatusConflict, msgEntryNotWaiting)

		default:
			h.logger.Error("DELETE /waitlist/{id} - Failed: entry_id=%s, error=%v", entryID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("DELETE /waitlist/{id} - Withdrawn: entry_id=%s, actor=%s", entryID, actorID)
	w.WriteHeader(http.StatusNoContent)
}
