package respond_proposal

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	reassignmentSvc "github.com/m04kA/SMC-SchedulingService/internal/service/reassignment"
)

const (
	msgProposalNotFound    = "предложение не найдено"
	msgAccessDenied        = "ответ доступен только владельцу исходного бронирования"
	msgProposalExpired     = "предложение истекло"
	msgProposalNotOpen     = "предложение уже закрыто"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
)

type Handler struct {
	service ReassignmentService
	logger  Logger
}

func NewHandler(service ReassignmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/reassignment-proposals/{proposalId}/respond
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	proposalID := mux.Vars(r)["proposalId"]
	actorID := middleware.GetUserID(r.Context())

	var req RespondRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, err.Error())
		return
	}

	proposal, err := h.service.Respond(r.Context(), proposalID, req.Accept, actorID)
	if err != nil {
		switch {
		case errors.Is(err, reassignmentSvc.ErrProposalNotFound):
			h.logger.Warn("POST /reassignment-proposals/{id}/respond - Not found: proposal_id=%s", proposalID)
			handlers.RespondNotFound(w, msgProposalNotFound)

		case errors.Is(err, reassignmentSvc.ErrAccessDenied):
			h.logger.Warn("POST /reassignment-proposals/{id}/respond - Access denied: proposal_id=%s, actor=%s", proposalID, actorID)
			handlers.RespondForbidden(w, msgAccessDenied)

		case errors.Is(err, reassignmentSvc.ErrProposalExpired):
			h.logger.Warn("POST /reassignment-proposals/{id}/respond - Expired: proposal_id=%s", proposalID)
			handlers.RespondError(w, http.StatusConflict, msgProposalExpired)

		case errors.Is(err, reassignmentSvc.ErrProposalNotOpen):
			h.logger.Warn("POST /reassignment-proposals/{id}/respond - Not open: proposal_id=%s", proposalID)
			handlers.RespondError(w, http.StatusConflict, msgProposalNotOpen)

		case errors.Is(err, reassignmentSvc.ErrResourceUnavailable):
			h.logger.Error("POST /reassignment-proposals/{id}/respond - Registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("POST /reassignment-proposals/{id}/respond - Failed: proposal_id=%s, error=%v", proposalID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /reassignment-proposals/{id}/respond - Done: proposal_id=%s, status=%s", proposalID, proposal.Status)
	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainProposal(proposal))
}
