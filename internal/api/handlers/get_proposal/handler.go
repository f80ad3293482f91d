package get_proposal

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	reassignmentSvc "github.com/m04kA/SMC-SchedulingService/internal/service/reassignment"
)

const msgProposalNotFound = "предложение не найдено"

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

// Handle GET /api/v1/reassignment-proposals/{proposalId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	proposalID := mux.Vars(r)["proposalId"]

	proposal, err := h.service.GetByID(r.Context(), proposalID)
	if err != nil {
		switch {
		case errors.Is(err, reassignmentSvc.ErrProposalNotFound):
			h.logger.Warn("GET /reassignment-proposals/{id} - Not found: proposal_id=%s", proposalID)
			handlers.RespondNotFound(w, msgProposalNotFound)

		default:
			h.logger.Error("GET /reassignment-proposals/{id} - Failed: proposal_id=%s, error=%v", proposalID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainProposal(proposal))
}
