package propose_reassignment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	reassignmentSvc "github.com/m04kA/SMC-SchedulingService/internal/service/reassignment"
)

const (
	msgInvalidAllocationID = "некорректный ID"
	msgAllocationNotFound  = "allocation не найден"
	msgNoCandidates        = "список кандидатов пуст"
	msgTooManyCandidates   = "слишком много кандидатов"
	msgAllocationNotActive = "allocation не занимает ресурс, перенос не требуется"
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

// Handle POST /api/v1/allocations/{allocationId}/reassignment-proposals
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	var req ProposeRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.RespondBadRequest(w, err.Error())
		return
	}

	proposal, err := h.service.Propose(r.Context(), id, req.CandidateResourceIDs)
	if err != nil {
		switch {
		case errors.Is(err, reassignmentSvc.ErrNoCandidates):
			handlers.RespondBadRequest(w, msgNoCandidates)

		case errors.Is(err, reassignmentSvc.ErrTooManyCandidates):
			handlers.RespondBadRequest(w, msgTooManyCandidates)

		case errors.Is(err, reassignmentSvc.ErrAllocationNotFound):
			h.logger.Warn("POST /allocations/{id}/reassignment-proposals - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		case errors.Is(err, reassignmentSvc.ErrAllocationNotActive):
			h.logger.Warn("POST /allocations/{id}/reassignment-proposals - Not active: allocation_id=%d", id)
			handlers.RespondError(w, http.StatusConflict, msgAllocationNotActive)

		default:
			h.logger.Error("POST /allocations/{id}/reassignment-proposals - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	// Ответ 201 и для терминального proposal без кандидата: решение
	// зафиксировано, клиент читает исход из статуса
	h.logger.Info("POST /allocations/{id}/reassignment-proposals - Created: proposal_id=%s, status=%s", proposal.ID, proposal.Status)
	handlers.RespondJSON(w, http.StatusCreated, handlers.FromDomainProposal(proposal))
}
