package get_allocation

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	allocationsSvc "github.com/m04kA/SMC-SchedulingService/internal/service/allocations"
)

const (
	msgInvalidAllocationID = "некорректный ID"
	msgAllocationNotFound  = "allocation не найден"
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

// Handle GET /api/v1/allocations/{allocationId}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["allocationId"], 10, 64)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidAllocationID)
		return
	}

	allocation, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, allocationsSvc.ErrAllocationNotFound):
			h.logger.Warn("GET /allocations/{id} - Not found: allocation_id=%d", id)
			handlers.RespondNotFound(w, msgAllocationNotFound)

		default:
			h.logger.Error("GET /allocations/{id} - Failed: allocation_id=%d, error=%v", id, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, handlers.FromDomainAllocation(allocation))
}
