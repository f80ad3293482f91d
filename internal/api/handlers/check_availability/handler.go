package check_availability

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	checkAvailabilityUC "github.com/m04kA/SMC-SchedulingService/internal/usecase/check_availability"
)

const (
	msgMissingWindow       = "параметры start и end обязательны"
	msgInvalidTimeFormat   = "некорректный формат времени, ожидается RFC3339"
	msgResourceNotFound    = "ресурс не найден"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
)

type Handler struct {
	useCase AvailabilityUseCase
	logger  Logger
}

func NewHandler(useCase AvailabilityUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/resources/{resourceId}/availability?start=&end=
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	resourceID := mux.Vars(r)["resourceId"]
	query := r.URL.Query()

	rawStart, rawEnd := query.Get("start"), query.Get("end")
	if rawStart == "" || rawEnd == "" {
		handlers.RespondBadRequest(w, msgMissingWindow)
		return
	}

	start, err := time.Parse(time.RFC3339, rawStart)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	end, err := time.Parse(time.RFC3339, rawEnd)
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &checkAvailabilityUC.Request{
		ResourceID: resourceID,
		Start:      start,
		End:        end,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkAvailabilityUC.ErrInvalidInput):
			h.logger.Warn("GET /resources/{id}/availability - Invalid input: resource_id=%s, error=%v", resourceID, err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, checkAvailabilityUC.ErrResourceNotFound):
			h.logger.Warn("GET /resources/{id}/availability - Resource not found: resource_id=%s", resourceID)
			handlers.RespondNotFound(w, msgResourceNotFound)

		case errors.Is(err, checkAvailabilityUC.ErrResourceUnavailable):
			h.logger.Error("GET /resources/{id}/availability - Registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("GET /resources/{id}/availability - Failed: resource_id=%s, error=%v", resourceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, toResponse(result))
}
