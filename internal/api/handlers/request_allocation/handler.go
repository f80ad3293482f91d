package request_allocation

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/api/middleware"
	requestAllocation "github.com/m04kA/SMC-SchedulingService/internal/usecase/request_allocation"
)

const (
	msgInvalidRequestBody  = "некорректное тело запроса"
	msgInvalidTimeFormat   = "некорректный формат времени, ожидается RFC3339"
	msgResourceNotFound    = "ресурс не найден"
	msgResourceUnavailable = "реестр ресурсов временно недоступен"
	msgAlreadyWaitlisted   = "запрос уже стоит в листе ожидания"
	msgWaitlistFull        = "лист ожидания ресурса заполнен"
)

type Handler struct {
	useCase RequestAllocationUseCase
	logger  Logger
}

func NewHandler(useCase RequestAllocationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/allocations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req RequestAllocationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /allocations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	requesterID := middleware.GetUserID(r.Context())

	useCaseReq, err := req.ToUseCaseRequest(requesterID)
	if err != nil {
		h.logger.Warn("POST /allocations - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, requestAllocation.ErrInvalidInput),
			errors.Is(err, requestAllocation.ErrInvalidInterval),
			errors.Is(err, requestAllocation.ErrInvalidRecurrence),
			errors.Is(err, requestAllocation.ErrInvalidPriority):
			h.logger.Warn("POST /allocations - Validation failed: %v", err)
			handlers.RespondBadRequest(w, err.Error())

		case errors.Is(err, requestAllocation.ErrResourceNotFound):
			h.logger.Warn("POST /allocations - Resource not found: resource_id=%s", req.ResourceID)
			handlers.RespondNotFound(w, msgResourceNotFound)

		case errors.Is(err, requestAllocation.ErrAlreadyWaitlisted):
			h.logger.Warn("POST /allocations - Already waitlisted: resource_id=%s, requester=%s", req.ResourceID, requesterID)
			handlers.RespondError(w, http.StatusConflict, msgAlreadyWaitlisted)

		case errors.Is(err, requestAllocation.ErrWaitlistFull):
			h.logger.Warn("POST /allocations - Waitlist full: resource_id=%s", req.ResourceID)
			handlers.RespondError(w, http.StatusConflict, msgWaitlistFull)

		case errors.Is(err, requestAllocation.ErrResourceUnavailable):
			h.logger.Error("POST /allocations - Resource registry unavailable: %v", err)
			handlers.RespondServiceUnavailable(w, msgResourceUnavailable)

		default:
			h.logger.Error("POST /allocations - Failed: resource_id=%s, error=%v", req.ResourceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromUseCaseResponse(result)

	// Конфликт - нормальный вариант ответа, а не ошибка: клиент получает
	// полный ConflictSet со статусом 409
	status := http.StatusCreated
	if result.Outcome == requestAllocation.OutcomeConflicted {
		status = http.StatusConflict
	}

	h.logger.Info("POST /allocations - outcome=%s, resource_id=%s, requester=%s",
		result.Outcome, req.ResourceID, requesterID)
	handlers.RespondJSON(w, status, response)
}
