package request_allocation

import (
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ResourceID == "" {
		return fmt.Errorf("%w: resourceID is required", ErrInvalidInput)
	}

	if req.RequesterID == "" {
		return fmt.Errorf("%w: requesterID is required", ErrInvalidInput)
	}

	switch req.Kind {
	case domain.KindReservation, domain.KindMaintenance:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, req.Kind)
	}

	if !req.Priority.IsValid() {
		return fmt.Errorf("%w: priority must be between %d and %d",
			ErrInvalidPriority, domain.PriorityLow, domain.PriorityUrgent)
	}

	if _, err := domain.NewInterval(req.Start, req.End); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}

	// Правило без явной границы проходит валидацию: обрезка по горизонту
	// отражается предупреждением в ответе, а не ошибкой
	if req.Recurrence != nil {
		if err := req.Recurrence.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
	}

	if req.IdempotencyKey != nil && *req.IdempotencyKey == "" {
		return fmt.Errorf("%w: idempotencyKey must not be empty when set", ErrInvalidInput)
	}

	return nil
}
