package check_in_allocation

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type AllocationsService interface {
	CheckIn(ctx context.Context, id int64, actorID string) (*domain.Allocation, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
