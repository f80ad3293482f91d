package get_allocation

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type AllocationsService interface {
	GetByID(ctx context.Context, id int64) (*domain.Allocation, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
