package approve_allocation

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type AllocationsService interface {
	Approve(ctx context.Context, id int64, actorID string) (*domain.Allocation, domain.ConflictSet, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
