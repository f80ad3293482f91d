package get_resource_allocations

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

type AllocationsService interface {
	ListByResource(ctx context.Context, filter domain.ResourceAllocationsFilter) ([]*domain.Allocation, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
