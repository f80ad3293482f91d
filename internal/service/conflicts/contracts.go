package conflicts

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// AllocationRepository интерфейс репозитория allocations
type AllocationRepository interface {
	FindBlocking(ctx context.Context, resourceID string, interval domain.Interval, excludeID *int64) ([]*domain.Allocation, error)
}

// ResourceClient интерфейс клиента реестра ресурсов
type ResourceClient interface {
	GetResource(ctx context.Context, id string) (*resourceservice.Resource, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
