package allocations

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// AllocationRepository интерфейс репозитория allocations
type AllocationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Allocation, error)
	GetByGroupID(ctx context.Context, groupID string) ([]*domain.Allocation, error)
	ListByResource(ctx context.Context, filter domain.ResourceAllocationsFilter) ([]*domain.Allocation, error)
	FindConfirmedStartedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Allocation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.AllocationStatus) error
	Terminate(ctx context.Context, id int64, status domain.AllocationStatus, reason string) error
	UpdateInterval(ctx context.Context, id int64, interval domain.Interval) error
}

// ConflictDetector интерфейс детектора конфликтов
type ConflictDetector interface {
	FindConflicts(ctx context.Context, resource *resourceservice.Resource, interval domain.Interval, excludeID *int64) (domain.ConflictSet, error)
}

// WaitlistPromoter интерфейс промоушена листа ожидания на освободившийся интервал
type WaitlistPromoter interface {
	Promote(ctx context.Context, resourceID string, freedInterval domain.Interval) (*domain.WaitlistEntry, error)
}

// ResourceClient интерфейс клиента реестра ресурсов
type ResourceClient interface {
	GetResource(ctx context.Context, id string) (*resourceservice.Resource, error)
}

// EventSink интерфейс транзакционного outbox
type EventSink interface {
	Append(ctx context.Context, event domain.Event) error
}

// ResourceLocker сериализует мутации по конкретному ресурсу
type ResourceLocker interface {
	Lock(key string) (unlock func())
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
