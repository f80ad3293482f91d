package waitlist

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// EntryRepository интерфейс репозитория листа ожидания
type EntryRepository interface {
	Create(ctx context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error)
	GetByID(ctx context.Context, id string) (*domain.WaitlistEntry, error)
	FindWaitingByResource(ctx context.Context, resourceID string) ([]*domain.WaitlistEntry, error)
	HasOverlappingWaiting(ctx context.Context, resourceID, requesterID string, interval domain.Interval) (bool, error)
	CountWaiting(ctx context.Context, resourceID string) (int, error)
	FindExpired(ctx context.Context, now time.Time, limit uint64) ([]*domain.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, id string, status domain.WaitlistStatus) error
	MarkPromoted(ctx context.Context, id string, allocationID int64) error
}

// AllocationRepository интерфейс репозитория allocations для создания
// allocation при промоушене
type AllocationRepository interface {
	Create(ctx context.Context, a *domain.Allocation) (*domain.Allocation, error)
}

// ConflictDetector интерфейс детектора конфликтов
type ConflictDetector interface {
	FindConflicts(ctx context.Context, resource *resourceservice.Resource, interval domain.Interval, excludeID *int64) (domain.ConflictSet, error)
}

// ResourceClient интерфейс клиента реестра ресурсов
type ResourceClient interface {
	GetResource(ctx context.Context, id string) (*resourceservice.Resource, error)
}

// EventSink интерфейс транзакционного outbox
type EventSink interface {
	Append(ctx context.Context, event domain.Event) error
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
