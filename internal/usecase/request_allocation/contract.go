package request_allocation

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
	"github.com/m04kA/SMC-SchedulingService/internal/recurrence"
	waitlistSvc "github.com/m04kA/SMC-SchedulingService/internal/service/waitlist"
)

// AllocationRepository интерфейс репозитория allocations
type AllocationRepository interface {
	Create(ctx context.Context, a *domain.Allocation) (*domain.Allocation, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Allocation, error)
	FindPendingOverlapping(ctx context.Context, resourceID string, interval domain.Interval) ([]*domain.Allocation, error)
	Terminate(ctx context.Context, id int64, status domain.AllocationStatus, reason string) error
}

// ConflictDetector интерфейс детектора конфликтов
type ConflictDetector interface {
	FindConflicts(ctx context.Context, resource *resourceservice.Resource, interval domain.Interval, excludeID *int64) (domain.ConflictSet, error)
	CheckOccurrences(ctx context.Context, resource *resourceservice.Resource, occurrences []domain.Interval, excludeID *int64) ([]domain.OccurrenceVerdict, error)
}

// WaitlistEnqueuer интерфейс постановки в лист ожидания
type WaitlistEnqueuer interface {
	Enqueue(ctx context.Context, params waitlistSvc.EnqueueParams) (*domain.WaitlistEntry, error)
}

// Expander интерфейс раскрытия правила повторения
type Expander interface {
	Expand(rule domain.RecurrenceRule, anchor domain.Interval) (recurrence.Expansion, error)
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
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
