package reassignment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// ProposalRepository интерфейс репозитория предложений
type ProposalRepository interface {
	Create(ctx context.Context, p *domain.ReassignmentProposal) (*domain.ReassignmentProposal, error)
	GetByID(ctx context.Context, id string) (*domain.ReassignmentProposal, error)
	FindExpired(ctx context.Context, now time.Time, limit uint64) ([]*domain.ReassignmentProposal, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProposalStatus) error
	MarkAccepted(ctx context.Context, id string, replacementAllocationID int64) error
}

// AllocationRepository интерфейс репозитория allocations
type AllocationRepository interface {
	Create(ctx context.Context, a *domain.Allocation) (*domain.Allocation, error)
	GetByID(ctx context.Context, id int64) (*domain.Allocation, error)
	Terminate(ctx context.Context, id int64, status domain.AllocationStatus, reason string) error
}

// ConflictDetector интерфейс детектора конфликтов
type ConflictDetector interface {
	FindConflicts(ctx context.Context, resource *resourceservice.Resource, interval domain.Interval, excludeID *int64) (domain.ConflictSet, error)
}

// WaitlistPromoter интерфейс промоушена листа ожидания
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
