package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
	entryRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/waitlist"
)

const sweepBatchSize = 200

// Service сервис листа ожидания: постановка в очередь, промоушен и зачистка
type Service struct {
	entryRepo      EntryRepository
	allocationRepo AllocationRepository
	conflicts      ConflictDetector
	resourceClient ResourceClient
	outbox         EventSink
	txManager      TransactionManager
	logger         Logger
	ttl            time.Duration
}

// NewService создает новый экземпляр сервиса листа ожидания
func NewService(
	entryRepo EntryRepository,
	allocationRepo AllocationRepository,
	conflicts ConflictDetector,
	resourceClient ResourceClient,
	outbox EventSink,
	txManager TransactionManager,
	logger Logger,
	ttl time.Duration,
) *Service {
	if ttl <= 0 {
		ttl = domain.DefaultWaitlistTTL
	}
	return &Service{
		entryRepo:      entryRepo,
		allocationRepo: allocationRepo,
		conflicts:      conflicts,
		resourceClient: resourceClient,
		outbox:         outbox,
		txManager:      txManager,
		logger:         logger,
		ttl:            ttl,
	}
}

// EnqueueParams параметры постановки в лист ожидания
type EnqueueParams struct {
	Resource    *resourceservice.Resource
	Interval    domain.Interval
	RequesterID string
	Priority    domain.Priority
}

// Enqueue ставит проигравший запрос в лист ожидания.
// Выполняется в транзакции вызывающего: запись и событие фиксируются
// атомарно с решением о конфликте
func (s *Service) Enqueue(ctx context.Context, params EnqueueParams) (*domain.WaitlistEntry, error) {
	resourceID := params.Resource.ID

	exists, err := s.entryRepo.HasOverlappingWaiting(ctx, resourceID, params.RequesterID, params.Interval)
	if err != nil {
		s.logger.Error("Enqueue: overlap check failed for resource=%s: %v", resourceID, err)
		return nil, fmt.Errorf("%w: Enqueue - repository error: %v", ErrInternal, err)
	}
	if exists {
		s.logger.Warn("Enqueue: requester=%s already waitlisted on resource=%s", params.RequesterID, resourceID)
		return nil, ErrAlreadyWaitlisted
	}

	count, err := s.entryRepo.CountWaiting(ctx, resourceID)
	if err != nil {
		s.logger.Error("Enqueue: count failed for resource=%s: %v", resourceID, err)
		return nil, fmt.Errorf("%w: Enqueue - repository error: %v", ErrInternal, err)
	}

	// WaitlistCap == 0 означает отсутствие лимита
	if cap := params.Resource.WaitlistCap; cap > 0 && count >= cap {
		s.logger.Warn("Enqueue: waitlist full for resource=%s (cap=%d)", resourceID, cap)
		return nil, ErrWaitlistFull
	}

	now := time.Now().UTC()
	entry := &domain.WaitlistEntry{
		ID:                uuid.NewString(),
		ResourceID:        resourceID,
		RequestedInterval: params.Interval,
		RequesterID:       params.RequesterID,
		Priority:          params.Priority,
		Position:          count + 1,
		Status:            domain.WaitlistStatusWaiting,
		EnqueuedAt:        now,
		ExpiresAt:         now.Add(s.ttl),
	}

	entry, err = s.entryRepo.Create(ctx, entry)
	if err != nil {
		s.logger.Error("Enqueue: create failed for resource=%s: %v", resourceID, err)
		return nil, fmt.Errorf("%w: Enqueue - repository error: %v", ErrInternal, err)
	}

	event := domain.AllocationWaitlisted{
		EntryID:     entry.ID,
		ResourceID:  resourceID,
		RequesterID: entry.RequesterID,
		Start:       entry.RequestedInterval.Start,
		End:         entry.RequestedInterval.End,
		ExpiresAt:   entry.ExpiresAt,
		At:          now,
	}
	if err := s.outbox.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: Enqueue - outbox error: %v", ErrInternal, err)
	}

	s.logger.Info("Enqueue: entry=%s position=%d on resource=%s", entry.ID, entry.Position, resourceID)
	return entry, nil
}

// Promote разыгрывает освободившийся интервал между ожидающими.
// Кандидаты просматриваются в порядке (priority desc, enqueued_at asc);
// истекшие помечаются и пропускаются; продвигается не больше одной записи.
// Выполняется в транзакции вызывающего - той же, что освободила интервал
func (s *Service) Promote(ctx context.Context, resourceID string, freedInterval domain.Interval) (*domain.WaitlistEntry, error) {
	resource, err := s.resourceClient.GetResource(ctx, resourceID)
	if err != nil {
		// Недоступный реестр не должен ломать отмену: промоушен откладывается
		// до следующего освобождения слота
		s.logger.Warn("Promote: resource registry unavailable for resource=%s, skipping promotion: %v", resourceID, err)
		return nil, nil
	}

	entries, err := s.entryRepo.FindWaitingByResource(ctx, resourceID)
	if err != nil {
		s.logger.Error("Promote: repository error for resource=%s: %v", resourceID, err)
		return nil, fmt.Errorf("%w: Promote - repository error: %v", ErrInternal, err)
	}

	now := time.Now().UTC()

	for _, entry := range entries {
		if entry.IsExpiredAt(now) {
			if err := s.expireEntry(ctx, entry, now); err != nil {
				return nil, err
			}
			continue
		}

		// Освобождение слота касается только пересекающихся запросов
		if !entry.RequestedInterval.Overlaps(freedInterval) {
			continue
		}

		set, err := s.conflicts.FindConflicts(ctx, resource, entry.RequestedInterval, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: Promote - conflict check: %v", ErrInternal, err)
		}
		if !set.IsEmpty() {
			continue
		}

		return s.promoteEntry(ctx, resource, entry, now)
	}

	return nil, nil
}

// promoteEntry превращает запись в allocation. Промоушен проходит обычный
// путь заявки: на ресурсе с подтверждением создается PENDING_APPROVAL
func (s *Service) promoteEntry(ctx context.Context, resource *resourceservice.Resource, entry *domain.WaitlistEntry, now time.Time) (*domain.WaitlistEntry, error) {
	allocation := &domain.Allocation{
		ResourceID:  entry.ResourceID,
		Interval:    entry.RequestedInterval,
		Kind:        domain.KindReservation,
		Status:      domain.InitialStatus(domain.KindReservation, resource.RequiresApproval),
		Priority:    entry.Priority,
		RequesterID: entry.RequesterID,
	}

	allocation, err := s.allocationRepo.Create(ctx, allocation)
	if err != nil {
		s.logger.Error("Promote: allocation create failed for entry=%s: %v", entry.ID, err)
		return nil, fmt.Errorf("%w: Promote - allocation create: %v", ErrInternal, err)
	}

	if err := s.entryRepo.MarkPromoted(ctx, entry.ID, allocation.ID); err != nil {
		return nil, fmt.Errorf("%w: Promote - mark promoted: %v", ErrInternal, err)
	}

	entry.Status = domain.WaitlistStatusPromoted
	entry.PromotedAllocationID = &allocation.ID

	events := []domain.Event{
		domain.WaitlistPromoted{
			EntryID:      entry.ID,
			ResourceID:   entry.ResourceID,
			RequesterID:  entry.RequesterID,
			AllocationID: allocation.ID,
			At:           now,
		},
		domain.AllocationAllocated{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			Kind:         allocation.Kind,
			Status:       allocation.Status,
			Start:        allocation.Interval.Start,
			End:          allocation.Interval.End,
			RequesterID:  allocation.RequesterID,
			At:           now,
		},
	}
	for _, event := range events {
		if err := s.outbox.Append(ctx, event); err != nil {
			return nil, fmt.Errorf("%w: Promote - outbox error: %v", ErrInternal, err)
		}
	}

	s.logger.Info("Promote: entry=%s promoted to allocation=%d on resource=%s",
		entry.ID, allocation.ID, entry.ResourceID)
	return entry, nil
}

func (s *Service) expireEntry(ctx context.Context, entry *domain.WaitlistEntry, now time.Time) error {
	if err := s.entryRepo.UpdateStatus(ctx, entry.ID, domain.WaitlistStatusExpired); err != nil {
		return fmt.Errorf("%w: expire entry=%s: %v", ErrInternal, entry.ID, err)
	}

	event := domain.WaitlistExpired{
		EntryID:     entry.ID,
		ResourceID:  entry.ResourceID,
		RequesterID: entry.RequesterID,
		At:          now,
	}
	if err := s.outbox.Append(ctx, event); err != nil {
		return fmt.Errorf("%w: expire entry=%s - outbox error: %v", ErrInternal, entry.ID, err)
	}

	s.logger.Info("waitlist entry=%s expired on resource=%s", entry.ID, entry.ResourceID)
	return nil
}

// GetByID получает запись листа ожидания
func (s *Service) GetByID(ctx context.Context, id string) (*domain.WaitlistEntry, error) {
	entry, err := s.entryRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entryRepo.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}
	return entry, nil
}

// Withdraw отзывает запись листа ожидания. Доступно только её владельцу
func (s *Service) Withdraw(ctx context.Context, entryID, actorID string) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		entry, err := s.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			if errors.Is(err, entryRepo.ErrEntryNotFound) {
				s.logger.Warn("Withdraw: entry=%s not found", entryID)
				return ErrEntryNotFound
			}
			s.logger.Error("Withdraw: repository error for entry=%s: %v", entryID, err)
			return fmt.Errorf("%w: Withdraw - repository error: %v", ErrInternal, err)
		}

		if entry.RequesterID != actorID {
			s.logger.Warn("Withdraw: access denied for actor=%s to entry=%s", actorID, entryID)
			return ErrAccessDenied
		}

		if !entry.IsWaiting() {
			s.logger.Warn("Withdraw: entry=%s is not waiting, status=%s", entryID, entry.Status)
			return ErrEntryNotWaiting
		}

		if err := s.entryRepo.UpdateStatus(ctx, entryID, domain.WaitlistStatusWithdrawn); err != nil {
			s.logger.Error("Withdraw: update failed for entry=%s: %v", entryID, err)
			return fmt.Errorf("%w: Withdraw - repository error: %v", ErrInternal, err)
		}

		s.logger.Info("Withdraw: entry=%s withdrawn by requester=%s", entryID, actorID)
		return nil
	})
}

// SweepExpired переводит истекшие WAITING записи в EXPIRED.
// Запускается по cron; истечение всегда сопровождается событием
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	var expired int

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		entries, err := s.entryRepo.FindExpired(ctx, now, sweepBatchSize)
		if err != nil {
			return fmt.Errorf("%w: SweepExpired - repository error: %v", ErrInternal, err)
		}

		for _, entry := range entries {
			if err := s.expireEntry(ctx, entry, now); err != nil {
				return err
			}
			expired++
		}

		return nil
	})

	if err != nil {
		return expired, err
	}

	return expired, nil
}
