package allocations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	resourceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// Service сервис жизненного цикла allocations: подтверждение, отмена,
// перенос обслуживания, check-in и групповая отмена.
// Все мутации сериализуются по ресурсу: keyed-мьютекс снаружи,
// serializable транзакция и FOR UPDATE внутри
type Service struct {
	allocationRepo AllocationRepository
	conflicts      ConflictDetector
	promoter       WaitlistPromoter
	resources      ResourceClient
	outbox         EventSink
	locks          ResourceLocker
	txManager      TransactionManager
	logger         Logger
}

// NewService создает новый экземпляр сервиса allocations
func NewService(
	allocationRepo AllocationRepository,
	conflicts ConflictDetector,
	promoter WaitlistPromoter,
	resources ResourceClient,
	outbox EventSink,
	locks ResourceLocker,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		allocationRepo: allocationRepo,
		conflicts:      conflicts,
		promoter:       promoter,
		resources:      resources,
		outbox:         outbox,
		locks:          locks,
		txManager:      txManager,
		logger:         logger,
	}
}

// GetByID получает allocation по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Allocation, error) {
	allocation, err := s.allocationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, allocationRepo.ErrAllocationNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}
	return allocation, nil
}

// ListByResource получает allocations ресурса с фильтрацией по периоду,
// виду и статусу
func (s *Service) ListByResource(ctx context.Context, filter domain.ResourceAllocationsFilter) ([]*domain.Allocation, error) {
	allocations, err := s.allocationRepo.ListByResource(ctx, filter)
	if err != nil {
		s.logger.Error("ListByResource: repository error for resource=%s: %v", filter.ResourceID, err)
		return nil, fmt.Errorf("%w: ListByResource - repository error: %v", ErrInternal, err)
	}
	return allocations, nil
}

// Approve подтверждает PENDING_APPROVAL бронирование.
// Детектор конфликтов перезапускается на момент подтверждения: слот мог
// быть занят, пока заявка ждала решения. При конфликте заявка остается
// PENDING_APPROVAL, а вызывающий получает полный ConflictSet
func (s *Service) Approve(ctx context.Context, id int64, actorID string) (*domain.Allocation, domain.ConflictSet, error) {
	s.logger.Info("Approve: allocation=%d by actor=%s", id, actorID)

	var result *domain.Allocation
	var conflictSet domain.ConflictSet

	err := s.withResourceLock(ctx, id, func(ctx context.Context, allocation *domain.Allocation) error {
		if allocation.Kind != domain.KindReservation {
			return ErrNotReservation
		}

		if err := allocation.Transition(domain.StatusConfirmed); err != nil {
			return err
		}

		resource, err := s.getResource(ctx, allocation.ResourceID)
		if err != nil {
			return err
		}

		set, err := s.conflicts.FindConflicts(ctx, resource, allocation.Interval, &allocation.ID)
		if err != nil {
			return fmt.Errorf("%w: Approve - conflict check: %v", ErrInternal, err)
		}
		if !set.IsEmpty() {
			// Заблокированное подтверждение тоже попадает в аудит
			event := domain.AllocationConflicted{
				ResourceID:   allocation.ResourceID,
				Start:        allocation.Interval.Start,
				End:          allocation.Interval.End,
				RequesterID:  allocation.RequesterID,
				Reservations: len(set.Reservations),
				Maintenance:  len(set.Maintenance),
				Blackouts:    len(set.Blackouts),
				At:           time.Now().UTC(),
			}
			if err := s.outbox.Append(ctx, event); err != nil {
				return fmt.Errorf("%w: Approve - outbox error: %v", ErrInternal, err)
			}

			conflictSet = set
			allocation.Status = domain.StatusPendingApproval
			result = allocation
			return nil
		}

		if err := s.allocationRepo.UpdateStatus(ctx, id, domain.StatusConfirmed); err != nil {
			return fmt.Errorf("%w: Approve - repository error: %v", ErrInternal, err)
		}

		event := domain.AllocationAllocated{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			Kind:         allocation.Kind,
			Status:       domain.StatusConfirmed,
			Start:        allocation.Interval.Start,
			End:          allocation.Interval.End,
			RequesterID:  allocation.RequesterID,
			At:           time.Now().UTC(),
		}
		if err := s.outbox.Append(ctx, event); err != nil {
			return fmt.Errorf("%w: Approve - outbox error: %v", ErrInternal, err)
		}

		result = allocation
		return nil
	})

	if err != nil {
		return nil, domain.ConflictSet{}, err
	}

	if conflictSet.IsEmpty() {
		s.logger.Info("Approve: allocation=%d confirmed", id)
	} else {
		s.logger.Warn("Approve: allocation=%d blocked by conflicts, left pending", id)
	}
	return result, conflictSet, nil
}

// Reject отклоняет PENDING_APPROVAL бронирование.
// Заявка не занимала слот, промоушен листа ожидания не требуется
func (s *Service) Reject(ctx context.Context, id int64, actorID, reason string) (*domain.Allocation, error) {
	s.logger.Info("Reject: allocation=%d by actor=%s", id, actorID)

	var result *domain.Allocation

	err := s.withResourceLock(ctx, id, func(ctx context.Context, allocation *domain.Allocation) error {
		if allocation.Kind != domain.KindReservation {
			return ErrNotReservation
		}

		if err := allocation.Transition(domain.StatusRejected); err != nil {
			return err
		}

		if err := s.allocationRepo.Terminate(ctx, id, domain.StatusRejected, reason); err != nil {
			return fmt.Errorf("%w: Reject - repository error: %v", ErrInternal, err)
		}

		event := domain.AllocationRejected{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			ActorID:      actorID,
			Reason:       reason,
			At:           time.Now().UTC(),
		}
		if err := s.outbox.Append(ctx, event); err != nil {
			return fmt.Errorf("%w: Reject - outbox error: %v", ErrInternal, err)
		}

		result = allocation
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Reject: allocation=%d rejected", id)
	return result, nil
}

// Cancel отменяет allocation. Бронирование отменяет только его владелец.
// Если allocation занимал слот, освободившийся интервал разыгрывается
// между ожидающими в той же транзакции
func (s *Service) Cancel(ctx context.Context, id int64, actorID, reason string) (*domain.Allocation, error) {
	s.logger.Info("Cancel: allocation=%d by actor=%s", id, actorID)

	var result *domain.Allocation

	err := s.withResourceLock(ctx, id, func(ctx context.Context, allocation *domain.Allocation) error {
		if allocation.Kind == domain.KindReservation && allocation.RequesterID != actorID {
			s.logger.Warn("Cancel: access denied for actor=%s to allocation=%d", actorID, id)
			return ErrAccessDenied
		}

		// Повторная отмена идемпотентна: возвращаем терминальное состояние
		// без нового события и повторного розыгрыша слота
		if allocation.Status == domain.StatusCancelled {
			s.logger.Info("Cancel: allocation=%d already cancelled", id)
			result = allocation
			return nil
		}

		wasBlocking := allocation.IsBlocking()

		if err := allocation.Transition(domain.StatusCancelled); err != nil {
			return err
		}

		if err := s.allocationRepo.Terminate(ctx, id, domain.StatusCancelled, reason); err != nil {
			return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
		}

		event := domain.AllocationCancelled{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			ActorID:      actorID,
			Reason:       reason,
			At:           time.Now().UTC(),
		}
		if err := s.outbox.Append(ctx, event); err != nil {
			return fmt.Errorf("%w: Cancel - outbox error: %v", ErrInternal, err)
		}

		// Слот освободился - разыгрываем его между ожидающими
		if wasBlocking {
			if _, err := s.promoter.Promote(ctx, allocation.ResourceID, allocation.Interval); err != nil {
				return err
			}
		}

		result = allocation
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Cancel: allocation=%d cancelled", id)
	return result, nil
}

// Postpone переносит SCHEDULED окно обслуживания на новый интервал.
// Новый интервал проходит полную проверку конфликтов (исключая само окно);
// конфликт оставляет окно на старом месте. Старый интервал после переноса
// разыгрывается между ожидающими
func (s *Service) Postpone(ctx context.Context, id int64, actorID string, newInterval domain.Interval, reason string) (*domain.Allocation, domain.ConflictSet, error) {
	s.logger.Info("Postpone: allocation=%d to [%s, %s) by actor=%s",
		id, newInterval.Start.Format(time.RFC3339), newInterval.End.Format(time.RFC3339), actorID)

	var result *domain.Allocation
	var conflictSet domain.ConflictSet

	err := s.withResourceLock(ctx, id, func(ctx context.Context, allocation *domain.Allocation) error {
		if allocation.Kind != domain.KindMaintenance {
			return ErrNotMaintenance
		}

		// Перенос не меняет статус: допустим только из SCHEDULED
		if allocation.Status != domain.StatusScheduled {
			return &domain.InvalidTransitionError{
				Kind:      allocation.Kind,
				Current:   allocation.Status,
				Attempted: domain.StatusScheduled,
			}
		}

		resource, err := s.getResource(ctx, allocation.ResourceID)
		if err != nil {
			return err
		}

		set, err := s.conflicts.FindConflicts(ctx, resource, newInterval, &allocation.ID)
		if err != nil {
			return fmt.Errorf("%w: Postpone - conflict check: %v", ErrInternal, err)
		}
		if !set.IsEmpty() {
			conflictSet = set
			result = allocation
			return nil
		}

		oldInterval := allocation.Interval

		if err := s.allocationRepo.UpdateInterval(ctx, id, newInterval); err != nil {
			return fmt.Errorf("%w: Postpone - repository error: %v", ErrInternal, err)
		}
		allocation.Interval = newInterval

		event := domain.MaintenancePostponed{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			OldStart:     oldInterval.Start,
			OldEnd:       oldInterval.End,
			NewStart:     newInterval.Start,
			NewEnd:       newInterval.End,
			Reason:       reason,
			At:           time.Now().UTC(),
		}
		if err := s.outbox.Append(ctx, event); err != nil {
			return fmt.Errorf("%w: Postpone - outbox error: %v", ErrInternal, err)
		}

		// Старое окно освободилось
		if _, err := s.promoter.Promote(ctx, allocation.ResourceID, oldInterval); err != nil {
			return err
		}

		result = allocation
		return nil
	})

	if err != nil {
		return nil, domain.ConflictSet{}, err
	}

	return result, conflictSet, nil
}

// CheckIn фиксирует начало использования: CONFIRMED -> IN_PROGRESS.
// Доступно только владельцу бронирования на ресурсе с политикой check-in
func (s *Service) CheckIn(ctx context.Context, id int64, actorID string) (*domain.Allocation, error) {
	s.logger.Info("CheckIn: allocation=%d by actor=%s", id, actorID)

	var result *domain.Allocation

	err := s.withResourceLock(ctx, id, func(ctx context.Context, allocation *domain.Allocation) error {
		if allocation.Kind != domain.KindReservation {
			return ErrNotReservation
		}
		if allocation.RequesterID != actorID {
			s.logger.Warn("CheckIn: access denied for actor=%s to allocation=%d", actorID, id)
			return ErrAccessDenied
		}

		resource, err := s.getResource(ctx, allocation.ResourceID)
		if err != nil {
			return err
		}
		if !resource.RequiresCheckIn {
			return ErrCheckInNotRequired
		}

		if err := allocation.Transition(domain.StatusInProgress); err != nil {
			return err
		}

		if err := s.allocationRepo.UpdateStatus(ctx, id, domain.StatusInProgress); err != nil {
			return fmt.Errorf("%w: CheckIn - repository error: %v", ErrInternal, err)
		}

		result = allocation
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("CheckIn: allocation=%d in progress", id)
	return result, nil
}

// GroupItemResult результат отмены одного occurrence в группе
type GroupItemResult struct {
	AllocationID int64
	Status       domain.AllocationStatus
	Cancelled    bool
	Skipped      string // причина пропуска, пустая для отмененных
}

// CancelGroup отменяет все нетерминальные occurrence'ы recurrence-группы.
// Операция явная: обычная отмена одного occurrence никогда не трогает
// соседей. Возвращает результат по каждому элементу группы
func (s *Service) CancelGroup(ctx context.Context, groupID, actorID, reason string) ([]GroupItemResult, error) {
	s.logger.Info("CancelGroup: group=%s by actor=%s", groupID, actorID)

	// Все occurrence'ы группы живут на одном ресурсе
	allocations, err := s.allocationRepo.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: CancelGroup - repository error: %v", ErrInternal, err)
	}
	if len(allocations) == 0 {
		return nil, ErrGroupNotFound
	}

	resourceID := allocations[0].ResourceID
	unlock := s.locks.Lock(resourceID)
	defer unlock()

	results := make([]GroupItemResult, 0, len(allocations))

	err = s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		results = results[:0]

		group, err := s.allocationRepo.GetByGroupID(ctx, groupID)
		if err != nil {
			return fmt.Errorf("%w: CancelGroup - repository error: %v", ErrInternal, err)
		}

		now := time.Now().UTC()

		for _, allocation := range group {
			if allocation.Kind == domain.KindReservation && allocation.RequesterID != actorID {
				return ErrAccessDenied
			}

			if allocation.IsTerminal() {
				results = append(results, GroupItemResult{
					AllocationID: allocation.ID,
					Status:       allocation.Status,
					Skipped:      "already terminal",
				})
				continue
			}

			wasBlocking := allocation.IsBlocking()

			if err := allocation.Transition(domain.StatusCancelled); err != nil {
				results = append(results, GroupItemResult{
					AllocationID: allocation.ID,
					Status:       allocation.Status,
					Skipped:      err.Error(),
				})
				continue
			}

			if err := s.allocationRepo.Terminate(ctx, allocation.ID, domain.StatusCancelled, reason); err != nil {
				return fmt.Errorf("%w: CancelGroup - repository error: %v", ErrInternal, err)
			}

			event := domain.AllocationCancelled{
				AllocationID: allocation.ID,
				ResourceID:   allocation.ResourceID,
				ActorID:      actorID,
				Reason:       reason,
				At:           now,
			}
			if err := s.outbox.Append(ctx, event); err != nil {
				return fmt.Errorf("%w: CancelGroup - outbox error: %v", ErrInternal, err)
			}

			if wasBlocking {
				if _, err := s.promoter.Promote(ctx, allocation.ResourceID, allocation.Interval); err != nil {
					return err
				}
			}

			results = append(results, GroupItemResult{
				AllocationID: allocation.ID,
				Status:       domain.StatusCancelled,
				Cancelled:    true,
			})
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("CancelGroup: group=%s processed %d occurrences", groupID, len(results))
	return results, nil
}

// SweepNoCheckIn переводит в EXPIRED подтвержденные бронирования, чье начало
// прошло без check-in на ресурсах с этой политикой. Запускается по cron.
// Освободившийся хвост интервала разыгрывается между ожидающими
func (s *Service) SweepNoCheckIn(ctx context.Context) (int, error) {
	var expired int

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		stale, err := s.allocationRepo.FindConfirmedStartedBefore(ctx, now)
		if err != nil {
			return fmt.Errorf("%w: SweepNoCheckIn - repository error: %v", ErrInternal, err)
		}

		for _, allocation := range stale {
			resource, err := s.resources.GetResource(ctx, allocation.ResourceID)
			if err != nil {
				// Политику ресурса не узнать - бронирование подождет следующего прохода
				s.logger.Warn("SweepNoCheckIn: resource=%s unavailable, skipping allocation=%d: %v",
					allocation.ResourceID, allocation.ID, err)
				continue
			}
			if !resource.RequiresCheckIn {
				continue
			}

			if err := s.allocationRepo.UpdateStatus(ctx, allocation.ID, domain.StatusExpired); err != nil {
				return fmt.Errorf("%w: SweepNoCheckIn - repository error: %v", ErrInternal, err)
			}

			event := domain.AllocationExpired{
				AllocationID: allocation.ID,
				ResourceID:   allocation.ResourceID,
				At:           now,
			}
			if err := s.outbox.Append(ctx, event); err != nil {
				return fmt.Errorf("%w: SweepNoCheckIn - outbox error: %v", ErrInternal, err)
			}

			if _, err := s.promoter.Promote(ctx, allocation.ResourceID, allocation.Interval); err != nil {
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

// withResourceLock загружает allocation, сериализует операцию по его ресурсу
// и перезагружает строку под FOR UPDATE внутри serializable транзакции
func (s *Service) withResourceLock(ctx context.Context, id int64, fn func(ctx context.Context, allocation *domain.Allocation) error) error {
	// Предварительное чтение только ради resourceID для ключа мьютекса
	probe, err := s.allocationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, allocationRepo.ErrAllocationNotFound) {
			return ErrAllocationNotFound
		}
		return fmt.Errorf("%w: load allocation: %v", ErrInternal, err)
	}

	unlock := s.locks.Lock(probe.ResourceID)
	defer unlock()

	return s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		allocation, err := s.allocationRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, allocationRepo.ErrAllocationNotFound) {
				return ErrAllocationNotFound
			}
			return fmt.Errorf("%w: load allocation: %v", ErrInternal, err)
		}

		return fn(ctx, allocation)
	})
}

// getResource получает ресурс из реестра, переводя ошибки клиента
// в сентинелы сервиса
func (s *Service) getResource(ctx context.Context, id string) (*resourceClient.Resource, error) {
	resource, err := s.resources.GetResource(ctx, id)
	if err != nil {
		if errors.Is(err, resourceClient.ErrResourceNotFound) {
			return nil, ErrResourceNotFound
		}
		s.logger.Error("resource registry error for resource=%s: %v", id, err)
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	return resource, nil
}
