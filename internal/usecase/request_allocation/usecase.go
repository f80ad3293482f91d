package request_allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	resourceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
	waitlistSvc "github.com/m04kA/SMC-SchedulingService/internal/service/waitlist"
)

// maintenanceRejectionReason причина отклонения PENDING_APPROVAL заявок,
// вытесненных окном обслуживания
const maintenanceRejectionReason = "pre-empted by scheduled maintenance"

// UseCase use case размещения: единственная точка входа для занятия ресурса.
// Все мутации по ресурсу сериализованы: keyed-мьютекс снаружи, serializable
// транзакция внутри; проигравший гонку наблюдает строку победителя
type UseCase struct {
	allocationRepo AllocationRepository
	conflicts      ConflictDetector
	waitlist       WaitlistEnqueuer
	expander       Expander
	resourceClient ResourceClient
	outbox         EventSink
	locks          ResourceLocker
	txManager      TransactionManager
	timeProvider   TimeProvider
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	allocationRepo AllocationRepository,
	conflicts ConflictDetector,
	waitlist WaitlistEnqueuer,
	expander Expander,
	resourceClient ResourceClient,
	outbox EventSink,
	locks ResourceLocker,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		allocationRepo: allocationRepo,
		conflicts:      conflicts,
		waitlist:       waitlist,
		expander:       expander,
		resourceClient: resourceClient,
		outbox:         outbox,
		locks:          locks,
		txManager:      txManager,
		timeProvider:   &RealTimeProvider{},
		logger:         logger,
	}
}

// Execute выполняет use case размещения
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("RequestAllocation: resource=%s, requester=%s, kind=%s, [%s, %s)",
		req.ResourceID, req.RequesterID, req.Kind,
		req.Start.Format(domain.TimeFormat), req.End.Format(domain.TimeFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("RequestAllocation: validation failed: %v", err)
		return nil, err
	}

	anchor := domain.Interval{Start: req.Start.UTC(), End: req.End.UTC()}

	// 2. Получаем ресурс из реестра
	resource, err := uc.resourceClient.GetResource(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, resourceClient.ErrResourceNotFound) {
			uc.logger.Warn("RequestAllocation: resource=%s not found", req.ResourceID)
			return nil, ErrResourceNotFound
		}
		uc.logger.Error("RequestAllocation: resource registry error for resource=%s: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}

	// 3. Раскрываем правило повторения в последовательность occurrence'ов
	occurrences := []domain.Interval{anchor}
	warnings := make([]string, 0, 1)

	if req.Recurrence != nil {
		expansion, err := uc.expander.Expand(*req.Recurrence, anchor)
		if err != nil {
			uc.logger.Warn("RequestAllocation: expansion failed: %v", err)
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
		}
		occurrences = expansion.Occurrences
		if expansion.Truncated {
			warnings = append(warnings, WarnRecurrenceUnbounded)
		}
	}

	// 4. Сериализуем мутации по ресурсу
	unlock := uc.locks.Lock(req.ResourceID)
	defer unlock()

	var resp *Response

	// 5. Решение о размещении принимается в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 5.1. Повтор по ключу идемпотентности возвращает прежний результат
		if req.IdempotencyKey != nil {
			existing, err := uc.allocationRepo.GetByIdempotencyKey(txCtx, *req.IdempotencyKey)
			if err != nil && !errors.Is(err, allocationRepo.ErrAllocationNotFound) {
				return fmt.Errorf("%w: idempotency lookup: %v", ErrInternal, err)
			}
			if existing != nil {
				uc.logger.Info("RequestAllocation: replay by idempotency key, allocation=%d", existing.ID)
				resp = replayResponse(existing)
				return nil
			}
		}

		// 5.2. Вердикт по каждому occurrence
		verdicts, err := uc.conflicts.CheckOccurrences(txCtx, resource, occurrences, nil)
		if err != nil {
			return fmt.Errorf("%w: conflict check: %v", ErrInternal, err)
		}

		if req.Recurrence == nil {
			resp, err = uc.placeSingle(txCtx, req, resource, verdicts[0])
		} else {
			resp, err = uc.placeRecurring(txCtx, req, resource, verdicts)
		}
		return err
	})

	if err != nil {
		return nil, err
	}

	// Событие о переполнении уже закоммичено, клиенту уходит ошибка
	if resp.Outcome == outcomeWaitlistFull {
		return nil, ErrWaitlistFull
	}

	resp.Warnings = append(resp.Warnings, warnings...)

	uc.logger.Info("RequestAllocation: resource=%s outcome=%s", req.ResourceID, resp.Outcome)
	return resp, nil
}

// placeSingle размещает одиночный запрос по его вердикту
func (uc *UseCase) placeSingle(ctx context.Context, req *Request, resource *resourceClient.Resource, verdict domain.OccurrenceVerdict) (*Response, error) {
	set := verdict.Conflicts

	if set.IsEmpty() {
		allocation, err := uc.createAllocation(ctx, req, resource, verdict.Interval, nil, nil, req.IdempotencyKey)
		if err != nil {
			return nil, err
		}

		outcome := OutcomeConfirmed
		if allocation.Status == domain.StatusPendingApproval {
			outcome = OutcomePendingApproval
		}
		return &Response{Outcome: outcome, Allocation: allocation}, nil
	}

	// Жесткие конфликты (blackout, обслуживание) не оставляют пути через
	// лист ожидания; мягкие (бронирования) - оставляют при opt-in
	if req.Kind == domain.KindReservation && req.WaitlistOptIn && !set.HasBlackout() {
		entry, err := uc.waitlist.Enqueue(ctx, waitlistSvc.EnqueueParams{
			Resource:    resource,
			Interval:    verdict.Interval,
			RequesterID: req.RequesterID,
			Priority:    req.Priority,
		})
		if err != nil {
			switch {
			case errors.Is(err, waitlistSvc.ErrAlreadyWaitlisted):
				return nil, ErrAlreadyWaitlisted
			case errors.Is(err, waitlistSvc.ErrWaitlistFull):
				// Возврат ошибки откатил бы транзакцию вместе с событием;
				// коммитим событие, ошибку маппит Execute после коммита
				event := domain.WaitlistFull{
					ResourceID:  req.ResourceID,
					RequesterID: req.RequesterID,
					Start:       verdict.Interval.Start,
					End:         verdict.Interval.End,
					Cap:         resource.WaitlistCap,
					At:          uc.timeProvider.Now(),
				}
				if err := uc.outbox.Append(ctx, event); err != nil {
					return nil, fmt.Errorf("%w: outbox error: %v", ErrInternal, err)
				}
				return &Response{Outcome: outcomeWaitlistFull}, nil
			}
			return nil, fmt.Errorf("%w: enqueue: %v", ErrInternal, err)
		}

		return &Response{
			Outcome:       OutcomeWaitlisted,
			WaitlistEntry: entry,
			Conflicts:     conflictViews(set),
		}, nil
	}

	if err := uc.emitConflicted(ctx, req, verdict.Interval, set); err != nil {
		return nil, err
	}

	return &Response{Outcome: OutcomeConflicted, Conflicts: conflictViews(set)}, nil
}

// placeRecurring размещает повторяющийся запрос по списку вердиктов.
// Без allowPartial любой конфликт отклоняет запрос целиком; с allowPartial
// размещается свободное подмножество, конфликты возвращаются по occurrence'ам
func (uc *UseCase) placeRecurring(ctx context.Context, req *Request, resource *resourceClient.Resource, verdicts []domain.OccurrenceVerdict) (*Response, error) {
	results := make([]OccurrenceResult, 0, len(verdicts))
	conflicted := 0

	for _, v := range verdicts {
		if !v.Placeable() {
			conflicted++
		}
	}

	if conflicted > 0 && !req.AllowPartial {
		for _, v := range verdicts {
			results = append(results, OccurrenceResult{
				Index:     v.Index,
				Start:     v.Interval.Start,
				End:       v.Interval.End,
				Conflicts: conflictViews(v.Conflicts),
			})
			if !v.Placeable() {
				if err := uc.emitConflicted(ctx, req, v.Interval, v.Conflicts); err != nil {
					return nil, err
				}
			}
		}
		return &Response{Outcome: OutcomeConflicted, Occurrences: results}, nil
	}

	groupID := uuid.NewString()
	var parent *domain.Allocation

	for _, v := range verdicts {
		if !v.Placeable() {
			if err := uc.emitConflicted(ctx, req, v.Interval, v.Conflicts); err != nil {
				return nil, err
			}
			results = append(results, OccurrenceResult{
				Index:     v.Index,
				Start:     v.Interval.Start,
				End:       v.Interval.End,
				Conflicts: conflictViews(v.Conflicts),
			})
			continue
		}

		var parentID *int64
		var idemKey *string
		if parent == nil {
			// Ключ идемпотентности живет на первом размещенном occurrence
			idemKey = req.IdempotencyKey
		} else {
			parentID = &parent.ID
		}

		allocation, err := uc.createAllocation(ctx, req, resource, v.Interval, &groupID, parentID, idemKey)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			parent = allocation
		}

		id := allocation.ID
		results = append(results, OccurrenceResult{
			Index:        v.Index,
			Start:        v.Interval.Start,
			End:          v.Interval.End,
			Placed:       true,
			AllocationID: &id,
		})
	}

	outcome := OutcomeConfirmed
	switch {
	case parent == nil:
		outcome = OutcomeConflicted
	case conflicted > 0:
		outcome = OutcomePartial
	case parent.Status == domain.StatusPendingApproval:
		outcome = OutcomePendingApproval
	}

	resp := &Response{
		Outcome:     outcome,
		Allocation:  parent,
		Occurrences: results,
	}
	if parent != nil {
		resp.GroupID = &groupID
	}
	return resp, nil
}

// createAllocation создает allocation в начальном статусе политики ресурса.
// Окно обслуживания при создании вытесняет пересекающиеся PENDING_APPROVAL
// заявки: они отклоняются с событием. CONFIRMED обслуживание не вытесняет
// никогда - такой запрос не доходит сюда, он конфликтует
func (uc *UseCase) createAllocation(
	ctx context.Context,
	req *Request,
	resource *resourceClient.Resource,
	interval domain.Interval,
	groupID *string,
	parentID *int64,
	idempotencyKey *string,
) (*domain.Allocation, error) {
	now := uc.timeProvider.Now()

	allocation := &domain.Allocation{
		ResourceID:         req.ResourceID,
		Interval:           interval,
		Kind:               req.Kind,
		Status:             domain.InitialStatus(req.Kind, resource.RequiresApproval),
		Priority:           req.Priority,
		RequesterID:        req.RequesterID,
		RecurrenceGroupID:  groupID,
		ParentOccurrenceID: parentID,
		IdempotencyKey:     idempotencyKey,
	}

	allocation, err := uc.allocationRepo.Create(ctx, allocation)
	if err != nil {
		if errors.Is(err, allocationRepo.ErrDuplicateIdempotencyKey) {
			// Гонка двух повторов с одним ключом: вернем строку победителя
			existing, lookupErr := uc.allocationRepo.GetByIdempotencyKey(ctx, *idempotencyKey)
			if lookupErr != nil {
				return nil, fmt.Errorf("%w: idempotency lookup: %v", ErrInternal, lookupErr)
			}
			return existing, nil
		}
		uc.logger.Error("RequestAllocation: failed to create allocation: %v", err)
		return nil, fmt.Errorf("%w: failed to create allocation: %v", ErrInternal, err)
	}

	// Обслуживание вытесняет ожидающие подтверждения заявки
	if req.Kind == domain.KindMaintenance {
		if err := uc.preemptPending(ctx, req.ResourceID, interval, now); err != nil {
			return nil, err
		}
	}

	if allocation.IsBlocking() {
		event := domain.AllocationAllocated{
			AllocationID: allocation.ID,
			ResourceID:   allocation.ResourceID,
			Kind:         allocation.Kind,
			Status:       allocation.Status,
			Start:        allocation.Interval.Start,
			End:          allocation.Interval.End,
			RequesterID:  allocation.RequesterID,
			At:           now,
		}
		if err := uc.outbox.Append(ctx, event); err != nil {
			return nil, fmt.Errorf("%w: outbox error: %v", ErrInternal, err)
		}
	}

	return allocation, nil
}

// preemptPending отклоняет PENDING_APPROVAL заявки, пересекающиеся с окном обслуживания
func (uc *UseCase) preemptPending(ctx context.Context, resourceID string, interval domain.Interval, now time.Time) error {
	pending, err := uc.allocationRepo.FindPendingOverlapping(ctx, resourceID, interval)
	if err != nil {
		return fmt.Errorf("%w: find pending: %v", ErrInternal, err)
	}

	for _, p := range pending {
		if err := uc.allocationRepo.Terminate(ctx, p.ID, domain.StatusRejected, maintenanceRejectionReason); err != nil {
			return fmt.Errorf("%w: reject pending allocation=%d: %v", ErrInternal, p.ID, err)
		}

		event := domain.AllocationRejected{
			AllocationID: p.ID,
			ResourceID:   p.ResourceID,
			ActorID:      "system",
			Reason:       maintenanceRejectionReason,
			At:           now,
		}
		if err := uc.outbox.Append(ctx, event); err != nil {
			return fmt.Errorf("%w: outbox error: %v", ErrInternal, err)
		}

		uc.logger.Info("RequestAllocation: pending allocation=%d pre-empted by maintenance", p.ID)
	}

	return nil
}

// emitConflicted фиксирует событие об отклоненном из-за конфликтов запросе
func (uc *UseCase) emitConflicted(ctx context.Context, req *Request, interval domain.Interval, set domain.ConflictSet) error {
	event := domain.AllocationConflicted{
		ResourceID:   req.ResourceID,
		Start:        interval.Start,
		End:          interval.End,
		RequesterID:  req.RequesterID,
		Reservations: len(set.Reservations),
		Maintenance:  len(set.Maintenance),
		Blackouts:    len(set.Blackouts),
		At:           uc.timeProvider.Now(),
	}
	if err := uc.outbox.Append(ctx, event); err != nil {
		return fmt.Errorf("%w: outbox error: %v", ErrInternal, err)
	}
	return nil
}

// replayResponse восстанавливает ответ для повтора по ключу идемпотентности
func replayResponse(allocation *domain.Allocation) *Response {
	outcome := OutcomeConfirmed
	switch allocation.Status {
	case domain.StatusPendingApproval:
		outcome = OutcomePendingApproval
	}

	resp := &Response{
		Outcome:    outcome,
		Allocation: allocation,
		Replayed:   true,
	}
	if allocation.RecurrenceGroupID != nil {
		resp.GroupID = allocation.RecurrenceGroupID
	}
	return resp
}
