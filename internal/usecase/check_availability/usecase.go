package check_availability

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	resourceClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// UseCase use case проверки доступности ресурса в окне.
// Чтение не сериализуется по ресурсу: это осознанно советующий путь
type UseCase struct {
	allocationRepo AllocationRepository
	resourceClient ResourceClient
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	allocationRepo AllocationRepository,
	resourceClient ResourceClient,
	logger Logger,
) *UseCase {
	return &UseCase{
		allocationRepo: allocationRepo,
		resourceClient: resourceClient,
		logger:         logger,
	}
}

// Execute выполняет use case проверки доступности
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CheckAvailability: resource=%s, [%s, %s)",
		req.ResourceID, req.Start.Format(domain.TimeFormat), req.End.Format(domain.TimeFormat))

	// 1. Валидация окна
	window, err := domain.NewInterval(req.Start.UTC(), req.End.UTC())
	if err != nil {
		uc.logger.Warn("CheckAvailability: invalid window: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// 2. Получаем ресурс из реестра
	resource, err := uc.resourceClient.GetResource(ctx, req.ResourceID)
	if err != nil {
		if errors.Is(err, resourceClient.ErrResourceNotFound) {
			uc.logger.Warn("CheckAvailability: resource=%s not found", req.ResourceID)
			return nil, ErrResourceNotFound
		}
		uc.logger.Error("CheckAvailability: resource registry error for resource=%s: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}

	// 3. Занятые отрезки окна
	blocking, err := uc.allocationRepo.FindBlocking(ctx, req.ResourceID, window, nil)
	if err != nil {
		uc.logger.Error("CheckAvailability: repository error for resource=%s: %v", req.ResourceID, err)
		return nil, fmt.Errorf("%w: repository error: %v", ErrInternal, err)
	}

	busy := make([]BusyInterval, 0, len(blocking))
	for _, a := range blocking {
		busy = append(busy, BusyInterval{
			AllocationID: a.ID,
			Kind:         a.Kind,
			Start:        a.Interval.Start,
			End:          a.Interval.End,
		})
	}

	resp := &Response{
		ResourceID:    req.ResourceID,
		Blocked:       resource.Blocked,
		BlockedReason: resource.BlockedReason,
		Busy:          busy,
	}

	// Для заблокированного ресурса свободных отрезков нет
	if !resource.Blocked {
		resp.Free = freeIntervals(window, blocking)
	}

	return resp, nil
}

// freeIntervals вычитает занятые интервалы из окна
func freeIntervals(window domain.Interval, blocking []*domain.Allocation) []FreeInterval {
	intervals := make([]domain.Interval, 0, len(blocking))
	for _, a := range blocking {
		intervals = append(intervals, a.Interval)
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].Start.Before(intervals[j].Start)
	})

	free := make([]FreeInterval, 0)
	cursor := window.Start

	for _, iv := range intervals {
		if iv.Start.After(cursor) {
			end := iv.Start
			if end.After(window.End) {
				end = window.End
			}
			if cursor.Before(end) {
				free = append(free, FreeInterval{Start: cursor, End: end})
			}
		}
		if iv.End.After(cursor) {
			cursor = iv.End
		}
		if !cursor.Before(window.End) {
			break
		}
	}

	if cursor.Before(window.End) {
		free = append(free, FreeInterval{Start: cursor, End: window.End})
	}

	return free
}
