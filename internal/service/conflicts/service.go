package conflicts

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

// Service детектор конфликтов: единственная точка, через которую
// интервал получает право занять ресурс
type Service struct {
	allocationRepo AllocationRepository
	logger         Logger
}

// NewService создает новый экземпляр детектора конфликтов
func NewService(allocationRepo AllocationRepository, logger Logger) *Service {
	return &Service{
		allocationRepo: allocationRepo,
		logger:         logger,
	}
}

// FindConflicts собирает полный ConflictSet для интервала на ресурсе.
// Жесткие blackout'ы (заблокированный ресурс, нерабочие часы) проверяются
// до обращения к БД. excludeID исключает из проверки сам allocation,
// например при переносе maintenance на новый интервал
func (s *Service) FindConflicts(ctx context.Context, resource *resourceservice.Resource, interval domain.Interval, excludeID *int64) (domain.ConflictSet, error) {
	var set domain.ConflictSet

	if resource.Blocked {
		set.Blackouts = append(set.Blackouts, domain.Blackout{
			ResourceID: resource.ID,
			Interval:   interval,
			Reason:     domain.BlackoutResourceBlocked,
		})
	}

	if !withinOperatingHours(resource, interval) {
		set.Blackouts = append(set.Blackouts, domain.Blackout{
			ResourceID: resource.ID,
			Interval:   interval,
			Reason:     domain.BlackoutOutsideHours,
		})
	}

	blocking, err := s.allocationRepo.FindBlocking(ctx, resource.ID, interval, excludeID)
	if err != nil {
		s.logger.Error("FindConflicts: repository error for resource=%s: %v", resource.ID, err)
		return domain.ConflictSet{}, fmt.Errorf("%w: FindConflicts - repository error: %v", ErrInternal, err)
	}

	for _, a := range blocking {
		switch a.Kind {
		case domain.KindMaintenance:
			set.Maintenance = append(set.Maintenance, a)
		default:
			set.Reservations = append(set.Reservations, a)
		}
	}

	return set, nil
}

// CheckOccurrences выносит вердикт по каждому occurrence повторяющегося запроса.
// Запрос никогда не схлопывается в одну ошибку: вызывающий получает полный
// список и сам решает, принять ли свободное подмножество
func (s *Service) CheckOccurrences(ctx context.Context, resource *resourceservice.Resource, occurrences []domain.Interval, excludeID *int64) ([]domain.OccurrenceVerdict, error) {
	verdicts := make([]domain.OccurrenceVerdict, 0, len(occurrences))

	for i, occ := range occurrences {
		set, err := s.FindConflicts(ctx, resource, occ, excludeID)
		if err != nil {
			return nil, err
		}

		verdicts = append(verdicts, domain.OccurrenceVerdict{
			Index:     i,
			Interval:  occ,
			Conflicts: set,
		})
	}

	return verdicts, nil
}

// withinOperatingHours проверяет, укладывается ли интервал в рабочие часы ресурса.
// Интервал, пересекающий полночь, проверяется по каждому затронутому дню
func withinOperatingHours(resource *resourceservice.Resource, interval domain.Interval) bool {
	cursor := interval.Start

	for cursor.Before(interval.End) {
		dayEnd := time.Date(cursor.Year(), cursor.Month(), cursor.Day(), 0, 0, 0, 0, cursor.Location()).AddDate(0, 0, 1)

		segmentEnd := interval.End
		if dayEnd.Before(segmentEnd) {
			segmentEnd = dayEnd
		}

		if !segmentWithinDay(resource.DayScheduleFor(cursor.Weekday()), cursor, segmentEnd) {
			return false
		}

		cursor = dayEnd
	}

	return true
}

// segmentWithinDay проверяет кусок интервала, целиком лежащий в одних сутках
func segmentWithinDay(schedule resourceservice.DaySchedule, start, end time.Time) bool {
	if !schedule.IsOpen {
		return false
	}

	// Открыт весь день, если окно не задано
	if schedule.OpenTime == nil || schedule.CloseTime == nil {
		return true
	}

	openMin, err := parseClock(*schedule.OpenTime)
	if err != nil {
		return false
	}
	closeMin, err := parseClock(*schedule.CloseTime)
	if err != nil {
		return false
	}

	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	// Сегмент до конца суток: полночь считаем как 24:00
	if endMin == 0 && end.After(start) {
		endMin = 24 * 60
	}

	return startMin >= openMin && endMin <= closeMin
}

// parseClock парсит время вида "08:00" в минуты от полуночи
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
