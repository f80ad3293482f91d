package request_allocation

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Outcome итог обработки запроса на размещение
type Outcome string

const (
	OutcomeConfirmed       Outcome = "confirmed"
	OutcomePendingApproval Outcome = "pending_approval"
	OutcomeWaitlisted      Outcome = "waitlisted"
	OutcomeConflicted      Outcome = "conflicted"
	OutcomePartial         Outcome = "partial" // часть occurrence'ов размещена

	// Внутренний маркер: транзакция коммитит событие о переполнении листа
	// ожидания, наружу результат уходит как ErrWaitlistFull
	outcomeWaitlistFull Outcome = "waitlist_full"
)

// WarnRecurrenceUnbounded нефатальное предупреждение: правило без границы
// обрезано по горизонту планирования
const WarnRecurrenceUnbounded = "RECURRENCE_UNBOUNDED"

// Request модель запроса на размещение
type Request struct {
	ResourceID  string
	Start       time.Time
	End         time.Time
	Kind        domain.AllocationKind
	RequesterID string
	Priority    domain.Priority

	// Правило повторения; nil для одиночного запроса
	Recurrence *domain.RecurrenceRule

	// Для повторяющихся запросов: разместить свободное подмножество
	// вместо отказа целиком
	AllowPartial bool

	// Встать в лист ожидания, если интервал занят бронированием
	WaitlistOptIn bool

	// Ключ идемпотентности; повтор с тем же ключом возвращает прежний результат
	IdempotencyKey *string
}

// ConflictView конфликт в ответе
type ConflictView struct {
	Type         string // reservation | maintenance | blackout
	AllocationID *int64
	Start        time.Time
	End          time.Time
	Reason       *string // для blackout
}

// OccurrenceResult результат по одному occurrence повторяющегося запроса
type OccurrenceResult struct {
	Index        int
	Start        time.Time
	End          time.Time
	Placed       bool
	AllocationID *int64
	Conflicts    []ConflictView
}

// Response модель ответа на запрос размещения
type Response struct {
	Outcome Outcome

	// Созданный allocation (одиночный запрос или первый occurrence группы)
	Allocation *domain.Allocation

	// Запись листа ожидания при Outcome == waitlisted
	WaitlistEntry *domain.WaitlistEntry

	// Конфликты одиночного запроса
	Conflicts []ConflictView

	// Результаты по occurrence'ам повторяющегося запроса
	Occurrences []OccurrenceResult

	// ID recurrence-группы для повторяющегося запроса
	GroupID *string

	// Нефатальные предупреждения (например, RECURRENCE_UNBOUNDED)
	Warnings []string

	// Запрос был повтором по ключу идемпотентности
	Replayed bool
}

// conflictViews конвертирует ConflictSet в представление для ответа
func conflictViews(set domain.ConflictSet) []ConflictView {
	views := make([]ConflictView, 0, len(set.Reservations)+len(set.Maintenance)+len(set.Blackouts))

	for _, a := range set.Reservations {
		id := a.ID
		views = append(views, ConflictView{
			Type:         "reservation",
			AllocationID: &id,
			Start:        a.Interval.Start,
			End:          a.Interval.End,
		})
	}
	for _, a := range set.Maintenance {
		id := a.ID
		views = append(views, ConflictView{
			Type:         "maintenance",
			AllocationID: &id,
			Start:        a.Interval.Start,
			End:          a.Interval.End,
		})
	}
	for _, b := range set.Blackouts {
		reason := string(b.Reason)
		views = append(views, ConflictView{
			Type:   "blackout",
			Start:  b.Interval.Start,
			End:    b.Interval.End,
			Reason: &reason,
		})
	}

	return views
}
