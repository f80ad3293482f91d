package check_availability

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Request модель запроса проверки доступности
type Request struct {
	ResourceID string
	Start      time.Time
	End        time.Time
}

// BusyInterval занятый отрезок окна
type BusyInterval struct {
	AllocationID int64
	Kind         domain.AllocationKind
	Start        time.Time
	End          time.Time
}

// FreeInterval свободный отрезок окна
type FreeInterval struct {
	Start time.Time
	End   time.Time
}

// Response модель ответа проверки доступности
//
// Ответ советующий: между чтением и последующим запросом на размещение слот
// может занять кто угодно, гарантию дает только сериализованный путь записи
type Response struct {
	ResourceID    string
	Blocked       bool
	BlockedReason *string
	Busy          []BusyInterval
	Free          []FreeInterval
}
