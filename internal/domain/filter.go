package domain

import "time"

// ResourceAllocationsFilter фильтр для выборки allocation'ов ресурса
type ResourceAllocationsFilter struct {
	ResourceID      string            // Обязательный параметр
	From            *time.Time        // Начало периода (опционально)
	To              *time.Time        // Конец периода (опционально)
	Kind            *AllocationKind   // Фильтр по типу (опционально)
	Status          *AllocationStatus // Фильтр по статусу (опционально)
	IncludeTerminal bool              // Включать ли терминальные allocation'ы
}
