package allocations

import "errors"

var (
	// ErrAllocationNotFound возвращается, когда allocation не найден
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrGroupNotFound возвращается, когда recurrence-группа не найдена
	ErrGroupNotFound = errors.New("recurrence group not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав на операцию
	ErrAccessDenied = errors.New("access denied")

	// ErrNotReservation возвращается, когда операция применима только к бронированиям
	ErrNotReservation = errors.New("allocation is not a reservation")

	// ErrNotMaintenance возвращается, когда операция применима только к обслуживанию
	ErrNotMaintenance = errors.New("allocation is not a maintenance window")

	// ErrCheckInNotRequired возвращается, когда ресурс не требует check-in
	ErrCheckInNotRequired = errors.New("resource does not require check-in")

	// ErrResourceNotFound возвращается, когда ресурс не найден в реестре
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceUnavailable возвращается, когда реестр ресурсов недоступен
	ErrResourceUnavailable = errors.New("resource registry unavailable")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("allocations service: internal error")
)
