package waitlist

import "errors"

var (
	// ErrEntryNotFound возвращается, когда запись листа ожидания не найдена
	ErrEntryNotFound = errors.New("waitlist entry not found")

	// ErrAlreadyWaitlisted возвращается, когда у заявителя уже есть WAITING запись
	// с пересекающимся интервалом на этом ресурсе
	ErrAlreadyWaitlisted = errors.New("requester already waitlisted for overlapping interval")

	// ErrWaitlistFull возвращается при достижении лимита листа ожидания ресурса
	ErrWaitlistFull = errors.New("waitlist is full")

	// ErrEntryNotWaiting возвращается, когда запись уже не в статусе WAITING
	ErrEntryNotWaiting = errors.New("waitlist entry is not waiting")

	// ErrAccessDenied возвращается, когда запись пытается отозвать не её владелец
	ErrAccessDenied = errors.New("access denied")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("waitlist service: internal error")
)
