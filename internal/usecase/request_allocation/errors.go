package request_allocation

import "errors"

var (
	// ErrResourceNotFound возвращается, когда ресурс не найден в реестре
	ErrResourceNotFound = errors.New("request_allocation: resource not found")

	// ErrResourceUnavailable возвращается, когда реестр ресурсов недоступен
	// Ошибка retryable: повтор с тем же idempotencyKey безопасен
	ErrResourceUnavailable = errors.New("request_allocation: resource registry unavailable")

	// ErrInvalidInterval возвращается при некорректном интервале запроса
	ErrInvalidInterval = errors.New("request_allocation: invalid interval")

	// ErrInvalidRecurrence возвращается при некорректном правиле повторения
	ErrInvalidRecurrence = errors.New("request_allocation: invalid recurrence rule")

	// ErrInvalidPriority возвращается при приоритете вне допустимого диапазона
	ErrInvalidPriority = errors.New("request_allocation: invalid priority")

	// ErrAlreadyWaitlisted возвращается при повторной постановке в лист ожидания
	ErrAlreadyWaitlisted = errors.New("request_allocation: already waitlisted")

	// ErrWaitlistFull возвращается при переполнении листа ожидания ресурса
	ErrWaitlistFull = errors.New("request_allocation: waitlist is full")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("request_allocation: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("request_allocation: internal error")
)
