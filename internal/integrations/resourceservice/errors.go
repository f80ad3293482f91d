package resourceservice

import "errors"

var (
	// ErrResourceNotFound возвращается, когда ресурс не найден в реестре
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("resourceservice client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от реестра
	ErrInvalidResponse = errors.New("resourceservice client: invalid response")

	// ErrServiceUnavailable возвращается, когда реестр ресурсов недоступен
	// Для вызывающей стороны это retryable-ошибка
	ErrServiceUnavailable = errors.New("resourceservice client: service unavailable")
)
