package conflicts

import "errors"

var (
	// ErrResourceNotFound возвращается, когда ресурс не найден в реестре
	ErrResourceNotFound = errors.New("resource not found")

	// ErrResourceUnavailable возвращается, когда реестр ресурсов недоступен
	ErrResourceUnavailable = errors.New("resource registry unavailable")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("conflicts service: internal error")
)
