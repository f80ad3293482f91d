package check_availability

import "errors"

var (
	// ErrResourceNotFound возвращается, когда ресурс не найден в реестре
	ErrResourceNotFound = errors.New("check_availability: resource not found")

	// ErrResourceUnavailable возвращается, когда реестр ресурсов недоступен
	ErrResourceUnavailable = errors.New("check_availability: resource registry unavailable")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("check_availability: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("check_availability: internal error")
)
