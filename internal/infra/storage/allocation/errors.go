package allocation

import "errors"

var (
	// ErrAllocationNotFound возвращается, когда allocation не найден
	ErrAllocationNotFound = errors.New("allocation.repository: allocation not found")

	// ErrDuplicateIdempotencyKey возвращается при конфликте ключа идемпотентности
	ErrDuplicateIdempotencyKey = errors.New("allocation.repository: duplicate idempotency key")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("allocation.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("allocation.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("allocation.repository: failed to scan row")
)
