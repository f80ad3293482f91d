package outbox

import "errors"

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("outbox: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("outbox: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("outbox: failed to scan row")

	// ErrMarshalPayload возвращается при ошибке сериализации события
	ErrMarshalPayload = errors.New("outbox: failed to marshal event payload")
)
