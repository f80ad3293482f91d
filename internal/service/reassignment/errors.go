package reassignment

import "errors"

var (
	// ErrProposalNotFound возвращается, когда предложение не найдено
	ErrProposalNotFound = errors.New("proposal not found")

	// ErrAllocationNotFound возвращается, когда исходный allocation не найден
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrAllocationNotActive возвращается, когда исходный allocation не занимает слот
	ErrAllocationNotActive = errors.New("allocation is not active")

	// ErrProposalNotOpen возвращается при ответе на закрытое предложение
	ErrProposalNotOpen = errors.New("proposal is not open")

	// ErrProposalExpired возвращается при ответе на просроченное предложение
	ErrProposalExpired = errors.New("proposal expired")

	// ErrAccessDenied возвращается, когда отвечает не владелец бронирования
	ErrAccessDenied = errors.New("access denied")

	// ErrTooManyCandidates возвращается при превышении лимита кандидатов
	ErrTooManyCandidates = errors.New("too many candidate resources")

	// ErrNoCandidates возвращается, когда список кандидатов пуст
	ErrNoCandidates = errors.New("candidate list is empty")

	// ErrResourceUnavailable возвращается, когда реестр ресурсов недоступен
	ErrResourceUnavailable = errors.New("resource registry unavailable")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("reassignment service: internal error")
)
