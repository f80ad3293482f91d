package domain

import "time"

// ProposalStatus статус предложения о переназначении
type ProposalStatus string

const (
	ProposalStatusProposed ProposalStatus = "proposed"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
	ProposalStatusExpired  ProposalStatus = "expired"
)

// ReasonNoCandidateAvailable причина отклонения, когда ни один кандидат не подошел
// Отсутствие альтернативы - ожидаемый исход, а не ошибка
const ReasonNoCandidateAvailable = "NO_CANDIDATE_AVAILABLE"

// ReassignmentProposal offers an alternative resource/interval for an
// allocation whose original slot is unavailable.
type ReassignmentProposal struct {
	ID                   string // uuid
	OriginalAllocationID int64
	ProposedResourceID   string
	ProposedInterval     Interval
	Status               ProposalStatus
	Reason               *string
	Deadline             time.Time

	// Результат принятия: новый allocation, заменивший исходный
	ReplacementAllocationID *int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOpen сообщает, ожидает ли предложение ответа
func (p *ReassignmentProposal) IsOpen() bool {
	return p.Status == ProposalStatusProposed
}

// IsExpiredAt проверяет дедлайн предложения на момент now
// Используется для ленивой проверки при чтении, до периодической зачистки
func (p *ReassignmentProposal) IsExpiredAt(now time.Time) bool {
	return p.Status == ProposalStatusProposed && now.After(p.Deadline)
}
