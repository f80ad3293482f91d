package reassignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	proposalRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/proposal"
)

const sweepBatchSize = 200

// terminationReasonReassigned причина закрытия исходного allocation при принятии
const terminationReasonReassigned = "superseded by accepted reassignment proposal"

// Service негоциатор переназначения: подбирает альтернативный ресурс для
// allocation, чей слот стал недоступен, и атомарно проводит замену при согласии
type Service struct {
	proposalRepo   ProposalRepository
	allocationRepo AllocationRepository
	conflicts      ConflictDetector
	promoter       WaitlistPromoter
	resources      ResourceClient
	outbox         EventSink
	locks          ResourceLocker
	txManager      TransactionManager
	logger         Logger
	ttl            time.Duration
}

// NewService создает новый экземпляр негоциатора
func NewService(
	proposalRepo ProposalRepository,
	allocationRepo AllocationRepository,
	conflicts ConflictDetector,
	promoter WaitlistPromoter,
	resources ResourceClient,
	outbox EventSink,
	locks ResourceLocker,
	txManager TransactionManager,
	logger Logger,
	ttl time.Duration,
) *Service {
	if ttl <= 0 {
		ttl = domain.DefaultProposalTTL
	}
	return &Service{
		proposalRepo:   proposalRepo,
		allocationRepo: allocationRepo,
		conflicts:      conflicts,
		promoter:       promoter,
		resources:      resources,
		outbox:         outbox,
		locks:          locks,
		txManager:      txManager,
		logger:         logger,
		ttl:            ttl,
	}
}

// Propose подбирает замену для allocation среди кандидатов в порядке вызова.
// Кандидаты проверяются по одному, лок берется только на текущий ресурс -
// два ресурса одновременно не удерживаются никогда. Первый чистый кандидат
// становится PROPOSED с дедлайном; если чистых нет, предложение фиксируется
// терминальным REJECTED с причиной NO_CANDIDATE_AVAILABLE - это ожидаемый
// исход, а не ошибка
func (s *Service) Propose(ctx context.Context, originalID int64, candidateResourceIDs []string) (*domain.ReassignmentProposal, error) {
	s.logger.Info("Propose: allocation=%d, %d candidates", originalID, len(candidateResourceIDs))

	if len(candidateResourceIDs) == 0 {
		return nil, ErrNoCandidates
	}
	if len(candidateResourceIDs) > domain.MaxCandidateResources {
		return nil, ErrTooManyCandidates
	}

	original, err := s.allocationRepo.GetByID(ctx, originalID)
	if err != nil {
		if errors.Is(err, allocationRepo.ErrAllocationNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, fmt.Errorf("%w: Propose - load allocation: %v", ErrInternal, err)
	}
	if !original.IsBlocking() {
		s.logger.Warn("Propose: allocation=%d is not active, status=%s", originalID, original.Status)
		return nil, ErrAllocationNotActive
	}

	for _, resourceID := range candidateResourceIDs {
		clean, err := s.probeCandidate(ctx, resourceID, original.Interval)
		if err != nil {
			return nil, err
		}
		if !clean {
			continue
		}

		proposal := &domain.ReassignmentProposal{
			ID:                   uuid.NewString(),
			OriginalAllocationID: originalID,
			ProposedResourceID:   resourceID,
			ProposedInterval:     original.Interval,
			Status:               domain.ProposalStatusProposed,
			Deadline:             time.Now().UTC().Add(s.ttl),
		}

		err = s.txManager.Do(ctx, func(ctx context.Context) error {
			proposal, err = s.proposalRepo.Create(ctx, proposal)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: Propose - create proposal: %v", ErrInternal, err)
		}

		s.logger.Info("Propose: proposal=%s offers resource=%s for allocation=%d",
			proposal.ID, resourceID, originalID)
		return proposal, nil
	}

	// Ни один кандидат не подошел - фиксируем отрицательный результат
	reason := domain.ReasonNoCandidateAvailable
	proposal := &domain.ReassignmentProposal{
		ID:                   uuid.NewString(),
		OriginalAllocationID: originalID,
		ProposedResourceID:   original.ResourceID,
		ProposedInterval:     original.Interval,
		Status:               domain.ProposalStatusRejected,
		Reason:               &reason,
		Deadline:             time.Now().UTC(),
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		proposal, err = s.proposalRepo.Create(ctx, proposal)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: Propose - create proposal: %v", ErrInternal, err)
	}

	s.logger.Info("Propose: no candidate available for allocation=%d", originalID)
	return proposal, nil
}

// probeCandidate проверяет одного кандидата под его собственным локом
func (s *Service) probeCandidate(ctx context.Context, resourceID string, interval domain.Interval) (bool, error) {
	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		// Недоступный или несуществующий кандидат просто пропускается
		s.logger.Warn("Propose: skipping candidate resource=%s: %v", resourceID, err)
		return false, nil
	}

	unlock := s.locks.Lock(resourceID)
	defer unlock()

	var clean bool
	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		set, err := s.conflicts.FindConflicts(ctx, resource, interval, nil)
		if err != nil {
			return err
		}
		clean = set.IsEmpty()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: Propose - probe resource=%s: %v", ErrInternal, resourceID, err)
	}

	return clean, nil
}

// GetByID получает предложение, лениво помечая просроченное EXPIRED -
// читатель никогда не видит открытым предложение с прошедшим дедлайном
func (s *Service) GetByID(ctx context.Context, id string) (*domain.ReassignmentProposal, error) {
	proposal, err := s.proposalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, proposalRepo.ErrProposalNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if proposal.IsExpiredAt(time.Now().UTC()) {
		if err := s.expireProposal(ctx, proposal); err != nil {
			return nil, err
		}
	}

	return proposal, nil
}

// Respond обрабатывает ответ на предложение.
// Отказ закрывает предложение; согласие атомарно гасит исходный allocation
// и создает замену на предложенном ресурсе через полный путь проверки
// конфликтов. Просроченное предложение помечается EXPIRED на месте
func (s *Service) Respond(ctx context.Context, proposalID string, accept bool, actorID string) (*domain.ReassignmentProposal, error) {
	s.logger.Info("Respond: proposal=%s accept=%t by actor=%s", proposalID, accept, actorID)

	probe, err := s.proposalRepo.GetByID(ctx, proposalID)
	if err != nil {
		if errors.Is(err, proposalRepo.ErrProposalNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("%w: Respond - load proposal: %v", ErrInternal, err)
	}

	original, err := s.allocationRepo.GetByID(ctx, probe.OriginalAllocationID)
	if err != nil {
		if errors.Is(err, allocationRepo.ErrAllocationNotFound) {
			return nil, ErrAllocationNotFound
		}
		return nil, fmt.Errorf("%w: Respond - load allocation: %v", ErrInternal, err)
	}
	if original.RequesterID != actorID {
		s.logger.Warn("Respond: access denied for actor=%s to proposal=%s", actorID, proposalID)
		return nil, ErrAccessDenied
	}

	// Принятие трогает оба ресурса; локи берутся в детерминированном
	// порядке, чтобы встречные ответы не взаимоблокировались
	for _, key := range lockOrder(original.ResourceID, probe.ProposedResourceID) {
		unlock := s.locks.Lock(key)
		defer unlock()
	}

	var result *domain.ReassignmentProposal

	err = s.txManager.DoSerializable(ctx, func(ctx context.Context) error {
		proposal, err := s.proposalRepo.GetByID(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("%w: Respond - load proposal: %v", ErrInternal, err)
		}

		now := time.Now().UTC()

		if proposal.IsExpiredAt(now) {
			if err := s.markExpired(ctx, proposal, now); err != nil {
				return err
			}
			return ErrProposalExpired
		}
		if !proposal.IsOpen() {
			return ErrProposalNotOpen
		}

		if !accept {
			if err := s.proposalRepo.UpdateStatus(ctx, proposal.ID, domain.ProposalStatusRejected); err != nil {
				return fmt.Errorf("%w: Respond - repository error: %v", ErrInternal, err)
			}
			proposal.Status = domain.ProposalStatusRejected
			result = proposal
			return nil
		}

		replacement, err := s.acceptProposal(ctx, proposal, now)
		if err != nil {
			return err
		}

		proposal.Status = domain.ProposalStatusAccepted
		proposal.ReplacementAllocationID = &replacement.ID
		result = proposal
		return nil
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}

// acceptProposal проводит замену: новая бронь создается через полную проверку
// конфликтов, исходная гасится, освободившийся слот разыгрывается
func (s *Service) acceptProposal(ctx context.Context, proposal *domain.ReassignmentProposal, now time.Time) (*domain.Allocation, error) {
	original, err := s.allocationRepo.GetByID(ctx, proposal.OriginalAllocationID)
	if err != nil {
		return nil, fmt.Errorf("%w: accept - load allocation: %v", ErrInternal, err)
	}
	if !original.IsBlocking() {
		return nil, ErrAllocationNotActive
	}

	resource, err := s.resources.GetResource(ctx, proposal.ProposedResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: accept - resource registry: %v", ErrResourceUnavailable, err)
	}

	// Слот мог быть занят между Propose и Respond
	set, err := s.conflicts.FindConflicts(ctx, resource, proposal.ProposedInterval, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: accept - conflict check: %v", ErrInternal, err)
	}
	if !set.IsEmpty() {
		if err := s.markExpired(ctx, proposal, now); err != nil {
			return nil, err
		}
		return nil, ErrProposalExpired
	}

	replacement := &domain.Allocation{
		ResourceID:  proposal.ProposedResourceID,
		Interval:    proposal.ProposedInterval,
		Kind:        original.Kind,
		Status:      original.Status,
		Priority:    original.Priority,
		RequesterID: original.RequesterID,
	}

	replacement, err = s.allocationRepo.Create(ctx, replacement)
	if err != nil {
		return nil, fmt.Errorf("%w: accept - create replacement: %v", ErrInternal, err)
	}

	if err := s.allocationRepo.Terminate(ctx, original.ID, domain.StatusCancelled, terminationReasonReassigned); err != nil {
		return nil, fmt.Errorf("%w: accept - terminate original: %v", ErrInternal, err)
	}

	if err := s.proposalRepo.MarkAccepted(ctx, proposal.ID, replacement.ID); err != nil {
		return nil, fmt.Errorf("%w: accept - mark accepted: %v", ErrInternal, err)
	}

	event := domain.AllocationReassigned{
		ProposalID:      proposal.ID,
		OldAllocationID: original.ID,
		NewAllocationID: replacement.ID,
		OldResourceID:   original.ResourceID,
		NewResourceID:   replacement.ResourceID,
		At:              now,
	}
	if err := s.outbox.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: accept - outbox error: %v", ErrInternal, err)
	}

	// Исходный слот освободился
	if _, err := s.promoter.Promote(ctx, original.ResourceID, original.Interval); err != nil {
		return nil, err
	}

	s.logger.Info("Respond: proposal=%s accepted, allocation=%d superseded by %d",
		proposal.ID, original.ID, replacement.ID)
	return replacement, nil
}

// SweepExpired переводит просроченные PROPOSED предложения в EXPIRED.
// Запускается по cron в дополнение к ленивой проверке на чтении
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	var expired int

	err := s.txManager.Do(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		proposals, err := s.proposalRepo.FindExpired(ctx, now, sweepBatchSize)
		if err != nil {
			return fmt.Errorf("%w: SweepExpired - repository error: %v", ErrInternal, err)
		}

		for _, proposal := range proposals {
			if err := s.markExpired(ctx, proposal, now); err != nil {
				return err
			}
			expired++
		}

		return nil
	})

	if err != nil {
		return expired, err
	}

	return expired, nil
}

// expireProposal помечает предложение просроченным в собственной транзакции
func (s *Service) expireProposal(ctx context.Context, proposal *domain.ReassignmentProposal) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		return s.markExpired(ctx, proposal, time.Now().UTC())
	})
}

func (s *Service) markExpired(ctx context.Context, proposal *domain.ReassignmentProposal, now time.Time) error {
	if err := s.proposalRepo.UpdateStatus(ctx, proposal.ID, domain.ProposalStatusExpired); err != nil {
		return fmt.Errorf("%w: expire proposal=%s: %v", ErrInternal, proposal.ID, err)
	}
	proposal.Status = domain.ProposalStatusExpired

	event := domain.ProposalExpired{
		ProposalID:   proposal.ID,
		AllocationID: proposal.OriginalAllocationID,
		ResourceID:   proposal.ProposedResourceID,
		At:           now,
	}
	if err := s.outbox.Append(ctx, event); err != nil {
		return fmt.Errorf("%w: expire proposal=%s - outbox error: %v", ErrInternal, proposal.ID, err)
	}

	s.logger.Info("proposal=%s expired", proposal.ID)
	return nil
}

// lockOrder возвращает уникальные ключи в лексикографическом порядке
func lockOrder(keys ...string) []string {
	sort.Strings(keys)
	out := keys[:0]
	var prev string
	for i, k := range keys {
		if i == 0 || k != prev {
			out = append(out, k)
		}
		prev = k
	}
	return out
}
