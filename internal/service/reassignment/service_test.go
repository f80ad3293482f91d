package reassignment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	allocationStorage "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	proposalStorage "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/proposal"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

type fakeProposalRepo struct {
	proposals map[string]*domain.ReassignmentProposal
	created   []*domain.ReassignmentProposal
	statuses  map[string]domain.ProposalStatus
	accepted  map[string]int64
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{
		proposals: make(map[string]*domain.ReassignmentProposal),
		statuses:  make(map[string]domain.ProposalStatus),
		accepted:  make(map[string]int64),
	}
}

func (f *fakeProposalRepo) Create(_ context.Context, p *domain.ReassignmentProposal) (*domain.ReassignmentProposal, error) {
	f.created = append(f.created, p)
	f.proposals[p.ID] = p
	return p, nil
}

func (f *fakeProposalRepo) GetByID(_ context.Context, id string) (*domain.ReassignmentProposal, error) {
	if p, ok := f.proposals[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, proposalStorage.ErrProposalNotFound
}

func (f *fakeProposalRepo) FindExpired(_ context.Context, now time.Time, _ uint64) ([]*domain.ReassignmentProposal, error) {
	var out []*domain.ReassignmentProposal
	for _, p := range f.proposals {
		if p.IsExpiredAt(now) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProposalRepo) UpdateStatus(_ context.Context, id string, status domain.ProposalStatus) error {
	f.statuses[id] = status
	if p, ok := f.proposals[id]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakeProposalRepo) MarkAccepted(_ context.Context, id string, replacementID int64) error {
	f.accepted[id] = replacementID
	if p, ok := f.proposals[id]; ok {
		p.Status = domain.ProposalStatusAccepted
		p.ReplacementAllocationID = &replacementID
	}
	return nil
}

type fakeAllocationRepo struct {
	allocations map[int64]*domain.Allocation
	nextID      int64
	created     []*domain.Allocation
	terminated  map[int64]string
}

func newFakeAllocationRepo(allocations ...*domain.Allocation) *fakeAllocationRepo {
	f := &fakeAllocationRepo{
		allocations: make(map[int64]*domain.Allocation),
		nextID:      100,
		terminated:  make(map[int64]string),
	}
	for _, a := range allocations {
		f.allocations[a.ID] = a
	}
	return f
}

func (f *fakeAllocationRepo) Create(_ context.Context, a *domain.Allocation) (*domain.Allocation, error) {
	f.nextID++
	a.ID = f.nextID
	f.created = append(f.created, a)
	f.allocations[a.ID] = a
	return a, nil
}

func (f *fakeAllocationRepo) GetByID(_ context.Context, id int64) (*domain.Allocation, error) {
	if a, ok := f.allocations[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, allocationStorage.ErrAllocationNotFound
}

func (f *fakeAllocationRepo) Terminate(_ context.Context, id int64, status domain.AllocationStatus, reason string) error {
	f.terminated[id] = reason
	if a, ok := f.allocations[id]; ok {
		a.Status = status
	}
	return nil
}

type fakeDetector struct {
	conflictOn map[string]bool // ключ: resourceID
}

func (f *fakeDetector) FindConflicts(_ context.Context, resource *resourceservice.Resource, _ domain.Interval, _ *int64) (domain.ConflictSet, error) {
	if f.conflictOn[resource.ID] {
		return domain.ConflictSet{
			Reservations: []*domain.Allocation{{ID: 99, Kind: domain.KindReservation, Status: domain.StatusConfirmed}},
		}, nil
	}
	return domain.ConflictSet{}, nil
}

type fakePromoter struct {
	calls []string // resourceID
}

func (f *fakePromoter) Promote(_ context.Context, resourceID string, _ domain.Interval) (*domain.WaitlistEntry, error) {
	f.calls = append(f.calls, resourceID)
	return nil, nil
}

type fakeResources struct {
	known map[string]*resourceservice.Resource
}

func (f *fakeResources) GetResource(_ context.Context, id string) (*resourceservice.Resource, error) {
	if r, ok := f.known[id]; ok {
		return r, nil
	}
	return nil, resourceservice.ErrResourceNotFound
}

type fakeSink struct {
	events []domain.Event
}

func (f *fakeSink) Append(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeLocker struct {
	order []string
}

func (f *fakeLocker) Lock(key string) func() {
	f.order = append(f.order, key)
	return func() {}
}

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixture struct {
	proposals *fakeProposalRepo
	repo      *fakeAllocationRepo
	detector  *fakeDetector
	promoter  *fakePromoter
	resources *fakeResources
	sink      *fakeSink
	locker    *fakeLocker
	svc       *Service
}

func newFixture(allocations ...*domain.Allocation) *fixture {
	f := &fixture{
		proposals: newFakeProposalRepo(),
		repo:      newFakeAllocationRepo(allocations...),
		detector:  &fakeDetector{conflictOn: make(map[string]bool)},
		promoter:  &fakePromoter{},
		resources: &fakeResources{known: map[string]*resourceservice.Resource{
			"room-1": {ID: "room-1"},
			"room-2": {ID: "room-2"},
			"room-3": {ID: "room-3"},
		}},
		sink:   &fakeSink{},
		locker: &fakeLocker{},
	}
	f.svc = NewService(f.proposals, f.repo, f.detector, f.promoter, f.resources, f.sink, f.locker, passthroughTx{}, nopLogger{}, 24*time.Hour)
	return f
}

func confirmed(id int64, resourceID, requester string, start, end time.Time) *domain.Allocation {
	return &domain.Allocation{
		ID:          id,
		ResourceID:  resourceID,
		Interval:    domain.Interval{Start: start, End: end},
		Kind:        domain.KindReservation,
		Status:      domain.StatusConfirmed,
		Priority:    domain.PriorityNormal,
		RequesterID: requester,
	}
}

var (
	slotStart = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	slotEnd   = time.Date(2025, 11, 3, 11, 0, 0, 0, time.UTC)
)

func TestPropose(t *testing.T) {
	t.Run("first clean candidate wins", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		f.detector.conflictOn["room-2"] = true

		proposal, err := f.svc.Propose(context.Background(), 1, []string{"room-2", "room-3"})
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusProposed, proposal.Status)
		assert.Equal(t, "room-3", proposal.ProposedResourceID)
		assert.True(t, proposal.Deadline.After(time.Now().UTC()))
	})

	t.Run("unknown candidate is skipped, not fatal", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))

		proposal, err := f.svc.Propose(context.Background(), 1, []string{"ghost", "room-2"})
		require.NoError(t, err)
		assert.Equal(t, "room-2", proposal.ProposedResourceID)
	})

	t.Run("no candidate fits", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		f.detector.conflictOn["room-2"] = true
		f.detector.conflictOn["room-3"] = true

		proposal, err := f.svc.Propose(context.Background(), 1, []string{"room-2", "room-3"})
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusRejected, proposal.Status)
		require.NotNil(t, proposal.Reason)
		assert.Equal(t, domain.ReasonNoCandidateAvailable, *proposal.Reason)
	})

	t.Run("empty candidate list", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))

		_, err := f.svc.Propose(context.Background(), 1, nil)
		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("too many candidates", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))

		candidates := make([]string, domain.MaxCandidateResources+1)
		for i := range candidates {
			candidates[i] = "room-2"
		}
		_, err := f.svc.Propose(context.Background(), 1, candidates)
		assert.ErrorIs(t, err, ErrTooManyCandidates)
	})

	t.Run("cancelled allocation has nothing to reassign", func(t *testing.T) {
		a := confirmed(1, "room-1", "user-1", slotStart, slotEnd)
		a.Status = domain.StatusCancelled
		f := newFixture(a)

		_, err := f.svc.Propose(context.Background(), 1, []string{"room-2"})
		assert.ErrorIs(t, err, ErrAllocationNotActive)
	})
}

func openProposal(f *fixture, originalID int64) *domain.ReassignmentProposal {
	p := &domain.ReassignmentProposal{
		ID:                   "prop-1",
		OriginalAllocationID: originalID,
		ProposedResourceID:   "room-2",
		ProposedInterval:     domain.Interval{Start: slotStart, End: slotEnd},
		Status:               domain.ProposalStatusProposed,
		Deadline:             time.Now().UTC().Add(time.Hour),
	}
	f.proposals.proposals[p.ID] = p
	return p
}

func TestRespond(t *testing.T) {
	t.Run("accept swaps resources atomically", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		openProposal(f, 1)

		result, err := f.svc.Respond(context.Background(), "prop-1", true, "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusAccepted, result.Status)
		require.NotNil(t, result.ReplacementAllocationID)

		// Замена наследует параметры исходного allocation
		require.Len(t, f.repo.created, 1)
		replacement := f.repo.created[0]
		assert.Equal(t, "room-2", replacement.ResourceID)
		assert.Equal(t, domain.StatusConfirmed, replacement.Status)
		assert.Equal(t, "user-1", replacement.RequesterID)

		// Исходный закрыт, его слот разыгран
		assert.Contains(t, f.repo.terminated, int64(1))
		assert.Equal(t, []string{"room-1"}, f.promoter.calls)

		// Локи взяты в отсортированном порядке
		assert.Equal(t, []string{"room-1", "room-2"}, f.locker.order)

		names := make([]string, 0, len(f.sink.events))
		for _, e := range f.sink.events {
			names = append(names, e.EventName())
		}
		assert.Contains(t, names, "allocation.reassigned")
	})

	t.Run("decline closes proposal and keeps original", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		openProposal(f, 1)

		result, err := f.svc.Respond(context.Background(), "prop-1", false, "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusRejected, result.Status)
		assert.Empty(t, f.repo.created)
		assert.Empty(t, f.repo.terminated)
		assert.Empty(t, f.promoter.calls)
	})

	t.Run("non-owner denied", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		openProposal(f, 1)

		_, err := f.svc.Respond(context.Background(), "prop-1", true, "intruder")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("expired proposal marked on respond", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		p := openProposal(f, 1)
		p.Deadline = time.Now().UTC().Add(-time.Hour)

		_, err := f.svc.Respond(context.Background(), "prop-1", true, "user-1")
		assert.ErrorIs(t, err, ErrProposalExpired)
		assert.Equal(t, domain.ProposalStatusExpired, f.proposals.statuses["prop-1"])
	})

	t.Run("already answered proposal", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		p := openProposal(f, 1)
		p.Status = domain.ProposalStatusRejected

		_, err := f.svc.Respond(context.Background(), "prop-1", true, "user-1")
		assert.ErrorIs(t, err, ErrProposalNotOpen)
	})

	t.Run("slot taken between propose and accept expires proposal", func(t *testing.T) {
		f := newFixture(confirmed(1, "room-1", "user-1", slotStart, slotEnd))
		openProposal(f, 1)
		f.detector.conflictOn["room-2"] = true

		_, err := f.svc.Respond(context.Background(), "prop-1", true, "user-1")
		assert.ErrorIs(t, err, ErrProposalExpired)
		assert.Empty(t, f.repo.created)
		// Исходный allocation не тронут
		assert.Empty(t, f.repo.terminated)
	})
}

func TestGetByID(t *testing.T) {
	t.Run("stale proposal expires on read", func(t *testing.T) {
		f := newFixture()
		stale := openProposal(f, 1)
		stale.Deadline = time.Now().UTC().Add(-time.Minute)

		proposal, err := f.svc.GetByID(context.Background(), "prop-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ProposalStatusExpired, proposal.Status)
		assert.Equal(t, domain.ProposalStatusExpired, f.proposals.statuses["prop-1"])
	})

	t.Run("unknown proposal", func(t *testing.T) {
		f := newFixture()

		_, err := f.svc.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrProposalNotFound)
	})
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	stale := openProposal(f, 1)
	stale.Deadline = time.Now().UTC().Add(-time.Hour)

	n, err := f.svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.ProposalStatusExpired, f.proposals.statuses["prop-1"])
	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "proposal.expired", f.sink.events[0].EventName())
}

func TestLockOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, lockOrder("b", "a"))
	assert.Equal(t, []string{"a"}, lockOrder("a", "a"))
}
