package request_allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	storage "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/allocation"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
	"github.com/m04kA/SMC-SchedulingService/internal/recurrence"
	waitlistSvc "github.com/m04kA/SMC-SchedulingService/internal/service/waitlist"
)

type fakeRepo struct {
	nextID   int64
	created  []*domain.Allocation
	byKey    map[string]*domain.Allocation
	pending  []*domain.Allocation
	rejected []int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byKey: make(map[string]*domain.Allocation)}
}

func (f *fakeRepo) Create(_ context.Context, a *domain.Allocation) (*domain.Allocation, error) {
	if a.IdempotencyKey != nil {
		if _, exists := f.byKey[*a.IdempotencyKey]; exists {
			return nil, storage.ErrDuplicateIdempotencyKey
		}
	}
	f.nextID++
	a.ID = f.nextID
	f.created = append(f.created, a)
	if a.IdempotencyKey != nil {
		f.byKey[*a.IdempotencyKey] = a
	}
	return a, nil
}

func (f *fakeRepo) GetByIdempotencyKey(_ context.Context, key string) (*domain.Allocation, error) {
	if a, ok := f.byKey[key]; ok {
		return a, nil
	}
	return nil, storage.ErrAllocationNotFound
}

func (f *fakeRepo) FindPendingOverlapping(_ context.Context, _ string, interval domain.Interval) ([]*domain.Allocation, error) {
	var out []*domain.Allocation
	for _, p := range f.pending {
		if p.Interval.Overlaps(interval) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) Terminate(_ context.Context, id int64, status domain.AllocationStatus, _ string) error {
	if status == domain.StatusRejected {
		f.rejected = append(f.rejected, id)
	}
	return nil
}

type fakeDetector struct {
	conflictAt map[string]domain.ConflictSet // ключ: start в RFC3339
}

func (f *fakeDetector) FindConflicts(_ context.Context, _ *resourceservice.Resource, interval domain.Interval, _ *int64) (domain.ConflictSet, error) {
	return f.conflictAt[interval.Start.Format(time.RFC3339)], nil
}

func (f *fakeDetector) CheckOccurrences(ctx context.Context, resource *resourceservice.Resource, occurrences []domain.Interval, excludeID *int64) ([]domain.OccurrenceVerdict, error) {
	verdicts := make([]domain.OccurrenceVerdict, 0, len(occurrences))
	for i, occ := range occurrences {
		set, _ := f.FindConflicts(ctx, resource, occ, excludeID)
		verdicts = append(verdicts, domain.OccurrenceVerdict{Index: i, Interval: occ, Conflicts: set})
	}
	return verdicts, nil
}

type fakeWaitlist struct {
	entry *domain.WaitlistEntry
	err   error
	got   *waitlistSvc.EnqueueParams
}

func (f *fakeWaitlist) Enqueue(_ context.Context, params waitlistSvc.EnqueueParams) (*domain.WaitlistEntry, error) {
	f.got = &params
	return f.entry, f.err
}

type fakeExpander struct {
	expansion recurrence.Expansion
	err       error
}

func (f *fakeExpander) Expand(_ domain.RecurrenceRule, _ domain.Interval) (recurrence.Expansion, error) {
	return f.expansion, f.err
}

type fakeClient struct {
	resource *resourceservice.Resource
	err      error
}

func (f *fakeClient) GetResource(_ context.Context, _ string) (*resourceservice.Resource, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resource, nil
}

type fakeSink struct {
	events []domain.Event
}

func (f *fakeSink) Append(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeLocker struct{}

func (fakeLocker) Lock(string) func() { return func() {} }

type passthroughTx struct{}

func (passthroughTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type fixture struct {
	repo     *fakeRepo
	detector *fakeDetector
	waitlist *fakeWaitlist
	expander *fakeExpander
	client   *fakeClient
	sink     *fakeSink
	uc       *UseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo:     newFakeRepo(),
		detector: &fakeDetector{conflictAt: make(map[string]domain.ConflictSet)},
		waitlist: &fakeWaitlist{},
		expander: &fakeExpander{},
		client:   &fakeClient{resource: &resourceservice.Resource{ID: "room-1"}},
		sink:     &fakeSink{},
	}
	f.uc = NewUseCase(f.repo, f.detector, f.waitlist, f.expander, f.client, f.sink, fakeLocker{}, passthroughTx{}, nopLogger{})
	return f
}

func (f *fixture) conflictAt(start time.Time) {
	f.detector.conflictAt[start.UTC().Format(time.RFC3339)] = domain.ConflictSet{
		Reservations: []*domain.Allocation{{
			ID:     77,
			Kind:   domain.KindReservation,
			Status: domain.StatusConfirmed,
		}},
	}
}

func (f *fixture) blackoutAt(start time.Time) {
	f.detector.conflictAt[start.UTC().Format(time.RFC3339)] = domain.ConflictSet{
		Blackouts: []domain.Blackout{{
			ResourceID: "room-1",
			Reason:     domain.BlackoutResourceBlocked,
		}},
	}
}

var (
	anchorStart = time.Date(2025, 11, 3, 10, 0, 0, 0, time.UTC)
	anchorEnd   = time.Date(2025, 11, 3, 11, 0, 0, 0, time.UTC)
)

func singleRequest() *Request {
	return &Request{
		ResourceID:  "room-1",
		Start:       anchorStart,
		End:         anchorEnd,
		Kind:        domain.KindReservation,
		RequesterID: "user-1",
		Priority:    domain.PriorityNormal,
	}
}

func TestExecute_Single(t *testing.T) {
	t.Run("clean slot confirmed immediately", func(t *testing.T) {
		f := newFixture()

		resp, err := f.uc.Execute(context.Background(), singleRequest())
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, resp.Outcome)
		require.NotNil(t, resp.Allocation)
		assert.Equal(t, domain.StatusConfirmed, resp.Allocation.Status)
		require.Len(t, f.sink.events, 1)
		assert.Equal(t, "allocation.allocated", f.sink.events[0].EventName())
	})

	t.Run("approval policy yields pending", func(t *testing.T) {
		f := newFixture()
		f.client.resource = &resourceservice.Resource{ID: "room-1", RequiresApproval: true}

		resp, err := f.uc.Execute(context.Background(), singleRequest())
		require.NoError(t, err)
		assert.Equal(t, OutcomePendingApproval, resp.Outcome)
		assert.Equal(t, domain.StatusPendingApproval, resp.Allocation.Status)
		// PENDING_APPROVAL не занимает слот - событие о занятии не пишется
		assert.Empty(t, f.sink.events)
	})

	t.Run("conflict without opt-in", func(t *testing.T) {
		f := newFixture()
		f.conflictAt(anchorStart)

		resp, err := f.uc.Execute(context.Background(), singleRequest())
		require.NoError(t, err)
		assert.Equal(t, OutcomeConflicted, resp.Outcome)
		assert.Nil(t, resp.Allocation)
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, "reservation", resp.Conflicts[0].Type)
		require.Len(t, f.sink.events, 1)
		assert.Equal(t, "allocation.conflicted", f.sink.events[0].EventName())
	})

	t.Run("conflict with opt-in goes to waitlist", func(t *testing.T) {
		f := newFixture()
		f.conflictAt(anchorStart)
		f.waitlist.entry = &domain.WaitlistEntry{ID: "entry-1", Status: domain.WaitlistStatusWaiting}

		req := singleRequest()
		req.WaitlistOptIn = true

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeWaitlisted, resp.Outcome)
		require.NotNil(t, resp.WaitlistEntry)
		assert.Equal(t, "entry-1", resp.WaitlistEntry.ID)
		require.NotNil(t, f.waitlist.got)
		assert.Equal(t, "user-1", f.waitlist.got.RequesterID)
	})

	t.Run("blackout closes the waitlist path", func(t *testing.T) {
		f := newFixture()
		f.blackoutAt(anchorStart)

		req := singleRequest()
		req.WaitlistOptIn = true

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConflicted, resp.Outcome)
		assert.Nil(t, f.waitlist.got, "blackout must not enqueue")
		require.Len(t, resp.Conflicts, 1)
		assert.Equal(t, "blackout", resp.Conflicts[0].Type)
	})

	t.Run("waitlist full surfaces sentinel with an event", func(t *testing.T) {
		f := newFixture()
		f.conflictAt(anchorStart)
		f.waitlist.err = waitlistSvc.ErrWaitlistFull

		req := singleRequest()
		req.WaitlistOptIn = true

		_, err := f.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrWaitlistFull)
		// Отказ по вместимости фиксируется событием, не только ошибкой
		require.Len(t, f.sink.events, 1)
		assert.Equal(t, "waitlist.full", f.sink.events[0].EventName())
	})

	t.Run("validation failures", func(t *testing.T) {
		f := newFixture()

		req := singleRequest()
		req.Kind = "unknown"
		_, err := f.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)

		req = singleRequest()
		req.Start, req.End = req.End, req.Start
		_, err = f.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInterval)

		req = singleRequest()
		req.Priority = 42
		_, err = f.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidPriority)
	})
}

func TestExecute_Maintenance(t *testing.T) {
	t.Run("maintenance pre-empts pending approvals", func(t *testing.T) {
		f := newFixture()
		f.repo.pending = []*domain.Allocation{
			{
				ID:         50,
				ResourceID: "room-1",
				Interval:   domain.Interval{Start: anchorStart, End: anchorEnd},
				Kind:       domain.KindReservation,
				Status:     domain.StatusPendingApproval,
			},
		}

		req := singleRequest()
		req.Kind = domain.KindMaintenance
		req.Priority = domain.PriorityHigh

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, resp.Outcome)
		assert.Equal(t, domain.StatusScheduled, resp.Allocation.Status)
		assert.Equal(t, []int64{50}, f.repo.rejected)

		// allocation.rejected за вытесненную заявку + allocation.allocated за окно
		names := make([]string, 0, len(f.sink.events))
		for _, e := range f.sink.events {
			names = append(names, e.EventName())
		}
		assert.Contains(t, names, "allocation.rejected")
		assert.Contains(t, names, "allocation.allocated")
	})

	t.Run("maintenance conflicts with confirmed reservation", func(t *testing.T) {
		f := newFixture()
		f.conflictAt(anchorStart)

		req := singleRequest()
		req.Kind = domain.KindMaintenance

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		// CONFIRMED никогда не вытесняется - окно конфликтует
		assert.Equal(t, OutcomeConflicted, resp.Outcome)
		assert.Empty(t, f.repo.created)
	})
}

func TestExecute_Recurring(t *testing.T) {
	weekly := func(n int) *domain.RecurrenceRule {
		return &domain.RecurrenceRule{Frequency: domain.FrequencyWeekly, MaxOccurrences: &n}
	}

	occurrences := func(n int) []domain.Interval {
		out := make([]domain.Interval, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, domain.Interval{
				Start: anchorStart.AddDate(0, 0, 7*i),
				End:   anchorEnd.AddDate(0, 0, 7*i),
			})
		}
		return out
	}

	t.Run("all occurrences clean", func(t *testing.T) {
		f := newFixture()
		f.expander.expansion = recurrence.Expansion{Occurrences: occurrences(3)}

		req := singleRequest()
		req.Recurrence = weekly(3)

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, resp.Outcome)
		require.NotNil(t, resp.GroupID)
		require.Len(t, resp.Occurrences, 3)
		require.Len(t, f.repo.created, 3)

		// Все occurrence'ы в одной группе, дочерние ссылаются на первый
		first := f.repo.created[0]
		assert.Nil(t, first.ParentOccurrenceID)
		for _, a := range f.repo.created[1:] {
			require.NotNil(t, a.ParentOccurrenceID)
			assert.Equal(t, first.ID, *a.ParentOccurrenceID)
			assert.Equal(t, *first.RecurrenceGroupID, *a.RecurrenceGroupID)
		}
	})

	t.Run("conflict without allowPartial rejects everything", func(t *testing.T) {
		f := newFixture()
		occs := occurrences(3)
		f.expander.expansion = recurrence.Expansion{Occurrences: occs}
		f.conflictAt(occs[1].Start)

		req := singleRequest()
		req.Recurrence = weekly(3)

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomeConflicted, resp.Outcome)
		assert.Empty(t, f.repo.created)
		require.Len(t, resp.Occurrences, 3)
		assert.Empty(t, resp.Occurrences[0].Conflicts)
		assert.NotEmpty(t, resp.Occurrences[1].Conflicts)
	})

	t.Run("allowPartial places the free subset", func(t *testing.T) {
		f := newFixture()
		occs := occurrences(3)
		f.expander.expansion = recurrence.Expansion{Occurrences: occs}
		f.conflictAt(occs[1].Start)

		req := singleRequest()
		req.Recurrence = weekly(3)
		req.AllowPartial = true

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, OutcomePartial, resp.Outcome)
		assert.Len(t, f.repo.created, 2)
		require.Len(t, resp.Occurrences, 3)
		assert.True(t, resp.Occurrences[0].Placed)
		assert.False(t, resp.Occurrences[1].Placed)
		assert.True(t, resp.Occurrences[2].Placed)
	})

	t.Run("unbounded rule carries truncation warning", func(t *testing.T) {
		f := newFixture()
		f.expander.expansion = recurrence.Expansion{Occurrences: occurrences(2), Truncated: true}

		req := singleRequest()
		req.Recurrence = &domain.RecurrenceRule{Frequency: domain.FrequencyWeekly}

		resp, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Contains(t, resp.Warnings, WarnRecurrenceUnbounded)
	})
}

func TestExecute_Idempotency(t *testing.T) {
	key := "req-123"

	t.Run("replay returns the original allocation", func(t *testing.T) {
		f := newFixture()

		req := singleRequest()
		req.IdempotencyKey = &key

		first, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		require.False(t, first.Replayed)

		second, err := f.uc.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, first.Allocation.ID, second.Allocation.ID)
		assert.Len(t, f.repo.created, 1)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		f := newFixture()
		empty := ""

		req := singleRequest()
		req.IdempotencyKey = &empty

		_, err := f.uc.Execute(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestExecute_ResourceRegistry(t *testing.T) {
	t.Run("resource not found", func(t *testing.T) {
		f := newFixture()
		f.client.err = resourceservice.ErrResourceNotFound

		_, err := f.uc.Execute(context.Background(), singleRequest())
		assert.ErrorIs(t, err, ErrResourceNotFound)
	})
}
