package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/integrations/resourceservice"
)

type fakeEntryRepo struct {
	entries     []*domain.WaitlistEntry
	count       int
	overlapping bool
	created     []*domain.WaitlistEntry
	statuses    map[string]domain.WaitlistStatus
	promoted    map[string]int64
	err         error
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{
		statuses: make(map[string]domain.WaitlistStatus),
		promoted: make(map[string]int64),
	}
}

func (f *fakeEntryRepo) Create(_ context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, e)
	return e, nil
}

func (f *fakeEntryRepo) GetByID(_ context.Context, id string) (*domain.WaitlistEntry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, f.err
}

func (f *fakeEntryRepo) FindWaitingByResource(_ context.Context, _ string) ([]*domain.WaitlistEntry, error) {
	return f.entries, f.err
}

func (f *fakeEntryRepo) HasOverlappingWaiting(_ context.Context, _, _ string, _ domain.Interval) (bool, error) {
	return f.overlapping, f.err
}

func (f *fakeEntryRepo) CountWaiting(_ context.Context, _ string) (int, error) {
	return f.count, f.err
}

func (f *fakeEntryRepo) FindExpired(_ context.Context, now time.Time, _ uint64) ([]*domain.WaitlistEntry, error) {
	var out []*domain.WaitlistEntry
	for _, e := range f.entries {
		if e.IsExpiredAt(now) {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeEntryRepo) UpdateStatus(_ context.Context, id string, status domain.WaitlistStatus) error {
	f.statuses[id] = status
	return nil
}

func (f *fakeEntryRepo) MarkPromoted(_ context.Context, id string, allocationID int64) error {
	f.statuses[id] = domain.WaitlistStatusPromoted
	f.promoted[id] = allocationID
	return nil
}

type fakeAllocationRepo struct {
	nextID  int64
	created []*domain.Allocation
	err     error
}

func (f *fakeAllocationRepo) Create(_ context.Context, a *domain.Allocation) (*domain.Allocation, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	a.ID = f.nextID
	f.created = append(f.created, a)
	return a, nil
}

type fakeConflictDetector struct {
	conflictFor map[string]bool // ключ: interval.Start в RFC3339
}

func (f *fakeConflictDetector) FindConflicts(_ context.Context, _ *resourceservice.Resource, interval domain.Interval, _ *int64) (domain.ConflictSet, error) {
	if f.conflictFor[interval.Start.Format(time.RFC3339)] {
		return domain.ConflictSet{
			Reservations: []*domain.Allocation{{ID: 99, Kind: domain.KindReservation, Status: domain.StatusConfirmed}},
		}, nil
	}
	return domain.ConflictSet{}, nil
}

type fakeResourceClient struct {
	resource *resourceservice.Resource
	err      error
}

func (f *fakeResourceClient) GetResource(_ context.Context, _ string) (*resourceservice.Resource, error) {
	return f.resource, f.err
}

type fakeOutbox struct {
	events []domain.Event
}

func (f *fakeOutbox) Append(_ context.Context, event domain.Event) error {
	f.events = append(f.events, event)
	return nil
}

type passthroughTxManager struct{}

func (passthroughTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (passthroughTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func testInterval(t *testing.T, start, end string) domain.Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	iv, err := domain.NewInterval(s, e)
	require.NoError(t, err)
	return iv
}

func testResource(cap int) *resourceservice.Resource {
	return &resourceservice.Resource{ID: "room-1", WaitlistCap: cap}
}

func newService(entries *fakeEntryRepo, allocations *fakeAllocationRepo, detector *fakeConflictDetector, client *fakeResourceClient, sink *fakeOutbox) *Service {
	return NewService(entries, allocations, detector, client, sink, passthroughTxManager{}, nopLogger{}, 72*time.Hour)
}

func waitingEntry(id, requester string, priority domain.Priority, enqueuedAt time.Time, iv domain.Interval) *domain.WaitlistEntry {
	return &domain.WaitlistEntry{
		ID:                id,
		ResourceID:        "room-1",
		RequestedInterval: iv,
		RequesterID:       requester,
		Priority:          priority,
		Status:            domain.WaitlistStatusWaiting,
		EnqueuedAt:        enqueuedAt,
		ExpiresAt:         enqueuedAt.Add(72 * time.Hour),
	}
}

func TestEnqueue(t *testing.T) {
	iv := testInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")

	t.Run("success", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.count = 2
		sink := &fakeOutbox{}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, sink)

		entry, err := svc.Enqueue(context.Background(), EnqueueParams{
			Resource:    testResource(0),
			Interval:    iv,
			RequesterID: "user-1",
			Priority:    domain.PriorityNormal,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, 3, entry.Position)
		assert.Equal(t, domain.WaitlistStatusWaiting, entry.Status)
		assert.True(t, entry.ExpiresAt.After(entry.EnqueuedAt))
		require.Len(t, sink.events, 1)
		assert.Equal(t, "allocation.waitlisted", sink.events[0].EventName())
	})

	t.Run("duplicate overlapping request rejected", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.overlapping = true
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		_, err := svc.Enqueue(context.Background(), EnqueueParams{
			Resource: testResource(0), Interval: iv, RequesterID: "user-1",
		})
		assert.ErrorIs(t, err, ErrAlreadyWaitlisted)
	})

	t.Run("cap reached", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.count = 5
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		_, err := svc.Enqueue(context.Background(), EnqueueParams{
			Resource: testResource(5), Interval: iv, RequesterID: "user-1",
		})
		assert.ErrorIs(t, err, ErrWaitlistFull)
	})

	t.Run("zero cap means unlimited", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.count = 1000
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		_, err := svc.Enqueue(context.Background(), EnqueueParams{
			Resource: testResource(0), Interval: iv, RequesterID: "user-1",
		})
		assert.NoError(t, err)
	})
}

func TestPromote(t *testing.T) {
	freed := testInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
	// Promote сверяет ExpiresAt с реальными часами: время постановки в
	// очередь задаем относительно них, чтобы записи не истекали сами собой
	base := time.Now().UTC().Add(-time.Hour)

	t.Run("priority beats arrival order", func(t *testing.T) {
		// FindWaitingByResource отдает записи уже в порядке розыгрыша
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("high", "user-2", domain.PriorityHigh, base.Add(time.Hour), freed),
			waitingEntry("low-early", "user-1", domain.PriorityLow, base, freed),
		}
		allocations := &fakeAllocationRepo{}
		sink := &fakeOutbox{}
		svc := newService(entries, allocations, &fakeConflictDetector{}, &fakeResourceClient{resource: testResource(0)}, sink)

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, "high", promoted.ID)
		assert.Equal(t, domain.WaitlistStatusPromoted, promoted.Status)

		// Одно освобождение - один промоушен
		require.Len(t, allocations.created, 1)
		assert.Equal(t, domain.StatusConfirmed, allocations.created[0].Status)
		assert.Equal(t, domain.KindReservation, allocations.created[0].Kind)
		assert.Equal(t, "user-2", allocations.created[0].RequesterID)
		assert.Equal(t, domain.WaitlistStatusWaiting, entries.statusOf("low-early"))
	})

	t.Run("expired entries are skipped and marked", func(t *testing.T) {
		stale := waitingEntry("stale", "user-1", domain.PriorityHigh, base.Add(-100*time.Hour), freed)
		fresh := waitingEntry("fresh", "user-2", domain.PriorityNormal, base, freed)

		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{stale, fresh}
		sink := &fakeOutbox{}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{resource: testResource(0)}, sink)

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, "fresh", promoted.ID)
		assert.Equal(t, domain.WaitlistStatusExpired, entries.statusOf("stale"))
	})

	t.Run("non-overlapping entries not considered", func(t *testing.T) {
		other := testInterval(t, "2025-10-20T10:00:00Z", "2025-10-20T11:00:00Z")
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("elsewhere", "user-1", domain.PriorityHigh, base, other),
		}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{resource: testResource(0)}, &fakeOutbox{})

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		assert.Nil(t, promoted)
	})

	t.Run("conflicting candidate skipped in favor of next", func(t *testing.T) {
		wide := testInterval(t, "2025-10-15T09:00:00Z", "2025-10-15T12:00:00Z")
		detector := &fakeConflictDetector{conflictFor: map[string]bool{
			wide.Start.Format(time.RFC3339): true,
		}}

		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("blocked", "user-1", domain.PriorityHigh, base, wide),
			waitingEntry("fits", "user-2", domain.PriorityNormal, base, freed),
		}
		svc := newService(entries, &fakeAllocationRepo{}, detector, &fakeResourceClient{resource: testResource(0)}, &fakeOutbox{})

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, "fits", promoted.ID)
		// Конфликтующий кандидат остается ждать
		assert.Equal(t, domain.WaitlistStatusWaiting, entries.statusOf("blocked"))
	})

	t.Run("approval-gated resource promotes to pending approval", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("ready", "user-1", domain.PriorityNormal, base, freed),
		}
		allocations := &fakeAllocationRepo{}
		gated := &resourceservice.Resource{ID: "room-1", RequiresApproval: true}
		svc := newService(entries, allocations, &fakeConflictDetector{}, &fakeResourceClient{resource: gated}, &fakeOutbox{})

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		require.NotNil(t, promoted)
		require.Len(t, allocations.created, 1)
		assert.Equal(t, domain.StatusPendingApproval, allocations.created[0].Status)
	})

	t.Run("registry unavailable skips promotion silently", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("ready", "user-1", domain.PriorityNormal, base, freed),
		}
		client := &fakeResourceClient{err: errors.New("registry down")}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, client, &fakeOutbox{})

		promoted, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		assert.Nil(t, promoted)
		assert.Equal(t, domain.WaitlistStatusWaiting, entries.statusOf("ready"))
	})

	t.Run("promotion emits both events", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{
			waitingEntry("ready", "user-1", domain.PriorityNormal, base, freed),
		}
		sink := &fakeOutbox{}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{resource: testResource(0)}, sink)

		_, err := svc.Promote(context.Background(), "room-1", freed)
		require.NoError(t, err)
		require.Len(t, sink.events, 2)
		assert.Equal(t, "waitlist.promoted", sink.events[0].EventName())
		assert.Equal(t, "allocation.allocated", sink.events[1].EventName())
	})
}

func (f *fakeEntryRepo) statusOf(id string) domain.WaitlistStatus {
	if status, ok := f.statuses[id]; ok {
		return status
	}
	return domain.WaitlistStatusWaiting
}

func TestWithdraw(t *testing.T) {
	iv := testInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
	base := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	t.Run("owner withdraws", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{waitingEntry("e1", "user-1", domain.PriorityNormal, base, iv)}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		err := svc.Withdraw(context.Background(), "e1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.WaitlistStatusWithdrawn, entries.statuses["e1"])
	})

	t.Run("non-owner denied", func(t *testing.T) {
		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{waitingEntry("e1", "user-1", domain.PriorityNormal, base, iv)}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		err := svc.Withdraw(context.Background(), "e1", "intruder")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("already promoted entry", func(t *testing.T) {
		promoted := waitingEntry("e1", "user-1", domain.PriorityNormal, base, iv)
		promoted.Status = domain.WaitlistStatusPromoted

		entries := newFakeEntryRepo()
		entries.entries = []*domain.WaitlistEntry{promoted}
		svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, &fakeOutbox{})

		err := svc.Withdraw(context.Background(), "e1", "user-1")
		assert.ErrorIs(t, err, ErrEntryNotWaiting)
	})
}

func TestSweepExpired(t *testing.T) {
	iv := testInterval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
	old := time.Now().UTC().Add(-100 * time.Hour)

	entries := newFakeEntryRepo()
	entries.entries = []*domain.WaitlistEntry{
		waitingEntry("stale-1", "user-1", domain.PriorityNormal, old, iv),
		waitingEntry("stale-2", "user-2", domain.PriorityNormal, old, iv),
	}
	sink := &fakeOutbox{}
	svc := newService(entries, &fakeAllocationRepo{}, &fakeConflictDetector{}, &fakeResourceClient{}, sink)

	n, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.WaitlistStatusExpired, entries.statuses["stale-1"])
	assert.Equal(t, domain.WaitlistStatusExpired, entries.statuses["stale-2"])
	assert.Len(t, sink.events, 2)
}
