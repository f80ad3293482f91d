package conflicts

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

type fakeAllocationRepo struct {
	blocking []*domain.Allocation
	err      error

	gotResourceID string
	gotInterval   domain.Interval
	gotExcludeID  *int64
}

func (f *fakeAllocationRepo) FindBlocking(_ context.Context, resourceID string, interval domain.Interval, excludeID *int64) ([]*domain.Allocation, error) {
	f.gotResourceID = resourceID
	f.gotInterval = interval
	f.gotExcludeID = excludeID
	return f.blocking, f.err
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func strPtr(s string) *string { return &s }

func openResource() *resourceservice.Resource {
	allDay := resourceservice.DaySchedule{IsOpen: true}
	return &resourceservice.Resource{
		ID: "room-1",
		OperatingHours: resourceservice.WeekSchedule{
			Monday:    allDay,
			Tuesday:   allDay,
			Wednesday: allDay,
			Thursday:  allDay,
			Friday:    allDay,
			Saturday:  allDay,
			Sunday:    allDay,
		},
	}
}

func interval(t *testing.T, start, end string) domain.Interval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	require.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	require.NoError(t, err)
	iv, err := domain.NewInterval(s, e)
	require.NoError(t, err)
	return iv
}

func TestFindConflicts_Clean(t *testing.T) {
	repo := &fakeAllocationRepo{}
	svc := NewService(repo, nopLogger{})

	set, err := svc.FindConflicts(context.Background(), openResource(), interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z"), nil)
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
	assert.Equal(t, "room-1", repo.gotResourceID)
}

func TestFindConflicts_BlockedResource(t *testing.T) {
	resource := openResource()
	resource.Blocked = true
	resource.BlockedReason = strPtr("flooded")

	svc := NewService(&fakeAllocationRepo{}, nopLogger{})

	set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z"), nil)
	require.NoError(t, err)
	require.Len(t, set.Blackouts, 1)
	assert.Equal(t, domain.BlackoutResourceBlocked, set.Blackouts[0].Reason)
	assert.True(t, set.HasBlackout())
}

func TestFindConflicts_OutsideOperatingHours(t *testing.T) {
	resource := openResource()
	// Среда 15 октября 2025: рабочее окно 08:00-20:00
	resource.OperatingHours.Wednesday = resourceservice.DaySchedule{
		IsOpen:    true,
		OpenTime:  strPtr("08:00"),
		CloseTime: strPtr("20:00"),
	}

	svc := NewService(&fakeAllocationRepo{}, nopLogger{})

	t.Run("inside window", func(t *testing.T) {
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T08:00:00Z", "2025-10-15T20:00:00Z"), nil)
		require.NoError(t, err)
		assert.Empty(t, set.Blackouts)
	})

	t.Run("before opening", func(t *testing.T) {
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T07:00:00Z", "2025-10-15T09:00:00Z"), nil)
		require.NoError(t, err)
		require.Len(t, set.Blackouts, 1)
		assert.Equal(t, domain.BlackoutOutsideHours, set.Blackouts[0].Reason)
	})

	t.Run("past closing", func(t *testing.T) {
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T19:00:00Z", "2025-10-15T21:00:00Z"), nil)
		require.NoError(t, err)
		require.Len(t, set.Blackouts, 1)
		assert.Equal(t, domain.BlackoutOutsideHours, set.Blackouts[0].Reason)
	})

	t.Run("closed day", func(t *testing.T) {
		resource.OperatingHours.Sunday = resourceservice.DaySchedule{IsOpen: false}
		// Воскресенье 19 октября 2025
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-19T10:00:00Z", "2025-10-19T11:00:00Z"), nil)
		require.NoError(t, err)
		require.Len(t, set.Blackouts, 1)
	})
}

func TestFindConflicts_MidnightCrossing(t *testing.T) {
	resource := openResource()

	t.Run("both days open all day", func(t *testing.T) {
		svc := NewService(&fakeAllocationRepo{}, nopLogger{})
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T23:00:00Z", "2025-10-16T01:00:00Z"), nil)
		require.NoError(t, err)
		assert.Empty(t, set.Blackouts)
	})

	t.Run("second day closed", func(t *testing.T) {
		resource.OperatingHours.Thursday = resourceservice.DaySchedule{IsOpen: false}
		svc := NewService(&fakeAllocationRepo{}, nopLogger{})
		set, err := svc.FindConflicts(context.Background(), resource, interval(t, "2025-10-15T23:00:00Z", "2025-10-16T01:00:00Z"), nil)
		require.NoError(t, err)
		require.Len(t, set.Blackouts, 1)
		assert.Equal(t, domain.BlackoutOutsideHours, set.Blackouts[0].Reason)
	})
}

func TestFindConflicts_PartitionsByKind(t *testing.T) {
	iv := interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
	repo := &fakeAllocationRepo{
		blocking: []*domain.Allocation{
			{ID: 1, Kind: domain.KindReservation, Status: domain.StatusConfirmed, Interval: iv},
			{ID: 2, Kind: domain.KindMaintenance, Status: domain.StatusScheduled, Interval: iv},
			{ID: 3, Kind: domain.KindReservation, Status: domain.StatusInProgress, Interval: iv},
		},
	}
	svc := NewService(repo, nopLogger{})

	set, err := svc.FindConflicts(context.Background(), openResource(), iv, nil)
	require.NoError(t, err)
	assert.Len(t, set.Reservations, 2)
	assert.Len(t, set.Maintenance, 1)
	assert.False(t, set.HasBlackout())
	assert.False(t, set.IsEmpty())
}

func TestFindConflicts_RepositoryError(t *testing.T) {
	repo := &fakeAllocationRepo{err: errors.New("boom")}
	svc := NewService(repo, nopLogger{})

	_, err := svc.FindConflicts(context.Background(), openResource(), interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z"), nil)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestFindConflicts_PassesExcludeID(t *testing.T) {
	repo := &fakeAllocationRepo{}
	svc := NewService(repo, nopLogger{})

	excludeID := int64(42)
	_, err := svc.FindConflicts(context.Background(), openResource(), interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z"), &excludeID)
	require.NoError(t, err)
	require.NotNil(t, repo.gotExcludeID)
	assert.Equal(t, int64(42), *repo.gotExcludeID)
}

func TestCheckOccurrences(t *testing.T) {
	iv1 := interval(t, "2025-10-15T10:00:00Z", "2025-10-15T11:00:00Z")
	iv2 := interval(t, "2025-10-22T10:00:00Z", "2025-10-22T11:00:00Z")

	busy := &domain.Allocation{ID: 7, Kind: domain.KindReservation, Status: domain.StatusConfirmed, Interval: iv2}
	repo := &occurrenceAwareRepo{busy: busy}
	svc := NewService(repo, nopLogger{})

	verdicts, err := svc.CheckOccurrences(context.Background(), openResource(), []domain.Interval{iv1, iv2}, nil)
	require.NoError(t, err)
	require.Len(t, verdicts, 2)

	assert.Equal(t, 0, verdicts[0].Index)
	assert.True(t, verdicts[0].Conflicts.IsEmpty())

	assert.Equal(t, 1, verdicts[1].Index)
	require.Len(t, verdicts[1].Conflicts.Reservations, 1)
	assert.Equal(t, int64(7), verdicts[1].Conflicts.Reservations[0].ID)
}

// occurrenceAwareRepo возвращает busy только для пересекающихся интервалов
type occurrenceAwareRepo struct {
	busy *domain.Allocation
}

func (f *occurrenceAwareRepo) FindBlocking(_ context.Context, _ string, interval domain.Interval, _ *int64) ([]*domain.Allocation, error) {
	if f.busy != nil && interval.Overlaps(f.busy.Interval) {
		return []*domain.Allocation{f.busy}, nil
	}
	return nil, nil
}
