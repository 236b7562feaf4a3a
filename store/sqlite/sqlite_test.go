package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/outreach-engine/engine"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testStudent(id string) StudentRecord {
	return StudentRecord{
		ID:                  id,
		Name:                "Test Student " + id,
		Phone:               "+10000000000",
		EnrolledAt:          time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC),
		Level:               "A2",
		ClassesAttended:     28,
		AttendanceRate:      85,
		ConsecutiveAbsences: 0,
		ChurnRisk:           "NONE",
		PaymentStatus:       "PAID",
		Referrals:           1,
		Contributions:       0,
		Revenue:             decimal.NewFromInt(1200),
		Active:              true,
	}
}

func testCall(id, studentID string, date engine.Day) engine.ScheduledCall {
	return engine.ScheduledCall{
		ID:            id,
		StudentID:     engine.StudentID(studentID),
		ScheduledDate: date,
		Priority:      engine.PriorityMedium,
		Tier:          engine.TierSilver,
		Status:        engine.CallPending,
		CallType:      engine.CallTypeCheckIn,
		Purpose:       "Routine check-in",
		CreatedBy:     "scheduler",
		CreatedAt:     time.Now().UTC(),
	}
}

// =============================================================================
// STUDENTS AND SNAPSHOT ASSEMBLY
// =============================================================================

func TestSaveAndGetStudent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN a saved student
	rec := testStudent("s1")
	require.NoError(t, store.SaveStudent(ctx, rec))

	// WHEN reading it back
	got, err := store.GetStudent(ctx, "s1")
	require.NoError(t, err)

	// THEN all attributes round-trip, revenue included
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Level, got.Level)
	assert.Equal(t, rec.ClassesAttended, got.ClassesAttended)
	assert.True(t, rec.Revenue.Equal(got.Revenue), "revenue mismatch: %s vs %s", rec.Revenue, got.Revenue)
	assert.True(t, rec.EnrolledAt.Equal(got.EnrolledAt))
	assert.True(t, got.Active)
}

func TestGetStudent_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetStudent(context.Background(), "missing")
	assert.ErrorIs(t, err, engine.ErrStudentNotFound)
}

func TestSaveStudent_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testStudent("s1")
	require.NoError(t, store.SaveStudent(ctx, rec))

	// Updating the same ID overwrites attributes instead of duplicating.
	rec.ChurnRisk = "HIGH"
	rec.ConsecutiveAbsences = 4
	require.NoError(t, store.SaveStudent(ctx, rec))

	got, err := store.GetStudent(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "HIGH", got.ChurnRisk)
	assert.Equal(t, 4, got.ConsecutiveAbsences)

	all, err := store.ListStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoadSnapshot_AssemblesHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN a student with one manual interaction and one completed call
	require.NoError(t, store.SaveStudent(ctx, testStudent("s1")))
	require.NoError(t, store.AddInteraction(ctx, InteractionRecord{
		ID:         "i1",
		StudentID:  "s1",
		OccurredAt: time.Date(2025, time.February, 10, 14, 0, 0, 0, time.UTC),
		Kind:       "whatsapp",
		Note:       "asked about schedule",
	}))

	date := engine.NewDay(2025, time.February, 20)
	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))
	completedAt := time.Date(2025, time.February, 20, 16, 0, 0, 0, time.UTC)
	require.NoError(t, store.CompleteCall(ctx, "c1", "went well", completedAt))

	// WHEN assembling the snapshot
	snap, err := store.LoadSnapshot(ctx, "s1")
	require.NoError(t, err)

	// THEN both histories are present and the completed call is the last contact
	require.Len(t, snap.Interactions, 1)
	assert.Equal(t, "whatsapp", snap.Interactions[0].Kind)
	require.Len(t, snap.CompletedCalls, 1)
	assert.Equal(t, "c1", snap.CompletedCalls[0].CallID)

	last, ok := snap.LastContact()
	require.True(t, ok)
	assert.True(t, last.Equal(completedAt))
}

func TestLoadActiveSnapshots_SkipsInactive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveStudent(ctx, testStudent("active1")))
	inactive := testStudent("inactive1")
	inactive.Active = false
	require.NoError(t, store.SaveStudent(ctx, inactive))

	snaps, failures := store.LoadActiveSnapshots(ctx)
	assert.Empty(t, failures)
	require.Len(t, snaps, 1)
	assert.Equal(t, engine.StudentID("active1"), snaps[0].ID)
}

// =============================================================================
// SCHEDULED CALLS
// =============================================================================

func TestCreateScheduledCalls_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	calls := []engine.ScheduledCall{
		testCall("c1", "s1", date),
		testCall("c2", "s2", date),
	}
	calls[1].Priority = engine.PriorityHigh
	require.NoError(t, store.CreateScheduledCalls(ctx, calls))

	got, err := store.ListCallsByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Highest priority first.
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, engine.PriorityHigh, got[0].Priority)
	assert.Equal(t, "c1", got[1].ID)
	assert.Equal(t, date, got[0].ScheduledDate)
}

func TestCreateScheduledCalls_RejectsDoubleBooking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	// GIVEN an open call for s1 on the date
	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))

	// WHEN inserting a second open call for the same student and date
	err := store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c2", "s1", date)})

	// THEN the unique open-call index rejects it and the batch rolls back
	assert.ErrorIs(t, err, ErrDuplicateScheduledCall)

	got, err := store.ListCallsByDate(ctx, date)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCreateScheduledCalls_BatchIsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))

	// A batch where the second row collides must not leave the first behind.
	err := store.CreateScheduledCalls(ctx, []engine.ScheduledCall{
		testCall("c2", "s2", date),
		testCall("c3", "s1", date),
	})
	assert.ErrorIs(t, err, ErrDuplicateScheduledCall)

	got, err := store.ListCallsByDate(ctx, date)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestOpenCallStudentIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)
	otherDate := engine.NewDay(2025, time.March, 14)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{
		testCall("c1", "s1", date),
		testCall("c2", "s2", date),
		testCall("c3", "s3", otherDate),
	}))
	// Cancelled calls no longer count as open.
	require.NoError(t, store.CancelCall(ctx, "c2"))

	ids, err := store.OpenCallStudentIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids["s1"])
	assert.False(t, ids["s2"], "cancelled call should not block rescheduling")
	assert.True(t, ids["s3"], "open calls on other dates still block new bookings")
}

func TestOpenCallStudentIDs_SnoozedStillCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))
	require.NoError(t, store.SnoozeCall(ctx, "c1"))

	ids, err := store.OpenCallStudentIDs(ctx)
	require.NoError(t, err)
	assert.True(t, ids["s1"], "snoozed call is still open and must block rescheduling")
}

// =============================================================================
// CALL TRANSITIONS
// =============================================================================

func TestCompleteCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))

	completedAt := time.Date(2025, time.March, 13, 15, 30, 0, 0, time.UTC)
	require.NoError(t, store.CompleteCall(ctx, "c1", "student doing well", completedAt))

	call, err := store.GetCall(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, engine.CallCompleted, call.Status)
	require.NotNil(t, call.CompletedAt)
	assert.True(t, call.CompletedAt.Equal(completedAt))
}

func TestTransition_Errors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))
	require.NoError(t, store.CancelCall(ctx, "c1"))

	// Closed calls cannot transition again.
	err := store.CompleteCall(ctx, "c1", "", time.Now().UTC())
	assert.ErrorIs(t, err, engine.ErrCallNotPending)

	// Missing calls are reported distinctly.
	err = store.SnoozeCall(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrCallNotFound)
}

func TestSnoozeThenComplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	date := engine.NewDay(2025, time.March, 13)

	require.NoError(t, store.CreateScheduledCalls(ctx, []engine.ScheduledCall{testCall("c1", "s1", date)}))
	require.NoError(t, store.SnoozeCall(ctx, "c1"))

	// SNOOZED is still open, so completion succeeds.
	err := store.CompleteCall(ctx, "c1", "caught up later", time.Now().UTC())
	require.NoError(t, err)

	call, err := store.GetCall(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, engine.CallCompleted, call.Status)
}

func TestGetCall_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetCall(context.Background(), "missing")
	assert.True(t, errors.Is(err, engine.ErrCallNotFound))
}

// =============================================================================
// ALLOCATION RUNS
// =============================================================================

func TestSaveAllocationRun_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2025, time.March, 12, 6, 0, 0, 0, time.UTC)
	run := AllocationRun{
		ID:         "r1",
		TargetDate: engine.NewDay(2025, time.March, 13),
		Status:     "running",
		StartedAt:  &started,
		CreatedAt:  started,
	}
	require.NoError(t, store.SaveAllocationRun(ctx, run))

	// The driver updates the same row when the run finishes.
	finished := started.Add(2 * time.Second)
	run.Status = "completed"
	run.PoolSize = 40
	run.Eligible = 12
	run.CallsCreated = 7
	run.CompletedAt = &finished
	require.NoError(t, store.SaveAllocationRun(ctx, run))

	runs, err := store.ListAllocationRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 7, runs[0].CallsCreated)
	assert.Equal(t, 40, runs[0].PoolSize)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestListAllocationRuns_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		run := AllocationRun{
			ID:         id,
			TargetDate: engine.NewDay(2025, time.March, 10+i),
			Status:     "completed",
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, store.SaveAllocationRun(ctx, run))
	}

	runs, err := store.ListAllocationRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)
	assert.Equal(t, "r2", runs[1].ID)
}
