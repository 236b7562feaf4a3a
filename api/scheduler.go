/*
scheduler.go - Automated daily allocation driver

PURPOSE:
  Periodically allocates outreach calls for the upcoming workdays and
  persists them as PENDING scheduled calls.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Maintains a rolling window of upcoming workdays; weekends never get calls
  - Excludes students who already hold an open call on a date, so repeated
    runs converge instead of double-booking
  - Records allocation runs for audit and UI display

CONFIGURATION:
  - CheckInterval: How often to run (default: 24 hours)
  - WindowDays:    Workdays to keep filled ahead (default: 7)
  - CallsPerDay:   Calls to request per date (default: hard cap)
  - Enabled:       Whether the driver is active (default: true)

USAGE:
  scheduler := NewOutreachScheduler(store)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - engine/allocator.go: The allocation itself
  - handlers.go: RunAllocation endpoint (manual trigger)
*/
package api

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightpath/outreach-engine/engine"
	"github.com/brightpath/outreach-engine/metrics"
	"github.com/brightpath/outreach-engine/store"
	"github.com/brightpath/outreach-engine/store/sqlite"
)

// OutreachScheduler keeps the upcoming workdays filled with calls.
type OutreachScheduler struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	WindowDays    int
	CallsPerDay   int
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOutreachScheduler creates a new scheduler with default settings.
func NewOutreachScheduler(st *sqlite.Store) *OutreachScheduler {
	return &OutreachScheduler{
		Store:         st,
		CheckInterval: 24 * time.Hour,
		WindowDays:    7,
		CallsPerDay:   engine.HardDailyCallCap,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (s *OutreachScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.wg.Add(1)

	go s.run()

	log.Printf("[Scheduler] Started with check interval: %v, window: %d workdays", s.CheckInterval, s.WindowDays)
}

// Stop stops the scheduler.
func (s *OutreachScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		close(s.stop)
		s.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (s *OutreachScheduler) run() {
	defer s.wg.Done()

	// Run immediately on start
	s.FillWindow(context.Background())

	for {
		select {
		case <-s.ticker.C:
			s.FillWindow(context.Background())
		case <-s.stop:
			return
		}
	}
}

// FillWindow allocates calls for every workday in the rolling window that
// still has capacity. Per-date failures are logged and do not stop the pass.
func (s *OutreachScheduler) FillWindow(ctx context.Context) {
	today := engine.Today()
	dates := engine.UpcomingWorkdays(today, s.WindowDays)
	if len(dates) == 0 {
		return
	}

	log.Printf("[Scheduler] Filling window: %s .. %s", dates[0], dates[len(dates)-1])

	for _, date := range dates {
		if _, err := s.AllocateDate(ctx, date, s.CallsPerDay); err != nil {
			log.Printf("[Scheduler] Allocation for %s failed: %v", date, err)
		}
	}
}

// AllocateDate runs the allocator for one target date and persists the
// result. It always writes an allocation_runs record, completed or failed.
func (s *OutreachScheduler) AllocateDate(ctx context.Context, date engine.Day, count int) (*sqlite.AllocationRun, error) {
	started := time.Now().UTC()
	run := sqlite.AllocationRun{
		ID:         uuid.NewString(),
		TargetDate: date,
		Status:     "running",
		StartedAt:  &started,
		CreatedAt:  started,
	}
	if err := s.Store.SaveAllocationRun(ctx, run); err != nil {
		return nil, err
	}

	result, err := s.allocate(ctx, date, count)
	completed := time.Now().UTC()
	run.CompletedAt = &completed

	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		if saveErr := s.Store.SaveAllocationRun(ctx, run); saveErr != nil {
			log.Printf("[Scheduler] Failed to save failed run %s: %v", run.ID, saveErr)
		}
		return &run, err
	}

	run.Status = "completed"
	run.PoolSize = result.PoolSize
	run.Eligible = result.Eligible
	run.CallsCreated = len(result.Candidates)
	run.Skipped = len(result.Skipped)
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.AllocationDurationSeconds.Observe(completed.Sub(started).Seconds())

	if err := s.Store.SaveAllocationRun(ctx, run); err != nil {
		return &run, err
	}

	if run.CallsCreated > 0 {
		log.Printf("[Scheduler] %s: %d calls from pool of %d (%d eligible, %d cooled down)",
			date, run.CallsCreated, result.PoolSize, result.Eligible, result.CooledDown)
	}
	return &run, nil
}

func (s *OutreachScheduler) allocate(ctx context.Context, date engine.Day, count int) (*engine.AllocationResult, error) {
	scheduled, err := s.Store.OpenCallStudentIDs(ctx)
	if err != nil {
		return nil, err
	}

	snaps, failures := s.Store.LoadActiveSnapshots(ctx)
	for _, f := range failures {
		log.Printf("[Scheduler] Skipping student: %v", f)
	}
	if len(snaps) == 0 && len(failures) > 0 {
		return nil, failures[0]
	}
	for i := range snaps {
		for _, warn := range engine.NormalizeSnapshot(&snaps[i]) {
			log.Printf("[Scheduler] Snapshot warning for %s: %s", snaps[i].ID, warn)
		}
	}

	pool := store.NewDirectoryFrom(snaps)
	result := engine.AllocateDailyCalls(date, count, pool, scheduled)

	metrics.CandidatesConsidered.Observe(float64(result.PoolSize))
	metrics.CoolDownExclusions.Add(float64(result.CooledDown))
	metrics.StudentsSkipped.Add(float64(len(result.Skipped)))

	if len(result.Candidates) == 0 {
		return &result, nil
	}

	calls := make([]engine.ScheduledCall, len(result.Candidates))
	now := time.Now().UTC()
	for i, c := range result.Candidates {
		calls[i] = engine.ScheduledCall{
			ID:            uuid.NewString(),
			StudentID:     c.StudentID,
			ScheduledDate: date,
			Priority:      c.Priority,
			Tier:          c.Tier,
			Status:        engine.CallPending,
			CallType:      engine.DeriveCallType(c),
			Purpose:       c.Reason,
			PreCallNotes:  strings.Join(c.UrgencyFactors, "; "),
			CreatedBy:     "scheduler",
			CreatedAt:     now,
		}
		metrics.CallsAllocated.WithLabelValues(string(c.Priority)).Inc()
	}

	if err := s.Store.CreateScheduledCalls(ctx, calls); err != nil {
		return nil, err
	}
	return &result, nil
}

// RunNow triggers an immediate window fill (for testing/admin).
func (s *OutreachScheduler) RunNow() {
	s.FillWindow(context.Background())
}
