package engine_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath/outreach-engine/engine"
)

// =============================================================================
// POOL BUILDERS
// =============================================================================

// targetDate is a fixed Thursday.
var targetDate = engine.NewDay(2025, time.March, 13)

// quietStudent scores LOW: long enrolled, recently contacted, no signals.
func quietStudent(id string) engine.StudentSnapshot {
	s := baseSnapshot(id)
	s.EnrolledAt = targetDate.AddDays(-200)
	s.Interactions = []engine.Interaction{{At: targetDate.AddDays(-30).Time, Kind: "call"}}
	return s
}

// mediumStudent scores MEDIUM: medium churn + pending payment (5+3=8).
func mediumStudent(id string) engine.StudentSnapshot {
	s := quietStudent(id)
	s.ChurnRisk = engine.ChurnMedium
	s.PaymentStatus = engine.PaymentPending
	return s
}

// highStudent scores HIGH: critical absences + overdue payment (10+8=18).
func highStudent(id string) engine.StudentSnapshot {
	s := quietStudent(id)
	s.ConsecutiveAbsences = 5
	s.PaymentStatus = engine.PaymentOverdue
	return s
}

func mixedPool(high, medium, low int) engine.SnapshotPool {
	var pool engine.SnapshotPool
	for i := 0; i < high; i++ {
		pool = append(pool, highStudent(fmt.Sprintf("high-%d", i)))
	}
	for i := 0; i < medium; i++ {
		pool = append(pool, mediumStudent(fmt.Sprintf("med-%d", i)))
	}
	for i := 0; i < low; i++ {
		pool = append(pool, quietStudent(fmt.Sprintf("low-%d", i)))
	}
	return pool
}

func countByPriority(cands []engine.CallCandidate) map[engine.Priority]int {
	out := map[engine.Priority]int{}
	for _, c := range cands {
		out[c.Priority]++
	}
	return out
}

// =============================================================================
// HARD CAP AND IDEMPOTENCY
// =============================================================================

func TestAllocate_NeverExceedsHardCap(t *testing.T) {
	// GIVEN: 30 eligible students and a request for 50 calls
	// WHEN: Allocating
	// THEN: At most 7 calls come back

	pool := mixedPool(10, 10, 10)
	result := engine.AllocateDailyCalls(targetDate, 50, pool, nil)

	assert.LessOrEqual(t, len(result.Candidates), engine.HardDailyCallCap)
	assert.Equal(t, engine.HardDailyCallCap, len(result.Candidates), "plenty of candidates, cap should be filled")
}

func TestAllocate_ExcludesAlreadyScheduled(t *testing.T) {
	pool := mixedPool(3, 0, 0)
	scheduled := map[engine.StudentID]bool{"high-0": true, "high-2": true}

	result := engine.AllocateDailyCalls(targetDate, 7, pool, scheduled)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, engine.StudentID("high-1"), result.Candidates[0].StudentID)
}

func TestAllocate_IdempotentAcrossRuns(t *testing.T) {
	// GIVEN: A first run's output fed back as already-scheduled
	// WHEN: Running again for the same date
	// THEN: The second run picks a disjoint set (repeat runs converge)

	pool := mixedPool(4, 4, 4)

	first := engine.AllocateDailyCalls(targetDate, 7, pool, nil)
	require.NotEmpty(t, first.Candidates)

	scheduled := map[engine.StudentID]bool{}
	for _, c := range first.Candidates {
		scheduled[c.StudentID] = true
	}

	second := engine.AllocateDailyCalls(targetDate, 7, pool, scheduled)
	for _, c := range second.Candidates {
		assert.False(t, scheduled[c.StudentID], "student %s double-booked", c.StudentID)
	}
}

func TestAllocate_EmptyPoolIsNotAnError(t *testing.T) {
	result := engine.AllocateDailyCalls(targetDate, 7, engine.SnapshotPool{}, nil)
	assert.Empty(t, result.Candidates)
	assert.Empty(t, result.Skipped)
}

// =============================================================================
// COOL-DOWN ELIGIBILITY
// =============================================================================

func TestAllocate_CoolDownRules(t *testing.T) {
	tests := []struct {
		name         string
		daysSince    int
		churn        engine.ChurnRisk
		wantEligible bool
	}{
		{"contacted 10 days ago, no churn risk", 10, engine.ChurnNone, false},
		{"contacted 8 days ago, high churn", 8, engine.ChurnHigh, true},
		{"contacted 5 days ago, high churn", 5, engine.ChurnHigh, false},
		{"contacted 22 days ago, no churn risk", 22, engine.ChurnNone, true},
		{"contacted exactly 21 days ago", 21, engine.ChurnNone, false},
		{"contacted exactly 7 days ago, high churn", 7, engine.ChurnHigh, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := baseSnapshot("s1")
			s.ChurnRisk = tt.churn
			s.Interactions = []engine.Interaction{{At: targetDate.AddDays(-tt.daysSince).Time, Kind: "call"}}

			result := engine.AllocateDailyCalls(targetDate, 7, engine.SnapshotPool{s}, nil)

			if tt.wantEligible {
				assert.Len(t, result.Candidates, 1)
			} else {
				assert.Empty(t, result.Candidates)
				assert.Equal(t, 1, result.CooledDown)
			}
		})
	}
}

func TestAllocate_NeverContactedAlwaysEligible(t *testing.T) {
	s := baseSnapshot("fresh")
	s.Interactions = nil
	s.CompletedCalls = nil

	result := engine.AllocateDailyCalls(targetDate, 7, engine.SnapshotPool{s}, nil)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, engine.NeverContactedSentinel, result.Candidates[0].DaysSinceLastContact)
}

func TestAllocate_CompletedCallCountsAsContact(t *testing.T) {
	// GIVEN: An old manual interaction but a completed call 5 days ago
	// WHEN: Allocating
	// THEN: The later contact governs the cool-down, student excluded

	s := baseSnapshot("s1")
	s.Interactions = []engine.Interaction{{At: targetDate.AddDays(-100).Time, Kind: "call"}}
	s.CompletedCalls = []engine.CompletedCall{{CallID: "c1", CompletedAt: targetDate.AddDays(-5).Time}}

	result := engine.AllocateDailyCalls(targetDate, 7, engine.SnapshotPool{s}, nil)
	assert.Empty(t, result.Candidates)
}

// =============================================================================
// RANKING AND QUOTA BALANCE
// =============================================================================

func TestAllocate_QuotaBiasTowardHigh(t *testing.T) {
	// GIVEN: 10 HIGH, 10 MEDIUM, 10 LOW candidates and desiredCount 5
	// WHEN: Allocating
	// THEN: ceil(0.5*5)=3 HIGH fill first, total is exactly 5, and no LOW
	//       entry precedes the HIGH/MEDIUM quota fill

	pool := mixedPool(10, 10, 10)
	result := engine.AllocateDailyCalls(targetDate, 5, pool, nil)

	require.Len(t, result.Candidates, 5)
	counts := countByPriority(result.Candidates)
	assert.GreaterOrEqual(t, counts[engine.PriorityHigh], 3)
	assert.Equal(t, 0, counts[engine.PriorityLow], "LOW should not displace HIGH/MEDIUM in a rich pool")
}

func TestAllocate_SkewedPoolFillsFromWhatIsAvailable(t *testing.T) {
	// GIVEN: Only LOW candidates
	// WHEN: Allocating 5
	// THEN: Quotas are a bias, not a guarantee - all 5 slots fill with LOW

	pool := mixedPool(0, 0, 8)
	result := engine.AllocateDailyCalls(targetDate, 5, pool, nil)

	require.Len(t, result.Candidates, 5)
	assert.Equal(t, 5, countByPriority(result.Candidates)[engine.PriorityLow])
}

func TestAllocate_TieBreakPrefersLongerNeglected(t *testing.T) {
	// GIVEN: Two students with identical scores, one silent far longer
	// WHEN: Allocating one slot
	// THEN: The longer-neglected student wins

	recent := mediumStudent("recent")
	recent.Interactions = []engine.Interaction{{At: targetDate.AddDays(-30).Time, Kind: "call"}}

	neglected := mediumStudent("neglected")
	neglected.Interactions = []engine.Interaction{{At: targetDate.AddDays(-80).Time, Kind: "call"}}

	result := engine.AllocateDailyCalls(targetDate, 1, engine.SnapshotPool{recent, neglected}, nil)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, engine.StudentID("neglected"), result.Candidates[0].StudentID)
}

// =============================================================================
// PARTIAL FAILURE
// =============================================================================

// flakySource wraps a pool and fails a chosen student's lookup.
type flakySource struct {
	engine.SnapshotPool
	failID engine.StudentID
}

func (f flakySource) Snapshot(id engine.StudentID) (engine.StudentSnapshot, error) {
	if id == f.failID {
		return engine.StudentSnapshot{}, engine.ErrStudentNotFound
	}
	return f.SnapshotPool.Snapshot(id)
}

func TestAllocate_SkipsFailingStudentAndContinues(t *testing.T) {
	// GIVEN: One student in the pool fails its lookup
	// WHEN: Allocating
	// THEN: The batch continues; the failure is reported, not fatal

	pool := mixedPool(3, 0, 0)
	source := flakySource{SnapshotPool: pool, failID: "high-1"}

	result := engine.AllocateDailyCalls(targetDate, 7, source, nil)

	assert.Len(t, result.Candidates, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, engine.StudentID("high-1"), result.Skipped[0].StudentID)
	assert.True(t, engine.IsNotFound(result.Skipped[0]))
}

func TestAllocate_CandidatesCarryAuditFields(t *testing.T) {
	pool := mixedPool(1, 0, 0)
	result := engine.AllocateDailyCalls(targetDate, 7, pool, nil)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, targetDate, c.Date)
	assert.NotEmpty(t, c.Reason)
	assert.NotEmpty(t, c.UrgencyFactors)
	assert.NotEmpty(t, c.Tier)
}

// =============================================================================
// CALL TYPE DERIVATION (caller-side categorization)
// =============================================================================

func TestDeriveCallType(t *testing.T) {
	tests := []struct {
		name string
		c    engine.CallCandidate
		want engine.CallType
	}{
		{"milestone wins", engine.CallCandidate{
			Milestone:      &engine.MilestoneHit{Milestone: engine.MilestoneWelcome, Boost: 8},
			UrgencyFactors: []string{"payment overdue"},
		}, engine.CallTypeMilestone},
		{"payment factor", engine.CallCandidate{
			UrgencyFactors: []string{"payment overdue"},
		}, engine.CallTypePaymentFollowUp},
		{"absence factor", engine.CallCandidate{
			UrgencyFactors: []string{"CRITICAL: 5 consecutive absences"},
		}, engine.CallTypeRetention},
		{"platinum relationship", engine.CallCandidate{
			Tier: engine.TierPlatinum,
		}, engine.CallTypeRelationship},
		{"plain check-in", engine.CallCandidate{
			Tier: engine.TierBronze,
		}, engine.CallTypeCheckIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.DeriveCallType(tt.c))
		})
	}
}
