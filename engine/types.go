/*
Package engine implements the outreach call scheduling engine.

PURPOSE:
  This package contains the pure scoring and allocation logic for deciding
  which students get an outreach call, when, and why. Four components compose
  into one daily batch run:

  1. Tier Classifier      - relationship value -> tier + contact cadence
  2. Priority Scorer      - current urgency -> HIGH/MEDIUM/LOW + reasons
     (includes the Journey Milestone Detector as a sub-routine)
  3. Daily Call Allocator - bounded, quota-balanced call list for one date
  4. Next-Contact Planner - next due date after a completed call

KEY CONCEPTS IN THIS FILE (types.go):
  - StudentSnapshot: read-only view of a student at evaluation time
  - TierResult / PriorityResult: derived scores, recomputed on demand
  - CallCandidate: one allocator output row
  - ScheduledCall: the persisted call record (owned by the caller)

DESIGN PRINCIPLES:
  1. Purity: every scoring function takes an explicit "as of" day and has
     no side effects; results are never cached.
  2. Precision: revenue uses decimal.Decimal, never float64.
  3. Auditability: every sub-score and decision carries a reasoning string.
  4. Partial progress: a batch never aborts on a single bad student.

USAGE:
  tier := engine.ClassifyTier(snap, engine.Today())
  prio := engine.ScorePriority(snap, engine.Today(), "")
  calls := engine.AllocateDailyCalls(date, 7, pool, scheduledIDs)

SEE ALSO:
  - tier.go: Tier Classifier
  - priority.go: Priority Scorer (milestone.go: milestone detection)
  - allocator.go: Daily Call Allocator
  - planner.go: Next-Contact Planner
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string

// =============================================================================
// EXTERNAL LABELS - computed outside this engine, read-only here
// =============================================================================

type ChurnRisk string

const (
	ChurnNone   ChurnRisk = "NONE"
	ChurnMedium ChurnRisk = "MEDIUM"
	ChurnHigh   ChurnRisk = "HIGH"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPending PaymentStatus = "PENDING"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

// CourseLevel determines the course duration baseline used by milestone
// detection (see milestone.go).
type CourseLevel string

const (
	LevelA1     CourseLevel = "A1"
	LevelA2     CourseLevel = "A2"
	LevelB1     CourseLevel = "B1"
	LevelB2     CourseLevel = "B2"
	LevelNew    CourseLevel = "NEW"
	LevelSpoken CourseLevel = "SPOKEN"
)

// =============================================================================
// STUDENT SNAPSHOT - read-only input, not owned by this engine
// =============================================================================

// StudentSnapshot is everything the engine needs to know about a student at
// evaluation time. It is assembled by the caller (typically from the store)
// and never mutated by the engine.
type StudentSnapshot struct {
	ID    StudentID
	Name  string
	Phone string // WhatsApp contact, read-only passthrough

	EnrolledAt      Day
	Level           CourseLevel
	ClassesAttended int

	AttendanceRate      float64 // 0..100
	ConsecutiveAbsences int
	ChurnRisk           ChurnRisk
	PaymentStatus       PaymentStatus

	Referrals     int
	Contributions int             // published content contributions
	Revenue       decimal.Decimal // cumulative payments

	// Interactions holds past manual contacts, oldest first.
	Interactions []Interaction

	// CompletedCalls holds past scheduled calls that were completed,
	// oldest first.
	CompletedCalls []CompletedCall
}

// Interaction is a past manual contact (call, message, visit).
type Interaction struct {
	At   time.Time
	Kind string
	Note string
}

// CompletedCall is a past scheduled outreach call with its completion time.
type CompletedCall struct {
	CallID      string
	CompletedAt time.Time
}

// EnrollmentDays returns whole days since enrollment as of the given day.
func (s *StudentSnapshot) EnrollmentDays(asOf Day) int {
	return DaysBetween(s.EnrolledAt, asOf)
}

// LastInteraction returns the most recent manual interaction. ok is false
// when none was ever logged. Completed outreach calls do not count here;
// the priority recency signal keys off manual contact alone.
func (s *StudentSnapshot) LastInteraction() (t time.Time, ok bool) {
	if n := len(s.Interactions); n > 0 {
		return s.Interactions[n-1].At, true
	}
	return time.Time{}, false
}

// LastContact returns the later of the last manual interaction and the last
// completed outreach call. ok is false when the student was never contacted.
// This combined view drives the allocator's cool-down and tie-break.
func (s *StudentSnapshot) LastContact() (t time.Time, ok bool) {
	t, ok = s.LastInteraction()
	if n := len(s.CompletedCalls); n > 0 {
		if c := s.CompletedCalls[n-1].CompletedAt; !ok || c.After(t) {
			t = c
			ok = true
		}
	}
	return t, ok
}

// NeverContactedSentinel is the daysSinceLastContact value reported for
// students with no contact history. It sorts them ahead of everyone on ties.
// It is a reporting value only: eligibility and scoring branch on whether
// history exists, never on this number, so a genuine gap of the same length
// is still scored as a gap.
const NeverContactedSentinel = 999

// DaysSinceLastContact returns whole days since the most recent contact, or
// NeverContactedSentinel when there is none.
func (s *StudentSnapshot) DaysSinceLastContact(asOf Day) int {
	last, ok := s.LastContact()
	if !ok {
		return NeverContactedSentinel
	}
	return DaysBetween(DayOf(last), asOf)
}

// =============================================================================
// TIER - coarse relationship-value classification
// =============================================================================

type Tier string

const (
	TierPlatinum Tier = "PLATINUM"
	TierGold     Tier = "GOLD"
	TierSilver   Tier = "SILVER"
	TierBronze   Tier = "BRONZE"
)

// TierBreakdown holds the five sub-scores, each in [0,10].
type TierBreakdown struct {
	RelationshipDepth  int
	CommunityPotential int
	Engagement         int
	Need               int // inverted signal: high need lowers the total
	VIPStatus          int
}

// TierResult is the output of the Tier Classifier. It is recomputed on every
// call and never persisted by the engine.
type TierResult struct {
	Tier                     Tier
	Score                    float64 // total = depth + community + engagement + vip - 0.5*need
	RecommendedFrequencyDays int
	Breakdown                TierBreakdown
	Reasons                  []string
}

// =============================================================================
// PRIORITY - call urgency classification
// =============================================================================

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// PriorityResult is the output of the Priority Scorer.
type PriorityResult struct {
	Priority       Priority
	Score          int
	Reason         string
	UrgencyFactors []string
	Milestone      *MilestoneHit // nil when no milestone applies
}

// =============================================================================
// MILESTONE - course-progress checkpoint
// =============================================================================

type Milestone string

const (
	MilestoneWelcome       Milestone = "WELCOME"
	MilestoneSettlingIn    Milestone = "SETTLING_IN"
	MilestoneMidCourse     Milestone = "MID_COURSE"
	MilestonePreCompletion Milestone = "PRE_COMPLETION"
	MilestoneCompletionDue Milestone = "COMPLETION_DUE"
	MilestoneOverdue       Milestone = "OVERDUE"
)

// MilestoneHit is a detected milestone with its priority boost weight.
type MilestoneHit struct {
	Milestone Milestone
	Boost     int
}

// =============================================================================
// SCHEDULED CALL - persisted audit record, owned by the caller
// =============================================================================

type CallStatus string

const (
	CallPending   CallStatus = "PENDING"
	CallSnoozed   CallStatus = "SNOOZED"
	CallCompleted CallStatus = "COMPLETED"
	CallCancelled CallStatus = "CANCELLED"
)

// CallType is the derived category the caller attaches when persisting an
// allocator candidate. See DeriveCallType.
type CallType string

const (
	CallTypeMilestone       CallType = "milestone"
	CallTypePaymentFollowUp CallType = "payment_follow_up"
	CallTypeRetention       CallType = "retention"
	CallTypeRelationship    CallType = "relationship"
	CallTypeCheckIn         CallType = "check_in"
)

// ScheduledCall is the permanent record of one scheduled outreach call.
// Priority and tier are snapshots taken at creation time and are never
// re-evaluated. A ScheduledCall is never deleted.
type ScheduledCall struct {
	ID            string
	StudentID     StudentID
	ScheduledDate Day
	Priority      Priority
	Tier          Tier
	Status        CallStatus
	CallType      CallType
	Purpose       string
	PreCallNotes  string
	CreatedBy     string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// =============================================================================
// CALL CANDIDATE - one allocator output row
// =============================================================================

// CallCandidate is a ranked allocation for one student on one date, ready to
// be persisted as a PENDING ScheduledCall by the caller.
type CallCandidate struct {
	StudentID            StudentID
	StudentName          string
	Phone                string
	Date                 Day
	Tier                 Tier
	Priority             Priority
	PriorityScore        int
	Reason               string
	UrgencyFactors       []string
	Milestone            *MilestoneHit
	DaysSinceLastContact int
}

// DeriveCallType categorizes a candidate for the persisted record. This is
// the caller-side categorization step: the allocator itself stays neutral.
func DeriveCallType(c CallCandidate) CallType {
	if c.Milestone != nil {
		return CallTypeMilestone
	}
	for _, f := range c.UrgencyFactors {
		switch {
		case containsAny(f, "payment"):
			return CallTypePaymentFollowUp
		case containsAny(f, "absence", "attendance", "churn"):
			return CallTypeRetention
		}
	}
	if c.Tier == TierPlatinum || c.Tier == TierGold {
		return CallTypeRelationship
	}
	return CallTypeCheckIn
}
