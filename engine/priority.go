/*
priority.go - Priority Scorer

PURPOSE:
  Scores how urgently a student needs a call right now. Accumulates an
  integer score from independent signals; each triggered signal is recorded
  as an urgency factor for the audit trail.

SIGNALS:
  - journey milestone boost (milestone.go); legacy fallback: flat +5 for
    students enrolled 21 days or less with no milestone
  - consecutive absences: >=5 -> +10 (critical), >=3 -> +7
  - churn risk: HIGH -> +8, MEDIUM -> +5
  - payment status: OVERDUE -> +8, PARTIAL -> +4, PENDING -> +3
  - low attendance: 0 < rate < 50 -> +5
  - manual contact recency: >=120 days -> +4, >=90 -> +2;
    never manually contacted and enrolled >30 days -> +3.
    Completed outreach calls feed the allocator cool-down, not this signal.

BUCKETS:
  score >= 12 -> HIGH, >= 6 -> MEDIUM, else LOW

The reason string is either the caller's override or a templated join of the
triggered factors. Tier and priority are deliberately separate scores: tier
sets the baseline cadence, priority decides who jumps today's queue.

SEE ALSO:
  - milestone.go: boost weights
  - allocator.go: sorts and quota-fills on PriorityResult
*/
package engine

import (
	"fmt"
	"strings"
)

// Priority bucket thresholds.
const (
	priorityHighThreshold   = 12
	priorityMediumThreshold = 6
)

// ScorePriority computes a student's call urgency as of a given day.
// overrideReason, when non-empty, replaces the auto-generated reason text
// but does not affect the score.
func ScorePriority(snap StudentSnapshot, asOf Day, overrideReason string) PriorityResult {
	NormalizeSnapshot(&snap)

	var (
		score   int
		factors []string
	)

	enrollmentDays := snap.EnrollmentDays(asOf)

	milestone := DetectMilestone(snap.Level, enrollmentDays, snap.ClassesAttended)
	if milestone != nil {
		score += milestone.Boost
		factors = append(factors, fmt.Sprintf("journey milestone: %s", milestone.Milestone))
	} else if enrollmentDays <= 21 {
		score += 5
		factors = append(factors, "new student general check-in")
	}

	switch {
	case snap.ConsecutiveAbsences >= 5:
		score += 10
		factors = append(factors, fmt.Sprintf("CRITICAL: %d consecutive absences", snap.ConsecutiveAbsences))
	case snap.ConsecutiveAbsences >= 3:
		score += 7
		factors = append(factors, fmt.Sprintf("%d consecutive absences", snap.ConsecutiveAbsences))
	}

	switch snap.ChurnRisk {
	case ChurnHigh:
		score += 8
		factors = append(factors, "high churn risk")
	case ChurnMedium:
		score += 5
		factors = append(factors, "medium churn risk")
	}

	switch snap.PaymentStatus {
	case PaymentOverdue:
		score += 8
		factors = append(factors, "payment overdue")
	case PaymentPartial:
		score += 4
		factors = append(factors, "payment partially made")
	case PaymentPending:
		score += 3
		factors = append(factors, "payment pending")
	}

	if snap.AttendanceRate > 0 && snap.AttendanceRate < 50 {
		score += 5
		factors = append(factors, fmt.Sprintf("low attendance rate (%.0f%%)", snap.AttendanceRate))
	}

	if last, ok := snap.LastInteraction(); ok {
		days := DaysBetween(DayOf(last), asOf)
		switch {
		case days >= 120:
			score += 4
			factors = append(factors, fmt.Sprintf("no contact for %d days", days))
		case days >= 90:
			score += 2
			factors = append(factors, fmt.Sprintf("no contact for %d days", days))
		}
	} else if enrollmentDays > 30 {
		score += 3
		factors = append(factors, "never contacted since enrollment")
	}

	priority := bucketPriority(score)

	reason := overrideReason
	if reason == "" {
		reason = buildReason(priority, factors)
	}

	return PriorityResult{
		Priority:       priority,
		Score:          score,
		Reason:         reason,
		UrgencyFactors: factors,
		Milestone:      milestone,
	}
}

func bucketPriority(score int) Priority {
	switch {
	case score >= priorityHighThreshold:
		return PriorityHigh
	case score >= priorityMediumThreshold:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// buildReason templates the triggered factors per bucket.
func buildReason(priority Priority, factors []string) string {
	if len(factors) == 0 {
		return "Routine check-in for relationship maintenance"
	}
	joined := strings.Join(factors, "; ")
	switch priority {
	case PriorityHigh:
		return "Urgent attention needed: " + joined
	case PriorityMedium:
		return "Recommended follow-up: " + joined
	default:
		return "Routine check-in: " + joined
	}
}
