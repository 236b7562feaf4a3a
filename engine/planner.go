/*
planner.go - Next-Contact Planner

PURPOSE:
  Decides when a student should next become eligible for contact after a
  call is completed. The planner only answers "when"; it never creates a
  ScheduledCall. The student simply re-enters the allocator pool once the
  returned date's cool-down has elapsed.

ALGORITHM:
  1. Start from the tier's recommended cadence.
  2. Keyword scan on the lower-cased call notes, first match wins:
       "urgent" / "immediate" / "asap"          -> 7 days
       "follow up" / "check in"                 -> min(cadence, 14)
       "doing well" / "happy" / "satisfied"     -> max(cadence, 60)
  3. HIGH current priority caps the interval at 21 days regardless.
  4. Weekend dates roll forward to Monday. Holidays are out of scope.
*/
package engine

import "strings"

// Planner interval bounds, in days.
const (
	urgentFollowUpDays  = 7
	maxSoonFollowUpDays = 14
	minHappyDays        = 60
	highPriorityCapDays = 21
)

// PlanNextContact computes the next contact due date for a student after a
// completed call.
func PlanNextContact(snap StudentSnapshot, notes string, currentPriority Priority, today Day) Day {
	tier := ClassifyTier(snap, today)
	days := tier.RecommendedFrequencyDays

	switch {
	case containsAny(notes, "urgent", "immediate", "asap"):
		days = urgentFollowUpDays
	case containsAny(notes, "follow up", "check in"):
		if days > maxSoonFollowUpDays {
			days = maxSoonFollowUpDays
		}
	case containsAny(notes, "doing well", "happy", "satisfied"):
		if days < minHappyDays {
			days = minHappyDays
		}
	}

	if currentPriority == PriorityHigh && days > highPriorityCapDays {
		days = highPriorityCapDays
	}

	return today.AddDays(days).NextWorkday()
}

// containsAny reports whether the lower-cased text contains any of the
// given keywords.
func containsAny(text string, keywords ...string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
