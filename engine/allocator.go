/*
allocator.go - Daily Call Allocator

PURPOSE:
  Produces the bounded, ranked call list for one target date. Pure given its
  inputs: the caller supplies the candidate pool and the IDs already
  scheduled for the date, and persists the result.

PIPELINE:
  1. Clamp requested count to the hard daily cap (7).
  2. Exclude students already scheduled for the date (idempotency - repeated
     runs for the same date converge instead of double-booking).
  3. Cool-down filter: skip students contacted within the last 21 days,
     unless churn risk is HIGH and the contact is more than 7 days old
     (urgent re-contact escape hatch). Never-contacted students always pass.
  4. Score each survivor (tier + priority); a single bad student is skipped
     and reported, never aborts the batch.
  5. Sort by priority score desc, ties broken by days since last contact
     desc (longer-neglected students win).
  6. Quota fill targeting 50/30/20 HIGH/MEDIUM/LOW via ceiling division,
     then top up from the overall order and hard-truncate to the cap.
     Quotas are a bias, not a guarantee: skewed pools fill from whatever
     is available.

An empty eligible pool returns an empty list, not an error.

SEE ALSO:
  - tier.go, priority.go: per-candidate scoring
  - planner.go: feeds students back into the pool after completed calls
*/
package engine

import (
	"log"
	"math"
	"sort"
)

// HardDailyCallCap is the business ceiling on calls per day. Requests above
// it are clamped, never honored.
const HardDailyCallCap = 7

// Cool-down windows, in days.
const (
	CoolDownDays          = 21
	HighChurnCoolDownDays = 7
)

// Priority quota shares for one day's allocation.
const (
	highShare   = 0.5
	mediumShare = 0.3
)

// AllocationResult carries the allocated candidates plus per-student
// failures that were skipped along the way.
type AllocationResult struct {
	Date       Day
	Candidates []CallCandidate
	Skipped    []*ScoringError

	// PoolSize and Eligible describe the funnel for observability.
	PoolSize   int
	Eligible   int
	CooledDown int
}

// CandidateSource yields the snapshot for one pool entry. Pool entries are
// lazy so a single failed lookup can be skipped without aborting the batch.
type CandidateSource interface {
	StudentIDs() []StudentID
	Snapshot(id StudentID) (StudentSnapshot, error)
}

// SnapshotPool is the trivial CandidateSource over pre-loaded snapshots.
type SnapshotPool []StudentSnapshot

func (p SnapshotPool) StudentIDs() []StudentID {
	ids := make([]StudentID, len(p))
	for i := range p {
		ids[i] = p[i].ID
	}
	return ids
}

func (p SnapshotPool) Snapshot(id StudentID) (StudentSnapshot, error) {
	for i := range p {
		if p[i].ID == id {
			return p[i], nil
		}
	}
	return StudentSnapshot{}, ErrStudentNotFound
}

// AllocateDailyCalls selects and ranks calls for one target date.
// alreadyScheduled holds students with a PENDING or SNOOZED call on that
// date; they are excluded before anything else.
func AllocateDailyCalls(targetDate Day, desiredCount int, pool CandidateSource, alreadyScheduled map[StudentID]bool) AllocationResult {
	limit := desiredCount
	if limit > HardDailyCallCap {
		limit = HardDailyCallCap
	}
	if limit < 0 {
		limit = 0
	}

	result := AllocationResult{Date: targetDate}

	ids := pool.StudentIDs()
	result.PoolSize = len(ids)

	var candidates []CallCandidate

	for _, id := range ids {
		if alreadyScheduled[id] {
			continue
		}

		snap, err := pool.Snapshot(id)
		if err != nil {
			result.Skipped = append(result.Skipped, &ScoringError{StudentID: id, Err: err})
			log.Printf("[Allocator] Skipping student %s: %v", id, err)
			continue
		}

		if !eligibleForContact(&snap, targetDate) {
			result.CooledDown++
			continue
		}

		tier := ClassifyTier(snap, targetDate)
		prio := ScorePriority(snap, targetDate, "")

		candidates = append(candidates, CallCandidate{
			StudentID:            snap.ID,
			StudentName:          snap.Name,
			Phone:                snap.Phone,
			Date:                 targetDate,
			Tier:                 tier.Tier,
			Priority:             prio.Priority,
			PriorityScore:        prio.Score,
			Reason:               prio.Reason,
			UrgencyFactors:       prio.UrgencyFactors,
			Milestone:            prio.Milestone,
			DaysSinceLastContact: snap.DaysSinceLastContact(targetDate),
		})
	}
	result.Eligible = len(candidates)

	// Rank: priority score desc, longer-neglected wins ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PriorityScore != candidates[j].PriorityScore {
			return candidates[i].PriorityScore > candidates[j].PriorityScore
		}
		return candidates[i].DaysSinceLastContact > candidates[j].DaysSinceLastContact
	})

	result.Candidates = quotaFill(candidates, limit)
	return result
}

// eligibleForContact applies the cool-down rule. A student is skipped when
// their most recent contact (manual interaction or completed outreach call,
// whichever is later) is within the last 21 days. HIGH-churn students become
// re-eligible after only 7 days. No contact history means always eligible.
func eligibleForContact(snap *StudentSnapshot, asOf Day) bool {
	last, ok := snap.LastContact()
	if !ok {
		return true
	}
	days := DaysBetween(DayOf(last), asOf)
	if days > CoolDownDays {
		return true
	}
	// Escape hatch: urgent re-contact cycle for high churn risk.
	return snap.ChurnRisk == ChurnHigh && days > HighChurnCoolDownDays
}

// quotaFill targets a 50/30/20 HIGH/MEDIUM/LOW split of the cap. Bucket
// targets use ceiling division, so they can transiently overshoot the cap;
// the final truncation enforces it. When a bucket runs short the remainder
// is topped up from the overall sorted order.
func quotaFill(sorted []CallCandidate, limit int) []CallCandidate {
	if limit == 0 || len(sorted) == 0 {
		return []CallCandidate{}
	}

	highTarget := int(math.Ceil(highShare * float64(limit)))
	mediumTarget := int(math.Ceil(mediumShare * float64(limit)))

	selected := make([]CallCandidate, 0, limit)
	taken := make(map[StudentID]bool)

	take := func(p Priority, limit int) {
		count := 0
		for _, c := range sorted {
			if count >= limit {
				break
			}
			if c.Priority == p && !taken[c.StudentID] {
				selected = append(selected, c)
				taken[c.StudentID] = true
				count++
			}
		}
	}

	take(PriorityHigh, highTarget)
	take(PriorityMedium, mediumTarget)

	// Top up remaining slots from the overall order, any bucket.
	for _, c := range sorted {
		if len(selected) >= limit {
			break
		}
		if !taken[c.StudentID] {
			selected = append(selected, c)
			taken[c.StudentID] = true
		}
	}

	// Hard truncation: quota targets may have overshot.
	if len(selected) > limit {
		selected = selected[:limit]
	}
	return selected
}
