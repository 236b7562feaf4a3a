/*
tier.go - Tier Classifier

PURPOSE:
  Classifies a student into a relationship tier (PLATINUM/GOLD/SILVER/BRONZE)
  that drives the baseline contact cadence. Pure function of a
  StudentSnapshot at an explicit evaluation day.

ALGORITHM:
  Five independent sub-scores, each capped to [0,10]:

    relationshipDepth   tenure x interaction count ladder
    communityPotential  referrals + content contribution bonus
    engagement          attendance rate thresholds
    need                churn/absence/payment pressure (inverted signal)
    vipStatus           revenue OR referral thresholds

  total = depth + community + engagement + vip - 0.5*need

  need depresses the total but is tracked separately: a struggling student
  drops in tier (slower baseline cadence) while the Priority Scorer
  independently raises their urgency. Tier governs cadence, priority governs
  queue-jumping; the two are never merged.

TIER THRESHOLDS (top-down, first match wins), with overrides that promote
regardless of raw score:
  PLATINUM  score >= 35, or community >= 8, or vip >= 8     every 30 days
  GOLD      score >= 25, or engagement >= 8                 every 42 days
  SILVER    score >= 15                                     every 75 days
  BRONZE    otherwise                                       every 105 days

Every sub-score and the final decision appends a reasoning string. These are
a required observable output consumed by the audit trail and the UI.

SEE ALSO:
  - priority.go: the urgency side of the need signal
  - planner.go: consumes RecommendedFrequencyDays
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Contact cadence per tier, in days.
const (
	CadencePlatinumDays = 30
	CadenceGoldDays     = 42
	CadenceSilverDays   = 75
	CadenceBronzeDays   = 105
)

// Revenue thresholds for vipStatus.
var (
	vipRevenueTop = decimal.NewFromInt(5000)
	vipRevenueMid = decimal.NewFromInt(3000)
	vipRevenueLow = decimal.NewFromInt(2000)
)

// ClassifyTier computes the relationship tier for a student as of a given
// day. It never fails for a well-formed snapshot; out-of-range attributes
// are clamped by NormalizeSnapshot before scoring.
func ClassifyTier(snap StudentSnapshot, asOf Day) TierResult {
	NormalizeSnapshot(&snap)

	var reasons []string

	depth := scoreRelationshipDepth(&snap, asOf, &reasons)
	community := scoreCommunityPotential(&snap, &reasons)
	engagement := scoreEngagement(&snap, &reasons)
	need := scoreNeed(&snap, &reasons)
	vip := scoreVIPStatus(&snap, &reasons)

	total := float64(depth+community+engagement+vip) - 0.5*float64(need)

	tier, cadence := decideTier(total, community, engagement, vip, &reasons)

	return TierResult{
		Tier:                     tier,
		Score:                    total,
		RecommendedFrequencyDays: cadence,
		Breakdown: TierBreakdown{
			RelationshipDepth:  depth,
			CommunityPotential: community,
			Engagement:         engagement,
			Need:               need,
			VIPStatus:          vip,
		},
		Reasons: reasons,
	}
}

// scoreRelationshipDepth ladders tenure against interaction count.
func scoreRelationshipDepth(s *StudentSnapshot, asOf Day, reasons *[]string) int {
	days := s.EnrollmentDays(asOf)
	interactions := len(s.Interactions)

	var score int
	switch {
	case days >= 180 && interactions >= 3:
		score = 10
	case days >= 90 && interactions >= 2:
		score = 7
	case days >= 30 && interactions >= 1:
		score = 5
	case days >= 30:
		score = 3
	default:
		score = 2
	}

	*reasons = append(*reasons, fmt.Sprintf(
		"relationship depth %d/10: enrolled %d days, %d interactions", score, days, interactions))
	return score
}

// scoreCommunityPotential maps referrals plus a content-contribution bonus.
// The sum can exceed 10 before clamping.
func scoreCommunityPotential(s *StudentSnapshot, reasons *[]string) int {
	var base int
	switch {
	case s.Referrals >= 3:
		base = 10
	case s.Referrals == 2:
		base = 8
	case s.Referrals == 1:
		base = 6
	}

	var bonus int
	switch {
	case s.Contributions >= 5:
		bonus = 5
	case s.Contributions >= 2:
		bonus = 3
	case s.Contributions == 1:
		bonus = 2
	}

	score := clampScore(base + bonus)
	*reasons = append(*reasons, fmt.Sprintf(
		"community potential %d/10: %d referrals, %d contributions", score, s.Referrals, s.Contributions))
	return score
}

func scoreEngagement(s *StudentSnapshot, reasons *[]string) int {
	var score int
	switch {
	case s.AttendanceRate >= 90:
		score = 10
	case s.AttendanceRate >= 80:
		score = 8
	case s.AttendanceRate >= 70:
		score = 6
	case s.AttendanceRate >= 50:
		score = 4
	case s.AttendanceRate > 0:
		score = 2
	}

	*reasons = append(*reasons, fmt.Sprintf(
		"engagement %d/10: attendance rate %.0f%%", score, s.AttendanceRate))
	return score
}

// scoreNeed accumulates churn, absence and payment pressure. High need does
// not raise the tier; it depresses the total and is surfaced separately by
// the Priority Scorer.
func scoreNeed(s *StudentSnapshot, reasons *[]string) int {
	var score int

	switch s.ChurnRisk {
	case ChurnHigh:
		score += 5
	case ChurnMedium:
		score += 3
	}

	switch {
	case s.ConsecutiveAbsences >= 5:
		score += 3
	case s.ConsecutiveAbsences >= 3:
		score += 2
	}

	switch s.PaymentStatus {
	case PaymentOverdue:
		score += 2
	case PaymentPartial:
		score += 1
	}

	score = clampScore(score)
	*reasons = append(*reasons, fmt.Sprintf(
		"need %d/10: churn %s, %d consecutive absences, payment %s",
		score, s.ChurnRisk, s.ConsecutiveAbsences, s.PaymentStatus))
	return score
}

// scoreVIPStatus maps revenue OR referral count through shared thresholds.
func scoreVIPStatus(s *StudentSnapshot, reasons *[]string) int {
	var score int
	switch {
	case s.Revenue.GreaterThanOrEqual(vipRevenueTop) || s.Referrals >= 3:
		score = 10
	case s.Revenue.GreaterThanOrEqual(vipRevenueMid) || s.Referrals >= 2:
		score = 7
	case s.Revenue.GreaterThanOrEqual(vipRevenueLow) || s.Referrals >= 1:
		score = 5
	default:
		score = 3
	}

	*reasons = append(*reasons, fmt.Sprintf(
		"vip status %d/10: revenue %s, %d referrals", score, s.Revenue.StringFixed(2), s.Referrals))
	return score
}

// decideTier applies the threshold ladder top-down; override conditions can
// promote a student regardless of the raw total.
func decideTier(total float64, community, engagement, vip int, reasons *[]string) (Tier, int) {
	switch {
	case total >= 35:
		*reasons = append(*reasons, fmt.Sprintf("PLATINUM: total score %.1f >= 35", total))
		return TierPlatinum, CadencePlatinumDays
	case community >= 8:
		*reasons = append(*reasons, fmt.Sprintf("PLATINUM: community potential %d >= 8 override", community))
		return TierPlatinum, CadencePlatinumDays
	case vip >= 8:
		*reasons = append(*reasons, fmt.Sprintf("PLATINUM: vip status %d >= 8 override", vip))
		return TierPlatinum, CadencePlatinumDays
	case total >= 25:
		*reasons = append(*reasons, fmt.Sprintf("GOLD: total score %.1f >= 25", total))
		return TierGold, CadenceGoldDays
	case engagement >= 8:
		*reasons = append(*reasons, fmt.Sprintf("GOLD: engagement %d >= 8 override", engagement))
		return TierGold, CadenceGoldDays
	case total >= 15:
		*reasons = append(*reasons, fmt.Sprintf("SILVER: total score %.1f >= 15", total))
		return TierSilver, CadenceSilverDays
	default:
		*reasons = append(*reasons, fmt.Sprintf("BRONZE: total score %.1f below all thresholds", total))
		return TierBronze, CadenceBronzeDays
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
