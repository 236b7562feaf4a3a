package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SNAPSHOT NORMALIZATION - defensive clamping, never rejection
// =============================================================================

// NormalizeSnapshot clamps out-of-range attributes to their valid ranges and
// returns a warning per clamped field. Scoring is a heuristic, not a
// validator: a negative absence count from a bad upstream row should degrade
// to zero, not fail the batch. Callers are expected to log the warnings.
func NormalizeSnapshot(s *StudentSnapshot) []SnapshotWarning {
	var warnings []SnapshotWarning

	clampInt := func(field string, v *int, min int) {
		if *v < min {
			warnings = append(warnings, SnapshotWarning{
				StudentID: s.ID,
				Field:     field,
				Got:       fmt.Sprintf("%d", *v),
				ClampedTo: fmt.Sprintf("%d", min),
			})
			*v = min
		}
	}

	clampInt("classesAttended", &s.ClassesAttended, 0)
	clampInt("consecutiveAbsences", &s.ConsecutiveAbsences, 0)
	clampInt("referrals", &s.Referrals, 0)
	clampInt("contributions", &s.Contributions, 0)

	if s.AttendanceRate < 0 {
		warnings = append(warnings, SnapshotWarning{
			StudentID: s.ID, Field: "attendanceRate",
			Got: fmt.Sprintf("%.1f", s.AttendanceRate), ClampedTo: "0",
		})
		s.AttendanceRate = 0
	}
	if s.AttendanceRate > 100 {
		warnings = append(warnings, SnapshotWarning{
			StudentID: s.ID, Field: "attendanceRate",
			Got: fmt.Sprintf("%.1f", s.AttendanceRate), ClampedTo: "100",
		})
		s.AttendanceRate = 100
	}

	if s.Revenue.IsNegative() {
		warnings = append(warnings, SnapshotWarning{
			StudentID: s.ID, Field: "revenue",
			Got: s.Revenue.String(), ClampedTo: "0",
		})
		s.Revenue = decimal.Zero
	}

	switch s.ChurnRisk {
	case ChurnNone, ChurnMedium, ChurnHigh:
	default:
		warnings = append(warnings, SnapshotWarning{
			StudentID: s.ID, Field: "churnRisk",
			Got: string(s.ChurnRisk), ClampedTo: string(ChurnNone),
		})
		s.ChurnRisk = ChurnNone
	}

	switch s.PaymentStatus {
	case PaymentPaid, PaymentPartial, PaymentPending, PaymentOverdue:
	default:
		warnings = append(warnings, SnapshotWarning{
			StudentID: s.ID, Field: "paymentStatus",
			Got: string(s.PaymentStatus), ClampedTo: string(PaymentPaid),
		})
		s.PaymentStatus = PaymentPaid
	}

	return warnings
}
