/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validate struct tags; handlers run them through a
  shared validator.Validate instance before touching the store.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: Domain types these wrap
*/
package api

import (
	"time"

	"github.com/brightpath/outreach-engine/engine"
	"github.com/brightpath/outreach-engine/store/sqlite"
)

// =============================================================================
// STUDENT TYPES
// =============================================================================

// StudentDTO represents a student in API responses.
type StudentDTO struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	Phone               string  `json:"phone,omitempty"`
	EnrolledAt          string  `json:"enrolled_at"`
	Level               string  `json:"level"`
	ClassesAttended     int     `json:"classes_attended"`
	AttendanceRate      float64 `json:"attendance_rate"`
	ConsecutiveAbsences int     `json:"consecutive_absences"`
	ChurnRisk           string  `json:"churn_risk"`
	PaymentStatus       string  `json:"payment_status"`
	Referrals           int     `json:"referrals"`
	Contributions       int     `json:"contributions"`
	Revenue             string  `json:"revenue"`
	Active              bool    `json:"active"`
	CreatedAt           string  `json:"created_at,omitempty"`
}

// SaveStudentRequest creates or updates a student.
type SaveStudentRequest struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name" validate:"required"`
	Phone               string  `json:"phone"`
	EnrolledAt          string  `json:"enrolled_at" validate:"required,datetime=2006-01-02"`
	Level               string  `json:"level" validate:"required,oneof=A1 A2 B1 B2 NEW SPOKEN"`
	ClassesAttended     int     `json:"classes_attended" validate:"min=0"`
	AttendanceRate      float64 `json:"attendance_rate" validate:"min=0,max=100"`
	ConsecutiveAbsences int     `json:"consecutive_absences" validate:"min=0"`
	ChurnRisk           string  `json:"churn_risk" validate:"omitempty,oneof=NONE MEDIUM HIGH"`
	PaymentStatus       string  `json:"payment_status" validate:"omitempty,oneof=PAID PARTIAL PENDING OVERDUE"`
	Referrals           int     `json:"referrals" validate:"min=0"`
	Contributions       int     `json:"contributions" validate:"min=0"`
	Revenue             string  `json:"revenue" validate:"omitempty,numeric"`
	Active              *bool   `json:"active,omitempty"`
}

// AddInteractionRequest logs a manual contact with a student.
type AddInteractionRequest struct {
	OccurredAt string `json:"occurred_at" validate:"required"`
	Kind       string `json:"kind" validate:"required,oneof=call whatsapp visit other"`
	Note       string `json:"note"`
}

// InteractionDTO represents one logged contact.
type InteractionDTO struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	OccurredAt string `json:"occurred_at"`
	Kind       string `json:"kind"`
	Note       string `json:"note,omitempty"`
}

// =============================================================================
// EVALUATION TYPES
// =============================================================================

// TierDTO is the tier classification in API responses.
type TierDTO struct {
	Tier                     string   `json:"tier"`
	Score                    float64  `json:"score"`
	RecommendedFrequencyDays int      `json:"recommended_frequency_days"`
	RelationshipDepth        int      `json:"relationship_depth"`
	CommunityPotential       int      `json:"community_potential"`
	Engagement               int      `json:"engagement"`
	Need                     int      `json:"need"`
	VIPStatus                int      `json:"vip_status"`
	Reasons                  []string `json:"reasons"`
}

// PriorityDTO is the priority evaluation in API responses.
type PriorityDTO struct {
	Priority       string   `json:"priority"`
	Score          int      `json:"score"`
	Reason         string   `json:"reason"`
	UrgencyFactors []string `json:"urgency_factors,omitempty"`
	Milestone      string   `json:"milestone,omitempty"`
}

// EvaluationDTO is the full on-demand evaluation for one student.
type EvaluationDTO struct {
	StudentID            string      `json:"student_id"`
	AsOf                 string      `json:"as_of"`
	Tier                 TierDTO     `json:"tier"`
	Priority             PriorityDTO `json:"priority"`
	DaysSinceLastContact int         `json:"days_since_last_contact"`
}

// =============================================================================
// CALL TYPES
// =============================================================================

// CallDTO represents a scheduled call in API responses.
type CallDTO struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	ScheduledDate string `json:"scheduled_date"`
	Priority      string `json:"priority"`
	Tier          string `json:"tier"`
	Status        string `json:"status"`
	CallType      string `json:"call_type"`
	Purpose       string `json:"purpose,omitempty"`
	PreCallNotes  string `json:"pre_call_notes,omitempty"`
	CreatedBy     string `json:"created_by,omitempty"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

// CompleteCallRequest closes a call with outcome notes.
type CompleteCallRequest struct {
	Notes string `json:"notes" validate:"required"`
}

// CompleteCallResponse confirms completion and plans the next contact.
type CompleteCallResponse struct {
	CallID          string `json:"call_id"`
	Status          string `json:"status"`
	NextContactDate string `json:"next_contact_date"`
}

// =============================================================================
// ALLOCATION TYPES
// =============================================================================

// RunAllocationRequest triggers an allocation run for one date.
type RunAllocationRequest struct {
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Count int    `json:"count" validate:"omitempty,min=1"`
}

// AllocationRunDTO is one allocator invocation audit record.
type AllocationRunDTO struct {
	ID           string `json:"id"`
	TargetDate   string `json:"target_date"`
	Status       string `json:"status"`
	PoolSize     int    `json:"pool_size"`
	Eligible     int    `json:"eligible"`
	CallsCreated int    `json:"calls_created"`
	Skipped      int    `json:"skipped"`
	Error        string `json:"error,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest picks a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toStudentDTO(r sqlite.StudentRecord) StudentDTO {
	return StudentDTO{
		ID:                  r.ID,
		Name:                r.Name,
		Phone:               r.Phone,
		EnrolledAt:          r.EnrolledAt.Format("2006-01-02"),
		Level:               r.Level,
		ClassesAttended:     r.ClassesAttended,
		AttendanceRate:      r.AttendanceRate,
		ConsecutiveAbsences: r.ConsecutiveAbsences,
		ChurnRisk:           r.ChurnRisk,
		PaymentStatus:       r.PaymentStatus,
		Referrals:           r.Referrals,
		Contributions:       r.Contributions,
		Revenue:             r.Revenue.String(),
		Active:              r.Active,
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
	}
}

func toTierDTO(t engine.TierResult) TierDTO {
	return TierDTO{
		Tier:                     string(t.Tier),
		Score:                    t.Score,
		RecommendedFrequencyDays: t.RecommendedFrequencyDays,
		RelationshipDepth:        t.Breakdown.RelationshipDepth,
		CommunityPotential:       t.Breakdown.CommunityPotential,
		Engagement:               t.Breakdown.Engagement,
		Need:                     t.Breakdown.Need,
		VIPStatus:                t.Breakdown.VIPStatus,
		Reasons:                  t.Reasons,
	}
}

func toPriorityDTO(p engine.PriorityResult) PriorityDTO {
	dto := PriorityDTO{
		Priority:       string(p.Priority),
		Score:          p.Score,
		Reason:         p.Reason,
		UrgencyFactors: p.UrgencyFactors,
	}
	if p.Milestone != nil {
		dto.Milestone = string(p.Milestone.Milestone)
	}
	return dto
}

func toCallDTO(c engine.ScheduledCall) CallDTO {
	dto := CallDTO{
		ID:            c.ID,
		StudentID:     string(c.StudentID),
		ScheduledDate: c.ScheduledDate.String(),
		Priority:      string(c.Priority),
		Tier:          string(c.Tier),
		Status:        string(c.Status),
		CallType:      string(c.CallType),
		Purpose:       c.Purpose,
		PreCallNotes:  c.PreCallNotes,
		CreatedBy:     c.CreatedBy,
	}
	if c.CompletedAt != nil {
		dto.CompletedAt = c.CompletedAt.Format(time.RFC3339)
	}
	return dto
}

func toAllocationRunDTO(r sqlite.AllocationRun) AllocationRunDTO {
	dto := AllocationRunDTO{
		ID:           r.ID,
		TargetDate:   r.TargetDate.String(),
		Status:       r.Status,
		PoolSize:     r.PoolSize,
		Eligible:     r.Eligible,
		CallsCreated: r.CallsCreated,
		Skipped:      r.Skipped,
		Error:        r.Error,
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format(time.RFC3339)
	}
	return dto
}
