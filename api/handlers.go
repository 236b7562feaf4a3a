/*
handlers.go - HTTP API handlers for the outreach scheduling system

PURPOSE:
  Exposes the outreach engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to domain logic.

ENDPOINTS:
  Students:
    GET    /api/students                    List all students
    POST   /api/students                    Create or update student
    GET    /api/students/{id}               Get student details
    GET    /api/students/{id}/evaluation    On-demand tier + priority
    GET    /api/students/{id}/interactions  Contact history
    POST   /api/students/{id}/interactions  Log manual contact

  Calls:
    GET    /api/calls?date=YYYY-MM-DD       Calls for a date, by priority
    POST   /api/calls/{id}/complete         Complete with notes
    POST   /api/calls/{id}/snooze           Defer an open call
    POST   /api/calls/{id}/cancel           Close without contact

  Allocations:
    POST   /api/allocations/run             Trigger a run for one date
    GET    /api/allocations/runs            Run history

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags on request DTOs)
  3. Call domain logic (engine, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (call already closed, double-booking)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scheduler.go: Background allocation driver
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightpath/outreach-engine/engine"
	"github.com/brightpath/outreach-engine/metrics"
	"github.com/brightpath/outreach-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Scheduler *OutreachScheduler

	validate *validator.Validate

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns all students.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.Store.ListStudents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = toStudentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, engine.ErrStudentNotFound) {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, toStudentDTO(*rec))
}

// SaveStudent creates or updates a student.
func (h *Handler) SaveStudent(w http.ResponseWriter, r *http.Request) {
	var req SaveStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	enrolledAt, err := time.Parse("2006-01-02", req.EnrolledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid enrolled_at format (use YYYY-MM-DD)", err)
		return
	}

	revenue := decimal.Zero
	if req.Revenue != "" {
		if revenue, err = decimal.NewFromString(req.Revenue); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid revenue amount", err)
			return
		}
	}

	rec := sqlite.StudentRecord{
		ID:                  req.ID,
		Name:                req.Name,
		Phone:               req.Phone,
		EnrolledAt:          enrolledAt,
		Level:               req.Level,
		ClassesAttended:     req.ClassesAttended,
		AttendanceRate:      req.AttendanceRate,
		ConsecutiveAbsences: req.ConsecutiveAbsences,
		ChurnRisk:           defaultStr(req.ChurnRisk, string(engine.ChurnNone)),
		PaymentStatus:       defaultStr(req.PaymentStatus, string(engine.PaymentPaid)),
		Referrals:           req.Referrals,
		Contributions:       req.Contributions,
		Revenue:             revenue,
		Active:              true,
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if req.Active != nil {
		rec.Active = *req.Active
	}

	if err := h.Store.SaveStudent(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save student", err)
		return
	}
	writeJSON(w, http.StatusCreated, toStudentDTO(rec))
}

// =============================================================================
// EVALUATION HANDLER
// =============================================================================

// EvaluateStudent returns the on-demand tier and priority for one student.
// Results are recomputed from the current snapshot, never cached.
func (h *Handler) EvaluateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := h.Store.LoadSnapshot(r.Context(), id)
	if errors.Is(err, engine.ErrStudentNotFound) {
		writeError(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load student", err)
		return
	}

	asOf := engine.Today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		if asOf, err = engine.ParseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date (use YYYY-MM-DD)", err)
			return
		}
	}

	engine.NormalizeSnapshot(&snap)
	tier := engine.ClassifyTier(snap, asOf)
	prio := engine.ScorePriority(snap, asOf, "")

	writeJSON(w, http.StatusOK, EvaluationDTO{
		StudentID:            id,
		AsOf:                 asOf.String(),
		Tier:                 toTierDTO(tier),
		Priority:             toPriorityDTO(prio),
		DaysSinceLastContact: snap.DaysSinceLastContact(asOf),
	})
}

// =============================================================================
// INTERACTION HANDLERS
// =============================================================================

// ListInteractions returns a student's manual contact log, oldest first.
func (h *Handler) ListInteractions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	// 404 on unknown students, not an empty list.
	if _, err := h.Store.GetStudent(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrStudentNotFound) {
			writeError(w, http.StatusNotFound, "Student not found", nil)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		}
		return
	}

	records, err := h.Store.ListInteractions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list interactions", err)
		return
	}

	dtos := make([]InteractionDTO, len(records))
	for i, rec := range records {
		dtos[i] = InteractionDTO{
			ID:         rec.ID,
			StudentID:  rec.StudentID,
			OccurredAt: rec.OccurredAt.Format(time.RFC3339),
			Kind:       rec.Kind,
			Note:       rec.Note,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddInteraction logs a manual contact. The timestamp accepts either a full
// RFC3339 timestamp or a bare date.
func (h *Handler) AddInteraction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AddInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	occurredAt, err := parseFlexibleTime(req.OccurredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid occurred_at (use RFC3339 or YYYY-MM-DD)", err)
		return
	}

	if _, err := h.Store.GetStudent(r.Context(), id); err != nil {
		if errors.Is(err, engine.ErrStudentNotFound) {
			writeError(w, http.StatusNotFound, "Student not found", nil)
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to get student", err)
		}
		return
	}

	rec := sqlite.InteractionRecord{
		ID:         uuid.NewString(),
		StudentID:  id,
		OccurredAt: occurredAt,
		Kind:       req.Kind,
		Note:       req.Note,
	}
	if err := h.Store.AddInteraction(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to add interaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, InteractionDTO{
		ID:         rec.ID,
		StudentID:  rec.StudentID,
		OccurredAt: rec.OccurredAt.Format(time.RFC3339),
		Kind:       rec.Kind,
		Note:       rec.Note,
	})
}

// =============================================================================
// CALL HANDLERS
// =============================================================================

// ListCalls returns the calls for a date, highest priority first.
// Defaults to today when no date is given.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	date := engine.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		var err error
		if date, err = engine.ParseDay(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
	}

	calls, err := h.Store.ListCallsByDate(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calls", err)
		return
	}

	dtos := make([]CallDTO, len(calls))
	for i, c := range calls {
		dtos[i] = toCallDTO(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.String(),
		"calls": dtos,
	})
}

// CompleteCall closes a call with notes and plans the next contact date from
// the student's tier cadence and the note keywords.
func (h *Handler) CompleteCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var req CompleteCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	call, err := h.Store.GetCall(ctx, id)
	if errors.Is(err, engine.ErrCallNotFound) {
		writeError(w, http.StatusNotFound, "Call not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get call", err)
		return
	}

	completedAt := time.Now().UTC()
	if err := h.Store.CompleteCall(ctx, id, req.Notes, completedAt); err != nil {
		writeTransitionError(w, err)
		return
	}
	metrics.CallsCompleted.WithLabelValues(string(call.CallType)).Inc()

	// The completed call is now the student's last contact; the planner
	// works from the fresh snapshot. The priority stored on the call was
	// scored when it was scheduled and may be stale, so re-score it here.
	snap, err := h.Store.LoadSnapshot(ctx, string(call.StudentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load student", err)
		return
	}
	engine.NormalizeSnapshot(&snap)
	current := engine.ScorePriority(snap, engine.DayOf(completedAt), "")
	next := engine.PlanNextContact(snap, req.Notes, current.Priority, engine.DayOf(completedAt))

	writeJSON(w, http.StatusOK, CompleteCallResponse{
		CallID:          id,
		Status:          string(engine.CallCompleted),
		NextContactDate: next.String(),
	})
}

// SnoozeCall defers an open call. It still blocks rescheduling for the date.
func (h *Handler) SnoozeCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.SnoozeCall(r.Context(), id); err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"call_id": id, "status": string(engine.CallSnoozed)})
}

// CancelCall closes a call without contact. The record remains for audit.
func (h *Handler) CancelCall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.CancelCall(r.Context(), id); err != nil {
		writeTransitionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"call_id": id, "status": string(engine.CallCancelled)})
}

func writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrCallNotFound):
		writeError(w, http.StatusNotFound, "Call not found", nil)
	case errors.Is(err, engine.ErrCallNotPending):
		writeError(w, http.StatusConflict, "Call is not open", nil)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to update call", err)
	}
}

// =============================================================================
// ALLOCATION HANDLERS
// =============================================================================

// RunAllocation triggers an allocation run for one date (defaults to the next
// workday) and returns the run record.
func (h *Handler) RunAllocation(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Scheduler not configured", nil)
		return
	}

	var req RunAllocationRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "Validation failed", err)
			return
		}
	}

	date := engine.Today().NextWorkday()
	if req.Date != "" {
		var err error
		if date, err = engine.ParseDay(req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
	}
	count := req.Count
	if count == 0 {
		count = h.Scheduler.CallsPerDay
	}

	run, err := h.Scheduler.AllocateDate(r.Context(), date, count)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Allocation run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationRunDTO(*run))
}

// ListAllocationRuns returns run history, newest first.
func (h *Handler) ListAllocationRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListAllocationRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list allocation runs", err)
		return
	}

	dtos := make([]AllocationRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAllocationRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func defaultStr(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func parseFlexibleTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
