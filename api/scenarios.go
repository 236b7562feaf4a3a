/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the database with recognizable student populations so every part of
  the pipeline can be demonstrated without real data: tier spread, milestone
  hits, retention emergencies, and cool-down behavior.

SCENARIOS:
  mixed-cohort:      A realistic spread across all four tiers
  retention-crisis:  Heavy churn signals, absences, and overdue payments
  vip-community:     Referrers, contributors, and high-revenue students

DESIGN:
  Loading a scenario wipes the database first. Each loader writes students
  and a plausible contact history; dates are expressed relative to today so
  scenarios stay meaningful regardless of when they are loaded.

SEE ALSO:
  - handlers.go: Scenario endpoints
  - store/sqlite: Reset and persistence
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightpath/outreach-engine/store/sqlite"
)

// =============================================================================
// SCENARIO REGISTRY
// =============================================================================

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, store *sqlite.Store) error
}

var scenarios = []scenario{
	{
		ID:          "mixed-cohort",
		Name:        "Mixed Cohort",
		Description: "A realistic spread across all four tiers with varied contact history",
		Load:        loadMixedCohort,
	},
	{
		ID:          "retention-crisis",
		Name:        "Retention Crisis",
		Description: "Churn risk, consecutive absences, and overdue payments dominate the queue",
		Load:        loadRetentionCrisis,
	},
	{
		ID:          "vip-community",
		Name:        "VIP and Community",
		Description: "Referrers, content contributors, and high-revenue students",
		Load:        loadVIPCommunity,
	},
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario wipes the database and seeds the chosen scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	var chosen *scenario
	for i := range scenarios {
		if scenarios[i].ID == req.ScenarioID {
			chosen = &scenarios[i]
			break
		}
	}
	if chosen == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}

	ctx := r.Context()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := chosen.Load(ctx, h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = chosen.ID
	writeJSON(w, http.StatusOK, map[string]string{
		"scenario_id": chosen.ID,
		"status":      "loaded",
	})
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

type seedStudent struct {
	name            string
	enrolledDaysAgo int
	level           string
	classes         int
	attendance      float64
	absences        int
	churn           string
	payment         string
	referrals       int
	contributions   int
	revenue         int64
	lastContactDays int // days ago; 0 means never contacted
}

func seed(ctx context.Context, store *sqlite.Store, students []seedStudent) error {
	now := time.Now().UTC()
	for _, s := range students {
		id := uuid.NewString()
		rec := sqlite.StudentRecord{
			ID:                  id,
			Name:                s.name,
			EnrolledAt:          now.AddDate(0, 0, -s.enrolledDaysAgo),
			Level:               s.level,
			ClassesAttended:     s.classes,
			AttendanceRate:      s.attendance,
			ConsecutiveAbsences: s.absences,
			ChurnRisk:           defaultStr(s.churn, "NONE"),
			PaymentStatus:       defaultStr(s.payment, "PAID"),
			Referrals:           s.referrals,
			Contributions:       s.contributions,
			Revenue:             decimal.NewFromInt(s.revenue),
			Active:              true,
		}
		if err := store.SaveStudent(ctx, rec); err != nil {
			return err
		}

		if s.lastContactDays > 0 {
			err := store.AddInteraction(ctx, sqlite.InteractionRecord{
				ID:         uuid.NewString(),
				StudentID:  id,
				OccurredAt: now.AddDate(0, 0, -s.lastContactDays),
				Kind:       "call",
				Note:       "Routine check-in",
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadMixedCohort(ctx context.Context, store *sqlite.Store) error {
	return seed(ctx, store, []seedStudent{
		// Platinum material: long tenure, referrals, high revenue
		{name: "Amara Diallo", enrolledDaysAgo: 420, level: "B2", classes: 55, attendance: 92, referrals: 4, contributions: 2, revenue: 5200, lastContactDays: 40},
		// Gold: engaged and steady
		{name: "Jonas Weber", enrolledDaysAgo: 200, level: "B1", classes: 45, attendance: 88, referrals: 1, revenue: 2400, lastContactDays: 50},
		// Silver: solid but unremarkable
		{name: "Fatima Al-Rashid", enrolledDaysAgo: 120, level: "A2", classes: 28, attendance: 75, revenue: 900, lastContactDays: 80},
		// Bronze: early days
		{name: "Lucas Martin", enrolledDaysAgo: 45, level: "A1", classes: 10, attendance: 70, revenue: 300, lastContactDays: 30},
		// Fresh enrollee at the welcome milestone, never contacted
		{name: "Priya Nair", enrolledDaysAgo: 5, level: "NEW", classes: 2, attendance: 100, revenue: 150},
		// Mid-course milestone
		{name: "Chen Wei", enrolledDaysAgo: 90, level: "A2", classes: 20, attendance: 85, revenue: 800, lastContactDays: 35},
		// Recently contacted, should be cooled down
		{name: "Sofia Rossi", enrolledDaysAgo: 150, level: "B1", classes: 32, attendance: 90, revenue: 1500, lastContactDays: 5},
	})
}

func loadRetentionCrisis(ctx context.Context, store *sqlite.Store) error {
	return seed(ctx, store, []seedStudent{
		// High churn, many absences: top of every queue
		{name: "Omar Haddad", enrolledDaysAgo: 180, level: "B1", classes: 30, attendance: 45, absences: 5, churn: "HIGH", payment: "OVERDUE", revenue: 1100, lastContactDays: 10},
		{name: "Elena Petrova", enrolledDaysAgo: 90, level: "A2", classes: 15, attendance: 50, absences: 4, churn: "HIGH", revenue: 600, lastContactDays: 25},
		// Medium churn with payment trouble
		{name: "David Okafor", enrolledDaysAgo: 130, level: "A2", classes: 22, attendance: 62, absences: 2, churn: "MEDIUM", payment: "PENDING", revenue: 700, lastContactDays: 30},
		// Overdue course, silent for months
		{name: "Hana Suzuki", enrolledDaysAgo: 160, level: "A2", classes: 52, attendance: 80, revenue: 950, lastContactDays: 95},
		// Stable control subject
		{name: "Mikkel Sorensen", enrolledDaysAgo: 100, level: "A1", classes: 25, attendance: 90, revenue: 500, lastContactDays: 40},
	})
}

func loadVIPCommunity(ctx context.Context, store *sqlite.Store) error {
	return seed(ctx, store, []seedStudent{
		// Serial referrer
		{name: "Isabela Santos", enrolledDaysAgo: 300, level: "B2", classes: 48, attendance: 93, referrals: 6, revenue: 3800, lastContactDays: 45},
		// Prolific contributor
		{name: "Tom Becker", enrolledDaysAgo: 250, level: "B1", classes: 40, attendance: 87, referrals: 1, contributions: 5, revenue: 2100, lastContactDays: 60},
		// Pure revenue VIP
		{name: "Nadia Karim", enrolledDaysAgo: 380, level: "SPOKEN", classes: 60, attendance: 95, revenue: 6500, lastContactDays: 33},
		// Referrer with churn risk: competing signals
		{name: "Alexei Volkov", enrolledDaysAgo: 220, level: "B1", classes: 35, attendance: 68, absences: 3, churn: "MEDIUM", referrals: 3, revenue: 2900, lastContactDays: 28},
		{name: "Grace Mwangi", enrolledDaysAgo: 60, level: "A1", classes: 14, attendance: 85, referrals: 2, revenue: 450, lastContactDays: 20},
	})
}
