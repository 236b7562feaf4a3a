/*
Package sqlite provides the SQLite-backed persistence for the outreach engine.

PURPOSE:
  Stores the student population, their manual interaction history, every
  scheduled call (a permanent audit record), and allocation-run records.
  The engine itself never touches the database: this package assembles
  read-only StudentSnapshots for it and persists its output.

KEY TABLES:
  students:         Snapshot attributes (enrollment, attendance, payment,
                    churn label, referrals, revenue)
  interactions:     Manual contact log, append-only
  scheduled_calls:  Outreach calls; never deleted, status transitions only
  allocation_runs:  One row per allocator invocation per date, for audit

SCHEDULING INVARIANT:
  idx_unique_open_call enforces at most one open (PENDING or SNOOZED) call
  per student per date at the schema level, so even racing allocator runs
  cannot double-book a student.

CONCURRENCY:
  sync.RWMutex plus WAL mode, same trade-offs as any single-writer SQLite
  deployment. Call inserts for one run are batched in a single transaction;
  the unique index backstops the driver's read-then-insert race.

USAGE:
  store, err := sqlite.New("./data/outreach.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - engine/types.go: StudentSnapshot, ScheduledCall
  - store/directory.go: in-memory snapshot directory built from this store
  - api/scheduler.go: the driver that writes allocation runs
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/brightpath/outreach-engine/engine"
)

// ErrDuplicateScheduledCall is returned when inserting a call for a student
// who already has an open call on the same date.
var ErrDuplicateScheduledCall = errors.New("student already has an open call on this date")

// Store implements all persistence for the outreach engine.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Students (snapshot attributes, maintained by the CRUD side of the app)
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT,
		enrolled_at TEXT NOT NULL,
		level TEXT NOT NULL,
		classes_attended INTEGER NOT NULL DEFAULT 0,
		attendance_rate REAL NOT NULL DEFAULT 0,
		consecutive_absences INTEGER NOT NULL DEFAULT 0,
		churn_risk TEXT NOT NULL DEFAULT 'NONE',
		payment_status TEXT NOT NULL DEFAULT 'PAID',
		referrals INTEGER NOT NULL DEFAULT 0,
		contributions INTEGER NOT NULL DEFAULT 0,
		revenue TEXT NOT NULL DEFAULT '0',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_active ON students(active);

	-- Manual interaction log (append-only)
	CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		note TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_student_time
		ON interactions(student_id, occurred_at);

	-- Scheduled calls: permanent audit records, status transitions only
	CREATE TABLE IF NOT EXISTS scheduled_calls (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		scheduled_date TEXT NOT NULL,
		priority TEXT NOT NULL,
		tier TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		call_type TEXT NOT NULL,
		purpose TEXT,
		pre_call_notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		completion_notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calls_date ON scheduled_calls(scheduled_date);
	CREATE INDEX IF NOT EXISTS idx_calls_student ON scheduled_calls(student_id);
	CREATE INDEX IF NOT EXISTS idx_calls_status ON scheduled_calls(status);

	-- CRITICAL: at most one open call per student per date.
	-- SNOOZED counts as open so repeated allocator runs converge.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_open_call
		ON scheduled_calls(student_id, scheduled_date)
		WHERE status IN ('PENDING', 'SNOOZED');

	-- Allocation runs (driver audit trail)
	CREATE TABLE IF NOT EXISTS allocation_runs (
		id TEXT PRIMARY KEY,
		target_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		pool_size INTEGER NOT NULL DEFAULT 0,
		eligible INTEGER NOT NULL DEFAULT 0,
		calls_created INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_date ON allocation_runs(target_date);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON allocation_runs(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STUDENTS
// =============================================================================

// StudentRecord is the persisted student row.
type StudentRecord struct {
	ID                  string
	Name                string
	Phone               string
	EnrolledAt          time.Time
	Level               string
	ClassesAttended     int
	AttendanceRate      float64
	ConsecutiveAbsences int
	ChurnRisk           string
	PaymentStatus       string
	Referrals           int
	Contributions       int
	Revenue             decimal.Decimal
	Active              bool
	CreatedAt           time.Time
}

// SaveStudent inserts or updates a student record.
func (s *Store) SaveStudent(ctx context.Context, r StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO students
		(id, name, phone, enrolled_at, level, classes_attended, attendance_rate,
		 consecutive_absences, churn_risk, payment_status, referrals, contributions,
		 revenue, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, phone=excluded.phone, enrolled_at=excluded.enrolled_at,
			level=excluded.level, classes_attended=excluded.classes_attended,
			attendance_rate=excluded.attendance_rate,
			consecutive_absences=excluded.consecutive_absences,
			churn_risk=excluded.churn_risk, payment_status=excluded.payment_status,
			referrals=excluded.referrals, contributions=excluded.contributions,
			revenue=excluded.revenue, active=excluded.active
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Name, r.Phone,
		r.EnrolledAt.UTC().Format(time.RFC3339),
		r.Level, r.ClassesAttended, r.AttendanceRate,
		r.ConsecutiveAbsences, r.ChurnRisk, r.PaymentStatus,
		r.Referrals, r.Contributions, r.Revenue.String(),
		r.Active, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

// GetStudent returns one student record, or engine.ErrStudentNotFound.
func (s *Store) GetStudent(ctx context.Context, id string) (*StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, studentSelect+" WHERE id = ?", id)
	rec, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListStudents returns all student records, active first, then by name.
func (s *Store) ListStudents(ctx context.Context) ([]StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, studentSelect+" ORDER BY active DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []StudentRecord
	for rows.Next() {
		rec, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

const studentSelect = `
	SELECT id, name, phone, enrolled_at, level, classes_attended, attendance_rate,
	       consecutive_absences, churn_risk, payment_status, referrals, contributions,
	       revenue, active, created_at
	FROM students`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*StudentRecord, error) {
	var (
		rec                   StudentRecord
		phone                 sql.NullString
		enrolledAt, createdAt string
		revenue               string
	)
	err := row.Scan(&rec.ID, &rec.Name, &phone, &enrolledAt, &rec.Level,
		&rec.ClassesAttended, &rec.AttendanceRate, &rec.ConsecutiveAbsences,
		&rec.ChurnRisk, &rec.PaymentStatus, &rec.Referrals, &rec.Contributions,
		&revenue, &rec.Active, &createdAt)
	if err != nil {
		return nil, err
	}

	rec.Phone = phone.String
	if rec.EnrolledAt, err = time.Parse(time.RFC3339, enrolledAt); err != nil {
		return nil, fmt.Errorf("bad enrolled_at for student %s: %w", rec.ID, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if rec.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, fmt.Errorf("bad revenue for student %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// =============================================================================
// INTERACTIONS
// =============================================================================

// InteractionRecord is one manual contact row.
type InteractionRecord struct {
	ID         string
	StudentID  string
	OccurredAt time.Time
	Kind       string
	Note       string
}

// AddInteraction appends a manual contact. Append-only.
func (s *Store) AddInteraction(ctx context.Context, r InteractionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, student_id, occurred_at, kind, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.StudentID, r.OccurredAt.UTC().Format(time.RFC3339),
		r.Kind, r.Note, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to add interaction: %w", err)
	}
	return nil
}

// ListInteractions returns a student's manual contacts, oldest first.
func (s *Store) ListInteractions(ctx context.Context, studentID string) ([]InteractionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listInteractions(ctx, studentID)
}

func (s *Store) listInteractions(ctx context.Context, studentID string) ([]InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, occurred_at, kind, note
		FROM interactions WHERE student_id = ? ORDER BY occurred_at ASC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var out []InteractionRecord
	for rows.Next() {
		var (
			rec        InteractionRecord
			occurredAt string
			note       sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &occurredAt, &rec.Kind, &note); err != nil {
			return nil, err
		}
		rec.Note = note.String
		if rec.OccurredAt, err = time.Parse(time.RFC3339, occurredAt); err != nil {
			return nil, fmt.Errorf("bad occurred_at for interaction %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// SNAPSHOT ASSEMBLY
// =============================================================================

// LoadSnapshot assembles the engine's read-only view of one student.
func (s *Store) LoadSnapshot(ctx context.Context, id string) (engine.StudentSnapshot, error) {
	rec, err := s.GetStudent(ctx, id)
	if err != nil {
		return engine.StudentSnapshot{}, err
	}
	return s.assembleSnapshot(ctx, rec)
}

// LoadActiveSnapshots assembles snapshots for the whole active population.
// Assembly failures surface per student so one bad row cannot sink a batch.
func (s *Store) LoadActiveSnapshots(ctx context.Context) ([]engine.StudentSnapshot, []error) {
	recs, err := s.listActiveStudents(ctx)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to list active students: %w", err)}
	}

	var (
		snaps    []engine.StudentSnapshot
		failures []error
	)
	for i := range recs {
		snap, err := s.assembleSnapshot(ctx, &recs[i])
		if err != nil {
			failures = append(failures, &engine.ScoringError{StudentID: engine.StudentID(recs[i].ID), Err: err})
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, failures
}

func (s *Store) listActiveStudents(ctx context.Context) ([]StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, studentSelect+" WHERE active = TRUE ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StudentRecord
	for rows.Next() {
		rec, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *Store) assembleSnapshot(ctx context.Context, rec *StudentRecord) (engine.StudentSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	interactions, err := s.listInteractions(ctx, rec.ID)
	if err != nil {
		return engine.StudentSnapshot{}, err
	}

	completed, err := s.listCompletedCalls(ctx, rec.ID)
	if err != nil {
		return engine.StudentSnapshot{}, err
	}

	snap := engine.StudentSnapshot{
		ID:                  engine.StudentID(rec.ID),
		Name:                rec.Name,
		Phone:               rec.Phone,
		EnrolledAt:          engine.DayOf(rec.EnrolledAt),
		Level:               engine.CourseLevel(rec.Level),
		ClassesAttended:     rec.ClassesAttended,
		AttendanceRate:      rec.AttendanceRate,
		ConsecutiveAbsences: rec.ConsecutiveAbsences,
		ChurnRisk:           engine.ChurnRisk(rec.ChurnRisk),
		PaymentStatus:       engine.PaymentStatus(rec.PaymentStatus),
		Referrals:           rec.Referrals,
		Contributions:       rec.Contributions,
		Revenue:             rec.Revenue,
	}
	for _, it := range interactions {
		snap.Interactions = append(snap.Interactions, engine.Interaction{
			At: it.OccurredAt, Kind: it.Kind, Note: it.Note,
		})
	}
	snap.CompletedCalls = completed
	return snap, nil
}

func (s *Store) listCompletedCalls(ctx context.Context, studentID string) ([]engine.CompletedCall, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, completed_at FROM scheduled_calls
		WHERE student_id = ? AND status = 'COMPLETED' AND completed_at IS NOT NULL
		ORDER BY completed_at ASC`, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed calls: %w", err)
	}
	defer rows.Close()

	var out []engine.CompletedCall
	for rows.Next() {
		var (
			call        engine.CompletedCall
			completedAt string
		)
		if err := rows.Scan(&call.CallID, &completedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, completedAt)
		if err != nil {
			return nil, fmt.Errorf("bad completed_at for call %s: %w", call.CallID, err)
		}
		call.CompletedAt = t
		out = append(out, call)
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEDULED CALLS
// =============================================================================

// OpenCallStudentIDs returns students holding any open (PENDING or SNOOZED)
// call. The allocator excludes these so repeated runs converge and the queue
// never holds two open calls for one student, on any date.
func (s *Store) OpenCallStudentIDs(ctx context.Context) (map[engine.StudentID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT student_id FROM scheduled_calls
		WHERE status IN ('PENDING', 'SNOOZED')`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled students: %w", err)
	}
	defer rows.Close()

	out := make(map[engine.StudentID]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[engine.StudentID(id)] = true
	}
	return out, rows.Err()
}

// CreateScheduledCalls persists a batch of calls atomically. The unique
// open-call index rejects double-booking even across concurrent writers.
func (s *Store) CreateScheduledCalls(ctx context.Context, calls []engine.ScheduledCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range calls {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scheduled_calls
			(id, student_id, scheduled_date, priority, tier, status, call_type,
			 purpose, pre_call_notes, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, string(c.StudentID), c.ScheduledDate.String(),
			string(c.Priority), string(c.Tier), string(c.Status), string(c.CallType),
			c.Purpose, c.PreCallNotes, c.CreatedBy,
			c.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return ErrDuplicateScheduledCall
			}
			return fmt.Errorf("failed to insert scheduled call: %w", err)
		}
	}

	return tx.Commit()
}

// GetCall returns one scheduled call, or engine.ErrCallNotFound.
func (s *Store) GetCall(ctx context.Context, id string) (*engine.ScheduledCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, callSelect+" WHERE id = ?", id)
	call, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrCallNotFound
	}
	if err != nil {
		return nil, err
	}
	return call, nil
}

// ListCallsByDate returns all calls for a date, highest priority first.
func (s *Store) ListCallsByDate(ctx context.Context, date engine.Day) ([]engine.ScheduledCall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, callSelect+`
		WHERE scheduled_date = ?
		ORDER BY CASE priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END, created_at`,
		date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list calls: %w", err)
	}
	defer rows.Close()

	var out []engine.ScheduledCall
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *call)
	}
	return out, rows.Err()
}

const callSelect = `
	SELECT id, student_id, scheduled_date, priority, tier, status, call_type,
	       purpose, pre_call_notes, created_by, created_at, completed_at
	FROM scheduled_calls`

func scanCall(row rowScanner) (*engine.ScheduledCall, error) {
	var (
		call                             engine.ScheduledCall
		studentID, date, createdAt       string
		purpose, preNotes, createdBy     sql.NullString
		completedAt                      sql.NullString
		priority, tier, status, callType string
	)
	err := row.Scan(&call.ID, &studentID, &date, &priority, &tier, &status,
		&callType, &purpose, &preNotes, &createdBy, &createdAt, &completedAt)
	if err != nil {
		return nil, err
	}

	call.StudentID = engine.StudentID(studentID)
	call.Priority = engine.Priority(priority)
	call.Tier = engine.Tier(tier)
	call.Status = engine.CallStatus(status)
	call.CallType = engine.CallType(callType)
	call.Purpose = purpose.String
	call.PreCallNotes = preNotes.String
	call.CreatedBy = createdBy.String

	if call.ScheduledDate, err = engine.ParseDay(date); err != nil {
		return nil, fmt.Errorf("bad scheduled_date for call %s: %w", call.ID, err)
	}
	call.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("bad completed_at for call %s: %w", call.ID, err)
		}
		call.CompletedAt = &t
	}
	return &call, nil
}

// CompleteCall marks an open call COMPLETED with notes. Only PENDING and
// SNOOZED calls can complete.
func (s *Store) CompleteCall(ctx context.Context, id, notes string, completedAt time.Time) error {
	return s.transition(ctx, id, string(engine.CallCompleted), &notes, &completedAt)
}

// SnoozeCall defers a PENDING call; it still counts as scheduled.
func (s *Store) SnoozeCall(ctx context.Context, id string) error {
	return s.transition(ctx, id, string(engine.CallSnoozed), nil, nil)
}

// CancelCall closes a call without contact. The record remains for audit.
func (s *Store) CancelCall(ctx context.Context, id string) error {
	return s.transition(ctx, id, string(engine.CallCancelled), nil, nil)
}

func (s *Store) transition(ctx context.Context, id, status string, notes *string, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed, noteVal any
	if completedAt != nil {
		completed = completedAt.UTC().Format(time.RFC3339)
	}
	if notes != nil {
		noteVal = *notes
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_calls
		SET status = ?, completed_at = COALESCE(?, completed_at),
		    completion_notes = COALESCE(?, completion_notes)
		WHERE id = ? AND status IN ('PENDING', 'SNOOZED')`,
		status, completed, noteVal, id)
	if err != nil {
		return fmt.Errorf("failed to update call %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish missing from already-closed.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM scheduled_calls WHERE id = ?", id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return engine.ErrCallNotFound
		}
		return engine.ErrCallNotPending
	}
	return nil
}

// =============================================================================
// ALLOCATION RUNS
// =============================================================================

// AllocationRun is the audit record for one allocator invocation.
type AllocationRun struct {
	ID           string
	TargetDate   engine.Day
	Status       string // running, completed, failed
	PoolSize     int
	Eligible     int
	CallsCreated int
	Skipped      int
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// SaveAllocationRun inserts or updates a run record.
func (s *Store) SaveAllocationRun(ctx context.Context, run AllocationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var startedAt, completedAt any
	if run.StartedAt != nil {
		startedAt = run.StartedAt.UTC().Format(time.RFC3339)
	}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO allocation_runs
		(id, target_date, status, pool_size, eligible, calls_created, skipped,
		 error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status, pool_size=excluded.pool_size,
			eligible=excluded.eligible, calls_created=excluded.calls_created,
			skipped=excluded.skipped, error=excluded.error,
			completed_at=excluded.completed_at`,
		run.ID, run.TargetDate.String(), run.Status, run.PoolSize, run.Eligible,
		run.CallsCreated, run.Skipped, run.Error, startedAt, completedAt,
		run.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save allocation run: %w", err)
	}
	return nil
}

// ListAllocationRuns returns the most recent runs, newest first.
func (s *Store) ListAllocationRuns(ctx context.Context, limit int) ([]AllocationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_date, status, pool_size, eligible, calls_created,
		       skipped, error, started_at, completed_at, created_at
		FROM allocation_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation runs: %w", err)
	}
	defer rows.Close()

	var out []AllocationRun
	for rows.Next() {
		var (
			run                             AllocationRun
			date, createdAt                 string
			errText, startedAt, completedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &date, &run.Status, &run.PoolSize,
			&run.Eligible, &run.CallsCreated, &run.Skipped, &errText,
			&startedAt, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		run.Error = errText.String
		if run.TargetDate, err = engine.ParseDay(date); err != nil {
			return nil, fmt.Errorf("bad target_date for run %s: %w", run.ID, err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if startedAt.Valid {
			if t, err := time.Parse(time.RFC3339, startedAt.String); err == nil {
				run.StartedAt = &t
			}
		}
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				run.CompletedAt = &t
			}
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// Reset wipes all data. Used by demo scenario loading only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"scheduled_calls", "interactions", "allocation_runs", "students"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
