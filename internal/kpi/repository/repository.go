// Package repository persists KPI facts and aggregates: the append-only
// activity event stream, weekly scorecards, and closer aggregates. It also
// holds the read-only lead queries the routing-performance report needs.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("kpi record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Event is one appended activity fact. Events are never updated or deleted.
type Event struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      string
	LeadID    *uuid.UUID
	EventType string
	Metadata  map[string]any
	CreatedAt time.Time
}

// InsertEvent appends an activity event.
func (r *Repository) InsertEvent(ctx context.Context, event Event) (Event, error) {
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return Event{}, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO kpi_events (tenant_id, user_id, role, lead_id, event_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, event.TenantID, event.UserID, event.Role, event.LeadID, event.EventType, metadata).
		Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

// CountEventsByType tallies a user's events per type within [start, end).
func (r *Repository) CountEventsByType(ctx context.Context, tenantID, userID uuid.UUID, start, end time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type, COUNT(*)
		FROM kpi_events
		WHERE tenant_id = $1 AND user_id = $2 AND created_at >= $3 AND created_at < $4
		GROUP BY event_type
	`, tenantID, userID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}

// Scorecard is the weekly 100-point summary, one row per (user, weekStart).
type Scorecard struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      string
	WeekStart time.Time

	CallsMade        int
	Conversations    int
	IntakesCompleted int
	Violations       int

	IntakeAccuracy  float64
	CallControl     float64
	ScriptAdherence float64
	Compliance      float64
	Professionalism float64
	TotalScore      float64
	Outcome         string

	OverriddenBy *uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const scorecardColumns = `
	id, tenant_id, user_id, role, week_start,
	calls_made, conversations, intakes_completed, violations,
	intake_accuracy, call_control, script_adherence, compliance, professionalism,
	total_score, outcome, overridden_by, created_at, updated_at`

func scanScorecard(row pgx.Row) (Scorecard, error) {
	var sc Scorecard
	err := row.Scan(
		&sc.ID, &sc.TenantID, &sc.UserID, &sc.Role, &sc.WeekStart,
		&sc.CallsMade, &sc.Conversations, &sc.IntakesCompleted, &sc.Violations,
		&sc.IntakeAccuracy, &sc.CallControl, &sc.ScriptAdherence, &sc.Compliance, &sc.Professionalism,
		&sc.TotalScore, &sc.Outcome, &sc.OverriddenBy, &sc.CreatedAt, &sc.UpdatedAt,
	)
	return sc, err
}

// GetScorecard fetches the scorecard for a (user, weekStart) key.
func (r *Repository) GetScorecard(ctx context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (Scorecard, error) {
	sc, err := scanScorecard(r.pool.QueryRow(ctx, `
		SELECT `+scorecardColumns+`
		FROM scorecards_weekly
		WHERE tenant_id = $1 AND user_id = $2 AND week_start = $3
	`, tenantID, userID, weekStart))
	if errors.Is(err, pgx.ErrNoRows) {
		return Scorecard{}, ErrNotFound
	}
	return sc, err
}

// GetScorecardByID fetches one scorecard within a tenant.
func (r *Repository) GetScorecardByID(ctx context.Context, id, tenantID uuid.UUID) (Scorecard, error) {
	sc, err := scanScorecard(r.pool.QueryRow(ctx, `
		SELECT `+scorecardColumns+`
		FROM scorecards_weekly
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Scorecard{}, ErrNotFound
	}
	return sc, err
}

// InsertScorecardIfAbsent writes a freshly computed scorecard unless one
// already exists for the key. Concurrent first-queries race safely on the
// unique index; the winner's row is what every caller reads back.
func (r *Repository) InsertScorecardIfAbsent(ctx context.Context, sc Scorecard) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scorecards_weekly (
			tenant_id, user_id, role, week_start,
			calls_made, conversations, intakes_completed, violations,
			intake_accuracy, call_control, script_adherence, compliance, professionalism,
			total_score, outcome
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id, user_id, week_start) DO NOTHING
	`,
		sc.TenantID, sc.UserID, sc.Role, sc.WeekStart,
		sc.CallsMade, sc.Conversations, sc.IntakesCompleted, sc.Violations,
		sc.IntakeAccuracy, sc.CallControl, sc.ScriptAdherence, sc.Compliance, sc.Professionalism,
		sc.TotalScore, sc.Outcome,
	)
	return err
}

// UpdateScorecard applies a manager override of component scores.
func (r *Repository) UpdateScorecard(ctx context.Context, sc Scorecard) (Scorecard, error) {
	updated, err := scanScorecard(r.pool.QueryRow(ctx, `
		UPDATE scorecards_weekly SET
			intake_accuracy = $3,
			call_control = $4,
			script_adherence = $5,
			compliance = $6,
			professionalism = $7,
			total_score = $8,
			outcome = $9,
			overridden_by = $10,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+scorecardColumns,
		sc.ID, sc.TenantID,
		sc.IntakeAccuracy, sc.CallControl, sc.ScriptAdherence, sc.Compliance, sc.Professionalism,
		sc.TotalScore, sc.Outcome, sc.OverriddenBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Scorecard{}, ErrNotFound
	}
	return updated, err
}

// ListScorecardUsers returns the users with any dialer-side activity in a
// week, for the scheduler's weekly materialization.
func (r *Repository) ListScorecardUsers(ctx context.Context, start, end time.Time) ([]UserKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT tenant_id, user_id, role
		FROM kpi_events
		WHERE created_at >= $1 AND created_at < $2
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserKey
	for rows.Next() {
		var u UserKey
		if err := rows.Scan(&u.TenantID, &u.UserID, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserKey identifies an agent within a tenant.
type UserKey struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     string
}
