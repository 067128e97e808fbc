package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CloserKPI is the weekly closer-side aggregate, recomputed lazily per week.
type CloserKPI struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	WeekStart time.Time

	HandoffsReceived int
	OffersSent       int
	ContractsSent    int
	ConversionRate   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

const closerKPIColumns = `
	id, tenant_id, user_id, week_start,
	handoffs_received, offers_sent, contracts_sent, conversion_rate,
	created_at, updated_at`

func scanCloserKPI(row pgx.Row) (CloserKPI, error) {
	var kpi CloserKPI
	err := row.Scan(
		&kpi.ID, &kpi.TenantID, &kpi.UserID, &kpi.WeekStart,
		&kpi.HandoffsReceived, &kpi.OffersSent, &kpi.ContractsSent, &kpi.ConversionRate,
		&kpi.CreatedAt, &kpi.UpdatedAt,
	)
	return kpi, err
}

// GetCloserKPI fetches the closer aggregate for a (user, weekStart) key.
func (r *Repository) GetCloserKPI(ctx context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (CloserKPI, error) {
	kpi, err := scanCloserKPI(r.pool.QueryRow(ctx, `
		SELECT `+closerKPIColumns+`
		FROM closer_kpis
		WHERE tenant_id = $1 AND user_id = $2 AND week_start = $3
	`, tenantID, userID, weekStart))
	if errors.Is(err, pgx.ErrNoRows) {
		return CloserKPI{}, ErrNotFound
	}
	return kpi, err
}

// InsertCloserKPIIfAbsent mirrors the scorecard's insert-if-absent idempotency.
func (r *Repository) InsertCloserKPIIfAbsent(ctx context.Context, kpi CloserKPI) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO closer_kpis (
			tenant_id, user_id, week_start,
			handoffs_received, offers_sent, contracts_sent, conversion_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, user_id, week_start) DO NOTHING
	`,
		kpi.TenantID, kpi.UserID, kpi.WeekStart,
		kpi.HandoffsReceived, kpi.OffersSent, kpi.ContractsSent, kpi.ConversionRate,
	)
	return err
}

// RoutedLead is the minimal lead projection for the SLA report.
type RoutedLead struct {
	LeadID            uuid.UUID
	RoutedAt          time.Time
	SLAHours          int
	OfferSentAt       *time.Time
	ContractSentAt    *time.Time
	SentToCloserAt    *time.Time
	IntakeCompletedAt *time.Time
}

// ListRoutedLeads returns leads of a grade/route routed within [start, end).
func (r *Repository) ListRoutedLeads(ctx context.Context, tenantID uuid.UUID, grade, route string, start, end time.Time) ([]RoutedLead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, routed_at, sla_hours, offer_sent_at, contract_sent_at, sent_to_closer_at, intake_completed_at
		FROM leads
		WHERE tenant_id = $1 AND grade = $2 AND route = $3
		  AND routed_at >= $4 AND routed_at < $5
	`, tenantID, grade, route, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []RoutedLead
	for rows.Next() {
		var l RoutedLead
		if err := rows.Scan(&l.LeadID, &l.RoutedAt, &l.SLAHours, &l.OfferSentAt, &l.ContractSentAt, &l.SentToCloserAt, &l.IntakeCompletedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// CountOverridesByActor groups manual routing override counts per actor.
func (r *Repository) CountOverridesByActor(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT actor_id, COUNT(*)
		FROM routing_overrides
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY actor_id
	`, tenantID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var actorID uuid.UUID
		var count int
		if err := rows.Scan(&actorID, &count); err != nil {
			return nil, err
		}
		counts[actorID] = count
	}
	return counts, rows.Err()
}
