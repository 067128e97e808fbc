// Package repository persists leads and their decision state in Postgres.
// All queries are tenant-scoped; cross-tenant reads exist only for the
// scheduler's reconciliation pass.
package repository

import (
	"context"
	"errors"
	"time"

	"dealflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrDuplicate is returned when the natural key (tenant, address, owner)
	// already exists. Bulk ingestion relies on the unique index, not a
	// check-then-insert race.
	ErrDuplicate = errors.New("lead already exists")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, tenant_id, owner_name, owner_phone, owner_email,
	address_line, city, state, zip, county, source_category, strategy,
	property_type, beds, baths, square_feet, year_built, buy_price, arv, location_tier,
	status, lead_tier, escalated_at, follow_up_due,
	intake_occupancy, intake_condition_tier, intake_mortgage_status, intake_motivation_rating,
	intake_timeline, intake_seller_reason, intake_seller_flexibility, intake_asking_price,
	intake_contact_preference, intake_notes, compliance_flags, intake_completed_at, intake_locked,
	score, grade, score_evaluated_at,
	route, priority, sla_hours, routing_reasons, routed_at,
	handoff_status, handoff_summary, missing_fields, sent_to_closer_at, sent_to_closer_by,
	offer_sent_at, offer_amount, contract_sent_at, contract_amount, under_contract_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		lead        domain.Lead
		score       *float64
		grade       *string
		evaluatedAt *time.Time
		route       *string
		priority    *string
		slaHours    *int
		reasons     []string
		routedAt    *time.Time
	)

	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.OwnerName, &lead.OwnerPhone, &lead.OwnerEmail,
		&lead.AddressLine, &lead.City, &lead.State, &lead.Zip, &lead.County, &lead.SourceCategory, &lead.Strategy,
		&lead.PropertyType, &lead.Beds, &lead.Baths, &lead.SquareFeet, &lead.YearBuilt, &lead.BuyPrice, &lead.ARV, &lead.LocationTier,
		&lead.Status, &lead.LeadTier, &lead.EscalatedAt, &lead.FollowUpDue,
		&lead.Intake.Occupancy, &lead.Intake.ConditionTier, &lead.Intake.MortgageStatus, &lead.Intake.MotivationRating,
		&lead.Intake.Timeline, &lead.Intake.SellerReason, &lead.Intake.SellerFlexibility, &lead.Intake.AskingPrice,
		&lead.Intake.ContactPreference, &lead.Intake.Notes, &lead.Intake.ComplianceFlags, &lead.Intake.IntakeCompletedAt, &lead.Intake.IntakeLocked,
		&score, &grade, &evaluatedAt,
		&route, &priority, &slaHours, &reasons, &routedAt,
		&lead.Handoff.Status, &lead.Handoff.Summary, &lead.Handoff.MissingFields, &lead.Handoff.SentToCloserAt, &lead.Handoff.SentToCloserBy,
		&lead.Closer.OfferSentAt, &lead.Closer.OfferAmount, &lead.Closer.ContractSentAt, &lead.Closer.ContractAmount, &lead.Closer.UnderContractAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return domain.Lead{}, err
	}

	if score != nil && grade != nil {
		lead.Score = &domain.LeadScore{Score: *score, Grade: domain.Grade(*grade)}
		if evaluatedAt != nil {
			lead.Score.EvaluatedAt = *evaluatedAt
		}
	}
	if route != nil {
		lead.Routing = &domain.Routing{
			Route:   domain.Route(*route),
			Reasons: reasons,
		}
		if priority != nil {
			lead.Routing.Priority = domain.Priority(*priority)
		}
		if slaHours != nil {
			lead.Routing.SLAHours = *slaHours
		}
		if routedAt != nil {
			lead.Routing.RoutedAt = *routedAt
		}
	}

	return lead, nil
}

// CreateLeadParams carries the identity/property facts captured at ingestion.
type CreateLeadParams struct {
	TenantID       uuid.UUID
	OwnerName      string
	OwnerPhone     string
	OwnerEmail     string
	AddressLine    string
	City           string
	State          string
	Zip            string
	County         string
	SourceCategory string
	Strategy       string
	PropertyType   string
	Beds           *int
	Baths          *float64
	SquareFeet     *int
	YearBuilt      *int
	BuyPrice       *float64
	ARV            *float64
	LocationTier   *int
	LeadTier       string
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			tenant_id, owner_name, owner_phone, owner_email,
			address_line, city, state, zip, county, source_category, strategy,
			property_type, beds, baths, square_feet, year_built, buy_price, arv, location_tier,
			lead_tier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING `+leadColumns,
		params.TenantID, params.OwnerName, params.OwnerPhone, params.OwnerEmail,
		params.AddressLine, params.City, params.State, params.Zip, params.County, params.SourceCategory, params.Strategy,
		params.PropertyType, params.Beds, params.Baths, params.SquareFeet, params.YearBuilt, params.BuyPrice, params.ARV, params.LocationTier,
		defaultTier(params.LeadTier),
	)

	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Lead{}, ErrDuplicate
		}
		return domain.Lead{}, err
	}
	return lead, nil
}

func defaultTier(tier string) string {
	if tier == "" {
		return "warm"
	}
	return tier
}

func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// ListActive returns the queue candidate set for a tenant: everything not
// closed and not archived. Filtering to a work mode happens in memory so the
// full set is ranked before truncation.
func (r *Repository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE tenant_id = $1
		  AND status != 'closed'
		  AND (route IS NULL OR route != 'archive')
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListScoredUnrouted finds leads whose score is newer than their routing
// write, across all tenants. The scheduler's reconciliation pass re-routes
// them, closing the window left by the three-step non-transactional pipeline.
func (r *Repository) ListScoredUnrouted(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE score IS NOT NULL
		  AND (routed_at IS NULL OR routed_at < score_evaluated_at)
		ORDER BY score_evaluated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}
