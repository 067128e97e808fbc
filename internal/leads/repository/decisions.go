package repository

import (
	"context"
	"encoding/json"
	"errors"

	"dealflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SaveIntake writes the full intake block plus the follow-up and escalation
// state from the lead snapshot. The service layer owns the merge and the
// intake-lock check; this write is unconditional.
func (r *Repository) SaveIntake(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			intake_occupancy = $3,
			intake_condition_tier = $4,
			intake_mortgage_status = $5,
			intake_motivation_rating = $6,
			intake_timeline = $7,
			intake_seller_reason = $8,
			intake_seller_flexibility = $9,
			intake_asking_price = $10,
			intake_contact_preference = $11,
			intake_notes = $12,
			compliance_flags = $13,
			intake_completed_at = $14,
			status = $15,
			lead_tier = $16,
			follow_up_due = $17,
			escalated_at = $18,
			owner_phone = $19,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		lead.ID, lead.TenantID,
		lead.Intake.Occupancy, lead.Intake.ConditionTier, lead.Intake.MortgageStatus,
		lead.Intake.MotivationRating, lead.Intake.Timeline, lead.Intake.SellerReason,
		lead.Intake.SellerFlexibility, lead.Intake.AskingPrice, lead.Intake.ContactPreference,
		lead.Intake.Notes, complianceFlags(lead.Intake.ComplianceFlags), lead.Intake.IntakeCompletedAt,
		lead.Status, lead.LeadTier, lead.FollowUpDue, lead.EscalatedAt, lead.OwnerPhone,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return updated, err
}

func complianceFlags(flags []string) []string {
	if flags == nil {
		return []string{}
	}
	return flags
}

// SaveScore persists the scoring output. Factor breakdown is kept as JSONB
// for analysis; it is never read back into the domain model.
func (r *Repository) SaveScore(ctx context.Context, id, tenantID uuid.UUID, score domain.LeadScore, factors map[string]float64) (domain.Lead, error) {
	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return domain.Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			score = $3,
			grade = $4,
			score_factors = $5,
			score_evaluated_at = $6,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID, score.Score, string(score.Grade), factorsJSON, score.EvaluatedAt,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return updated, err
}

// SaveRouting persists a routing decision. Reasons are appended to the
// existing trail, never overwritten; routed_at always advances.
func (r *Repository) SaveRouting(ctx context.Context, id, tenantID uuid.UUID, routing domain.Routing) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			route = $3,
			priority = $4,
			sla_hours = $5,
			routing_reasons = routing_reasons || $6,
			routed_at = $7,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID, string(routing.Route), string(routing.Priority), routing.SLAHours,
		routing.Reasons, routing.RoutedAt,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return updated, err
}

// SaveHandoff persists the handoff block. The intake lock is a one-way latch:
// once true it never resets, regardless of lockIntake.
func (r *Repository) SaveHandoff(ctx context.Context, id, tenantID uuid.UUID, handoff domain.Handoff, lockIntake bool) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			handoff_status = $3,
			handoff_summary = $4,
			missing_fields = $5,
			sent_to_closer_at = COALESCE($6, sent_to_closer_at),
			sent_to_closer_by = COALESCE($7, sent_to_closer_by),
			intake_locked = intake_locked OR $8,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID, string(handoff.Status), handoff.Summary, missingFields(handoff.MissingFields),
		handoff.SentToCloserAt, handoff.SentToCloserBy, lockIntake,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return updated, err
}

func missingFields(fields []string) []string {
	if fields == nil {
		return []string{}
	}
	return fields
}

// SaveCloserAction advances the handoff status and writes the closer fields.
func (r *Repository) SaveCloserAction(ctx context.Context, id, tenantID uuid.UUID, status domain.HandoffStatus, closer domain.CloserFields) (domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			handoff_status = $3,
			offer_sent_at = $4,
			offer_amount = $5,
			contract_sent_at = $6,
			contract_amount = $7,
			under_contract_at = $8,
			updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING `+leadColumns,
		id, tenantID, string(status),
		closer.OfferSentAt, closer.OfferAmount, closer.ContractSentAt, closer.ContractAmount, closer.UnderContractAt,
	)

	updated, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return updated, err
}

// InsertRoutingOverride records a manual override as its own row.
func (r *Repository) InsertRoutingOverride(ctx context.Context, override domain.RoutingOverride) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO routing_overrides (
			lead_id, tenant_id, actor_id,
			previous_route, previous_priority, new_route, new_priority, reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		override.LeadID, override.TenantID, override.ActorID,
		string(override.PreviousRoute), string(override.PreviousPriority),
		string(override.NewRoute), string(override.NewPriority), override.Reason,
	)
	return err
}
