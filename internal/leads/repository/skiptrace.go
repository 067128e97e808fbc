package repository

import (
	"context"
	"errors"

	"dealflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AddSkipTraceContact stores one enrichment contact for a lead.
func (r *Repository) AddSkipTraceContact(ctx context.Context, tenantID uuid.UUID, contact domain.SkipTraceContact) (domain.SkipTraceContact, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO skip_trace_contacts (lead_id, tenant_id, kind, value, source)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (SELECT 1 FROM leads WHERE id = $1 AND tenant_id = $2)
		RETURNING id, created_at
	`, contact.LeadID, tenantID, contact.Kind, contact.Value, contact.Source).
		Scan(&contact.ID, &contact.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SkipTraceContact{}, ErrNotFound
	}
	if err != nil {
		return domain.SkipTraceContact{}, err
	}
	return contact, nil
}

// ListSkipTraceContacts returns all contacts for the given leads, grouped by
// lead ID string. Visibility masking happens at the queue boundary, not here.
func (r *Repository) ListSkipTraceContacts(ctx context.Context, tenantID uuid.UUID, leadIDs []uuid.UUID) (map[string][]domain.SkipTraceContact, error) {
	if len(leadIDs) == 0 {
		return map[string][]domain.SkipTraceContact{}, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, kind, value, source, created_at
		FROM skip_trace_contacts
		WHERE tenant_id = $1 AND lead_id = ANY($2)
		ORDER BY created_at ASC
	`, tenantID, leadIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make(map[string][]domain.SkipTraceContact)
	for rows.Next() {
		var c domain.SkipTraceContact
		if err := rows.Scan(&c.ID, &c.LeadID, &c.Kind, &c.Value, &c.Source, &c.CreatedAt); err != nil {
			return nil, err
		}
		key := c.LeadID.String()
		contacts[key] = append(contacts[key], c)
	}
	return contacts, rows.Err()
}
