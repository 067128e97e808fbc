package handoff

import (
	"context"
	"time"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"

	"github.com/google/uuid"
)

// EscalateHighPriority bypasses the intake-completeness gate on send-to-closer.
const EscalateHighPriority = "high_priority"

// Closer action names accepted by the closer-action endpoint.
const (
	ActionBackToDialer  = "back_to_dialer"
	ActionOfferSent     = "offer_sent"
	ActionContractSent  = "contract_sent"
	ActionUnderContract = "under_contract"
)

// LeadStore is the repository surface the handoff service needs.
type LeadStore interface {
	// SaveHandoff persists the handoff block; lockIntake latches intakeLocked.
	// The latch is one-way: the repository never clears it.
	SaveHandoff(ctx context.Context, id, tenantID uuid.UUID, handoff domain.Handoff, lockIntake bool) (domain.Lead, error)
	SaveCloserAction(ctx context.Context, id, tenantID uuid.UUID, status domain.HandoffStatus, closer domain.CloserFields) (domain.Lead, error)
}

// Service orchestrates handoff transitions and closer actions.
type Service struct {
	store LeadStore
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new handoff service.
func New(store LeadStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// SendToCloser transitions the lead into closer_review, generating the
// summary snapshot and latching the intake. The transition requires a
// completed intake unless explicitly escalated as high priority.
func (s *Service) SendToCloser(ctx context.Context, lead domain.Lead, sentBy uuid.UUID, escalate string) (domain.Lead, error) {
	const op = "handoff.SendToCloser"

	if !domain.CanTransitionHandoff(lead.Handoff.Status, domain.HandoffCloserReview) {
		return domain.Lead{}, apperr.Conflict("lead cannot be sent to closer from its current handoff status").WithOp(op)
	}
	if lead.Intake.IntakeCompletedAt == nil && escalate != EscalateHighPriority {
		return domain.Lead{}, apperr.Validation("intake is not completed; use escalate=high_priority to bypass").WithOp(op)
	}

	now := time.Now().UTC()
	updated := domain.Handoff{
		Status:         domain.HandoffCloserReview,
		Summary:        GenerateSummary(lead),
		MissingFields:  MissingFields(lead.Intake),
		SentToCloserAt: &now,
		SentToCloserBy: &sentBy,
	}

	saved, err := s.store.SaveHandoff(ctx, lead.ID, lead.TenantID, updated, true)
	if err != nil {
		return domain.Lead{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.HandoffSent{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         saved.ID,
			TenantID:       saved.TenantID,
			SentBy:         sentBy,
			HandoffSummary: updated.Summary,
			MissingFields:  updated.MissingFields,
		})
	}

	return saved, nil
}

// CloserAction applies a closer-side transition: bounce back to the dialer,
// or advance the deal through offer/contract states. Amount is recorded for
// offer_sent and contract_sent.
func (s *Service) CloserAction(ctx context.Context, lead domain.Lead, actorID uuid.UUID, action string, amount *float64) (domain.Lead, error) {
	const op = "handoff.CloserAction"

	target, ok := statusForAction(action)
	if !ok {
		return domain.Lead{}, apperr.Validation("unknown closer action: " + action).WithOp(op)
	}
	if !domain.CanTransitionHandoff(lead.Handoff.Status, target) {
		return domain.Lead{}, apperr.Conflict("closer action not allowed from current handoff status").WithOp(op)
	}

	if target == domain.HandoffBackToDialer {
		bounced := lead.Handoff
		bounced.Status = domain.HandoffBackToDialer
		saved, err := s.store.SaveHandoff(ctx, lead.ID, lead.TenantID, bounced, false)
		if err != nil {
			return domain.Lead{}, err
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.HandoffBounced{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    saved.ID,
				TenantID:  saved.TenantID,
				BouncedBy: actorID,
			})
		}
		return saved, nil
	}

	now := time.Now().UTC()
	closer := lead.Closer
	switch target {
	case domain.HandoffOfferSent:
		closer.OfferSentAt = &now
		closer.OfferAmount = amount
	case domain.HandoffContractSent:
		closer.ContractSentAt = &now
		closer.ContractAmount = amount
	case domain.HandoffUnderContract:
		closer.UnderContractAt = &now
	}

	saved, err := s.store.SaveCloserAction(ctx, lead.ID, lead.TenantID, target, closer)
	if err != nil {
		return domain.Lead{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.CloserActionRecorded{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    saved.ID,
			TenantID:  saved.TenantID,
			ActorID:   actorID,
			Action:    action,
			Amount:    amount,
		})
	}

	return saved, nil
}

func statusForAction(action string) (domain.HandoffStatus, bool) {
	switch action {
	case ActionBackToDialer:
		return domain.HandoffBackToDialer, true
	case ActionOfferSent:
		return domain.HandoffOfferSent, true
	case ActionContractSent:
		return domain.HandoffContractSent, true
	case ActionUnderContract:
		return domain.HandoffUnderContract, true
	default:
		return "", false
	}
}
