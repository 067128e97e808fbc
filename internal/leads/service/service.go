// Package service orchestrates lead intake, scoring/routing triggers, queue
// assembly, and the dialer-to-closer handoff. Derived computations (score,
// route) are re-entered synchronously after every mutation so the response
// reflects the freshest decision; their failures are logged and swallowed so
// the primary action never fails because a derived computation did.
package service

import (
	"context"
	"errors"
	"time"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/compliance"
	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/internal/leads/queue"
	"dealflow_backend/internal/leads/repository"
	"dealflow_backend/internal/leads/transport"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the repository surface the leads service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Lead, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]domain.Lead, error)
	SaveIntake(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	ListSkipTraceContacts(ctx context.Context, tenantID uuid.UUID, leadIDs []uuid.UUID) (map[string][]domain.SkipTraceContact, error)
	AddSkipTraceContact(ctx context.Context, tenantID uuid.UUID, contact domain.SkipTraceContact) (domain.SkipTraceContact, error)
}

// Rescorer recomputes score and routing for a lead. Implemented by the
// scoring service.
type Rescorer interface {
	Rescore(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error)
}

// HandoffManager drives the dialer-to-closer state machine.
type HandoffManager interface {
	SendToCloser(ctx context.Context, lead domain.Lead, sentBy uuid.UUID, escalate string) (domain.Lead, error)
	CloserAction(ctx context.Context, lead domain.Lead, actorID uuid.UUID, action string, amount *float64) (domain.Lead, error)
}

// RoutingManager applies manual routing overrides.
type RoutingManager interface {
	Override(ctx context.Context, lead domain.Lead, actorID uuid.UUID, newRoute domain.Route, newPriority domain.Priority, reason string) (domain.Lead, error)
}

type Service struct {
	repo     Store
	rescorer Rescorer
	handoff  HandoffManager
	routing  RoutingManager
	bus      events.Bus
	log      *logger.Logger
}

func New(repo Store, rescorer Rescorer, handoff HandoffManager, routing RoutingManager, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		rescorer: rescorer,
		handoff:  handoff,
		routing:  routing,
		bus:      bus,
		log:      log,
	}
}

// Create ingests a new lead and runs the initial score/route pass. Duplicate
// natural keys (tenant, address, owner) are rejected with a conflict.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	const op = "leads.Create"

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		TenantID:       tenantID,
		OwnerName:      req.OwnerName,
		OwnerPhone:     phone.NormalizeE164(req.OwnerPhone),
		OwnerEmail:     req.OwnerEmail,
		AddressLine:    req.AddressLine,
		City:           req.City,
		State:          req.State,
		Zip:            req.Zip,
		County:         req.County,
		SourceCategory: req.SourceCategory,
		Strategy:       req.Strategy,
		PropertyType:   req.PropertyType,
		Beds:           req.Beds,
		Baths:          req.Baths,
		SquareFeet:     req.SquareFeet,
		YearBuilt:      req.YearBuilt,
		BuyPrice:       req.BuyPrice,
		ARV:            req.ARV,
		LocationTier:   req.LocationTier,
		LeadTier:       req.LeadTier,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return transport.LeadResponse{}, apperr.Conflict("a lead for this address and owner already exists").WithOp(op)
		}
		return transport.LeadResponse{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			TenantID:       lead.TenantID,
			OwnerName:      lead.OwnerName,
			SourceCategory: lead.SourceCategory,
			Strategy:       lead.Strategy,
		})
	}

	return transport.ToLeadResponse(s.rescore(ctx, lead)), nil
}

// Get fetches one lead with role-appropriate skip-trace visibility.
func (s *Service) Get(ctx context.Context, leadID, tenantID uuid.UUID, roles []string) (transport.LeadResponse, error) {
	lead, err := s.getLead(ctx, leadID, tenantID, "leads.Get")
	if err != nil {
		return transport.LeadResponse{}, err
	}

	contacts, err := s.repo.ListSkipTraceContacts(ctx, tenantID, []uuid.UUID{lead.ID})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	items := queue.MaskSkipTrace([]domain.Lead{lead}, contacts, revealsSkipTrace(roles))
	return transport.ToQueueItemResponse(items[0]), nil
}

// Queue builds the ranked work list for the caller's role. Dialers get the
// filtered dialer queue with skip-trace counts only; closers and managers get
// the closer queue with full contacts.
func (s *Service) Queue(ctx context.Context, tenantID uuid.UUID, roles []string, rawFilter string) (transport.QueueResponse, error) {
	filter, err := queue.ParseFilter(rawFilter)
	if err != nil {
		return transport.QueueResponse{}, err
	}

	active, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return transport.QueueResponse{}, err
	}

	var ranked []domain.Lead
	if hasRole(roles, httpkit.RoleCloser) && !hasRole(roles, httpkit.RoleDialer) {
		ranked = queue.BuildCloser(active)
	} else {
		ranked = queue.BuildDialer(active, filter, time.Now().UTC())
	}

	ids := make([]uuid.UUID, 0, len(ranked))
	for _, lead := range ranked {
		ids = append(ids, lead.ID)
	}
	contacts, err := s.repo.ListSkipTraceContacts(ctx, tenantID, ids)
	if err != nil {
		return transport.QueueResponse{}, err
	}

	items := queue.MaskSkipTrace(ranked, contacts, revealsSkipTrace(roles))
	resp := transport.QueueResponse{
		Filter: string(filter),
		Count:  len(items),
		Items:  make([]transport.LeadResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, transport.ToQueueItemResponse(item))
	}
	return resp, nil
}

// SaveIntake merges an allow-listed intake update into the lead, scans notes
// for compliance violations, and re-runs scoring/routing. Locked intakes are
// rejected, never silently accepted.
func (s *Service) SaveIntake(ctx context.Context, leadID, tenantID, actorID uuid.UUID, req transport.IntakeRequest) (transport.LeadResponse, error) {
	const op = "leads.SaveIntake"

	lead, err := s.getLead(ctx, leadID, tenantID, op)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if lead.Intake.IntakeLocked {
		return transport.LeadResponse{}, apperr.Conflict("intake is locked after handoff; only closer actions may modify this lead").WithOp(op)
	}

	mergeIntake(&lead, req)

	if req.Notes != nil {
		violations := compliance.Scan(*req.Notes)
		if len(violations) > 0 {
			// Log-and-allow policy: the save proceeds, the flags travel with
			// the lead and raise routing priority.
			lead.Intake.ComplianceFlags = appendUnique(lead.Intake.ComplianceFlags, compliance.Phrases(violations))
			if s.log != nil {
				s.log.Warn("compliance violations in intake notes",
					"lead_id", leadID.String(), "phrases", compliance.Phrases(violations))
			}
		}
	}

	now := time.Now().UTC()
	if req.Complete && lead.Intake.IntakeCompletedAt == nil {
		lead.Intake.IntakeCompletedAt = &now
	}
	if req.Escalate && lead.EscalatedAt == nil {
		lead.EscalatedAt = &now
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadEscalated{
				BaseEvent:   events.NewBaseEvent(),
				LeadID:      lead.ID,
				TenantID:    lead.TenantID,
				EscalatedBy: actorID,
				EscalatedAt: now,
			})
		}
	}
	if lead.Status == "new" {
		lead.Status = "active"
	}

	saved, err := s.repo.SaveIntake(ctx, lead)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.ToLeadResponse(s.rescore(ctx, saved)), nil
}

// SendToCloser drives the handoff transition and re-routes so the lead is
// pinned with the closer.
func (s *Service) SendToCloser(ctx context.Context, leadID, tenantID, actorID uuid.UUID, req transport.SendToCloserRequest) (transport.LeadResponse, error) {
	lead, err := s.getLead(ctx, leadID, tenantID, "leads.SendToCloser")
	if err != nil {
		return transport.LeadResponse{}, err
	}

	sent, err := s.handoff.SendToCloser(ctx, lead, actorID, req.Escalate)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.ToLeadResponse(s.rescore(ctx, sent)), nil
}

// CloserAction records a closer-side deal action.
func (s *Service) CloserAction(ctx context.Context, leadID, tenantID, actorID uuid.UUID, req transport.CloserActionRequest) (transport.LeadResponse, error) {
	lead, err := s.getLead(ctx, leadID, tenantID, "leads.CloserAction")
	if err != nil {
		return transport.LeadResponse{}, err
	}

	updated, err := s.handoff.CloserAction(ctx, lead, actorID, req.Action, req.Amount)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.ToLeadResponse(s.rescore(ctx, updated)), nil
}

// OverrideRouting applies a manual route/priority decision.
func (s *Service) OverrideRouting(ctx context.Context, leadID, tenantID, actorID uuid.UUID, req transport.OverrideRoutingRequest) (transport.LeadResponse, error) {
	lead, err := s.getLead(ctx, leadID, tenantID, "leads.OverrideRouting")
	if err != nil {
		return transport.LeadResponse{}, err
	}

	overridden, err := s.routing.Override(ctx, lead, actorID, domain.Route(req.Route), domain.Priority(req.Priority), req.Reason)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	return transport.ToLeadResponse(overridden), nil
}

func (s *Service) getLead(ctx context.Context, leadID, tenantID uuid.UUID, op string) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound("lead not found").WithOp(op)
		}
		return domain.Lead{}, err
	}
	return lead, nil
}

// rescore re-runs scoring (and, through it, routing) after a mutation.
// Failures are logged and swallowed: the mutation already committed, and the
// reconciliation pass will pick up anything left stale.
func (s *Service) rescore(ctx context.Context, lead domain.Lead) domain.Lead {
	rescored, err := s.rescorer.Rescore(ctx, lead.ID, lead.TenantID)
	if err != nil {
		if s.log != nil {
			s.log.SideEffectError("scoring", lead.ID.String(), err)
		}
		return lead
	}
	return rescored
}

func mergeIntake(lead *domain.Lead, req transport.IntakeRequest) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setString(&lead.Intake.Occupancy, req.Occupancy)
	setString(&lead.Intake.ConditionTier, req.ConditionTier)
	setString(&lead.Intake.MortgageStatus, req.MortgageStatus)
	setString(&lead.Intake.Timeline, req.Timeline)
	setString(&lead.Intake.SellerReason, req.SellerReason)
	setString(&lead.Intake.SellerFlexibility, req.SellerFlexibility)
	setString(&lead.Intake.AskingPrice, req.AskingPrice)
	setString(&lead.Intake.ContactPreference, req.ContactPreference)
	setString(&lead.Intake.Notes, req.Notes)
	setString(&lead.LeadTier, req.LeadTier)

	if req.MotivationRating != nil {
		lead.Intake.MotivationRating = *req.MotivationRating
	}
	if req.OwnerPhone != nil {
		lead.OwnerPhone = phone.NormalizeE164(*req.OwnerPhone)
	}
	if req.FollowUpDue != nil {
		lead.FollowUpDue = req.FollowUpDue
	}
}

func appendUnique(existing []string, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, v := range existing {
		seen[v] = struct{}{}
	}
	for _, v := range incoming {
		if _, ok := seen[v]; !ok {
			existing = append(existing, v)
			seen[v] = struct{}{}
		}
	}
	return existing
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// revealsSkipTrace reports whether the caller may see skip-trace contact
// values. Dialers get counts only.
func revealsSkipTrace(roles []string) bool {
	return hasRole(roles, httpkit.RoleCloser) || hasRole(roles, httpkit.RoleManager) || hasRole(roles, httpkit.RoleAdmin)
}
