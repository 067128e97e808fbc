// Package routing decides which queue a scored lead belongs to, at what
// urgency, and under which SLA. Every decision appends human-readable reasons
// to the lead's cumulative routing audit trail.
package routing

import (
	"context"
	"fmt"
	"time"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/logger"

	"github.com/google/uuid"
)

// SLA windows per route, in hours. A-grade deals get a tight same-shift
// window; nurture buckets stretch to days.
const (
	SLAImmediateCloser = 2
	SLADialerPriority  = 24
	SLANurtureNormal   = 72
	SLANurtureLow      = 168
)

// Decision is the pure routing outcome for one evaluation pass.
type Decision struct {
	Route    domain.Route
	Priority domain.Priority
	SLAHours int
	Reasons  []string // appended to the lead's trail, never replacing it
}

// LeadStore is the repository surface the routing service needs.
type LeadStore interface {
	SaveRouting(ctx context.Context, id, tenantID uuid.UUID, routing domain.Routing) (domain.Lead, error)
	InsertRoutingOverride(ctx context.Context, override domain.RoutingOverride) error
}

// Service routes scored leads and records manual overrides.
type Service struct {
	store LeadStore
	bus   events.Bus
	log   *logger.Logger
}

// New creates a new routing service.
func New(store LeadStore, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Evaluate computes the routing decision for a lead. First match wins on
// grade; secondary signals may upgrade priority but never move the route away
// from an active handoff.
func Evaluate(lead domain.Lead) Decision {
	grade := lead.CurrentGrade()

	var d Decision
	switch grade {
	case domain.GradeA:
		d = Decision{
			Route:    domain.RouteImmediateCloser,
			Priority: domain.PriorityUrgent,
			SLAHours: SLAImmediateCloser,
			Reasons:  []string{fmt.Sprintf("grade A (score %.0f): route to closer immediately", scoreOf(lead))},
		}
	case domain.GradeB:
		d = Decision{
			Route:    domain.RouteDialerPriority,
			Priority: domain.PriorityHigh,
			SLAHours: SLADialerPriority,
			Reasons:  []string{fmt.Sprintf("grade B (score %.0f): dialer priority follow-up", scoreOf(lead))},
		}
	case domain.GradeC:
		d = Decision{
			Route:    domain.RouteNurture,
			Priority: domain.PriorityNormal,
			SLAHours: SLANurtureNormal,
			Reasons:  []string{fmt.Sprintf("grade C (score %.0f): nurture cadence", scoreOf(lead))},
		}
	case domain.GradeD:
		d = Decision{
			Route:    domain.RouteNurture,
			Priority: domain.PriorityLow,
			SLAHours: SLANurtureLow,
			Reasons:  []string{fmt.Sprintf("grade D (score %.0f): long-tail nurture", scoreOf(lead))},
		}
	default:
		d = Decision{
			Route:    domain.RouteArchive,
			Priority: domain.PriorityLow,
			SLAHours: 0,
			Reasons:  []string{"dead grade: archived, no active route"},
		}
	}

	// Secondary signals upgrade priority only. They never downgrade, and they
	// never change the route.
	if lead.EscalatedAt != nil {
		if upgraded := domain.Escalate(d.Priority); upgraded != d.Priority {
			d.Priority = upgraded
			d.Reasons = append(d.Reasons, "prior dialer escalation: priority raised")
		}
	}
	if len(lead.Intake.ComplianceFlags) > 0 {
		if upgraded := domain.Escalate(d.Priority); upgraded != d.Priority {
			d.Priority = upgraded
			d.Reasons = append(d.Reasons, "compliance flags present: priority raised for review")
		}
	}

	// An active handoff pins the lead with the closer regardless of what the
	// fresh grade says. Re-scoring must not yank a deal out from under them.
	if lead.HasActiveHandoff() && d.Route != domain.RouteImmediateCloser {
		d.Route = domain.RouteImmediateCloser
		d.SLAHours = SLAImmediateCloser
		d.Reasons = append(d.Reasons, "handoff in progress: route held at immediate_closer")
	}

	return d
}

// Route evaluates and persists routing for a lead, then emits a routed event.
// RoutedAt is refreshed on every re-route.
func (s *Service) Route(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	decision := Evaluate(lead)

	routing := domain.Routing{
		Route:    decision.Route,
		Priority: decision.Priority,
		SLAHours: decision.SLAHours,
		Reasons:  decision.Reasons,
		RoutedAt: time.Now().UTC(),
	}

	routed, err := s.store.SaveRouting(ctx, lead.ID, lead.TenantID, routing)
	if err != nil {
		return domain.Lead{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadRouted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    routed.ID,
			TenantID:  routed.TenantID,
			Route:     string(decision.Route),
			Priority:  string(decision.Priority),
			SLAHours:  decision.SLAHours,
			Reasons:   decision.Reasons,
		})
	}

	return routed, nil
}

// Override applies a manual route/priority decision by an operator. The
// override is recorded as its own fact (for KPI reporting) and appended to
// the routing reasons.
func (s *Service) Override(ctx context.Context, lead domain.Lead, actorID uuid.UUID, newRoute domain.Route, newPriority domain.Priority, reason string) (domain.Lead, error) {
	prevRoute := domain.RouteArchive
	prevPriority := domain.PriorityNormal
	slaHours := 0
	if lead.Routing != nil {
		prevRoute = lead.Routing.Route
		prevPriority = lead.Routing.Priority
		slaHours = lead.Routing.SLAHours
	}

	if err := s.store.InsertRoutingOverride(ctx, domain.RoutingOverride{
		LeadID:           lead.ID,
		TenantID:         lead.TenantID,
		ActorID:          actorID,
		PreviousRoute:    prevRoute,
		PreviousPriority: prevPriority,
		NewRoute:         newRoute,
		NewPriority:      newPriority,
		Reason:           reason,
	}); err != nil {
		return domain.Lead{}, err
	}

	routing := domain.Routing{
		Route:    newRoute,
		Priority: newPriority,
		SLAHours: slaForRoute(newRoute, slaHours),
		Reasons:  []string{fmt.Sprintf("manual override by operator: %s", reason)},
		RoutedAt: time.Now().UTC(),
	}

	routed, err := s.store.SaveRouting(ctx, lead.ID, lead.TenantID, routing)
	if err != nil {
		return domain.Lead{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.RoutingOverridden{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        routed.ID,
			TenantID:      routed.TenantID,
			ActorID:       actorID,
			PreviousRoute: string(prevRoute),
			NewRoute:      string(newRoute),
			Reason:        reason,
		})
	}

	return routed, nil
}

func slaForRoute(route domain.Route, current int) int {
	switch route {
	case domain.RouteImmediateCloser:
		return SLAImmediateCloser
	case domain.RouteDialerPriority:
		return SLADialerPriority
	case domain.RouteNurture:
		return SLANurtureNormal
	case domain.RouteArchive:
		return 0
	default:
		return current
	}
}

func scoreOf(lead domain.Lead) float64 {
	if lead.Score == nil {
		return 0
	}
	return lead.Score.Score
}
