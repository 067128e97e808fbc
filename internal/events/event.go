// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"dealflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	TenantID       uuid.UUID `json:"tenantId"`
	OwnerName      string    `json:"ownerName"`
	SourceCategory string    `json:"sourceCategory"`
	Strategy       string    `json:"strategy,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadScored is published after the scoring engine writes a fresh score.
type LeadScored struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Score    float64   `json:"score"`
	Grade    string    `json:"grade"`
}

func (e LeadScored) EventName() string { return "leads.lead.scored" }

// LeadRouted is published every time the routing service (re)assigns a lead
// to a queue. Re-routes to the same route still publish.
type LeadRouted struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	Route    string    `json:"route"`
	Priority string    `json:"priority"`
	SLAHours int       `json:"slaHours"`
	Reasons  []string  `json:"reasons"`
}

func (e LeadRouted) EventName() string { return "leads.lead.routed" }

// RoutingOverridden is published when an operator manually overrides the
// automatic routing decision.
type RoutingOverridden struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	TenantID      uuid.UUID `json:"tenantId"`
	ActorID       uuid.UUID `json:"actorId"`
	PreviousRoute string    `json:"previousRoute"`
	NewRoute      string    `json:"newRoute"`
	Reason        string    `json:"reason"`
}

func (e RoutingOverridden) EventName() string { return "leads.routing.overridden" }

// LeadEscalated is published when a dialer escalates a lead mid-call.
type LeadEscalated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	TenantID    uuid.UUID `json:"tenantId"`
	EscalatedBy uuid.UUID `json:"escalatedBy"`
	EscalatedAt time.Time `json:"escalatedAt"`
}

func (e LeadEscalated) EventName() string { return "leads.lead.escalated" }

// =============================================================================
// Handoff Domain Events
// =============================================================================

// HandoffSent is published when a dialer sends a lead to the closer queue.
type HandoffSent struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	TenantID       uuid.UUID `json:"tenantId"`
	SentBy         uuid.UUID `json:"sentBy"`
	HandoffSummary string    `json:"handoffSummary"`
	MissingFields  []string  `json:"missingFields"`
}

func (e HandoffSent) EventName() string { return "leads.handoff.sent" }

// HandoffBounced is published when a closer sends a lead back to the dialer
// for missing or bad intake data.
type HandoffBounced struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	TenantID  uuid.UUID `json:"tenantId"`
	BouncedBy uuid.UUID `json:"bouncedBy"`
	Reason    string    `json:"reason,omitempty"`
}

func (e HandoffBounced) EventName() string { return "leads.handoff.bounced" }

// CloserActionRecorded is published when a closer advances a deal
// (offer sent, contract sent, under contract).
type CloserActionRecorded struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	ActorID  uuid.UUID `json:"actorId"`
	Action   string    `json:"action"`
	Amount   *float64  `json:"amount,omitempty"`
}

func (e CloserActionRecorded) EventName() string { return "leads.closer.action_recorded" }

// =============================================================================
// KPI Domain Events
// =============================================================================

// KpiEventRecorded is published when an agent activity event is ingested.
type KpiEventRecorded struct {
	BaseEvent
	EventID   uuid.UUID  `json:"eventId"`
	TenantID  uuid.UUID  `json:"tenantId"`
	UserID    uuid.UUID  `json:"userId"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	EventType string     `json:"eventType"`
}

func (e KpiEventRecorded) EventName() string { return "kpi.event.recorded" }

// ScorecardFinalized is published when a weekly scorecard is computed or a
// manager override changes its outcome.
type ScorecardFinalized struct {
	BaseEvent
	ScorecardID uuid.UUID `json:"scorecardId"`
	TenantID    uuid.UUID `json:"tenantId"`
	UserID      uuid.UUID `json:"userId"`
	WeekStart   time.Time `json:"weekStart"`
	TotalScore  float64   `json:"totalScore"`
	Outcome     string    `json:"outcome"`
}

func (e ScorecardFinalized) EventName() string { return "kpi.scorecard.finalized" }
