// Package notification fans pipeline events out to external collaborators:
// SSE streams (tenant-, role-, and lead-room-scoped) and the closer alert
// mailbox. It subscribes to domain events so the decision modules never know
// about delivery channels; every delivery failure is logged and swallowed.
package notification

import (
	"context"

	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	leadsrepo "dealflow_backend/internal/leads/repository"
	leadstransport "dealflow_backend/internal/leads/transport"
	"dealflow_backend/internal/notification/email"
	"dealflow_backend/internal/notification/sse"
	"dealflow_backend/platform/config"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	sse   *sse.Service
	email *email.Sender
	leads *leadsrepo.Repository
	log   *logger.Logger
}

// NewModule wires the SSE hub and email sender and subscribes to the
// pipeline's domain events.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg config.EmailConfig, log *logger.Logger) *Module {
	m := &Module{
		sse:   sse.New(log),
		email: email.New(cfg),
		leads: leadsrepo.New(pool),
		log:   log,
	}

	eventBus.Subscribe(events.LeadScored{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadScored)
		if !ok {
			return nil
		}
		m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventLeadScored, nil)
		return nil
	}))

	eventBus.Subscribe(events.LeadRouted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadRouted)
		if !ok {
			return nil
		}
		m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventLeadRouted, nil)
		return nil
	}))

	eventBus.Subscribe(events.RoutingOverridden{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.RoutingOverridden)
		if !ok {
			return nil
		}
		m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventRoutingOverridden, nil)
		return nil
	}))

	eventBus.Subscribe(events.HandoffSent{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.HandoffSent)
		if !ok {
			return nil
		}
		m.handleHandoffSent(ctx, e)
		return nil
	}))

	eventBus.Subscribe(events.HandoffBounced{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.HandoffBounced)
		if !ok {
			return nil
		}
		m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventHandoffBounced, nil)
		return nil
	}))

	eventBus.Subscribe(events.CloserActionRecorded{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.CloserActionRecorded)
		if !ok {
			return nil
		}
		m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventCloserAction, nil)
		return nil
	}))

	return m
}

// Name returns the module's identifier for logging purposes.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream on the authenticated group. The auth
// middleware accepts the token as a query parameter for EventSource clients.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.sse.Handler(func(c *gin.Context) (uuid.UUID, uuid.UUID, []string, bool) {
		identity := httpkit.GetIdentity(c)
		if identity == nil || !identity.IsAuthenticated() {
			return uuid.Nil, uuid.Nil, nil, false
		}
		return identity.UserID(), identity.TenantID(), identity.Roles(), true
	}))
}

// Close shuts down the SSE hub.
func (m *Module) Close() {
	m.sse.Close()
}

// pushLeadEvent emits the standard {leadId, lead} payload to all three
// stream scopes. Extra fields are merged into the payload when present.
func (m *Module) pushLeadEvent(ctx context.Context, tenantID, leadID uuid.UUID, eventType sse.EventType, extra map[string]any) {
	lead, err := m.leads.GetByID(ctx, leadID, tenantID)
	if err != nil {
		m.log.SideEffectError("notification lead fetch", leadID.String(), err)
		return
	}

	payload := map[string]any{
		"leadId": leadID,
		"lead":   leadstransport.ToLeadResponse(lead),
	}
	for k, v := range extra {
		payload[k] = v
	}

	event := sse.Event{Type: eventType, LeadID: leadID, Data: payload}
	m.sse.PublishToTenant(tenantID, event)
	m.sse.PublishToRole(tenantID, roleForEvent(eventType), event)
	m.sse.PublishToLeadRoom(tenantID, leadID, event)
}

// roleForEvent picks the role-scoped stream audience for an event type.
func roleForEvent(eventType sse.EventType) string {
	switch eventType {
	case sse.EventHandoffSent, sse.EventCloserAction:
		return httpkit.RoleCloser
	case sse.EventHandoffBounced:
		return httpkit.RoleDialer
	default:
		return httpkit.RoleManager
	}
}

func (m *Module) handleHandoffSent(ctx context.Context, e events.HandoffSent) {
	m.pushLeadEvent(ctx, e.TenantID, e.LeadID, sse.EventHandoffSent, map[string]any{
		"handoffSummary": e.HandoffSummary,
		"missingFields":  e.MissingFields,
	})

	lead, err := m.leads.GetByID(ctx, e.LeadID, e.TenantID)
	if err != nil {
		m.log.SideEffectError("handoff alert lead fetch", e.LeadID.String(), err)
		return
	}
	if err := m.email.SendHandoffAlert(ctx, lead.OwnerName, lead.AddressLine, e.HandoffSummary, e.MissingFields); err != nil {
		m.log.SideEffectError("handoff alert email", e.LeadID.String(), err)
	}
}
