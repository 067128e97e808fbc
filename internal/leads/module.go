// Package leads provides the lead pipeline bounded context module: intake,
// scoring, routing, queues, and the dialer-to-closer handoff.
package leads

import (
	"context"

	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/leads/handler"
	"dealflow_backend/internal/leads/handoff"
	"dealflow_backend/internal/leads/repository"
	"dealflow_backend/internal/leads/routing"
	"dealflow_backend/internal/leads/scoring"
	"dealflow_backend/internal/leads/service"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
	scoring *scoring.Service
	routing *routing.Service
	log     *logger.Logger
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	routingSvc := routing.New(repo, eventBus, log)
	scoringSvc := scoring.New(repo, routingSvc, eventBus, log)
	handoffSvc := handoff.New(repo, eventBus, log)
	leadsSvc := service.New(repo, scoringSvc, handoffSvc, routingSvc, eventBus, log)

	return &Module{
		handler: handler.New(leadsSvc, val),
		repo:    repo,
		scoring: scoringSvc,
		routing: routingSvc,
		log:     log,
	}
}

// Name returns the module's identifier for logging purposes.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts the leads routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterQueueRoute(ctx.Protected)
}

// ReconcileRouting re-routes leads whose score write landed without a routing
// write (the non-transactional pipeline's stale window). Called by the
// scheduler; returns how many leads were re-routed.
func (m *Module) ReconcileRouting(ctx context.Context, batchSize int) (int, error) {
	stale, err := m.repo.ListScoredUnrouted(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	routed := 0
	for _, lead := range stale {
		if _, err := m.routing.Route(ctx, lead); err != nil {
			m.log.SideEffectError("routing reconcile", lead.ID.String(), err)
			continue
		}
		routed++
	}
	return routed, nil
}
