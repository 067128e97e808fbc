// Package kpi provides the performance-measurement bounded context module:
// activity event ingestion, weekly scorecards, and routing SLA reports.
package kpi

import (
	"context"
	"time"

	"dealflow_backend/internal/events"
	apphttp "dealflow_backend/internal/http"
	"dealflow_backend/internal/kpi/handler"
	"dealflow_backend/internal/kpi/repository"
	"dealflow_backend/internal/kpi/service"
	"dealflow_backend/platform/logger"
	"dealflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the KPI bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates and initializes the KPI module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		svc:     svc,
	}
}

// Name returns the module's identifier for logging purposes.
func (m *Module) Name() string {
	return "kpi"
}

// RegisterRoutes mounts the KPI routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/kpi"))
}

// MaterializeWeeklyScorecards precomputes last week's scorecards for every
// active user. Called by the scheduler.
func (m *Module) MaterializeWeeklyScorecards(ctx context.Context, asOf time.Time) (int, error) {
	return m.svc.MaterializeWeeklyScorecards(ctx, service.WeekStart(asOf.AddDate(0, 0, -7)))
}
