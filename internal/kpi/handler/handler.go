// Package handler exposes the KPI module over HTTP.
package handler

import (
	"net/http"
	"time"

	"dealflow_backend/internal/kpi/repository"
	"dealflow_backend/internal/kpi/service"
	"dealflow_backend/internal/kpi/transport"
	"dealflow_backend/platform/httpkit"
	"dealflow_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/event", h.RecordEvent)
	rg.GET("/dialer/weekly", h.DialerWeekly)
	rg.GET("/closer/weekly", h.CloserWeekly)
	rg.GET("/routing/performance", h.RoutingPerformance)
	rg.PUT("/scorecard/:id", h.OverrideScorecard)
}

func (h *Handler) RecordEvent(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	var req transport.RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	event, err := h.svc.RecordEvent(c.Request.Context(), repository.Event{
		TenantID:  identity.TenantID(),
		UserID:    identity.UserID(),
		Role:      primaryRole(identity.Roles()),
		LeadID:    req.LeadID,
		EventType: req.EventType,
		Metadata:  req.Metadata,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToEventResponse(event))
}

// DialerWeekly returns the lazily computed scorecard. userId defaults to the
// caller; reading another user's scorecard requires the manager role.
func (h *Handler) DialerWeekly(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	weekStart, ok := parseWeekStart(c)
	if !ok {
		return
	}
	userID, ok := resolveUserParam(c, identity)
	if !ok {
		return
	}

	sc, err := h.svc.GetOrComputeScorecard(c.Request.Context(), identity.TenantID(), userID, httpkit.RoleDialer, weekStart)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScorecardResponse(sc))
}

func (h *Handler) CloserWeekly(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	weekStart, ok := parseWeekStart(c)
	if !ok {
		return
	}
	userID, ok := resolveUserParam(c, identity)
	if !ok {
		return
	}

	kpi, err := h.svc.GetOrComputeCloserKPI(c.Request.Context(), identity.TenantID(), userID, weekStart)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToCloserKPIResponse(kpi))
}

func (h *Handler) RoutingPerformance(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if !identity.HasRole(httpkit.RoleManager) && !identity.HasRole(httpkit.RoleAdmin) {
		httpkit.Error(c, http.StatusForbidden, "manager role required", nil)
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("startDate"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "startDate must be YYYY-MM-DD", nil)
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("endDate"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "endDate must be YYYY-MM-DD", nil)
		return
	}
	if !end.After(start) {
		httpkit.Error(c, http.StatusBadRequest, "endDate must be after startDate", nil)
		return
	}

	report, err := h.svc.RoutingPerformance(c.Request.Context(), identity.TenantID(), start, end)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToPerformanceResponse(report))
}

func (h *Handler) OverrideScorecard(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if !identity.HasRole(httpkit.RoleManager) && !identity.HasRole(httpkit.RoleAdmin) {
		httpkit.Error(c, http.StatusForbidden, "manager role required", nil)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.OverrideScorecardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	sc, err := h.svc.OverrideScorecard(c.Request.Context(), id, identity.TenantID(), identity.UserID(), service.OverrideInput{
		IntakeAccuracy:  req.IntakeAccuracy,
		CallControl:     req.CallControl,
		ScriptAdherence: req.ScriptAdherence,
		Compliance:      req.Compliance,
		Professionalism: req.Professionalism,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToScorecardResponse(sc))
}

func parseWeekStart(c *gin.Context) (time.Time, bool) {
	raw := c.Query("weekStart")
	if raw == "" {
		return time.Now().UTC(), true
	}
	weekStart, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "weekStart must be YYYY-MM-DD", nil)
		return time.Time{}, false
	}
	return weekStart, true
}

// resolveUserParam returns the target user for a weekly query. Managers and
// admins may query anyone in the tenant; everyone else only themselves.
func resolveUserParam(c *gin.Context, identity httpkit.Identity) (uuid.UUID, bool) {
	raw := c.Query("userId")
	if raw == "" {
		return identity.UserID(), true
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "userId must be a UUID", nil)
		return uuid.Nil, false
	}
	if userID != identity.UserID() && !identity.HasRole(httpkit.RoleManager) && !identity.HasRole(httpkit.RoleAdmin) {
		httpkit.Error(c, http.StatusForbidden, "cannot read another user's KPI data", nil)
		return uuid.Nil, false
	}
	return userID, true
}

func primaryRole(roles []string) string {
	if len(roles) == 0 {
		return httpkit.RoleDialer
	}
	return roles[0]
}
