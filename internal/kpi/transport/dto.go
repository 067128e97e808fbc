// Package transport defines the HTTP request/response shapes for the KPI
// module.
package transport

import (
	"time"

	"dealflow_backend/internal/kpi/repository"
	"dealflow_backend/internal/kpi/service"

	"github.com/google/uuid"
)

// RecordEventRequest appends one activity event.
type RecordEventRequest struct {
	EventType string         `json:"eventType" validate:"required,min=1,max=50"`
	LeadID    *uuid.UUID     `json:"leadId"`
	Metadata  map[string]any `json:"metadata"`
}

// OverrideScorecardRequest is a manager's component override. Absent fields
// keep the stored value. Per-component range checks live in the service,
// where the component budgets are defined.
type OverrideScorecardRequest struct {
	IntakeAccuracy  *float64 `json:"intakeAccuracy" validate:"omitempty,min=0"`
	CallControl     *float64 `json:"callControl" validate:"omitempty,min=0"`
	ScriptAdherence *float64 `json:"scriptAdherence" validate:"omitempty,min=0"`
	Compliance      *float64 `json:"compliance" validate:"omitempty,min=0"`
	Professionalism *float64 `json:"professionalism" validate:"omitempty,min=0"`
}

// EventResponse echoes an appended event.
type EventResponse struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"userId"`
	Role      string     `json:"role"`
	LeadID    *uuid.UUID `json:"leadId,omitempty"`
	EventType string     `json:"eventType"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ToEventResponse maps a stored event.
func ToEventResponse(event repository.Event) EventResponse {
	return EventResponse{
		ID:        event.ID,
		UserID:    event.UserID,
		Role:      event.Role,
		LeadID:    event.LeadID,
		EventType: event.EventType,
		CreatedAt: event.CreatedAt,
	}
}

// ScorecardResponse is the weekly 100-point summary.
type ScorecardResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Role      string    `json:"role"`
	WeekStart time.Time `json:"weekStart"`

	CallsMade        int `json:"callsMade"`
	Conversations    int `json:"conversations"`
	IntakesCompleted int `json:"intakesCompleted"`
	Violations       int `json:"violations"`

	IntakeAccuracy  float64 `json:"intakeAccuracy"`
	CallControl     float64 `json:"callControl"`
	ScriptAdherence float64 `json:"scriptAdherence"`
	Compliance      float64 `json:"compliance"`
	Professionalism float64 `json:"professionalism"`
	TotalScore      float64 `json:"totalScore"`
	Outcome         string  `json:"outcome"`

	OverriddenBy *uuid.UUID `json:"overriddenBy,omitempty"`
}

// ToScorecardResponse maps a stored scorecard.
func ToScorecardResponse(sc repository.Scorecard) ScorecardResponse {
	return ScorecardResponse{
		ID:               sc.ID,
		UserID:           sc.UserID,
		Role:             sc.Role,
		WeekStart:        sc.WeekStart,
		CallsMade:        sc.CallsMade,
		Conversations:    sc.Conversations,
		IntakesCompleted: sc.IntakesCompleted,
		Violations:       sc.Violations,
		IntakeAccuracy:   sc.IntakeAccuracy,
		CallControl:      sc.CallControl,
		ScriptAdherence:  sc.ScriptAdherence,
		Compliance:       sc.Compliance,
		Professionalism:  sc.Professionalism,
		TotalScore:       sc.TotalScore,
		Outcome:          sc.Outcome,
		OverriddenBy:     sc.OverriddenBy,
	}
}

// CloserKPIResponse is the weekly closer aggregate.
type CloserKPIResponse struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"userId"`
	WeekStart        time.Time `json:"weekStart"`
	HandoffsReceived int       `json:"handoffsReceived"`
	OffersSent       int       `json:"offersSent"`
	ContractsSent    int       `json:"contractsSent"`
	ConversionRate   float64   `json:"conversionRate"`
}

// ToCloserKPIResponse maps a stored closer aggregate.
func ToCloserKPIResponse(kpi repository.CloserKPI) CloserKPIResponse {
	return CloserKPIResponse{
		ID:               kpi.ID,
		UserID:           kpi.UserID,
		WeekStart:        kpi.WeekStart,
		HandoffsReceived: kpi.HandoffsReceived,
		OffersSent:       kpi.OffersSent,
		ContractsSent:    kpi.ContractsSent,
		ConversionRate:   kpi.ConversionRate,
	}
}

// SectionResponse is one population section of the SLA report.
type SectionResponse struct {
	Grade            string  `json:"grade"`
	Route            string  `json:"route"`
	TotalRouted      int     `json:"totalRouted"`
	Actioned         int     `json:"actioned"`
	WithinSLA        int     `json:"withinSla"`
	Missed           int     `json:"missed"`
	AvgMinutes       float64 `json:"avgMinutes"`
	SLACompliancePct float64 `json:"slaCompliancePct"`
}

// PerformanceResponse is the population-wide routing SLA report.
type PerformanceResponse struct {
	StartDate        time.Time       `json:"startDate"`
	EndDate          time.Time       `json:"endDate"`
	CloserSection    SectionResponse `json:"closerSection"`
	DialerSection    SectionResponse `json:"dialerSection"`
	OverridesByActor map[string]int  `json:"overridesByActor"`
}

// ToPerformanceResponse maps the report, keying override counts by actor ID.
func ToPerformanceResponse(report service.PerformanceReport) PerformanceResponse {
	overrides := make(map[string]int, len(report.OverridesByActor))
	for actorID, count := range report.OverridesByActor {
		overrides[actorID.String()] = count
	}
	return PerformanceResponse{
		StartDate:        report.StartDate,
		EndDate:          report.EndDate,
		CloserSection:    toSectionResponse(report.CloserSection),
		DialerSection:    toSectionResponse(report.DialerSection),
		OverridesByActor: overrides,
	}
}

func toSectionResponse(section service.SectionReport) SectionResponse {
	return SectionResponse{
		Grade:            section.Grade,
		Route:            section.Route,
		TotalRouted:      section.TotalRouted,
		Actioned:         section.Actioned,
		WithinSLA:        section.WithinSLA,
		Missed:           section.Missed,
		AvgMinutes:       section.AvgMinutes,
		SLACompliancePct: section.SLACompliancePct,
	}
}
