// Package service aggregates raw activity events into weekly scorecards and
// SLA reports. Scorecards are lazy and idempotent per (user, weekStart): the
// first query for a week computes and stores the document, every later query
// returns it unmodified. Only an explicit manager override changes a stored
// scorecard.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/kpi/repository"
	"dealflow_backend/platform/apperr"
	"dealflow_backend/platform/logger"

	"github.com/google/uuid"
)

// Activity event types accepted by the ingest endpoint.
const (
	EventCallMade            = "call_made"
	EventConversation        = "conversation"
	EventIntakeCompleted     = "intake_completed"
	EventHandoffSent         = "handoff_sent"
	EventFollowupDone        = "followup_done"
	EventOfferSent           = "offer_sent"
	EventContractSent        = "contract_sent"
	EventComplianceViolation = "compliance_violation"
)

var validEventTypes = map[string]struct{}{
	EventCallMade:            {},
	EventConversation:        {},
	EventIntakeCompleted:     {},
	EventHandoffSent:         {},
	EventFollowupDone:        {},
	EventOfferSent:           {},
	EventContractSent:        {},
	EventComplianceViolation: {},
}

// Scorecard point budgets and thresholds.
const (
	intakeAccuracyMax  = 30.0
	callControlMax     = 20.0
	scriptAdherencePts = 15.0 // flat baseline, template-adherence signal reserved
	complianceMax      = 20.0
	compliancePenalty  = 5.0
	professionalismPts = 8.0

	certifiedThreshold  = 85.0
	retrainingThreshold = 60.0
)

// Certification outcomes.
const (
	OutcomeCertified   = "certified"
	OutcomeConditional = "conditional"
	OutcomeRetraining  = "retraining_required"
)

// Store is the repository surface the KPI service needs.
type Store interface {
	InsertEvent(ctx context.Context, event repository.Event) (repository.Event, error)
	CountEventsByType(ctx context.Context, tenantID, userID uuid.UUID, start, end time.Time) (map[string]int, error)
	GetScorecard(ctx context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (repository.Scorecard, error)
	GetScorecardByID(ctx context.Context, id, tenantID uuid.UUID) (repository.Scorecard, error)
	InsertScorecardIfAbsent(ctx context.Context, sc repository.Scorecard) error
	UpdateScorecard(ctx context.Context, sc repository.Scorecard) (repository.Scorecard, error)
	GetCloserKPI(ctx context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (repository.CloserKPI, error)
	InsertCloserKPIIfAbsent(ctx context.Context, kpi repository.CloserKPI) error
	ListScorecardUsers(ctx context.Context, start, end time.Time) ([]repository.UserKey, error)
	ListRoutedLeads(ctx context.Context, tenantID uuid.UUID, grade, route string, start, end time.Time) ([]repository.RoutedLead, error)
	CountOverridesByActor(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (map[uuid.UUID]int, error)
}

type Service struct {
	repo Store
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// RecordEvent appends one activity event after enum validation.
func (s *Service) RecordEvent(ctx context.Context, event repository.Event) (repository.Event, error) {
	if _, ok := validEventTypes[event.EventType]; !ok {
		return repository.Event{}, apperr.Validation("unknown event type: " + event.EventType).WithOp("kpi.RecordEvent")
	}

	inserted, err := s.repo.InsertEvent(ctx, event)
	if err != nil {
		return repository.Event{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.KpiEventRecorded{
			BaseEvent: events.NewBaseEvent(),
			EventID:   inserted.ID,
			TenantID:  inserted.TenantID,
			UserID:    inserted.UserID,
			LeadID:    inserted.LeadID,
			EventType: inserted.EventType,
		})
	}

	return inserted, nil
}

// WeekStart normalizes a time to its Monday 00:00 UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the preceding Monday
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

// Components is the scorecard point breakdown.
type Components struct {
	IntakeAccuracy  float64
	CallControl     float64
	ScriptAdherence float64
	Compliance      float64
	Professionalism float64
}

// Total sums the component scores.
func (c Components) Total() float64 {
	return round2(c.IntakeAccuracy + c.CallControl + c.ScriptAdherence + c.Compliance + c.Professionalism)
}

// ComputeComponents derives the point breakdown from weekly event counts.
func ComputeComponents(counts map[string]int) Components {
	calls := counts[EventCallMade]
	conversations := counts[EventConversation]
	intakes := counts[EventIntakeCompleted]
	violations := counts[EventComplianceViolation]

	return Components{
		IntakeAccuracy:  round2(ratio(intakes, conversations) * intakeAccuracyMax),
		CallControl:     round2(ratio(conversations, calls) * callControlMax),
		ScriptAdherence: scriptAdherencePts,
		Compliance:      math.Max(0, complianceMax-compliancePenalty*float64(violations)),
		Professionalism: professionalismPts,
	}
}

// OutcomeForTotal maps a total score to its certification outcome.
func OutcomeForTotal(total float64) string {
	switch {
	case total >= certifiedThreshold:
		return OutcomeCertified
	case total < retrainingThreshold:
		return OutcomeRetraining
	default:
		return OutcomeConditional
	}
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	r := float64(numerator) / float64(denominator)
	if r > 1 {
		return 1
	}
	return r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GetOrComputeScorecard returns the stored scorecard for the key, computing
// and storing it on first query. The insert-if-absent plus re-read makes the
// operation idempotent even under concurrent first queries.
func (s *Service) GetOrComputeScorecard(ctx context.Context, tenantID, userID uuid.UUID, role string, weekStart time.Time) (repository.Scorecard, error) {
	weekStart = WeekStart(weekStart)

	existing, err := s.repo.GetScorecard(ctx, tenantID, userID, weekStart)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Scorecard{}, err
	}

	counts, err := s.repo.CountEventsByType(ctx, tenantID, userID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return repository.Scorecard{}, err
	}

	components := ComputeComponents(counts)
	total := components.Total()
	sc := repository.Scorecard{
		TenantID:         tenantID,
		UserID:           userID,
		Role:             role,
		WeekStart:        weekStart,
		CallsMade:        counts[EventCallMade],
		Conversations:    counts[EventConversation],
		IntakesCompleted: counts[EventIntakeCompleted],
		Violations:       counts[EventComplianceViolation],
		IntakeAccuracy:   components.IntakeAccuracy,
		CallControl:      components.CallControl,
		ScriptAdherence:  components.ScriptAdherence,
		Compliance:       components.Compliance,
		Professionalism:  components.Professionalism,
		TotalScore:       total,
		Outcome:          OutcomeForTotal(total),
	}

	if err := s.repo.InsertScorecardIfAbsent(ctx, sc); err != nil {
		return repository.Scorecard{}, err
	}

	// Re-read so concurrent first queries all observe the same stored row.
	stored, err := s.repo.GetScorecard(ctx, tenantID, userID, weekStart)
	if err != nil {
		return repository.Scorecard{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ScorecardFinalized{
			BaseEvent:   events.NewBaseEvent(),
			ScorecardID: stored.ID,
			TenantID:    stored.TenantID,
			UserID:      stored.UserID,
			WeekStart:   stored.WeekStart,
			TotalScore:  stored.TotalScore,
			Outcome:     stored.Outcome,
		})
	}

	return stored, nil
}

// OverrideInput carries a manager's component overrides. Nil fields keep the
// stored value.
type OverrideInput struct {
	IntakeAccuracy  *float64
	CallControl     *float64
	ScriptAdherence *float64
	Compliance      *float64
	Professionalism *float64
}

// OverrideScorecard applies a manager override, recomputing the total and
// outcome from the adjusted components.
func (s *Service) OverrideScorecard(ctx context.Context, id, tenantID, managerID uuid.UUID, input OverrideInput) (repository.Scorecard, error) {
	sc, err := s.repo.GetScorecardByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Scorecard{}, apperr.NotFound("scorecard not found").WithOp("kpi.OverrideScorecard")
		}
		return repository.Scorecard{}, err
	}

	apply := func(dst *float64, src *float64, max float64) error {
		if src == nil {
			return nil
		}
		if *src < 0 || *src > max {
			return apperr.Validation("component score out of range").WithOp("kpi.OverrideScorecard")
		}
		*dst = *src
		return nil
	}

	if err := apply(&sc.IntakeAccuracy, input.IntakeAccuracy, intakeAccuracyMax); err != nil {
		return repository.Scorecard{}, err
	}
	if err := apply(&sc.CallControl, input.CallControl, callControlMax); err != nil {
		return repository.Scorecard{}, err
	}
	if err := apply(&sc.ScriptAdherence, input.ScriptAdherence, scriptAdherencePts); err != nil {
		return repository.Scorecard{}, err
	}
	if err := apply(&sc.Compliance, input.Compliance, complianceMax); err != nil {
		return repository.Scorecard{}, err
	}
	if err := apply(&sc.Professionalism, input.Professionalism, 10); err != nil {
		return repository.Scorecard{}, err
	}

	sc.TotalScore = round2(sc.IntakeAccuracy + sc.CallControl + sc.ScriptAdherence + sc.Compliance + sc.Professionalism)
	sc.Outcome = OutcomeForTotal(sc.TotalScore)
	sc.OverriddenBy = &managerID

	updated, err := s.repo.UpdateScorecard(ctx, sc)
	if err != nil {
		return repository.Scorecard{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.ScorecardFinalized{
			BaseEvent:   events.NewBaseEvent(),
			ScorecardID: updated.ID,
			TenantID:    updated.TenantID,
			UserID:      updated.UserID,
			WeekStart:   updated.WeekStart,
			TotalScore:  updated.TotalScore,
			Outcome:     updated.Outcome,
		})
	}

	return updated, nil
}

// GetOrComputeCloserKPI lazily materializes the closer weekly aggregate.
func (s *Service) GetOrComputeCloserKPI(ctx context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (repository.CloserKPI, error) {
	weekStart = WeekStart(weekStart)

	existing, err := s.repo.GetCloserKPI(ctx, tenantID, userID, weekStart)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.CloserKPI{}, err
	}

	counts, err := s.repo.CountEventsByType(ctx, tenantID, userID, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return repository.CloserKPI{}, err
	}

	kpi := repository.CloserKPI{
		TenantID:         tenantID,
		UserID:           userID,
		WeekStart:        weekStart,
		HandoffsReceived: counts[EventHandoffSent],
		OffersSent:       counts[EventOfferSent],
		ContractsSent:    counts[EventContractSent],
	}
	if kpi.OffersSent > 0 {
		kpi.ConversionRate = round2(float64(kpi.ContractsSent) / float64(kpi.OffersSent))
	}

	if err := s.repo.InsertCloserKPIIfAbsent(ctx, kpi); err != nil {
		return repository.CloserKPI{}, err
	}
	return s.repo.GetCloserKPI(ctx, tenantID, userID, weekStart)
}

// MaterializeWeeklyScorecards computes scorecards for every user active in
// the given week. Called by the scheduler so Monday queries hit warm rows.
func (s *Service) MaterializeWeeklyScorecards(ctx context.Context, weekStart time.Time) (int, error) {
	weekStart = WeekStart(weekStart)

	users, err := s.repo.ListScorecardUsers(ctx, weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		return 0, err
	}

	materialized := 0
	for _, user := range users {
		if _, err := s.GetOrComputeScorecard(ctx, user.TenantID, user.UserID, user.Role, weekStart); err != nil {
			if s.log != nil {
				s.log.Error("scorecard materialization failed",
					"tenant_id", user.TenantID.String(), "user_id", user.UserID.String(), "error", err)
			}
			continue
		}
		materialized++
	}
	return materialized, nil
}
