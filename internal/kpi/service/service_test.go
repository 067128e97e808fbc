package service

import (
	"context"
	"testing"
	"time"

	"dealflow_backend/internal/kpi/repository"

	"github.com/google/uuid"
)

func TestWeekStartNormalizesToMondayUTC(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"wednesday mid-week",
			time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday stays put",
			time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday belongs to the preceding monday",
			time.Date(2026, 3, 8, 1, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeekStart(tc.in); !got.Equal(tc.want) {
				t.Fatalf("WeekStart(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestWeekStartIsIdempotent(t *testing.T) {
	in := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)
	once := WeekStart(in)
	if !WeekStart(once).Equal(once) {
		t.Fatal("WeekStart of a week start must be a fixpoint")
	}
}

func TestComputeComponentsWorkedExample(t *testing.T) {
	// 10 calls, 6 conversations, 5 intakes, 0 violations:
	// intake 5/6*30=25, control 6/10*20=12, script 15, compliance 20, prof 8.
	counts := map[string]int{
		EventCallMade:        10,
		EventConversation:    6,
		EventIntakeCompleted: 5,
	}

	c := ComputeComponents(counts)
	if c.IntakeAccuracy != 25 {
		t.Errorf("intake accuracy = %v, want 25", c.IntakeAccuracy)
	}
	if c.CallControl != 12 {
		t.Errorf("call control = %v, want 12", c.CallControl)
	}
	if c.ScriptAdherence != 15 {
		t.Errorf("script adherence = %v, want 15", c.ScriptAdherence)
	}
	if c.Compliance != 20 {
		t.Errorf("compliance = %v, want 20", c.Compliance)
	}
	if c.Professionalism != 8 {
		t.Errorf("professionalism = %v, want 8", c.Professionalism)
	}
	if c.Total() != 80 {
		t.Errorf("total = %v, want 80", c.Total())
	}
	if OutcomeForTotal(c.Total()) != OutcomeConditional {
		t.Errorf("outcome = %s, want conditional", OutcomeForTotal(c.Total()))
	}
}

func TestComputeComponentsRatiosCapAtOne(t *testing.T) {
	// More intakes than conversations and more conversations than calls:
	// ratios cap at 1.0, never exceed the component budget.
	counts := map[string]int{
		EventCallMade:        2,
		EventConversation:    5,
		EventIntakeCompleted: 9,
	}

	c := ComputeComponents(counts)
	if c.IntakeAccuracy != 30 {
		t.Errorf("intake accuracy = %v, want capped 30", c.IntakeAccuracy)
	}
	if c.CallControl != 20 {
		t.Errorf("call control = %v, want capped 20", c.CallControl)
	}
}

func TestComputeComponentsZeroDenominators(t *testing.T) {
	c := ComputeComponents(map[string]int{})
	if c.IntakeAccuracy != 0 || c.CallControl != 0 {
		t.Fatalf("empty week must score 0 on ratio components, got %+v", c)
	}
	// Flat components still accrue: 0+0+15+20+8 = 43, retraining.
	if c.Total() != 43 {
		t.Fatalf("total = %v, want 43", c.Total())
	}
	if OutcomeForTotal(c.Total()) != OutcomeRetraining {
		t.Fatal("empty week must map to retraining_required")
	}
}

func TestComputeComponentsViolationsPenalty(t *testing.T) {
	cases := []struct {
		violations int
		want       float64
	}{
		{0, 20},
		{1, 15},
		{3, 5},
		{4, 0},
		{7, 0}, // floor at zero, never negative
	}

	for _, tc := range cases {
		c := ComputeComponents(map[string]int{EventComplianceViolation: tc.violations})
		if c.Compliance != tc.want {
			t.Errorf("%d violations: compliance = %v, want %v", tc.violations, c.Compliance, tc.want)
		}
	}
}

func TestOutcomeForTotalThresholds(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{100, OutcomeCertified},
		{85, OutcomeCertified},
		{84.99, OutcomeConditional},
		{60, OutcomeConditional},
		{59.99, OutcomeRetraining},
		{0, OutcomeRetraining},
	}

	for _, tc := range cases {
		if got := OutcomeForTotal(tc.total); got != tc.want {
			t.Errorf("OutcomeForTotal(%v) = %s, want %s", tc.total, got, tc.want)
		}
	}
}

// scorecardStore is an in-memory Store for scorecard lifecycle tests.
type scorecardStore struct {
	counts       map[string]int
	scorecards   map[string]repository.Scorecard
	closerKPIs   map[string]repository.CloserKPI
	insertCalls  int
	computePulls int
}

func newScorecardStore(counts map[string]int) *scorecardStore {
	return &scorecardStore{
		counts:     counts,
		scorecards: make(map[string]repository.Scorecard),
		closerKPIs: make(map[string]repository.CloserKPI),
	}
}

func scKey(tenantID, userID uuid.UUID, weekStart time.Time) string {
	return tenantID.String() + "/" + userID.String() + "/" + weekStart.Format(time.RFC3339)
}

func (f *scorecardStore) InsertEvent(_ context.Context, event repository.Event) (repository.Event, error) {
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	return event, nil
}

func (f *scorecardStore) CountEventsByType(_ context.Context, _, _ uuid.UUID, _, _ time.Time) (map[string]int, error) {
	f.computePulls++
	return f.counts, nil
}

func (f *scorecardStore) GetScorecard(_ context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (repository.Scorecard, error) {
	sc, ok := f.scorecards[scKey(tenantID, userID, weekStart)]
	if !ok {
		return repository.Scorecard{}, repository.ErrNotFound
	}
	return sc, nil
}

func (f *scorecardStore) GetScorecardByID(_ context.Context, id, tenantID uuid.UUID) (repository.Scorecard, error) {
	for _, sc := range f.scorecards {
		if sc.ID == id && sc.TenantID == tenantID {
			return sc, nil
		}
	}
	return repository.Scorecard{}, repository.ErrNotFound
}

func (f *scorecardStore) InsertScorecardIfAbsent(_ context.Context, sc repository.Scorecard) error {
	f.insertCalls++
	key := scKey(sc.TenantID, sc.UserID, sc.WeekStart)
	if _, exists := f.scorecards[key]; exists {
		return nil
	}
	sc.ID = uuid.New()
	f.scorecards[key] = sc
	return nil
}

func (f *scorecardStore) UpdateScorecard(_ context.Context, sc repository.Scorecard) (repository.Scorecard, error) {
	for key, existing := range f.scorecards {
		if existing.ID == sc.ID {
			f.scorecards[key] = sc
			return sc, nil
		}
	}
	return repository.Scorecard{}, repository.ErrNotFound
}

func (f *scorecardStore) GetCloserKPI(_ context.Context, tenantID, userID uuid.UUID, weekStart time.Time) (repository.CloserKPI, error) {
	kpi, ok := f.closerKPIs[scKey(tenantID, userID, weekStart)]
	if !ok {
		return repository.CloserKPI{}, repository.ErrNotFound
	}
	return kpi, nil
}

func (f *scorecardStore) InsertCloserKPIIfAbsent(_ context.Context, kpi repository.CloserKPI) error {
	key := scKey(kpi.TenantID, kpi.UserID, kpi.WeekStart)
	if _, exists := f.closerKPIs[key]; exists {
		return nil
	}
	kpi.ID = uuid.New()
	f.closerKPIs[key] = kpi
	return nil
}

func (f *scorecardStore) ListScorecardUsers(_ context.Context, _, _ time.Time) ([]repository.UserKey, error) {
	return nil, nil
}

func (f *scorecardStore) ListRoutedLeads(_ context.Context, _ uuid.UUID, _, _ string, _, _ time.Time) ([]repository.RoutedLead, error) {
	return nil, nil
}

func (f *scorecardStore) CountOverridesByActor(_ context.Context, _ uuid.UUID, _, _ time.Time) (map[uuid.UUID]int, error) {
	return nil, nil
}

func TestGetOrComputeScorecardIsLazyAndIdempotent(t *testing.T) {
	store := newScorecardStore(map[string]int{
		EventCallMade:        10,
		EventConversation:    6,
		EventIntakeCompleted: 5,
	})
	svc := New(store, nil, nil)

	tenantID, userID := uuid.New(), uuid.New()
	week := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	first, err := svc.GetOrComputeScorecard(context.Background(), tenantID, userID, "dialer", week)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalScore != 80 || first.Outcome != OutcomeConditional {
		t.Fatalf("first = %v/%s, want 80/conditional", first.TotalScore, first.Outcome)
	}
	if !first.WeekStart.Equal(WeekStart(week)) {
		t.Fatal("scorecard must be keyed to the normalized week start")
	}

	// Second query returns the stored document without recomputing.
	second, err := svc.GetOrComputeScorecard(context.Background(), tenantID, userID, "dialer", week)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("second query must return the stored row")
	}
	if store.computePulls != 1 {
		t.Fatalf("event counts pulled %d times, want 1", store.computePulls)
	}
}

func TestOverrideScorecardRecomputesTotalAndOutcome(t *testing.T) {
	store := newScorecardStore(map[string]int{
		EventCallMade:        10,
		EventConversation:    6,
		EventIntakeCompleted: 5,
	})
	svc := New(store, nil, nil)

	tenantID, userID, managerID := uuid.New(), uuid.New(), uuid.New()
	week := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

	sc, err := svc.GetOrComputeScorecard(context.Background(), tenantID, userID, "dialer", week)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intake := 30.0
	control := 20.0
	updated, err := svc.OverrideScorecard(context.Background(), sc.ID, tenantID, managerID, OverrideInput{
		IntakeAccuracy: &intake,
		CallControl:    &control,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.TotalScore != 93 {
		t.Fatalf("total = %v, want 93", updated.TotalScore)
	}
	if updated.Outcome != OutcomeCertified {
		t.Fatalf("outcome = %s, want certified", updated.Outcome)
	}
	if updated.OverriddenBy == nil || *updated.OverriddenBy != managerID {
		t.Fatal("override must record the acting manager")
	}
}

func TestOverrideScorecardRejectsOutOfRangeComponents(t *testing.T) {
	store := newScorecardStore(map[string]int{EventCallMade: 1})
	svc := New(store, nil, nil)

	tenantID, userID := uuid.New(), uuid.New()
	week := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	sc, err := svc.GetOrComputeScorecard(context.Background(), tenantID, userID, "dialer", week)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	over := 31.0
	if _, err := svc.OverrideScorecard(context.Background(), sc.ID, tenantID, uuid.New(), OverrideInput{IntakeAccuracy: &over}); err == nil {
		t.Fatal("expected validation error for over-budget component")
	}

	negative := -1.0
	if _, err := svc.OverrideScorecard(context.Background(), sc.ID, tenantID, uuid.New(), OverrideInput{Compliance: &negative}); err == nil {
		t.Fatal("expected validation error for negative component")
	}
}

func TestGetOrComputeCloserKPI(t *testing.T) {
	store := newScorecardStore(map[string]int{
		EventHandoffSent:  8,
		EventOfferSent:    5,
		EventContractSent: 2,
	})
	svc := New(store, nil, nil)

	kpi, err := svc.GetOrComputeCloserKPI(context.Background(), uuid.New(), uuid.New(), time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpi.HandoffsReceived != 8 || kpi.OffersSent != 5 || kpi.ContractsSent != 2 {
		t.Fatalf("counts = %+v", kpi)
	}
	if kpi.ConversionRate != 0.4 {
		t.Fatalf("conversion = %v, want 0.4", kpi.ConversionRate)
	}
}

func TestCloserKPIConversionZeroWithoutOffers(t *testing.T) {
	store := newScorecardStore(map[string]int{EventHandoffSent: 3})
	svc := New(store, nil, nil)

	kpi, err := svc.GetOrComputeCloserKPI(context.Background(), uuid.New(), uuid.New(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpi.ConversionRate != 0 {
		t.Fatalf("conversion = %v, want 0 when no offers sent", kpi.ConversionRate)
	}
}

func TestRecordEventRejectsUnknownType(t *testing.T) {
	svc := New(newScorecardStore(nil), nil, nil)

	_, err := svc.RecordEvent(context.Background(), repository.Event{
		TenantID:  uuid.New(),
		UserID:    uuid.New(),
		EventType: "coffee_break",
	})
	if err == nil {
		t.Fatal("expected validation error for unknown event type")
	}
}

func TestRecordEventAcceptsAllKnownTypes(t *testing.T) {
	svc := New(newScorecardStore(nil), nil, nil)

	for _, eventType := range []string{
		EventCallMade, EventConversation, EventIntakeCompleted, EventHandoffSent,
		EventFollowupDone, EventOfferSent, EventContractSent, EventComplianceViolation,
	} {
		if _, err := svc.RecordEvent(context.Background(), repository.Event{
			TenantID:  uuid.New(),
			UserID:    uuid.New(),
			EventType: eventType,
		}); err != nil {
			t.Errorf("RecordEvent(%s) unexpected error: %v", eventType, err)
		}
	}
}
