package queue

import (
	"fmt"
	"testing"
	"time"

	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/apperr"

	"github.com/google/uuid"
)

var baseTime = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func activeLead(opts ...func(*domain.Lead)) domain.Lead {
	lead := domain.Lead{
		ID:        uuid.New(),
		Status:    "active",
		LeadTier:  "warm",
		UpdatedAt: baseTime,
	}
	for _, opt := range opts {
		opt(&lead)
	}
	return lead
}

func withRouting(route domain.Route, priority domain.Priority) func(*domain.Lead) {
	return func(l *domain.Lead) {
		l.Routing = &domain.Routing{Route: route, Priority: priority}
	}
}

func withScore(score float64) func(*domain.Lead) {
	return func(l *domain.Lead) {
		l.Score = &domain.LeadScore{Score: score, Grade: domain.GradeForScore(score)}
	}
}

func TestParseFilter(t *testing.T) {
	for _, raw := range []string{"", "all", "new", "follow-up", "hot", "needs-missing-data", "escalated"} {
		if _, err := ParseFilter(raw); err != nil {
			t.Errorf("ParseFilter(%q) unexpected error: %v", raw, err)
		}
	}

	_, err := ParseFilter("stale")
	if err == nil {
		t.Fatal("expected validation error for unknown filter")
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLessOrdersByPriorityRouteGradeScoreRecency(t *testing.T) {
	urgent := activeLead(withScore(40), withRouting(domain.RouteNurture, domain.PriorityUrgent))
	high := activeLead(withScore(90), withRouting(domain.RouteImmediateCloser, domain.PriorityHigh))
	if !Less(urgent, high) {
		t.Fatal("priority must outrank route and grade")
	}

	closerRoute := activeLead(withScore(40), withRouting(domain.RouteImmediateCloser, domain.PriorityHigh))
	dialerRoute := activeLead(withScore(90), withRouting(domain.RouteDialerPriority, domain.PriorityHigh))
	if !Less(closerRoute, dialerRoute) {
		t.Fatal("route must outrank grade within equal priority")
	}

	gradeB := activeLead(withScore(70), withRouting(domain.RouteNurture, domain.PriorityNormal))
	gradeC := activeLead(withScore(55), withRouting(domain.RouteNurture, domain.PriorityNormal))
	if !Less(gradeB, gradeC) {
		t.Fatal("grade must break route ties")
	}

	highScore := activeLead(withScore(78), withRouting(domain.RouteNurture, domain.PriorityNormal))
	lowScore := activeLead(withScore(66), withRouting(domain.RouteNurture, domain.PriorityNormal))
	if !Less(highScore, lowScore) {
		t.Fatal("score desc must break grade ties")
	}

	fresh := activeLead(withScore(70), withRouting(domain.RouteNurture, domain.PriorityNormal))
	stale := activeLead(withScore(70), withRouting(domain.RouteNurture, domain.PriorityNormal))
	stale.UpdatedAt = baseTime.Add(-time.Hour)
	if !Less(fresh, stale) {
		t.Fatal("updatedAt desc must break full ties")
	}
}

func TestBuildDialerTruncatesAfterFullSort(t *testing.T) {
	leads := make([]domain.Lead, 0, PageSize+10)
	for i := 0; i < PageSize+9; i++ {
		leads = append(leads, activeLead(withScore(40), withRouting(domain.RouteNurture, domain.PriorityLow)))
	}
	// An urgent lead appended last must survive truncation because the sort
	// runs over the full set first.
	urgent := activeLead(withScore(90), withRouting(domain.RouteImmediateCloser, domain.PriorityUrgent))
	leads = append(leads, urgent)

	got := BuildDialer(leads, FilterAll, baseTime)
	if len(got) != PageSize {
		t.Fatalf("len = %d, want %d", len(got), PageSize)
	}
	if got[0].ID != urgent.ID {
		t.Fatal("urgent lead appended last must rank first after full sort")
	}
}

func TestBuildDialerExcludesColdTier(t *testing.T) {
	cold := activeLead(withScore(90))
	cold.LeadTier = "cold"

	got := BuildDialer([]domain.Lead{cold}, FilterAll, baseTime)
	if len(got) != 0 {
		t.Fatal("cold-tier leads must never appear in the dialer queue")
	}
}

func TestBuildDialerNewFilterSurfacesUntouchedLeads(t *testing.T) {
	fresh := activeLead()
	fresh.Status = "new"
	worked := activeLead(withScore(70))
	completed := baseTime
	worked.Intake.IntakeCompletedAt = &completed

	all := BuildDialer([]domain.Lead{fresh, worked}, FilterAll, baseTime)
	if len(all) != 1 || all[0].ID != worked.ID {
		t.Fatalf("all filter must exclude status-new leads, got %d", len(all))
	}

	newOnes := BuildDialer([]domain.Lead{fresh, worked}, FilterNew, baseTime)
	if len(newOnes) != 1 || newOnes[0].ID != fresh.ID {
		t.Fatalf("new filter must surface untouched leads, got %d", len(newOnes))
	}
}

func TestBuildDialerWorkModeFilters(t *testing.T) {
	due := baseTime.Add(-time.Hour)
	notDue := baseTime.Add(time.Hour)
	escalatedAt := baseTime.Add(-2 * time.Hour)
	completed := baseTime

	followUp := activeLead()
	followUp.FollowUpDue = &due
	followUp.Intake.IntakeCompletedAt = &completed

	future := activeLead()
	future.FollowUpDue = &notDue
	future.Intake.IntakeCompletedAt = &completed

	hot := activeLead()
	hot.Intake.MotivationRating = 4
	hot.Intake.IntakeCompletedAt = &completed

	lukewarm := activeLead()
	lukewarm.Intake.MotivationRating = 3
	lukewarm.Intake.IntakeCompletedAt = &completed

	bounced := activeLead()
	bounced.Handoff.Status = domain.HandoffBackToDialer
	bounced.Intake.IntakeCompletedAt = &completed

	escalated := activeLead()
	escalated.EscalatedAt = &escalatedAt
	escalated.Intake.IntakeCompletedAt = &completed

	pool := []domain.Lead{followUp, future, hot, lukewarm, bounced, escalated}

	cases := []struct {
		filter Filter
		want   uuid.UUID
		count  int
	}{
		{FilterFollowUp, followUp.ID, 1},
		{FilterHot, hot.ID, 1},
		{FilterNeedsMissingData, bounced.ID, 1},
		{FilterEscalated, escalated.ID, 1},
	}

	for _, tc := range cases {
		t.Run(string(tc.filter), func(t *testing.T) {
			got := BuildDialer(pool, tc.filter, baseTime)
			if len(got) != tc.count {
				t.Fatalf("len = %d, want %d", len(got), tc.count)
			}
			if got[0].ID != tc.want {
				t.Fatal("wrong lead surfaced")
			}
		})
	}
}

func TestBuildCloserRequiresActiveHandoff(t *testing.T) {
	inReview := activeLead(withScore(85))
	inReview.Handoff.Status = domain.HandoffCloserReview

	bounced := activeLead(withScore(85))
	bounced.Handoff.Status = domain.HandoffBackToDialer

	untouched := activeLead(withScore(85))

	got := BuildCloser([]domain.Lead{inReview, bounced, untouched})
	if len(got) != 1 || got[0].ID != inReview.ID {
		t.Fatalf("closer queue = %d leads, want only the active handoff", len(got))
	}
}

func TestMaskSkipTrace(t *testing.T) {
	lead := activeLead()
	contacts := map[string][]domain.SkipTraceContact{
		lead.ID.String(): {
			{Kind: "phone", Value: "+15550001111"},
			{Kind: "email", Value: "owner@example.com"},
		},
	}

	masked := MaskSkipTrace([]domain.Lead{lead}, contacts, false)
	if masked[0].SkipTraceCount != 2 {
		t.Fatalf("count = %d, want 2", masked[0].SkipTraceCount)
	}
	if masked[0].SkipTraceContacts != nil {
		t.Fatal("dialer view must not include contact values")
	}

	revealed := MaskSkipTrace([]domain.Lead{lead}, contacts, true)
	if len(revealed[0].SkipTraceContacts) != 2 {
		t.Fatalf("revealed contacts = %d, want 2", len(revealed[0].SkipTraceContacts))
	}
}

func TestRankIsDeterministicForEqualKeys(t *testing.T) {
	leads := make([]domain.Lead, 0, 5)
	for i := 0; i < 5; i++ {
		lead := activeLead(withScore(60), withRouting(domain.RouteNurture, domain.PriorityNormal))
		lead.OwnerName = fmt.Sprintf("owner-%d", i)
		leads = append(leads, lead)
	}

	first := BuildDialer(leads, FilterAll, baseTime)
	second := BuildDialer(append([]domain.Lead(nil), leads...), FilterAll, baseTime)
	for i := range first {
		if first[i].OwnerName != second[i].OwnerName {
			t.Fatal("equal-key ordering must be stable across runs")
		}
	}
}
