package domain

import (
	"testing"
	"time"
)

func TestGradeForScoreBreakpoints(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{100, GradeA},
		{80, GradeA},
		{79.9, GradeB},
		{65, GradeB},
		{64.9, GradeC},
		{50, GradeC},
		{49.9, GradeD},
		{35, GradeD},
		{34.9, GradeDead},
		{0, GradeDead},
	}

	for _, tc := range cases {
		if got := GradeForScore(tc.score); got != tc.want {
			t.Errorf("GradeForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestEscalateRaisesOneLevelAndCapsAtUrgent(t *testing.T) {
	cases := []struct {
		from, want Priority
	}{
		{PriorityLow, PriorityNormal},
		{PriorityNormal, PriorityHigh},
		{PriorityHigh, PriorityUrgent},
		{PriorityUrgent, PriorityUrgent},
	}

	for _, tc := range cases {
		if got := Escalate(tc.from); got != tc.want {
			t.Errorf("Escalate(%s) = %s, want %s", tc.from, got, tc.want)
		}
	}
}

func TestHasActiveHandoff(t *testing.T) {
	active := []HandoffStatus{HandoffCloserReview, HandoffOfferSent, HandoffContractSent, HandoffUnderContract}
	for _, status := range active {
		lead := Lead{Handoff: Handoff{Status: status}}
		if !lead.HasActiveHandoff() {
			t.Errorf("expected %s to count as active handoff", status)
		}
	}

	inactive := []HandoffStatus{HandoffNone, HandoffBackToDialer, ""}
	for _, status := range inactive {
		lead := Lead{Handoff: Handoff{Status: status}}
		if lead.HasActiveHandoff() {
			t.Errorf("expected %s to not count as active handoff", status)
		}
	}
}

func TestCurrentGradeDefaultsToDeadWhenUnscored(t *testing.T) {
	lead := Lead{}
	if got := lead.CurrentGrade(); got != GradeDead {
		t.Fatalf("unscored lead grade = %s, want Dead", got)
	}

	lead.Score = &LeadScore{Score: 72, Grade: GradeB, EvaluatedAt: time.Now()}
	if got := lead.CurrentGrade(); got != GradeB {
		t.Fatalf("scored lead grade = %s, want B", got)
	}
}

func TestRankOrdersAreStrict(t *testing.T) {
	if GradeRank(GradeA) >= GradeRank(GradeB) || GradeRank(GradeD) >= GradeRank(GradeDead) {
		t.Fatal("grade ranks out of order")
	}
	if RouteRank(RouteImmediateCloser) >= RouteRank(RouteDialerPriority) {
		t.Fatal("route ranks out of order")
	}
	if RouteRank("") <= RouteRank(RouteArchive) {
		t.Fatal("unrouted must rank after archive")
	}
	if PriorityRank(PriorityUrgent) >= PriorityRank(PriorityLow) {
		t.Fatal("priority ranks out of order")
	}
	if PriorityRank("") != PriorityRank(PriorityNormal) {
		t.Fatal("unset priority must rank as normal")
	}
}
