package scoring

import (
	"context"
	"errors"
	"testing"

	"dealflow_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleLead(strategy string) domain.Lead {
	return domain.Lead{
		Strategy:     strategy,
		PropertyType: "single_family",
		Beds:         intPtr(3),
		Baths:        floatPtr(2),
		SquareFeet:   intPtr(1500),
		YearBuilt:    intPtr(1975),
		BuyPrice:     floatPtr(60_000),
		ARV:          floatPtr(100_000),
		LocationTier: intPtr(2),
		Intake:       domain.DialerIntake{ConditionTier: "heavy"},
	}
}

func TestComputeWholesaleWorkedExample(t *testing.T) {
	// 50 base + 6.4 type + 4.8 beds/baths + 1.8 sqft + 4 year + 6.6 condition
	// + 18 spread + 0 arv + 4.5 location = 96.1, rounded to 96.
	result := Compute(sampleLead("wholesale"))

	if result.Score != 96 {
		t.Fatalf("score = %v, want 96", result.Score)
	}
	if result.Grade != domain.GradeA {
		t.Fatalf("grade = %s, want A", result.Grade)
	}
	if _, ok := result.Factors["buy_spread"]; !ok {
		t.Fatal("expected buy_spread factor to be recorded")
	}
	if _, ok := result.Factors["arv"]; ok {
		t.Fatal("zero-contribution factor must not be recorded")
	}
}

func TestComputeStrategySelectsWeightProfile(t *testing.T) {
	wholesale := Compute(sampleLead("wholesale"))
	rental := Compute(sampleLead("rental"))

	// Same facts, different weight profiles: the spread-heavy wholesale
	// profile values this deal higher than the location-led rental profile.
	if wholesale.Score != 96 || rental.Score != 95 {
		t.Fatalf("wholesale = %v rental = %v, want 96 and 95", wholesale.Score, rental.Score)
	}
}

func TestComputeUnknownStrategyUsesDefaultWeights(t *testing.T) {
	unknown := Compute(sampleLead("land_banking"))
	blank := Compute(sampleLead(""))
	if unknown.Score != blank.Score {
		t.Fatalf("unknown strategy score %v != default score %v", unknown.Score, blank.Score)
	}
}

func TestComputeEmptyLeadScoresBase(t *testing.T) {
	result := Compute(domain.Lead{})
	if result.Score != 50 {
		t.Fatalf("score = %v, want base 50", result.Score)
	}
	if result.Grade != domain.GradeC {
		t.Fatalf("grade = %s, want C", result.Grade)
	}
	if len(result.Factors) != 0 {
		t.Fatalf("expected no factors, got %v", result.Factors)
	}
}

func TestComputeClampsAtHundred(t *testing.T) {
	lead := domain.Lead{
		Strategy:     "flip",
		PropertyType: "single_family",
		Beds:         intPtr(4),
		Baths:        floatPtr(2.5),
		SquareFeet:   intPtr(2600),
		YearBuilt:    intPtr(1950),
		BuyPrice:     floatPtr(120_000),
		ARV:          floatPtr(300_000),
		LocationTier: intPtr(1),
		Intake:       domain.DialerIntake{ConditionTier: "heavy"},
	}

	result := Compute(lead)
	if result.Score != 100 {
		t.Fatalf("score = %v, want clamp at 100", result.Score)
	}
}

type fakeStore struct {
	lead         domain.Lead
	savedScore   *domain.LeadScore
	savedFactors map[string]float64
}

func (f *fakeStore) GetByID(_ context.Context, _, _ uuid.UUID) (domain.Lead, error) {
	return f.lead, nil
}

func (f *fakeStore) SaveScore(_ context.Context, _, _ uuid.UUID, score domain.LeadScore, factors map[string]float64) (domain.Lead, error) {
	f.savedScore = &score
	f.savedFactors = factors
	lead := f.lead
	lead.Score = &score
	return lead, nil
}

type fakeRouter struct {
	routedWith *domain.Lead
	err        error
}

func (f *fakeRouter) Route(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	f.routedWith = &lead
	if f.err != nil {
		return domain.Lead{}, f.err
	}
	return lead, nil
}

func TestRescoreRoutesWithFreshScore(t *testing.T) {
	store := &fakeStore{lead: sampleLead("wholesale")}
	router := &fakeRouter{}
	svc := New(store, router, nil, nil)

	routed, err := svc.Rescore(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedScore == nil || store.savedScore.Score != 96 {
		t.Fatalf("saved score = %+v, want 96", store.savedScore)
	}
	if router.routedWith == nil || router.routedWith.Score == nil {
		t.Fatal("routing must see the lead with its fresh score attached")
	}
	if router.routedWith.Score.Score != store.savedScore.Score {
		t.Fatal("routing saw a stale score")
	}
	if routed.Score == nil {
		t.Fatal("returned lead missing score")
	}
}

func TestRescoreRoutingFailureReturnsScoredLead(t *testing.T) {
	store := &fakeStore{lead: sampleLead("wholesale")}
	router := &fakeRouter{err: errors.New("routing down")}
	svc := New(store, router, nil, nil)

	lead, err := svc.Rescore(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("routing failure must not fail the rescore, got %v", err)
	}
	if lead.Score == nil || lead.Score.Score != 96 {
		t.Fatalf("expected scored lead back despite routing failure, got %+v", lead.Score)
	}
}
