// Package scoring computes the composite lead score and letter grade from
// property and underwriting attributes. Scoring is always followed by routing:
// the two are coupled at the call site so routing never sees a stale score.
package scoring

import (
	"context"
	"math"
	"strings"
	"time"

	"dealflow_backend/internal/events"
	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic significantly.
	scoreVersion = "2026-v1"

	// Base score - leads start at 50 and factors add/subtract from this.
	baseScore = 50.0
)

// strategyWeights defines how important each factor is for an acquisition
// strategy. Values are multipliers (0.0-1.5) applied to base factor scores.
type strategyWeights struct {
	propertyType float64 // Asset class fit
	bedsBaths    float64 // Bedroom/bathroom count
	squareFeet   float64 // Living area
	yearBuilt    float64 // Construction age (older = more improvement upside)
	condition    float64 // Reported condition tier
	buySpread    float64 // Buy price vs ARV margin
	arv          float64 // After-repair value band
	location     float64 // Location tier
}

// defaultStrategyWeights applies when the lead's strategy is unknown/generic.
var defaultStrategyWeights = strategyWeights{
	propertyType: 1.0,
	bedsBaths:    1.0,
	squareFeet:   1.0,
	yearBuilt:    1.0,
	condition:    1.0,
	buySpread:    1.0,
	arv:          1.0,
	location:     1.0,
}

// Strategy-specific weights:
// - Wholesale lives on margin: spread dominates, cosmetics barely matter.
// - Flips care about condition (scope drives budget) and resale location.
// - Rentals prioritize location and asset class over rehab upside.
var strategyWeightsMap = map[string]strategyWeights{
	"wholesale": {
		propertyType: 0.8,
		bedsBaths:    0.8,
		squareFeet:   0.9,
		yearBuilt:    1.0,
		condition:    1.1, // Distress is the product
		buySpread:    1.5, // Assignment fee comes straight out of the spread
		arv:          1.0,
		location:     0.9,
	},
	"flip": {
		propertyType: 1.0,
		bedsBaths:    1.1,
		squareFeet:   1.0,
		yearBuilt:    1.2, // Older stock = forced-appreciation upside
		condition:    1.3,
		buySpread:    1.3,
		arv:          1.2, // Resale band matters
		location:     1.2,
	},
	"rental": {
		propertyType: 1.2,
		bedsBaths:    1.1,
		squareFeet:   0.9,
		yearBuilt:    0.8,
		condition:    0.8, // Turnkey preferred, light rehab acceptable
		buySpread:    1.0,
		arv:          0.8,
		location:     1.4, // Tenant demand is everything
	},
}

// Result holds scoring output and factor details.
type Result struct {
	Score       float64
	Grade       domain.Grade
	Factors     map[string]float64
	Version     string
	EvaluatedAt time.Time
}

// LeadStore is the repository surface the scoring service needs.
type LeadStore interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (domain.Lead, error)
	SaveScore(ctx context.Context, id, tenantID uuid.UUID, score domain.LeadScore, factors map[string]float64) (domain.Lead, error)
}

// Router re-evaluates routing for a freshly scored lead. Implemented by the
// routing service; declared here so scoring owns the coupling contract.
type Router interface {
	Route(ctx context.Context, lead domain.Lead) (domain.Lead, error)
}

// Service computes and persists lead scores, then routes.
type Service struct {
	store  LeadStore
	router Router
	bus    events.Bus
	log    *logger.Logger
}

// New creates a new scoring service.
func New(store LeadStore, router Router, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, router: router, bus: bus, log: log}
}

// Rescore recomputes the score for a lead, persists it, and unconditionally
// invokes routing with the updated lead. Callers treat failures as
// non-critical: a failed rescore must never block the triggering user action.
func (s *Service) Rescore(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return domain.Lead{}, err
	}

	result := Compute(lead)

	scored, err := s.store.SaveScore(ctx, leadID, tenantID, domain.LeadScore{
		Score:       result.Score,
		Grade:       result.Grade,
		EvaluatedAt: result.EvaluatedAt,
	}, result.Factors)
	if err != nil {
		return domain.Lead{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadScored{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			TenantID:  tenantID,
			Score:     result.Score,
			Grade:     string(result.Grade),
		})
	}

	// Routing always runs against the score just written, never a stale one.
	routed, err := s.router.Route(ctx, scored)
	if err != nil {
		if s.log != nil {
			s.log.SideEffectError("routing", leadID.String(), err)
		}
		return scored, nil
	}

	return routed, nil
}

// Compute produces the weighted composite score and grade for a lead.
// Pure function: no I/O, deterministic for a given lead snapshot.
func Compute(lead domain.Lead) Result {
	weights := weightsForStrategy(lead.Strategy)

	score := baseScore
	factors := map[string]float64{}

	score += addFactor(factors, "property_type", scorePropertyType(lead.PropertyType)*weights.propertyType)
	score += addFactor(factors, "beds_baths", scoreBedsBaths(lead.Beds, lead.Baths)*weights.bedsBaths)
	score += addFactor(factors, "square_feet", scoreSquareFeet(lead.SquareFeet)*weights.squareFeet)
	score += addFactor(factors, "year_built", scoreYearBuilt(lead.YearBuilt)*weights.yearBuilt)
	score += addFactor(factors, "condition", scoreCondition(lead.Intake.ConditionTier)*weights.condition)
	score += addFactor(factors, "buy_spread", scoreBuySpread(lead.BuyPrice, lead.ARV)*weights.buySpread)
	score += addFactor(factors, "arv", scoreARV(lead.ARV)*weights.arv)
	score += addFactor(factors, "location", scoreLocation(lead.LocationTier)*weights.location)

	clamped := clampScore(score)
	return Result{
		Score:       clamped,
		Grade:       domain.GradeForScore(clamped),
		Factors:     factors,
		Version:     scoreVersion,
		EvaluatedAt: time.Now().UTC(),
	}
}

func weightsForStrategy(strategy string) strategyWeights {
	if w, ok := strategyWeightsMap[strings.ToLower(strings.TrimSpace(strategy))]; ok {
		return w
	}
	return defaultStrategyWeights
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	// Round to 1 decimal place for cleaner factor display
	factors[key] = math.Round(value*10) / 10
	return value
}

// scorePropertyType evaluates asset class. Single-family moves fastest with
// the widest buyer pool; land and mobile homes are hard exits.
func scorePropertyType(propertyType string) float64 {
	switch strings.ToLower(strings.TrimSpace(propertyType)) {
	case "single_family":
		return 8
	case "duplex", "triplex", "fourplex", "multi_family":
		return 5
	case "townhouse":
		return 4
	case "condo":
		return 0
	case "mobile_home":
		return -6
	case "land":
		return -4
	default:
		return 0
	}
}

// scoreBedsBaths evaluates bed/bath count against what resells.
// 3/2 is the market sweet spot.
func scoreBedsBaths(beds *int, baths *float64) float64 {
	score := 0.0

	if beds != nil {
		switch {
		case *beds >= 4:
			score += 6
		case *beds == 3:
			score += 4
		case *beds == 2:
			score += 1
		default:
			score -= 2
		}
	}

	if baths != nil && *baths >= 2 {
		score += 2
	}

	return score
}

// scoreSquareFeet evaluates living area. Sub-800sqft properties have a thin
// buyer pool.
func scoreSquareFeet(sqft *int) float64 {
	if sqft == nil {
		return 0
	}
	switch {
	case *sqft >= 2500:
		return 5
	case *sqft >= 1800:
		return 4
	case *sqft >= 1200:
		return 2
	case *sqft >= 800:
		return 0
	default:
		return -3
	}
}

// scoreYearBuilt evaluates construction age. Older stock carries more
// improvement upside; very new builds leave nothing to add.
func scoreYearBuilt(year *int) float64 {
	if year == nil {
		return 0
	}
	switch {
	case *year < 1960:
		return 5
	case *year < 1980:
		return 4
	case *year < 1995:
		return 2
	case *year < 2010:
		return 1
	default:
		return -1
	}
}

// scoreCondition evaluates the dialer-reported condition tier. Heavy rehab is
// the acquisition opportunity; teardowns add demolition risk on top.
func scoreCondition(tier string) float64 {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "heavy":
		return 6
	case "medium":
		return 4
	case "light":
		return 2
	case "turnkey":
		return 0
	case "teardown":
		return -2
	default:
		return 0
	}
}

// scoreBuySpread evaluates the margin between buy price and ARV.
// This is the single most predictive factor for a closeable deal.
func scoreBuySpread(buyPrice, arv *float64) float64 {
	if buyPrice == nil || arv == nil || *arv <= 0 {
		return 0
	}
	margin := (*arv - *buyPrice) / *arv
	switch {
	case margin >= 0.40:
		return 12
	case margin >= 0.30:
		return 9
	case margin >= 0.25:
		return 6
	case margin >= 0.15:
		return 2
	default:
		return -4
	}
}

// scoreARV evaluates the after-repair value band. The disposition sweet spot
// is mid-market; very cheap and luxury stock both exit slowly.
func scoreARV(arv *float64) float64 {
	if arv == nil {
		return 0
	}
	switch {
	case *arv >= 150_000 && *arv <= 500_000:
		return 4
	case *arv > 500_000 && *arv <= 750_000:
		return 1
	case *arv > 750_000:
		return -2
	case *arv >= 80_000:
		return 0
	default:
		return -3
	}
}

// scoreLocation evaluates the location tier (1 best .. 5 worst).
func scoreLocation(tier *int) float64 {
	if tier == nil {
		return 0
	}
	switch *tier {
	case 1:
		return 8
	case 2:
		return 5
	case 3:
		return 2
	case 4:
		return 0
	default:
		return -4
	}
}

func clampScore(value float64) float64 {
	rounded := math.Round(value)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}
