package handoff

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"dealflow_backend/internal/leads/domain"
)

func completeIntake() domain.DialerIntake {
	return domain.DialerIntake{
		Occupancy:         "owner_occupied",
		ConditionTier:     "medium",
		MortgageStatus:    "current",
		MotivationRating:  4,
		Timeline:          "30 days",
		SellerReason:      "divorce",
		SellerFlexibility: "open to terms",
		AskingPrice:       "185000",
		ContactPreference: "evenings",
	}
}

func TestMissingFieldsCompleteIntakeIsEmpty(t *testing.T) {
	if got := MissingFields(completeIntake()); len(got) != 0 {
		t.Fatalf("complete intake reported missing fields: %v", got)
	}
}

func TestMissingFieldsEmptyIntakeReportsAllNine(t *testing.T) {
	got := MissingFields(domain.DialerIntake{})
	if !reflect.DeepEqual(got, RequiredIntakeFields()) {
		t.Fatalf("missing = %v, want all nine in canonical order", got)
	}
}

func TestMissingFieldsUnknownCountsAsMissing(t *testing.T) {
	intake := completeIntake()
	intake.MortgageStatus = "unknown"
	intake.Timeline = " Unknown "
	intake.SellerReason = "  "

	got := MissingFields(intake)
	want := []string{"mortgage_status", "timeline", "seller_reason"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("missing = %v, want %v (canonical order)", got, want)
	}
}

func TestMissingFieldsZeroMotivationRating(t *testing.T) {
	intake := completeIntake()
	intake.MotivationRating = 0

	got := MissingFields(intake)
	if !reflect.DeepEqual(got, []string{"motivation_rating"}) {
		t.Fatalf("missing = %v, want motivation_rating only", got)
	}
}

func summaryLead() domain.Lead {
	beds := 3
	baths := 2.0
	sqft := 1450
	year := 1972
	buy := 120_000.0
	arv := 210_000.0

	return domain.Lead{
		OwnerName:    "Dana Whitfield",
		AddressLine:  "412 Fernwood Ave",
		City:         "Tulsa",
		State:        "OK",
		Zip:          "74104",
		County:       "Tulsa",
		PropertyType: "single_family",
		Beds:         &beds,
		Baths:        &baths,
		SquareFeet:   &sqft,
		YearBuilt:    &year,
		BuyPrice:     &buy,
		ARV:          &arv,
		Intake:       completeIntake(),
		Score:        &domain.LeadScore{Score: 82, Grade: domain.GradeA, EvaluatedAt: time.Now()},
		Routing:      &domain.Routing{Route: domain.RouteImmediateCloser, Priority: domain.PriorityUrgent, SLAHours: 2},
	}
}

func TestGenerateSummaryCarriesEveryCapturedField(t *testing.T) {
	lead := summaryLead()
	lead.Intake.Notes = "Seller wants to close before school starts."

	summary := GenerateSummary(lead)
	fields := ParseSummaryFields(summary)

	want := map[string]string{
		"Owner":              "Dana Whitfield",
		"Address":            "412 Fernwood Ave, Tulsa, OK, 74104",
		"County":             "Tulsa",
		"Property Type":      "single_family",
		"Beds":               "3",
		"Baths":              "2",
		"Square Feet":        "1450",
		"Year Built":         "1972",
		"Occupancy":          "owner_occupied",
		"Condition Tier":     "medium",
		"Asking Price":       "185000",
		"Buy Price":          "120000",
		"ARV":                "210000",
		"Mortgage Status":    "current",
		"Motivation Rating":  "4",
		"Timeline":           "30 days",
		"Seller Reason":      "divorce",
		"Seller Flexibility": "open to terms",
		"Contact Preference": "evenings",
		"Score":              "82 (grade A)",
		"Route":              "immediate_closer (urgent, SLA 2h)",
	}

	for label, value := range want {
		if fields[label] != value {
			t.Errorf("field %q = %q, want %q", label, fields[label], value)
		}
	}

	if !strings.Contains(summary, lead.Intake.Notes) {
		t.Fatal("notes must appear verbatim")
	}
}

func TestGenerateSummaryHasFixedSectionOrder(t *testing.T) {
	summary := GenerateSummary(summaryLead())

	sections := []string{
		"=== PROPERTY SNAPSHOT ===",
		"=== FINANCIAL SNAPSHOT ===",
		"=== SELLER PSYCHOLOGY ===",
		"=== DIALER RECOMMENDATION ===",
		"=== RED FLAGS ===",
		"=== NOTES ===",
	}

	last := -1
	for _, section := range sections {
		idx := strings.Index(summary, section)
		if idx < 0 {
			t.Fatalf("missing section %q", section)
		}
		if idx < last {
			t.Fatalf("section %q out of order", section)
		}
		last = idx
	}
}

func TestGenerateSummaryEmptySectionsSayNone(t *testing.T) {
	summary := GenerateSummary(domain.Lead{OwnerName: "Only Owner"})

	if !strings.Contains(summary, "=== RED FLAGS ===\nNone") {
		t.Fatal("empty red flags must render as None")
	}
	if !strings.Contains(summary, "=== NOTES ===\nNone") {
		t.Fatal("empty notes must render as None")
	}
	if !strings.Contains(summary, "=== DIALER RECOMMENDATION ===\nNone") {
		t.Fatal("unscored lead must render recommendation as None")
	}
}

func TestGenerateSummaryRedFlagsAsBullets(t *testing.T) {
	lead := summaryLead()
	lead.Intake.ComplianceFlags = []string{"guarantee", "risk-free"}

	summary := GenerateSummary(lead)
	if !strings.Contains(summary, "- guarantee\n- risk-free\n") {
		t.Fatalf("red flags not rendered as bullets:\n%s", summary)
	}
}

func TestGenerateSummaryIsDeterministic(t *testing.T) {
	lead := summaryLead()
	if GenerateSummary(lead) != GenerateSummary(lead) {
		t.Fatal("summary must be deterministic for the same lead snapshot")
	}
}
