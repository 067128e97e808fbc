// Package handoff implements the dialer-to-closer transfer: the summary
// generator, the missing-field check, and the state machine orchestration.
//
// The summary is a lossless snapshot: every captured intake field appears
// verbatim under a fixed section, so a closer never has to reopen the intake
// form and nothing the dialer heard gets dropped in transfer.
package handoff

import (
	"fmt"
	"strings"

	"dealflow_backend/internal/leads/domain"
)

// The nine intake fields a closer needs before a deal is workable.
// A value of "" or "unknown" counts as missing.
var requiredIntakeFields = []string{
	"occupancy",
	"condition_tier",
	"mortgage_status",
	"motivation_rating",
	"timeline",
	"seller_reason",
	"seller_flexibility",
	"asking_price",
	"contact_preference",
}

// RequiredIntakeFields returns the fields checked by MissingFields.
func RequiredIntakeFields() []string {
	out := make([]string, len(requiredIntakeFields))
	copy(out, requiredIntakeFields)
	return out
}

// MissingFields returns exactly the subset of the nine required intake fields
// that are empty or "unknown", in the canonical field order.
func MissingFields(intake domain.DialerIntake) []string {
	values := map[string]string{
		"occupancy":          intake.Occupancy,
		"condition_tier":     intake.ConditionTier,
		"mortgage_status":    intake.MortgageStatus,
		"motivation_rating":  ratingValue(intake.MotivationRating),
		"timeline":           intake.Timeline,
		"seller_reason":      intake.SellerReason,
		"seller_flexibility": intake.SellerFlexibility,
		"asking_price":       intake.AskingPrice,
		"contact_preference": intake.ContactPreference,
	}

	var missing []string
	for _, field := range requiredIntakeFields {
		if isMissingValue(values[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func ratingValue(rating int) string {
	if rating == 0 {
		return ""
	}
	return fmt.Sprintf("%d", rating)
}

func isMissingValue(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || strings.EqualFold(trimmed, "unknown")
}

// Section headers, in fixed order. Tests parse the summary back out by these
// markers, so changing them is a breaking change for consumers.
const (
	sectionProperty       = "=== PROPERTY SNAPSHOT ==="
	sectionFinancial      = "=== FINANCIAL SNAPSHOT ==="
	sectionPsychology     = "=== SELLER PSYCHOLOGY ==="
	sectionRecommendation = "=== DIALER RECOMMENDATION ==="
	sectionRedFlags       = "=== RED FLAGS ==="
	sectionNotes          = "=== NOTES ==="
)

// GenerateSummary builds the deterministic handoff text for a lead. Every
// captured (non-empty) field appears verbatim as a "Label: value" line under
// its section; fields never captured are simply absent.
func GenerateSummary(lead domain.Lead) string {
	var b strings.Builder

	writeSection(&b, sectionProperty, []fieldLine{
		{"Owner", lead.OwnerName},
		{"Address", joinAddress(lead)},
		{"County", lead.County},
		{"Property Type", lead.PropertyType},
		{"Beds", intValue(lead.Beds)},
		{"Baths", floatValue(lead.Baths)},
		{"Square Feet", intValue(lead.SquareFeet)},
		{"Year Built", intValue(lead.YearBuilt)},
		{"Occupancy", lead.Intake.Occupancy},
		{"Condition Tier", lead.Intake.ConditionTier},
	})

	writeSection(&b, sectionFinancial, []fieldLine{
		{"Asking Price", lead.Intake.AskingPrice},
		{"Buy Price", floatValue(lead.BuyPrice)},
		{"ARV", floatValue(lead.ARV)},
		{"Mortgage Status", lead.Intake.MortgageStatus},
	})

	writeSection(&b, sectionPsychology, []fieldLine{
		{"Motivation Rating", ratingValue(lead.Intake.MotivationRating)},
		{"Timeline", lead.Intake.Timeline},
		{"Seller Reason", lead.Intake.SellerReason},
		{"Seller Flexibility", lead.Intake.SellerFlexibility},
		{"Contact Preference", lead.Intake.ContactPreference},
	})

	// Recommendation only exists when the lead has been scored and routed.
	var rec []fieldLine
	if lead.Score != nil {
		rec = append(rec, fieldLine{"Score", fmt.Sprintf("%.0f (grade %s)", lead.Score.Score, lead.Score.Grade)})
	}
	if lead.Routing != nil {
		rec = append(rec, fieldLine{"Route", fmt.Sprintf("%s (%s, SLA %dh)", lead.Routing.Route, lead.Routing.Priority, lead.Routing.SLAHours)})
	}
	writeSection(&b, sectionRecommendation, rec)

	b.WriteString(sectionRedFlags)
	b.WriteString("\n")
	if len(lead.Intake.ComplianceFlags) == 0 {
		b.WriteString("None\n")
	} else {
		for _, flag := range lead.Intake.ComplianceFlags {
			b.WriteString("- ")
			b.WriteString(flag)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	b.WriteString(sectionNotes)
	b.WriteString("\n")
	if strings.TrimSpace(lead.Intake.Notes) == "" {
		b.WriteString("None\n")
	} else {
		b.WriteString(lead.Intake.Notes)
		b.WriteString("\n")
	}

	return b.String()
}

type fieldLine struct {
	Label string
	Value string
}

func writeSection(b *strings.Builder, header string, lines []fieldLine) {
	b.WriteString(header)
	b.WriteString("\n")
	wrote := false
	for _, line := range lines {
		if strings.TrimSpace(line.Value) == "" {
			continue
		}
		b.WriteString(line.Label)
		b.WriteString(": ")
		b.WriteString(line.Value)
		b.WriteString("\n")
		wrote = true
	}
	if !wrote {
		b.WriteString("None\n")
	}
	b.WriteString("\n")
}

func joinAddress(lead domain.Lead) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{lead.AddressLine, lead.City, lead.State, lead.Zip} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func intValue(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func floatValue(v *float64) string {
	if v == nil {
		return ""
	}
	if *v == float64(int64(*v)) {
		return fmt.Sprintf("%.0f", *v)
	}
	return fmt.Sprintf("%.2f", *v)
}

// ParseSummaryFields extracts the "Label: value" lines of a summary back into
// a map. Used to verify the zero-information-loss contract.
func ParseSummaryFields(summary string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(summary, "\n") {
		if strings.HasPrefix(line, "===") || strings.HasPrefix(line, "- ") {
			continue
		}
		label, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		fields[label] = value
	}
	return fields
}
