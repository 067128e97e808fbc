// Package transport defines the HTTP request/response shapes for the leads
// module and the mapping from domain types.
package transport

import (
	"strings"
	"time"

	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/internal/leads/queue"

	"github.com/google/uuid"
)

// CreateLeadRequest carries the identity/property facts for a new lead.
type CreateLeadRequest struct {
	OwnerName      string   `json:"ownerName" validate:"required,min=1,max=200"`
	OwnerPhone     string   `json:"ownerPhone" validate:"omitempty,max=30"`
	OwnerEmail     string   `json:"ownerEmail" validate:"omitempty,email"`
	AddressLine    string   `json:"addressLine" validate:"required,min=1,max=300"`
	City           string   `json:"city" validate:"omitempty,max=100"`
	State          string   `json:"state" validate:"omitempty,max=50"`
	Zip            string   `json:"zip" validate:"omitempty,max=20"`
	County         string   `json:"county" validate:"omitempty,max=100"`
	SourceCategory string   `json:"sourceCategory" validate:"omitempty,max=50"`
	Strategy       string   `json:"strategy" validate:"omitempty,oneof=wholesale flip rental"`
	PropertyType   string   `json:"propertyType" validate:"omitempty,max=50"`
	Beds           *int     `json:"beds" validate:"omitempty,min=0"`
	Baths          *float64 `json:"baths" validate:"omitempty,min=0"`
	SquareFeet     *int     `json:"squareFeet" validate:"omitempty,min=0"`
	YearBuilt      *int     `json:"yearBuilt" validate:"omitempty,min=1800"`
	BuyPrice       *float64 `json:"buyPrice" validate:"omitempty,min=0"`
	ARV            *float64 `json:"arv" validate:"omitempty,min=0"`
	LocationTier   *int     `json:"locationTier" validate:"omitempty,min=1,max=5"`
	LeadTier       string   `json:"leadTier" validate:"omitempty,oneof=hot warm cold"`
}

// IntakeRequest is the allow-listed partial intake merge. Pointer fields
// distinguish "not sent" from "cleared".
type IntakeRequest struct {
	Occupancy         *string    `json:"occupancy" validate:"omitempty,max=50"`
	ConditionTier     *string    `json:"conditionTier" validate:"omitempty,oneof=turnkey light medium heavy teardown"`
	MortgageStatus    *string    `json:"mortgageStatus" validate:"omitempty,max=100"`
	MotivationRating  *int       `json:"motivationRating" validate:"omitempty,min=1,max=5"`
	Timeline          *string    `json:"timeline" validate:"omitempty,max=100"`
	SellerReason      *string    `json:"sellerReason" validate:"omitempty,max=500"`
	SellerFlexibility *string    `json:"sellerFlexibility" validate:"omitempty,max=500"`
	AskingPrice       *string    `json:"askingPrice" validate:"omitempty,max=50"`
	ContactPreference *string    `json:"contactPreference" validate:"omitempty,max=100"`
	Notes             *string    `json:"notes" validate:"omitempty,max=10000"`
	OwnerPhone        *string    `json:"ownerPhone" validate:"omitempty,max=30"`
	LeadTier          *string    `json:"leadTier" validate:"omitempty,oneof=hot warm cold"`
	FollowUpDue       *time.Time `json:"followUpDue"`
	Complete          bool       `json:"complete"`
	Escalate          bool       `json:"escalate"`
}

// closerOnlyFields are request keys only closer actions may set. Their
// presence in an intake body is a guardrail violation, not a validation error.
var closerOnlyFields = []string{
	"offerAmount",
	"offerSent",
	"contractSent",
	"underContract",
	"offerLaneFinal",
}

// ForbiddenIntakeFields returns any closer-only keys present in a raw intake
// body, including anything under a "closer" prefix.
func ForbiddenIntakeFields(raw map[string]any) []string {
	var found []string
	for key := range raw {
		if strings.HasPrefix(key, "closer") {
			found = append(found, key)
			continue
		}
		for _, forbidden := range closerOnlyFields {
			if key == forbidden {
				found = append(found, key)
				break
			}
		}
	}
	return found
}

// SendToCloserRequest drives the handoff transition.
type SendToCloserRequest struct {
	Escalate string `json:"escalate" validate:"omitempty,oneof=high_priority"`
}

// CloserActionRequest records a closer-side deal action.
type CloserActionRequest struct {
	Action string   `json:"action" validate:"required,oneof=back_to_dialer offer_sent contract_sent under_contract"`
	Amount *float64 `json:"amount" validate:"omitempty,min=0"`
}

// OverrideRoutingRequest is a manual route/priority decision by an operator.
type OverrideRoutingRequest struct {
	Route    string `json:"route" validate:"required,oneof=immediate_closer dialer_priority nurture archive"`
	Priority string `json:"priority" validate:"required,oneof=urgent high normal low"`
	Reason   string `json:"reason" validate:"required,min=1,max=500"`
}

// SkipTraceContactResponse is one enrichment contact, visible to closers and
// managers only.
type SkipTraceContactResponse struct {
	ID        uuid.UUID `json:"id"`
	Kind      string    `json:"kind"`
	Value     string    `json:"value"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IntakeResponse mirrors the dialer intake block.
type IntakeResponse struct {
	Occupancy         string     `json:"occupancy,omitempty"`
	ConditionTier     string     `json:"conditionTier,omitempty"`
	MortgageStatus    string     `json:"mortgageStatus,omitempty"`
	MotivationRating  int        `json:"motivationRating,omitempty"`
	Timeline          string     `json:"timeline,omitempty"`
	SellerReason      string     `json:"sellerReason,omitempty"`
	SellerFlexibility string     `json:"sellerFlexibility,omitempty"`
	AskingPrice       string     `json:"askingPrice,omitempty"`
	ContactPreference string     `json:"contactPreference,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	ComplianceFlags   []string   `json:"complianceFlags,omitempty"`
	IntakeCompletedAt *time.Time `json:"intakeCompletedAt,omitempty"`
	IntakeLocked      bool       `json:"intakeLocked"`
}

// ScoreResponse mirrors the scoring output.
type ScoreResponse struct {
	Score       float64   `json:"score"`
	Grade       string    `json:"grade"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// RoutingResponse mirrors the routing decision.
type RoutingResponse struct {
	Route    string    `json:"route"`
	Priority string    `json:"priority"`
	SLAHours int       `json:"slaHours"`
	Reasons  []string  `json:"reasons"`
	RoutedAt time.Time `json:"routedAt"`
}

// HandoffResponse mirrors the handoff block.
type HandoffResponse struct {
	Status         string     `json:"status"`
	Summary        string     `json:"summary,omitempty"`
	MissingFields  []string   `json:"missingFields,omitempty"`
	SentToCloserAt *time.Time `json:"sentToCloserAt,omitempty"`
}

// CloserResponse mirrors the closer-only fields.
type CloserResponse struct {
	OfferSentAt     *time.Time `json:"offerSentAt,omitempty"`
	OfferAmount     *float64   `json:"offerAmount,omitempty"`
	ContractSentAt  *time.Time `json:"contractSentAt,omitempty"`
	ContractAmount  *float64   `json:"contractAmount,omitempty"`
	UnderContractAt *time.Time `json:"underContractAt,omitempty"`
}

// LeadResponse is the full lead representation with role-appropriate
// skip-trace visibility.
type LeadResponse struct {
	ID             uuid.UUID `json:"id"`
	OwnerName      string    `json:"ownerName"`
	OwnerPhone     string    `json:"ownerPhone,omitempty"`
	OwnerEmail     string    `json:"ownerEmail,omitempty"`
	AddressLine    string    `json:"addressLine"`
	City           string    `json:"city,omitempty"`
	State          string    `json:"state,omitempty"`
	Zip            string    `json:"zip,omitempty"`
	County         string    `json:"county,omitempty"`
	SourceCategory string    `json:"sourceCategory,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	PropertyType   string    `json:"propertyType,omitempty"`
	Beds           *int      `json:"beds,omitempty"`
	Baths          *float64  `json:"baths,omitempty"`
	SquareFeet     *int      `json:"squareFeet,omitempty"`
	YearBuilt      *int      `json:"yearBuilt,omitempty"`
	BuyPrice       *float64  `json:"buyPrice,omitempty"`
	ARV            *float64  `json:"arv,omitempty"`
	LocationTier   *int      `json:"locationTier,omitempty"`

	Status      string     `json:"status"`
	LeadTier    string     `json:"leadTier"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty"`
	FollowUpDue *time.Time `json:"followUpDue,omitempty"`

	Intake  IntakeResponse   `json:"intake"`
	Score   *ScoreResponse   `json:"score,omitempty"`
	Routing *RoutingResponse `json:"routing,omitempty"`
	Handoff HandoffResponse  `json:"handoff"`
	Closer  CloserResponse   `json:"closer"`

	SkipTraceCount    int                        `json:"skipTraceCount"`
	SkipTraceContacts []SkipTraceContactResponse `json:"skipTraceContacts,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// QueueResponse is a ranked work list page.
type QueueResponse struct {
	Filter string         `json:"filter"`
	Count  int            `json:"count"`
	Items  []LeadResponse `json:"items"`
}

// ToLeadResponse maps a domain lead without skip-trace data.
func ToLeadResponse(lead domain.Lead) LeadResponse {
	resp := LeadResponse{
		ID:             lead.ID,
		OwnerName:      lead.OwnerName,
		OwnerPhone:     lead.OwnerPhone,
		OwnerEmail:     lead.OwnerEmail,
		AddressLine:    lead.AddressLine,
		City:           lead.City,
		State:          lead.State,
		Zip:            lead.Zip,
		County:         lead.County,
		SourceCategory: lead.SourceCategory,
		Strategy:       lead.Strategy,
		PropertyType:   lead.PropertyType,
		Beds:           lead.Beds,
		Baths:          lead.Baths,
		SquareFeet:     lead.SquareFeet,
		YearBuilt:      lead.YearBuilt,
		BuyPrice:       lead.BuyPrice,
		ARV:            lead.ARV,
		LocationTier:   lead.LocationTier,
		Status:         lead.Status,
		LeadTier:       lead.LeadTier,
		EscalatedAt:    lead.EscalatedAt,
		FollowUpDue:    lead.FollowUpDue,
		Intake: IntakeResponse{
			Occupancy:         lead.Intake.Occupancy,
			ConditionTier:     lead.Intake.ConditionTier,
			MortgageStatus:    lead.Intake.MortgageStatus,
			MotivationRating:  lead.Intake.MotivationRating,
			Timeline:          lead.Intake.Timeline,
			SellerReason:      lead.Intake.SellerReason,
			SellerFlexibility: lead.Intake.SellerFlexibility,
			AskingPrice:       lead.Intake.AskingPrice,
			ContactPreference: lead.Intake.ContactPreference,
			Notes:             lead.Intake.Notes,
			ComplianceFlags:   lead.Intake.ComplianceFlags,
			IntakeCompletedAt: lead.Intake.IntakeCompletedAt,
			IntakeLocked:      lead.Intake.IntakeLocked,
		},
		Handoff: HandoffResponse{
			Status:         string(lead.Handoff.Status),
			Summary:        lead.Handoff.Summary,
			MissingFields:  lead.Handoff.MissingFields,
			SentToCloserAt: lead.Handoff.SentToCloserAt,
		},
		Closer: CloserResponse{
			OfferSentAt:     lead.Closer.OfferSentAt,
			OfferAmount:     lead.Closer.OfferAmount,
			ContractSentAt:  lead.Closer.ContractSentAt,
			ContractAmount:  lead.Closer.ContractAmount,
			UnderContractAt: lead.Closer.UnderContractAt,
		},
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}

	if lead.Score != nil {
		resp.Score = &ScoreResponse{
			Score:       lead.Score.Score,
			Grade:       string(lead.Score.Grade),
			EvaluatedAt: lead.Score.EvaluatedAt,
		}
	}
	if lead.Routing != nil {
		resp.Routing = &RoutingResponse{
			Route:    string(lead.Routing.Route),
			Priority: string(lead.Routing.Priority),
			SLAHours: lead.Routing.SLAHours,
			Reasons:  lead.Routing.Reasons,
			RoutedAt: lead.Routing.RoutedAt,
		}
	}

	return resp
}

// ToQueueItemResponse maps a masked queue item.
func ToQueueItemResponse(item queue.Item) LeadResponse {
	resp := ToLeadResponse(item.Lead)
	resp.SkipTraceCount = item.SkipTraceCount
	for _, c := range item.SkipTraceContacts {
		resp.SkipTraceContacts = append(resp.SkipTraceContacts, SkipTraceContactResponse{
			ID:        c.ID,
			Kind:      c.Kind,
			Value:     c.Value,
			Source:    c.Source,
			CreatedAt: c.CreatedAt,
		})
	}
	return resp
}
