package handoff

import (
	"context"
	"testing"
	"time"

	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	lead domain.Lead

	savedHandoff *domain.Handoff
	lockedIntake bool
	savedStatus  domain.HandoffStatus
	savedCloser  *domain.CloserFields
}

func (f *fakeStore) SaveHandoff(_ context.Context, _, _ uuid.UUID, handoff domain.Handoff, lockIntake bool) (domain.Lead, error) {
	f.savedHandoff = &handoff
	if lockIntake {
		f.lockedIntake = true
	}
	lead := f.lead
	lead.Handoff = handoff
	lead.Intake.IntakeLocked = f.lockedIntake
	return lead, nil
}

func (f *fakeStore) SaveCloserAction(_ context.Context, _, _ uuid.UUID, status domain.HandoffStatus, closer domain.CloserFields) (domain.Lead, error) {
	f.savedStatus = status
	f.savedCloser = &closer
	lead := f.lead
	lead.Handoff.Status = status
	lead.Closer = closer
	return lead, nil
}

func readyLead() domain.Lead {
	completed := time.Now().UTC()
	return domain.Lead{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Intake: domain.DialerIntake{
			Occupancy:         "vacant",
			ConditionTier:     "heavy",
			MortgageStatus:    "behind",
			MotivationRating:  5,
			Timeline:          "asap",
			SellerReason:      "job relocation",
			SellerFlexibility: "cash only",
			AskingPrice:       "95000",
			ContactPreference: "mornings",
			IntakeCompletedAt: &completed,
		},
	}
}

func TestSendToCloserTransitionsAndLocksIntake(t *testing.T) {
	lead := readyLead()
	store := &fakeStore{lead: lead}
	svc := New(store, nil, nil)

	saved, err := svc.SendToCloser(context.Background(), lead, uuid.New(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Handoff.Status != domain.HandoffCloserReview {
		t.Fatalf("status = %s, want closer_review", saved.Handoff.Status)
	}
	if !store.lockedIntake {
		t.Fatal("send-to-closer must latch the intake lock")
	}
	if store.savedHandoff.Summary == "" {
		t.Fatal("summary must be generated on send")
	}
	if store.savedHandoff.SentToCloserAt == nil || store.savedHandoff.SentToCloserBy == nil {
		t.Fatal("send metadata must be recorded")
	}
	if len(store.savedHandoff.MissingFields) != 0 {
		t.Fatalf("complete intake reported missing fields: %v", store.savedHandoff.MissingFields)
	}
}

func TestSendToCloserRejectsIncompleteIntake(t *testing.T) {
	lead := readyLead()
	lead.Intake.IntakeCompletedAt = nil
	svc := New(&fakeStore{lead: lead}, nil, nil)

	_, err := svc.SendToCloser(context.Background(), lead, uuid.New(), "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSendToCloserEscalationBypassesCompleteness(t *testing.T) {
	lead := readyLead()
	lead.Intake.IntakeCompletedAt = nil
	lead.Intake.MortgageStatus = "unknown"
	store := &fakeStore{lead: lead}
	svc := New(store, nil, nil)

	_, err := svc.SendToCloser(context.Background(), lead, uuid.New(), EscalateHighPriority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The gate is bypassed but the gaps still travel with the handoff.
	if len(store.savedHandoff.MissingFields) == 0 {
		t.Fatal("escalated send must still report the missing fields")
	}
}

func TestSendToCloserRejectsActiveHandoff(t *testing.T) {
	lead := readyLead()
	lead.Handoff.Status = domain.HandoffOfferSent
	svc := New(&fakeStore{lead: lead}, nil, nil)

	_, err := svc.SendToCloser(context.Background(), lead, uuid.New(), "")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestSendToCloserAllowedAfterBounce(t *testing.T) {
	lead := readyLead()
	lead.Handoff.Status = domain.HandoffBackToDialer
	svc := New(&fakeStore{lead: lead}, nil, nil)

	if _, err := svc.SendToCloser(context.Background(), lead, uuid.New(), ""); err != nil {
		t.Fatalf("re-send after bounce must be allowed, got %v", err)
	}
}

func TestCloserActionBounceKeepsSummary(t *testing.T) {
	lead := readyLead()
	lead.Handoff = domain.Handoff{
		Status:  domain.HandoffCloserReview,
		Summary: "=== PROPERTY SNAPSHOT ===\nOwner: X\n",
	}
	store := &fakeStore{lead: lead}
	svc := New(store, nil, nil)

	saved, err := svc.CloserAction(context.Background(), lead, uuid.New(), ActionBackToDialer, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Handoff.Status != domain.HandoffBackToDialer {
		t.Fatalf("status = %s, want back_to_dialer", saved.Handoff.Status)
	}
	if store.savedHandoff.Summary != lead.Handoff.Summary {
		t.Fatal("bounce must preserve the generated summary")
	}
	if store.lockedIntake {
		t.Fatal("bounce must not latch the intake lock")
	}
}

func TestCloserActionOfferRecordsTimestampAndAmount(t *testing.T) {
	lead := readyLead()
	lead.Handoff.Status = domain.HandoffCloserReview
	store := &fakeStore{lead: lead}
	svc := New(store, nil, nil)

	amount := 87_500.0
	saved, err := svc.CloserAction(context.Background(), lead, uuid.New(), ActionOfferSent, &amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedStatus != domain.HandoffOfferSent {
		t.Fatalf("status = %s, want offer_sent", store.savedStatus)
	}
	if store.savedCloser.OfferSentAt == nil {
		t.Fatal("offer timestamp must be recorded")
	}
	if store.savedCloser.OfferAmount == nil || *store.savedCloser.OfferAmount != amount {
		t.Fatal("offer amount must be recorded")
	}
	if saved.Handoff.Status != domain.HandoffOfferSent {
		t.Fatal("returned lead must reflect the new status")
	}
}

func TestCloserActionContractThenUnderContract(t *testing.T) {
	lead := readyLead()
	lead.Handoff.Status = domain.HandoffOfferSent
	store := &fakeStore{lead: lead}
	svc := New(store, nil, nil)

	amount := 91_000.0
	contracted, err := svc.CloserAction(context.Background(), lead, uuid.New(), ActionContractSent, &amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedCloser.ContractSentAt == nil || store.savedCloser.ContractAmount == nil {
		t.Fatal("contract timestamp and amount must be recorded")
	}

	store.lead = contracted
	final, err := svc.CloserAction(context.Background(), contracted, uuid.New(), ActionUnderContract, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.savedCloser.UnderContractAt == nil {
		t.Fatal("under-contract timestamp must be recorded")
	}
	if final.Handoff.Status != domain.HandoffUnderContract {
		t.Fatalf("status = %s, want under_contract", final.Handoff.Status)
	}
}

func TestCloserActionRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		from   domain.HandoffStatus
		action string
	}{
		{domain.HandoffNone, ActionOfferSent},
		{domain.HandoffCloserReview, ActionContractSent},
		{domain.HandoffCloserReview, ActionUnderContract},
		{domain.HandoffOfferSent, ActionBackToDialer},
		{domain.HandoffUnderContract, ActionOfferSent},
	}

	for _, tc := range cases {
		lead := readyLead()
		lead.Handoff.Status = tc.from
		svc := New(&fakeStore{lead: lead}, nil, nil)

		_, err := svc.CloserAction(context.Background(), lead, uuid.New(), tc.action, nil)
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("%s + %s: expected conflict, got %v", tc.from, tc.action, err)
		}
	}
}

func TestCloserActionRejectsUnknownAction(t *testing.T) {
	lead := readyLead()
	lead.Handoff.Status = domain.HandoffCloserReview
	svc := New(&fakeStore{lead: lead}, nil, nil)

	_, err := svc.CloserAction(context.Background(), lead, uuid.New(), "celebrate", nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
