package domain

import "testing"

func TestCanTransitionHandoffAllowedMoves(t *testing.T) {
	allowed := []struct {
		from, to HandoffStatus
	}{
		{HandoffNone, HandoffCloserReview},
		{HandoffBackToDialer, HandoffCloserReview},
		{HandoffCloserReview, HandoffBackToDialer},
		{HandoffCloserReview, HandoffOfferSent},
		{HandoffOfferSent, HandoffContractSent},
		{HandoffContractSent, HandoffUnderContract},
	}

	for _, tc := range allowed {
		if !CanTransitionHandoff(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransitionHandoffRejectsSkipsAndReversals(t *testing.T) {
	rejected := []struct {
		from, to HandoffStatus
	}{
		{HandoffNone, HandoffOfferSent},
		{HandoffNone, HandoffBackToDialer},
		{HandoffCloserReview, HandoffContractSent},
		{HandoffCloserReview, HandoffUnderContract},
		{HandoffOfferSent, HandoffBackToDialer},
		{HandoffOfferSent, HandoffUnderContract},
		{HandoffContractSent, HandoffCloserReview},
		{HandoffUnderContract, HandoffContractSent},
		{HandoffUnderContract, HandoffBackToDialer},
	}

	for _, tc := range rejected {
		if CanTransitionHandoff(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransitionHandoffEmptyStatusMeansNone(t *testing.T) {
	if !CanTransitionHandoff("", HandoffCloserReview) {
		t.Fatal("empty status should behave as none")
	}
	if CanTransitionHandoff("", HandoffOfferSent) {
		t.Fatal("empty status must not jump past closer_review")
	}
}

func TestIsCloserTerminalStatus(t *testing.T) {
	for _, s := range []HandoffStatus{HandoffOfferSent, HandoffContractSent, HandoffUnderContract} {
		if !IsCloserTerminalStatus(s) {
			t.Errorf("expected %s to be closer-only", s)
		}
	}
	for _, s := range []HandoffStatus{HandoffNone, HandoffBackToDialer, HandoffCloserReview} {
		if IsCloserTerminalStatus(s) {
			t.Errorf("expected %s to not be closer-only", s)
		}
	}
}
