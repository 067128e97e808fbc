package domain

// HandoffStatus is the dialer-to-closer transfer state.
type HandoffStatus string

const (
	HandoffNone          HandoffStatus = "none"
	HandoffBackToDialer  HandoffStatus = "back_to_dialer"
	HandoffCloserReview  HandoffStatus = "closer_review"
	HandoffOfferSent     HandoffStatus = "offer_sent"
	HandoffContractSent  HandoffStatus = "contract_sent"
	HandoffUnderContract HandoffStatus = "under_contract"
)

// handoffTransitions lists the allowed forward moves. The state machine is
// monotonic except for the explicit back_to_dialer bounce, which only
// closer_review can take (data-quality rejection), and from which the lead
// can be re-sent to closer_review.
var handoffTransitions = map[HandoffStatus][]HandoffStatus{
	HandoffNone:          {HandoffCloserReview},
	HandoffBackToDialer:  {HandoffCloserReview},
	HandoffCloserReview:  {HandoffBackToDialer, HandoffOfferSent},
	HandoffOfferSent:     {HandoffContractSent},
	HandoffContractSent:  {HandoffUnderContract},
	HandoffUnderContract: {},
}

// CanTransitionHandoff reports whether moving from one handoff status to
// another is allowed by the state machine.
func CanTransitionHandoff(from, to HandoffStatus) bool {
	if from == "" {
		from = HandoffNone
	}
	for _, next := range handoffTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsCloserTerminalStatus reports whether a status is only reachable through a
// closer-side action, never automatically.
func IsCloserTerminalStatus(s HandoffStatus) bool {
	switch s {
	case HandoffOfferSent, HandoffContractSent, HandoffUnderContract:
		return true
	default:
		return false
	}
}
