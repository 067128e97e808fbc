// Package domain holds the lead acquisition pipeline's core types and the
// pure decision rules that operate on them (grading, routing order, handoff
// state machine). Nothing in this package touches storage or transport.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Grade is the letter bucket derived from the numeric lead score.
type Grade string

const (
	GradeA    Grade = "A"
	GradeB    Grade = "B"
	GradeC    Grade = "C"
	GradeD    Grade = "D"
	GradeDead Grade = "Dead"
)

// Grade breakpoints, highest grade first. A lead's grade is the first bucket
// its score clears.
const (
	GradeABreakpoint = 80.0
	GradeBBreakpoint = 65.0
	GradeCBreakpoint = 50.0
	GradeDBreakpoint = 35.0
)

// GradeForScore maps a composite score to its letter grade.
func GradeForScore(score float64) Grade {
	switch {
	case score >= GradeABreakpoint:
		return GradeA
	case score >= GradeBBreakpoint:
		return GradeB
	case score >= GradeCBreakpoint:
		return GradeC
	case score >= GradeDBreakpoint:
		return GradeD
	default:
		return GradeDead
	}
}

// gradeRank orders grades for queue sorting. Unset grades sort as Dead.
var gradeRank = map[Grade]int{
	GradeA:    1,
	GradeB:    2,
	GradeC:    3,
	GradeD:    4,
	GradeDead: 5,
}

// GradeRank returns the sort rank for a grade (A first). Unknown grades rank as Dead.
func GradeRank(g Grade) int {
	if r, ok := gradeRank[g]; ok {
		return r
	}
	return gradeRank[GradeDead]
}

// Route is the work queue a lead is assigned to.
type Route string

const (
	RouteImmediateCloser Route = "immediate_closer"
	RouteDialerPriority  Route = "dialer_priority"
	RouteNurture         Route = "nurture"
	RouteArchive         Route = "archive"
)

var routeRank = map[Route]int{
	RouteImmediateCloser: 1,
	RouteDialerPriority:  2,
	RouteNurture:         3,
	RouteArchive:         4,
}

// RouteRank returns the sort rank for a route. Unrouted leads rank last.
func RouteRank(r Route) int {
	if rank, ok := routeRank[r]; ok {
		return rank
	}
	return routeRank[RouteArchive] + 1
}

// Priority is the urgency level attached to a route.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityUrgent: 1,
	PriorityHigh:   2,
	PriorityNormal: 3,
	PriorityLow:    4,
}

// PriorityRank returns the numeric rank (1-4). Unset defaults to normal.
func PriorityRank(p Priority) int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return priorityRank[PriorityNormal]
}

// Escalate raises a priority by one level. Urgent stays urgent.
func Escalate(p Priority) Priority {
	switch p {
	case PriorityLow:
		return PriorityNormal
	case PriorityNormal:
		return PriorityHigh
	default:
		return PriorityUrgent
	}
}

// DialerIntake holds everything the first-contact agent captures.
// Free-form fields use "" or "unknown" to mean not captured.
type DialerIntake struct {
	Occupancy         string
	ConditionTier     string
	MortgageStatus    string
	MotivationRating  int // 1-5, 0 = unset
	Timeline          string
	SellerReason      string
	SellerFlexibility string
	AskingPrice       string
	ContactPreference string
	Notes             string
	ComplianceFlags   []string
	IntakeCompletedAt *time.Time
	IntakeLocked      bool
}

// LeadScore is the persisted output of the scoring engine.
type LeadScore struct {
	Score       float64
	Grade       Grade
	EvaluatedAt time.Time
}

// Routing is the persisted output of the routing service.
type Routing struct {
	Route    Route
	Priority Priority
	SLAHours int
	Reasons  []string // cumulative audit trail, append-only
	RoutedAt time.Time
}

// Handoff tracks the dialer-to-closer transfer.
type Handoff struct {
	Status         HandoffStatus
	Summary        string
	MissingFields  []string
	SentToCloserAt *time.Time
	SentToCloserBy *uuid.UUID
}

// CloserFields are set only by closer-role actions.
type CloserFields struct {
	OfferSentAt     *time.Time
	OfferAmount     *float64
	ContractSentAt  *time.Time
	ContractAmount  *float64
	UnderContractAt *time.Time
}

// Lead is the central entity moving through intake, routing, and closing.
type Lead struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	// Identity / property facts
	OwnerName      string
	OwnerPhone     string
	OwnerEmail     string
	AddressLine    string
	City           string
	State          string
	Zip            string
	County         string
	SourceCategory string
	Strategy       string // acquisition strategy selecting the scoring weight profile

	// Underwriting facts
	PropertyType string
	Beds         *int
	Baths        *float64
	SquareFeet   *int
	YearBuilt    *int
	BuyPrice     *float64
	ARV          *float64
	LocationTier *int // 1 best .. 5 worst

	Status      string // new, active, closed
	LeadTier    string // hot, warm, cold
	EscalatedAt *time.Time
	FollowUpDue *time.Time

	Intake  DialerIntake
	Score   *LeadScore
	Routing *Routing
	Handoff Handoff
	Closer  CloserFields

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveHandoff reports whether the lead is currently with the closer or
// beyond. Leads bounced back to the dialer are not active handoffs.
func (l *Lead) HasActiveHandoff() bool {
	switch l.Handoff.Status {
	case HandoffCloserReview, HandoffOfferSent, HandoffContractSent, HandoffUnderContract:
		return true
	default:
		return false
	}
}

// CurrentGrade returns the scored grade, or Dead when the lead was never scored.
func (l *Lead) CurrentGrade() Grade {
	if l.Score == nil {
		return GradeDead
	}
	return l.Score.Grade
}

// RoutingOverride records a manual routing decision by an operator as its own
// fact, so automatic re-scoring never silently erases operator intent and
// override counts can feed KPI reporting.
type RoutingOverride struct {
	ID               uuid.UUID
	LeadID           uuid.UUID
	TenantID         uuid.UUID
	ActorID          uuid.UUID
	PreviousRoute    Route
	PreviousPriority Priority
	NewRoute         Route
	NewPriority      Priority
	Reason           string
	CreatedAt        time.Time
}

// SkipTraceContact is enrichment contact data. Visibility is role-restricted:
// dialers see counts only; the masking happens at the queue/transport boundary,
// not in storage.
type SkipTraceContact struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Kind      string // phone, email, relative
	Value     string
	Source    string
	CreatedAt time.Time
}
