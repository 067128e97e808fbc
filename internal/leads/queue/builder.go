// Package queue produces the ranked work list per role. Filtering and
// ordering happen in memory over the full active candidate set; truncation to
// the page size is the last step so high-priority items are never starved by
// an early cutoff.
package queue

import (
	"sort"
	"strings"
	"time"

	"dealflow_backend/internal/leads/domain"
	"dealflow_backend/platform/apperr"
)

// PageSize is the fixed queue page, applied after the full sort.
const PageSize = 50

// Filter narrows the dialer queue to a work mode.
type Filter string

const (
	FilterAll              Filter = "all"
	FilterNew              Filter = "new"
	FilterFollowUp         Filter = "follow-up"
	FilterHot              Filter = "hot"
	FilterNeedsMissingData Filter = "needs-missing-data"
	FilterEscalated        Filter = "escalated"
)

// hotMotivationFloor is the minimum motivation rating for the hot filter.
const hotMotivationFloor = 4

// ParseFilter validates a filter query value. Empty means all.
func ParseFilter(raw string) (Filter, error) {
	switch Filter(strings.TrimSpace(raw)) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterNew:
		return FilterNew, nil
	case FilterFollowUp:
		return FilterFollowUp, nil
	case FilterHot:
		return FilterHot, nil
	case FilterNeedsMissingData:
		return FilterNeedsMissingData, nil
	case FilterEscalated:
		return FilterEscalated, nil
	default:
		return "", apperr.Validation("unknown queue filter: " + raw)
	}
}

// BuildDialer filters and ranks leads for the dialer queue. Cold-tier leads
// are always excluded; untouched (status new) leads only surface under the
// new filter, so worked modes never mix with raw ingestion.
func BuildDialer(leads []domain.Lead, filter Filter, now time.Time) []domain.Lead {
	candidates := make([]domain.Lead, 0, len(leads))
	for _, lead := range leads {
		if strings.EqualFold(lead.LeadTier, "cold") {
			continue
		}
		if matchesFilter(lead, filter, now) {
			candidates = append(candidates, lead)
		}
	}
	return rank(candidates)
}

// BuildCloser ranks leads currently with the closer (active handoff).
func BuildCloser(leads []domain.Lead) []domain.Lead {
	candidates := make([]domain.Lead, 0, len(leads))
	for _, lead := range leads {
		if strings.EqualFold(lead.LeadTier, "cold") {
			continue
		}
		if lead.HasActiveHandoff() {
			candidates = append(candidates, lead)
		}
	}
	return rank(candidates)
}

func matchesFilter(lead domain.Lead, filter Filter, now time.Time) bool {
	isNew := strings.EqualFold(lead.Status, "new")

	switch filter {
	case FilterNew:
		return isNew || lead.Intake.IntakeCompletedAt == nil
	case FilterFollowUp:
		return !isNew && lead.FollowUpDue != nil && !lead.FollowUpDue.After(now)
	case FilterHot:
		return !isNew && lead.Intake.MotivationRating >= hotMotivationFloor
	case FilterNeedsMissingData:
		return !isNew && lead.Handoff.Status == domain.HandoffBackToDialer
	case FilterEscalated:
		return !isNew && lead.EscalatedAt != nil
	default:
		return !isNew
	}
}

// rank applies the five-level strict total order, then truncates.
// Precedence: priority, route, grade, score desc, updatedAt desc.
func rank(leads []domain.Lead) []domain.Lead {
	sort.SliceStable(leads, func(i, j int) bool {
		return Less(leads[i], leads[j])
	})
	if len(leads) > PageSize {
		leads = leads[:PageSize]
	}
	return leads
}

// Less reports whether a sorts before b in the queue order.
func Less(a, b domain.Lead) bool {
	ap, bp := priorityOf(a), priorityOf(b)
	if ap != bp {
		return ap < bp
	}

	ar, br := routeOf(a), routeOf(b)
	if ar != br {
		return ar < br
	}

	ag, bg := domain.GradeRank(a.CurrentGrade()), domain.GradeRank(b.CurrentGrade())
	if ag != bg {
		return ag < bg
	}

	as, bs := scoreOf(a), scoreOf(b)
	if as != bs {
		return as > bs
	}

	return a.UpdatedAt.After(b.UpdatedAt)
}

func priorityOf(lead domain.Lead) int {
	if lead.Routing == nil {
		return domain.PriorityRank(domain.PriorityNormal)
	}
	return domain.PriorityRank(lead.Routing.Priority)
}

func routeOf(lead domain.Lead) int {
	if lead.Routing == nil {
		return domain.RouteRank("")
	}
	return domain.RouteRank(lead.Routing.Route)
}

func scoreOf(lead domain.Lead) float64 {
	if lead.Score == nil {
		return 0
	}
	return lead.Score.Score
}

// Item is a queue entry with role-appropriate skip-trace visibility. Dialers
// see the contact count only; closers and managers get the contacts. The
// masking lives here, at the queue boundary, not in storage.
type Item struct {
	Lead              domain.Lead
	SkipTraceCount    int
	SkipTraceContacts []domain.SkipTraceContact // nil for dialer role
}

// MaskSkipTrace builds queue items from leads and their skip-trace contacts,
// hiding contact values when revealContacts is false.
func MaskSkipTrace(leads []domain.Lead, contacts map[string][]domain.SkipTraceContact, revealContacts bool) []Item {
	items := make([]Item, 0, len(leads))
	for _, lead := range leads {
		leadContacts := contacts[lead.ID.String()]
		item := Item{
			Lead:           lead,
			SkipTraceCount: len(leadContacts),
		}
		if revealContacts {
			item.SkipTraceContacts = leadContacts
		}
		items = append(items, item)
	}
	return items
}
