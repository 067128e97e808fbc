package service

import (
	"context"
	"time"

	"dealflow_backend/internal/kpi/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SectionReport is the SLA summary for one grade/route population.
type SectionReport struct {
	Grade            string
	Route            string
	TotalRouted      int
	Actioned         int
	WithinSLA        int
	Missed           int // routed but no qualifying action; not counted as zero elapsed
	AvgMinutes       float64
	SLACompliancePct float64
}

// PerformanceReport is the population-wide routing SLA report.
type PerformanceReport struct {
	StartDate        time.Time
	EndDate          time.Time
	CloserSection    SectionReport // A-grade leads routed to immediate_closer
	DialerSection    SectionReport // B-grade leads routed to dialer_priority
	OverridesByActor map[uuid.UUID]int
}

// RoutingPerformance computes the SLA report for [start, end). The two
// population sections and the override counts are independent queries and run
// concurrently.
func (s *Service) RoutingPerformance(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (PerformanceReport, error) {
	report := PerformanceReport{StartDate: start, EndDate: end}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		leads, err := s.repo.ListRoutedLeads(gctx, tenantID, "A", "immediate_closer", start, end)
		if err != nil {
			return err
		}
		report.CloserSection = buildSection("A", "immediate_closer", leads, firstCloserAction)
		return nil
	})

	g.Go(func() error {
		leads, err := s.repo.ListRoutedLeads(gctx, tenantID, "B", "dialer_priority", start, end)
		if err != nil {
			return err
		}
		report.DialerSection = buildSection("B", "dialer_priority", leads, intakeCompletion)
		return nil
	})

	g.Go(func() error {
		overrides, err := s.repo.CountOverridesByActor(gctx, tenantID, start, end)
		if err != nil {
			return err
		}
		report.OverridesByActor = overrides
		return nil
	})

	if err := g.Wait(); err != nil {
		return PerformanceReport{}, err
	}
	return report, nil
}

// firstCloserAction is the terminating event for the closer section: the
// earliest of offer sent, contract sent, or handoff sent.
func firstCloserAction(lead repository.RoutedLead) *time.Time {
	return earliest(lead.OfferSentAt, lead.ContractSentAt, lead.SentToCloserAt)
}

// intakeCompletion is the terminating event for the dialer section.
func intakeCompletion(lead repository.RoutedLead) *time.Time {
	return lead.IntakeCompletedAt
}

func earliest(candidates ...*time.Time) *time.Time {
	var first *time.Time
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if first == nil || c.Before(*first) {
			first = c
		}
	}
	return first
}

func buildSection(grade, route string, leads []repository.RoutedLead, terminator func(repository.RoutedLead) *time.Time) SectionReport {
	section := SectionReport{
		Grade:       grade,
		Route:       route,
		TotalRouted: len(leads),
	}

	var totalMinutes float64
	for _, lead := range leads {
		actionAt := terminator(lead)
		if actionAt == nil || actionAt.Before(lead.RoutedAt) {
			section.Missed++
			continue
		}

		elapsed := actionAt.Sub(lead.RoutedAt)
		section.Actioned++
		totalMinutes += elapsed.Minutes()
		if elapsed <= time.Duration(lead.SLAHours)*time.Hour {
			section.WithinSLA++
		}
	}

	if section.Actioned > 0 {
		section.AvgMinutes = round2(totalMinutes / float64(section.Actioned))
	}
	if section.TotalRouted > 0 {
		section.SLACompliancePct = round2(float64(section.WithinSLA) / float64(section.TotalRouted) * 100)
	}
	return section
}
