package application

import (
	"context"
	"sort"
	"strings"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

// AffiliateSummary reports per-link traffic and commission buckets for the
// calling affiliate. Everything is read on demand from committed rows.
func (s *Service) AffiliateSummary(ctx context.Context, actor Actor) (domain.AffiliateSummary, error) {
	affiliateID := strings.TrimSpace(actor.SubjectID)
	if affiliateID == "" {
		return domain.AffiliateSummary{}, domain.ErrUnauthorized
	}
	links, err := s.links.List(ctx, ports.LinkFilter{AffiliateID: affiliateID})
	if err != nil {
		return domain.AffiliateSummary{}, err
	}
	out := domain.AffiliateSummary{AffiliateID: affiliateID, Links: make([]domain.LinkStats, 0, len(links))}
	if len(links) == 0 {
		return out, nil
	}
	linkIDs := make([]string, 0, len(links))
	for _, l := range links {
		linkIDs = append(linkIDs, l.LinkID)
	}
	clickCounts, err := s.clicks.CountByLinks(ctx, linkIDs)
	if err != nil {
		return domain.AffiliateSummary{}, err
	}
	totals, err := s.conversions.SumCommissionByStatus(ctx, linkIDs)
	if err != nil {
		return domain.AffiliateSummary{}, err
	}
	buckets := domain.BucketsByLink(totals)
	for _, l := range links {
		stats := domain.LinkStats{
			LinkID:            l.LinkID,
			Code:              l.Code,
			ProgramID:         l.ProgramID,
			Active:            l.Active,
			Clicks:            clickCounts[l.LinkID],
			CommissionBuckets: buckets[l.LinkID],
		}
		out.Clicks += stats.Clicks
		out.Totals.Merge(stats.CommissionBuckets)
		out.Links = append(out.Links, stats)
	}
	sort.SliceStable(out.Links, func(i, j int) bool { return out.Links[i].Clicks > out.Links[j].Clicks })
	return out, nil
}

func (s *Service) ProgramSummary(ctx context.Context, actor Actor, programID string) (domain.ProgramSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.ProgramSummary{}, err
	}
	program, err := s.GetProgram(ctx, programID)
	if err != nil {
		return domain.ProgramSummary{}, err
	}
	total, active, err := s.links.CountByProgram(ctx, program.ProgramID)
	if err != nil {
		return domain.ProgramSummary{}, err
	}
	return domain.ProgramSummary{ProgramID: program.ProgramID, LinkCount: total, ActiveLinkCount: active}, nil
}

func (s *Service) PlatformSummary(ctx context.Context, actor Actor) (domain.PlatformSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.PlatformSummary{}, err
	}
	var (
		out domain.PlatformSummary
		err error
	)
	if out.Programs, err = s.programs.Count(ctx); err != nil {
		return domain.PlatformSummary{}, err
	}
	if out.Links, err = s.links.Count(ctx); err != nil {
		return domain.PlatformSummary{}, err
	}
	if out.Clicks, err = s.clicks.Count(ctx); err != nil {
		return domain.PlatformSummary{}, err
	}
	totals, err := s.conversions.SumCommissionByStatus(ctx, nil)
	if err != nil {
		return domain.PlatformSummary{}, err
	}
	for _, t := range totals {
		out.Totals.Add(t)
	}
	return out, nil
}
