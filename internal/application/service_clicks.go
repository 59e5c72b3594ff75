package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
)

// RecordClick logs one visit through code. Resolution failures surface as
// ErrInvalidLink and leave no click behind. Repeated visits are all recorded.
func (s *Service) RecordClick(ctx context.Context, code string, meta domain.RequestMetadata, traceID string) (RecordClickResult, error) {
	resolved, err := s.ResolveLink(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrLinkNotFound) && !errors.Is(err, domain.ErrLinkInactive) {
			return RecordClickResult{}, err
		}
		s.metrics.ClickRecorded("invalid_link")
		return RecordClickResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidLink, err)
	}
	click := domain.Click{
		ClickID:   uuid.NewString(),
		LinkID:    resolved.Link.LinkID,
		ClickedAt: s.nowFn(),
		IPAddress: strings.TrimSpace(meta.IPAddress),
		UserAgent: strings.TrimSpace(meta.UserAgent),
		Referer:   strings.TrimSpace(meta.Referer),
	}
	if country := strings.ToUpper(strings.TrimSpace(meta.Country)); country != "" {
		click.Country = &country
	}
	stored, err := s.clicks.Append(ctx, click)
	if err != nil {
		s.metrics.ClickRecorded("error")
		return RecordClickResult{}, err
	}
	s.metrics.ClickRecorded("recorded")

	payload := contracts.ClickRecordedPayload{ClickID: stored.ClickID, LinkID: stored.LinkID, Referer: stored.Referer, ClickedAt: formatTime(stored.ClickedAt)}
	if stored.Country != nil {
		payload.Country = *stored.Country
	}
	_ = s.enqueueEvent(ctx, domain.EventAffiliateClickRecorded, traceID, payload, stored.LinkID)

	return RecordClickResult{
		LinkID:              resolved.Link.LinkID,
		RedirectURL:         resolved.Program.TargetURL,
		AttributionToken:    resolved.Link.Code,
		CookieMaxAgeMinutes: resolved.Program.CookieMaxAgeMinutes(),
		Click:               stored,
	}, nil
}
