package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

const linkCachePrefix = "affiliate:link:code:"

// JoinProgram is the affiliate-facing createOrGetLink.
func (s *Service) JoinProgram(ctx context.Context, actor Actor, programID string) (JoinResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return JoinResult{}, domain.ErrUnauthorized
	}
	return s.CreateOrGetLink(ctx, actor.SubjectID, programID, actor.RequestID)
}

// CreateOrGetLink returns the existing link for (affiliate, program) or creates
// one. A unique violation on the pair is treated as a concurrent join and
// resolved by re-reading; a code collision retries with a fresh code.
func (s *Service) CreateOrGetLink(ctx context.Context, affiliateID, programID, traceID string) (JoinResult, error) {
	affiliateID = strings.TrimSpace(affiliateID)
	programID = strings.TrimSpace(programID)
	if affiliateID == "" || programID == "" {
		return JoinResult{}, domain.ErrInvalidInput
	}
	if existing, err := s.links.GetByAffiliateAndProgram(ctx, affiliateID, programID); err == nil {
		return JoinResult{Link: existing}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return JoinResult{}, err
	}
	program, err := s.programs.GetByID(ctx, programID)
	if err != nil {
		return JoinResult{}, err
	}
	if !program.Active {
		return JoinResult{}, domain.ErrProgramInactive
	}

	for attempt := 0; attempt < s.cfg.LinkCodeMaxAttempts; attempt++ {
		code, err := s.newCodeFn()
		if err != nil {
			return JoinResult{}, err
		}
		now := s.nowFn()
		link := domain.Link{
			LinkID:      uuid.NewString(),
			Code:        code,
			AffiliateID: affiliateID,
			ProgramID:   programID,
			Active:      true,
			RedirectURL: domain.BuildRedirectURL(s.cfg.PublicBaseURL, code),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err = s.links.Create(ctx, link)
		if err == nil {
			_ = s.enqueueEvent(ctx, domain.EventAffiliateLinkCreated, traceID, contracts.LinkCreatedPayload{
				LinkID: link.LinkID, Code: link.Code, AffiliateID: link.AffiliateID, ProgramID: link.ProgramID, CreatedAt: formatTime(now),
			}, link.LinkID)
			return JoinResult{Link: link, Created: true}, nil
		}
		if !errors.Is(err, domain.ErrLinkExists) && !errors.Is(err, domain.ErrLinkCodeTaken) {
			return JoinResult{}, err
		}
		if existing, getErr := s.links.GetByAffiliateAndProgram(ctx, affiliateID, programID); getErr == nil {
			return JoinResult{Link: existing}, nil
		}
	}
	return JoinResult{}, fmt.Errorf("%w: could not allocate a unique link code", domain.ErrConflict)
}

// ResolveLink looks a code up and fails with ErrLinkNotFound or ErrLinkInactive.
func (s *Service) ResolveLink(ctx context.Context, code string) (domain.ResolvedLink, error) {
	code = domain.NormalizeLinkCode(code)
	if code == "" {
		return domain.ResolvedLink{}, domain.ErrLinkNotFound
	}
	resolved, err := s.loadResolvedLink(ctx, code)
	if err != nil {
		return domain.ResolvedLink{}, err
	}
	if err := resolved.Check(); err != nil {
		return domain.ResolvedLink{}, err
	}
	return resolved, nil
}

func (s *Service) loadResolvedLink(ctx context.Context, code string) (domain.ResolvedLink, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, linkCachePrefix+code); err == nil {
			var out domain.ResolvedLink
			if json.Unmarshal([]byte(raw), &out) == nil {
				return out, nil
			}
		}
	}
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ResolvedLink{}, domain.ErrLinkNotFound
		}
		return domain.ResolvedLink{}, err
	}
	program, err := s.programs.GetByID(ctx, link.ProgramID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ResolvedLink{}, domain.ErrLinkNotFound
		}
		return domain.ResolvedLink{}, err
	}
	out := domain.ResolvedLink{Link: link, Program: program}
	if s.cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			key := linkCachePrefix + code
			_ = s.cache.Set(ctx, key, string(raw), s.cfg.LinkCacheTTL)
			// An admin change committed while this snapshot loaded has already
			// run its invalidation, so the write is checked against the rows.
			if !s.snapshotCurrent(ctx, out, raw) {
				_ = s.cache.Delete(ctx, key)
			}
		}
	}
	return out, nil
}

func (s *Service) snapshotCurrent(ctx context.Context, snapshot domain.ResolvedLink, raw []byte) bool {
	link, err := s.links.GetByCode(ctx, snapshot.Link.Code)
	if err != nil {
		return false
	}
	program, err := s.programs.GetByID(ctx, link.ProgramID)
	if err != nil {
		return false
	}
	current, err := json.Marshal(domain.ResolvedLink{Link: link, Program: program})
	return err == nil && bytes.Equal(current, raw)
}

func (s *Service) ListLinks(ctx context.Context, actor Actor, filter ports.LinkFilter) ([]domain.Link, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.links.List(ctx, filter)
}

func (s *Service) SetLinkActive(ctx context.Context, actor Actor, linkID string, active bool, reason string) (domain.Link, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Link{}, err
	}
	linkID = strings.TrimSpace(linkID)
	if linkID == "" {
		return domain.Link{}, domain.ErrInvalidInput
	}
	if err := s.links.SetActive(ctx, linkID, active, s.nowFn()); err != nil {
		return domain.Link{}, err
	}
	link, err := s.links.GetByID(ctx, linkID)
	if err != nil {
		return domain.Link{}, err
	}
	s.invalidateCodes(ctx, link.Code)
	action := "link.deactivated"
	if active {
		action = "link.activated"
	}
	_ = s.appendAudit(ctx, domain.AuditEntityLink, link.LinkID, action, actor.SubjectID, strings.TrimSpace(reason), map[string]string{"code": link.Code})
	return link, nil
}

func (s *Service) invalidateProgramLinks(ctx context.Context, programID string) {
	if s.cache == nil {
		return
	}
	links, err := s.links.List(ctx, ports.LinkFilter{ProgramID: programID})
	if err != nil {
		return
	}
	codes := make([]string, 0, len(links))
	for _, l := range links {
		codes = append(codes, l.Code)
	}
	s.invalidateCodes(ctx, codes...)
}

func (s *Service) invalidateCodes(ctx context.Context, codes ...string) {
	if s.cache == nil || len(codes) == 0 {
		return
	}
	keys := make([]string, 0, len(codes))
	for _, c := range codes {
		keys = append(keys, linkCachePrefix+c)
	}
	_ = s.cache.Delete(ctx, keys...)
}
