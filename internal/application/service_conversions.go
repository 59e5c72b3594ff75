package application

import (
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

// RecordConversion stores a conversion exactly once per transaction id. The
// pre-insert lookup is a shortcut only; the transaction_id unique constraint
// decides concurrent races and surfaces as ErrDuplicateConversion.
func (s *Service) RecordConversion(ctx context.Context, in RecordConversionInput) (domain.Conversion, error) {
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if in.TransactionID == "" {
		s.metrics.ConversionRecorded("invalid_input")
		return domain.Conversion{}, fmt.Errorf("%w: transaction_id is required", domain.ErrInvalidInput)
	}
	if in.Amount.IsNegative() {
		s.metrics.ConversionRecorded("invalid_input")
		return domain.Conversion{}, fmt.Errorf("%w: amount must be >= 0", domain.ErrInvalidInput)
	}

	code := domain.NormalizeLinkCode(in.AffiliateCode)
	if code == "" {
		code = domain.NormalizeLinkCode(in.AttributionToken)
	}
	if code == "" {
		s.metrics.ConversionRecorded("no_attribution_code")
		return domain.Conversion{}, domain.ErrNoAttributionCode
	}

	resolved, err := s.ResolveLink(ctx, code)
	if err != nil {
		if !errors.Is(err, domain.ErrLinkNotFound) && !errors.Is(err, domain.ErrLinkInactive) {
			return domain.Conversion{}, err
		}
		s.metrics.ConversionRecorded("invalid_link")
		return domain.Conversion{}, fmt.Errorf("%w: %w", domain.ErrInvalidLink, err)
	}

	if _, err := s.conversions.GetByTransactionID(ctx, in.TransactionID); err == nil {
		s.metrics.ConversionRecorded("duplicate")
		return domain.Conversion{}, domain.ErrDuplicateConversion
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Conversion{}, err
	}

	commission, err := domain.ComputeCommission(resolved.Program.CommissionModel, resolved.Program.CommissionRate, in.Amount)
	if err != nil {
		return domain.Conversion{}, err
	}

	now := s.nowFn()
	candidates, err := s.clicks.ListInWindow(ctx, resolved.Link.LinkID, now.Add(-resolved.Program.AttributionWindow()), now)
	if err != nil {
		return domain.Conversion{}, err
	}
	row := domain.Conversion{
		ConversionID:  uuid.NewString(),
		TransactionID: in.TransactionID,
		LinkID:        resolved.Link.LinkID,
		Amount:        domain.RoundMoney(in.Amount),
		Commission:    commission,
		Status:        domain.ConversionPending,
		ConvertedAt:   now,
		UpdatedAt:     now,
	}
	if click, ok := domain.ResolveAttribution(candidates, resolved.Link.LinkID, resolved.Program.AttributionWindow(), now); ok {
		clickID := click.ClickID
		row.AttributedClickID = &clickID
	}

	if err := s.conversions.Create(ctx, row); err != nil {
		if errors.Is(err, domain.ErrDuplicateConversion) {
			s.metrics.ConversionRecorded("duplicate")
		}
		return domain.Conversion{}, err
	}
	s.metrics.ConversionRecorded("recorded")

	payload := contracts.ConversionRecordedPayload{
		ConversionID: row.ConversionID, TransactionID: row.TransactionID, LinkID: row.LinkID,
		Amount: row.Amount.StringFixed(2), Commission: row.Commission.StringFixed(2), Status: string(row.Status), ConvertedAt: formatTime(row.ConvertedAt),
	}
	if row.AttributedClickID != nil {
		payload.AttributedClickID = *row.AttributedClickID
	}
	_ = s.enqueueEvent(ctx, domain.EventAffiliateConversionRecorded, in.TraceID, payload, row.LinkID)
	return row, nil
}

// UpdateConversionStatus moves a conversion along the status graph. The write
// only lands if the status read here is still current, so two concurrent
// admins cannot both succeed from the same starting state.
func (s *Service) UpdateConversionStatus(ctx context.Context, actor Actor, in UpdateStatusInput) (domain.Conversion, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Conversion{}, err
	}
	in.ConversionID = strings.TrimSpace(in.ConversionID)
	if in.ConversionID == "" {
		return domain.Conversion{}, fmt.Errorf("%w: conversion id is required", domain.ErrInvalidInput)
	}
	to, err := domain.ParseConversionStatus(in.Status)
	if err != nil {
		return domain.Conversion{}, err
	}

	requestHash := hashJSON(map[string]any{"op": "update_conversion_status", "conversion_id": in.ConversionID, "status": to, "notes": in.Notes})
	if raw, ok, err := s.getIdempotent(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Conversion{}, err
	} else if ok {
		var out domain.Conversion
		if json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
	}

	current, err := s.conversions.GetByID(ctx, in.ConversionID)
	if err != nil {
		return domain.Conversion{}, err
	}
	if err := domain.ValidateStatusTransition(current.Status, to); err != nil {
		return domain.Conversion{}, err
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Conversion{}, err
	}

	now := s.nowFn()
	updated, err := s.conversions.ApplyStatusChange(ctx, domain.StatusChange{
		ConversionID: current.ConversionID, From: current.Status, To: to, Notes: trimmedPtr(in.Notes), At: now,
	})
	if err != nil {
		s.releaseIdempotency(ctx, actor.IdempotencyKey)
		return domain.Conversion{}, err
	}
	s.metrics.StatusTransitioned(string(current.Status), string(to))

	meta := map[string]string{"from": string(current.Status), "to": string(to), "transaction_id": current.TransactionID}
	reason := ""
	if in.Notes != nil {
		reason = strings.TrimSpace(*in.Notes)
	}
	_ = s.appendAudit(ctx, domain.AuditEntityConversion, current.ConversionID, "conversion.status_changed", actor.SubjectID, reason, meta)
	_ = s.enqueueEvent(ctx, domain.EventAffiliateConversionStatusChanged, actor.RequestID, contracts.ConversionStatusChangedPayload{
		ConversionID: updated.ConversionID, LinkID: updated.LinkID, FromStatus: string(current.Status), ToStatus: string(to),
		Commission: updated.Commission.StringFixed(2), ChangedBy: actor.SubjectID, ChangedAt: formatTime(now),
	}, updated.LinkID)
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, updated)
	return updated, nil
}

func (s *Service) GetConversion(ctx context.Context, actor Actor, conversionID string) (domain.Conversion, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Conversion{}, err
	}
	return s.conversions.GetByID(ctx, strings.TrimSpace(conversionID))
}

func (s *Service) ListConversions(ctx context.Context, actor Actor, filter ports.ConversionFilter) ([]domain.Conversion, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if filter.Status != "" {
		status, err := domain.ParseConversionStatus(string(filter.Status))
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if filter.Limit <= 0 {
		filter.Limit = s.cfg.DefaultListLimit
	}
	return s.conversions.List(ctx, filter)
}

// DeleteConversion removes a conversion on explicit admin request and keeps a
// snapshot of it in the audit log.
func (s *Service) DeleteConversion(ctx context.Context, actor Actor, conversionID, reason string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	row, err := s.conversions.GetByID(ctx, strings.TrimSpace(conversionID))
	if err != nil {
		return err
	}
	if err := s.conversions.Delete(ctx, row.ConversionID); err != nil {
		return err
	}
	meta := map[string]string{
		"transaction_id": row.TransactionID,
		"link_id":        row.LinkID,
		"status":         string(row.Status),
		"amount":         row.Amount.StringFixed(2),
		"commission":     row.Commission.StringFixed(2),
	}
	return s.appendAudit(ctx, domain.AuditEntityConversion, row.ConversionID, "conversion.deleted", actor.SubjectID, strings.TrimSpace(reason), meta)
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}
