package http

import (
	"time"

	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
)

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toConversionResponse(row domain.Conversion) contracts.ConversionResponse {
	return contracts.ConversionResponse{
		ConversionID:      row.ConversionID,
		TransactionID:     row.TransactionID,
		LinkID:            row.LinkID,
		AttributedClickID: row.AttributedClickID,
		Amount:            row.Amount.StringFixed(2),
		Commission:        row.Commission.StringFixed(2),
		Status:            string(row.Status),
		Notes:             row.Notes,
		ConvertedAt:       formatTime(row.ConvertedAt),
		ApprovedAt:        formatTimePtr(row.ApprovedAt),
		PaidAt:            formatTimePtr(row.PaidAt),
	}
}

func toLinkResponse(row domain.Link) contracts.LinkResponse {
	return contracts.LinkResponse{
		LinkID:      row.LinkID,
		Code:        row.Code,
		AffiliateID: row.AffiliateID,
		ProgramID:   row.ProgramID,
		Active:      row.Active,
		RedirectURL: row.RedirectURL,
		CreatedAt:   formatTime(row.CreatedAt),
	}
}

func toProgramResponse(row domain.Program) contracts.ProgramResponse {
	return contracts.ProgramResponse{
		ProgramID:             row.ProgramID,
		Name:                  row.Name,
		Description:           row.Description,
		CommissionModel:       string(row.CommissionModel),
		CommissionRate:        row.CommissionRate.String(),
		TargetURL:             row.TargetURL,
		Active:                row.Active,
		AttributionWindowDays: row.AttributionWindowDays,
		CreatedAt:             formatTime(row.CreatedAt),
		UpdatedAt:             formatTime(row.UpdatedAt),
	}
}

func toCommissionTotals(b domain.CommissionBuckets) contracts.CommissionTotals {
	return contracts.CommissionTotals{
		Conversions:       b.Conversions,
		TotalCommission:   b.Total.StringFixed(2),
		PendingCommission: b.Pending.StringFixed(2),
		PaidCommission:    b.Paid.StringFixed(2),
	}
}

func toDashboardResponse(out domain.AffiliateSummary) contracts.DashboardResponse {
	links := make([]contracts.LinkStatsResponse, 0, len(out.Links))
	for _, row := range out.Links {
		links = append(links, contracts.LinkStatsResponse{
			LinkID:           row.LinkID,
			Code:             row.Code,
			ProgramID:        row.ProgramID,
			Active:           row.Active,
			Clicks:           row.Clicks,
			CommissionTotals: toCommissionTotals(row.CommissionBuckets),
		})
	}
	return contracts.DashboardResponse{
		AffiliateID: out.AffiliateID,
		Clicks:      out.Clicks,
		Links:       links,
		Totals:      toCommissionTotals(out.Totals),
	}
}
