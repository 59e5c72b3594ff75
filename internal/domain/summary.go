package domain

import "github.com/shopspring/decimal"

// StatusTotal is one (link, status) group of conversions.
type StatusTotal struct {
	LinkID      string
	Status      ConversionStatus
	Conversions int
	Commission  decimal.Decimal
}

// CommissionBuckets follows the ledger visibility rules: rejected never counts,
// approved counts toward Total only.
type CommissionBuckets struct {
	Conversions int             `json:"conversions"`
	Total       decimal.Decimal `json:"total_commission"`
	Pending     decimal.Decimal `json:"pending_commission"`
	Paid        decimal.Decimal `json:"paid_commission"`
}

func (b *CommissionBuckets) Add(t StatusTotal) {
	if t.Status == ConversionRejected {
		return
	}
	b.Conversions += t.Conversions
	b.Total = RoundMoney(b.Total.Add(t.Commission))
	switch t.Status {
	case ConversionPending:
		b.Pending = RoundMoney(b.Pending.Add(t.Commission))
	case ConversionPaid:
		b.Paid = RoundMoney(b.Paid.Add(t.Commission))
	}
}

func (b *CommissionBuckets) Merge(o CommissionBuckets) {
	b.Conversions += o.Conversions
	b.Total = RoundMoney(b.Total.Add(o.Total))
	b.Pending = RoundMoney(b.Pending.Add(o.Pending))
	b.Paid = RoundMoney(b.Paid.Add(o.Paid))
}

// BucketsByLink folds grouped totals into per-link buckets.
func BucketsByLink(totals []StatusTotal) map[string]CommissionBuckets {
	out := make(map[string]CommissionBuckets)
	for _, t := range totals {
		b := out[t.LinkID]
		b.Add(t)
		out[t.LinkID] = b
	}
	return out
}

type LinkStats struct {
	LinkID    string `json:"link_id"`
	Code      string `json:"code"`
	ProgramID string `json:"program_id"`
	Active    bool   `json:"active"`
	Clicks    int    `json:"clicks"`
	CommissionBuckets
}

type AffiliateSummary struct {
	AffiliateID string            `json:"affiliate_id"`
	Links       []LinkStats       `json:"links"`
	Clicks      int               `json:"clicks"`
	Totals      CommissionBuckets `json:"totals"`
}

type ProgramSummary struct {
	ProgramID       string `json:"program_id"`
	LinkCount       int    `json:"link_count"`
	ActiveLinkCount int    `json:"active_link_count"`
}

type PlatformSummary struct {
	Programs int               `json:"programs"`
	Links    int               `json:"links"`
	Clicks   int               `json:"clicks"`
	Totals   CommissionBuckets `json:"totals"`
}
