package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

type ProgramRepository struct {
	mu   sync.Mutex
	byID map[string]domain.Program
}

func (r *ProgramRepository) Create(_ context.Context, row domain.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.ProgramID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.ProgramID] = row
	return nil
}

func (r *ProgramRepository) GetByID(_ context.Context, programID string) (domain.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[strings.TrimSpace(programID)]
	if !ok {
		return domain.Program{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ProgramRepository) List(_ context.Context, filter ports.ProgramFilter) ([]domain.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Program, 0, len(r.byID))
	for _, row := range r.byID {
		if filter.Active != nil && row.Active != *filter.Active {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ProgramRepository) Update(_ context.Context, row domain.Program) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[row.ProgramID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[row.ProgramID] = row
	return nil
}

func (r *ProgramRepository) Delete(_ context.Context, programID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[programID]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, programID)
	return nil
}

func (r *ProgramRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

type LinkRepository struct {
	mu     sync.Mutex
	byID   map[string]domain.Link
	byCode map[string]string
	byPair map[string]string
}

func pairKey(affiliateID, programID string) string { return affiliateID + "\x00" + programID }

func (r *LinkRepository) Create(_ context.Context, row domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPair[pairKey(row.AffiliateID, row.ProgramID)]; ok {
		return domain.ErrLinkExists
	}
	if _, ok := r.byCode[row.Code]; ok {
		return domain.ErrLinkCodeTaken
	}
	if _, ok := r.byID[row.LinkID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.LinkID] = row
	r.byCode[row.Code] = row.LinkID
	r.byPair[pairKey(row.AffiliateID, row.ProgramID)] = row.LinkID
	return nil
}

func (r *LinkRepository) GetByID(_ context.Context, linkID string) (domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[strings.TrimSpace(linkID)]
	if !ok {
		return domain.Link{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *LinkRepository) GetByCode(_ context.Context, code string) (domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byCode[code]
	if !ok {
		return domain.Link{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *LinkRepository) GetByAffiliateAndProgram(_ context.Context, affiliateID, programID string) (domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byPair[pairKey(affiliateID, programID)]
	if !ok {
		return domain.Link{}, domain.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *LinkRepository) List(_ context.Context, filter ports.LinkFilter) ([]domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Link, 0)
	for _, row := range r.byID {
		if filter.AffiliateID != "" && row.AffiliateID != filter.AffiliateID {
			continue
		}
		if filter.ProgramID != "" && row.ProgramID != filter.ProgramID {
			continue
		}
		if filter.Active != nil && row.Active != *filter.Active {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *LinkRepository) SetActive(_ context.Context, linkID string, active bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[linkID]
	if !ok {
		return domain.ErrNotFound
	}
	row.Active = active
	row.UpdatedAt = at
	r.byID[linkID] = row
	return nil
}

func (r *LinkRepository) CountByProgram(_ context.Context, programID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total, active := 0, 0
	for _, row := range r.byID {
		if row.ProgramID != programID {
			continue
		}
		total++
		if row.Active {
			active++
		}
	}
	return total, active, nil
}

func (r *LinkRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

type ClickRepository struct {
	mu     sync.Mutex
	seq    int64
	total  int
	byLink map[string][]domain.Click
}

func (r *ClickRepository) Append(_ context.Context, row domain.Click) (domain.Click, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	row.Seq = r.seq
	r.byLink[row.LinkID] = append(r.byLink[row.LinkID], row)
	r.total++
	return row, nil
}

func (r *ClickRepository) ListInWindow(_ context.Context, linkID string, from, to time.Time) ([]domain.Click, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Click, 0)
	for _, c := range r.byLink[linkID] {
		if c.ClickedAt.Before(from) || c.ClickedAt.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ClickRepository) CountByLinks(_ context.Context, linkIDs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(linkIDs))
	for _, id := range linkIDs {
		out[id] = len(r.byLink[id])
	}
	return out, nil
}

func (r *ClickRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total, nil
}

type ConversionRepository struct {
	mu    sync.Mutex
	byID  map[string]domain.Conversion
	byTxn map[string]string
}

func (r *ConversionRepository) Create(_ context.Context, row domain.Conversion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTxn[row.TransactionID]; ok {
		return domain.ErrDuplicateConversion
	}
	if _, ok := r.byID[row.ConversionID]; ok {
		return domain.ErrConflict
	}
	r.byID[row.ConversionID] = row
	r.byTxn[row.TransactionID] = row.ConversionID
	return nil
}

func (r *ConversionRepository) GetByID(_ context.Context, conversionID string) (domain.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[conversionID]
	if !ok {
		return domain.Conversion{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ConversionRepository) GetByTransactionID(_ context.Context, transactionID string) (domain.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTxn[transactionID]
	if !ok {
		return domain.Conversion{}, domain.ErrNotFound
	}
	row, ok := r.byID[id]
	if !ok {
		return domain.Conversion{}, domain.ErrNotFound
	}
	return row, nil
}

func (r *ConversionRepository) List(_ context.Context, filter ports.ConversionFilter) ([]domain.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Conversion, 0)
	for _, row := range r.byID {
		if filter.LinkID != "" && row.LinkID != filter.LinkID {
			continue
		}
		if filter.Status != "" && row.Status != filter.Status {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConvertedAt.After(out[j].ConvertedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *ConversionRepository) ApplyStatusChange(_ context.Context, change domain.StatusChange) (domain.Conversion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[change.ConversionID]
	if !ok {
		return domain.Conversion{}, domain.ErrNotFound
	}
	if row.Status != change.From {
		return domain.Conversion{}, domain.ErrConflict
	}
	row.Status = change.To
	row.UpdatedAt = change.At
	if change.Notes != nil {
		row.Notes = *change.Notes
	}
	at := change.At
	switch change.To {
	case domain.ConversionApproved:
		row.ApprovedAt = &at
	case domain.ConversionPaid:
		row.PaidAt = &at
	}
	r.byID[row.ConversionID] = row
	return row, nil
}

func (r *ConversionRepository) Delete(_ context.Context, conversionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[conversionID]
	if !ok {
		return domain.ErrNotFound
	}
	// byTxn keeps the entry so the transaction id stays taken.
	delete(r.byID, row.ConversionID)
	return nil
}

func (r *ConversionRepository) SumCommissionByStatus(_ context.Context, linkIDs []string) ([]domain.StatusTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var wanted map[string]bool
	if len(linkIDs) > 0 {
		wanted = make(map[string]bool, len(linkIDs))
		for _, id := range linkIDs {
			wanted[id] = true
		}
	}
	type groupKey struct {
		link   string
		status domain.ConversionStatus
	}
	groups := map[groupKey]*domain.StatusTotal{}
	for _, row := range r.byID {
		if wanted != nil && !wanted[row.LinkID] {
			continue
		}
		k := groupKey{row.LinkID, row.Status}
		g, ok := groups[k]
		if !ok {
			g = &domain.StatusTotal{LinkID: row.LinkID, Status: row.Status}
			groups[k] = g
		}
		g.Conversions++
		g.Commission = g.Commission.Add(row.Commission)
	}
	out := make([]domain.StatusTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	return out, nil
}

type AuditLogRepository struct {
	mu   sync.Mutex
	rows []domain.AuditLog
}

func (r *AuditLogRepository) Append(_ context.Context, row domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return nil
}

func (r *AuditLogRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditLog, 0)
	for _, row := range r.rows {
		if row.EntityType == entityType && row.EntityID == entityID {
			out = append(out, row)
		}
	}
	return out, nil
}
