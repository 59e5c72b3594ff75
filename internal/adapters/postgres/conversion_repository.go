package postgres

import (
	"context"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type conversionRepository struct {
	db *gorm.DB
}

func (r *conversionRepository) Create(ctx context.Context, row domain.Conversion) error {
	rec := conversionModel{
		ConversionID: row.ConversionID, TransactionID: row.TransactionID, LinkID: row.LinkID,
		AttributedClickID: row.AttributedClickID, Amount: row.Amount, Commission: row.Commission,
		Status: string(row.Status), Notes: row.Notes, ConvertedAt: row.ConvertedAt.UTC(),
		ApprovedAt: utcPtr(row.ApprovedAt), PaidAt: utcPtr(row.PaidAt), UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateConversion
		}
		return err
	}
	return nil
}

func (r *conversionRepository) GetByID(ctx context.Context, conversionID string) (domain.Conversion, error) {
	return r.take(ctx, "conversion_id = ?", conversionID)
}

func (r *conversionRepository) GetByTransactionID(ctx context.Context, transactionID string) (domain.Conversion, error) {
	return r.take(ctx, "transaction_id = ?", transactionID)
}

func (r *conversionRepository) take(ctx context.Context, query string, args ...any) (domain.Conversion, error) {
	var rec conversionModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return domain.Conversion{}, domain.ErrNotFound
		}
		return domain.Conversion{}, err
	}
	return toDomainConversion(rec), nil
}

func (r *conversionRepository) List(ctx context.Context, filter ports.ConversionFilter) ([]domain.Conversion, error) {
	q := r.db.WithContext(ctx).Model(&conversionModel{})
	if filter.LinkID != "" {
		q = q.Where("link_id = ?", filter.LinkID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []conversionModel
	if err := q.Order("converted_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Conversion, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainConversion(row))
	}
	return out, nil
}

// ApplyStatusChange is a compare-and-set on the current status so two
// concurrent reviewers cannot both move the same conversion.
func (r *conversionRepository) ApplyStatusChange(ctx context.Context, change domain.StatusChange) (domain.Conversion, error) {
	updates := map[string]any{
		"status":     string(change.To),
		"updated_at": change.At.UTC(),
	}
	if change.Notes != nil {
		updates["notes"] = *change.Notes
	}
	switch change.To {
	case domain.ConversionApproved:
		updates["approved_at"] = change.At.UTC()
	case domain.ConversionPaid:
		updates["paid_at"] = change.At.UTC()
	}
	var out domain.Conversion
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&conversionModel{}).
			Where("conversion_id = ? AND status = ?", change.ConversionID, string(change.From)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		var rec conversionModel
		if err := tx.Where("conversion_id = ?", change.ConversionID).Take(&rec).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrNotFound
			}
			return err
		}
		if res.RowsAffected == 0 {
			return domain.ErrConflict
		}
		out = toDomainConversion(rec)
		return nil
	})
	return out, err
}

// Delete is a soft delete. The row disappears from reads and sums but its
// transaction id can never be recorded again.
func (r *conversionRepository) Delete(ctx context.Context, conversionID string) error {
	res := r.db.WithContext(ctx).Where("conversion_id = ?", conversionID).Delete(&conversionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *conversionRepository) SumCommissionByStatus(ctx context.Context, linkIDs []string) ([]domain.StatusTotal, error) {
	q := r.db.WithContext(ctx).Model(&conversionModel{}).
		Select("link_id, status, COUNT(*) AS conversions, COALESCE(SUM(commission), 0) AS commission")
	if len(linkIDs) > 0 {
		q = q.Where("link_id IN ?", linkIDs)
	}
	var rows []statusTotalRow
	if err := q.Group("link_id, status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.StatusTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.StatusTotal{
			LinkID: row.LinkID, Status: domain.ConversionStatus(row.Status),
			Conversions: row.Conversions, Commission: domain.RoundMoney(row.Commission),
		})
	}
	return out, nil
}

var _ ports.ConversionRepository = (*conversionRepository)(nil)
