package postgres

import (
	"context"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type linkRepository struct {
	db *gorm.DB
}

func (r *linkRepository) Create(ctx context.Context, row domain.Link) error {
	rec := linkModel{
		LinkID: row.LinkID, Code: row.Code, AffiliateID: row.AffiliateID, ProgramID: row.ProgramID,
		Active: row.Active, RedirectURL: row.RedirectURL, CreatedAt: row.CreatedAt.UTC(), UpdatedAt: row.UpdatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	// Translated errors drop the constraint name; the pair lookup tells the
	// two unique indexes apart.
	if _, getErr := r.GetByAffiliateAndProgram(ctx, row.AffiliateID, row.ProgramID); getErr == nil {
		return domain.ErrLinkExists
	}
	return domain.ErrLinkCodeTaken
}

func (r *linkRepository) GetByID(ctx context.Context, linkID string) (domain.Link, error) {
	return r.take(ctx, "link_id = ?", linkID)
}

func (r *linkRepository) GetByCode(ctx context.Context, code string) (domain.Link, error) {
	return r.take(ctx, "code = ?", code)
}

func (r *linkRepository) GetByAffiliateAndProgram(ctx context.Context, affiliateID, programID string) (domain.Link, error) {
	return r.take(ctx, "affiliate_id = ? AND program_id = ?", affiliateID, programID)
}

func (r *linkRepository) take(ctx context.Context, query string, args ...any) (domain.Link, error) {
	var rec linkModel
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return domain.Link{}, domain.ErrNotFound
		}
		return domain.Link{}, err
	}
	return toDomainLink(rec), nil
}

func (r *linkRepository) List(ctx context.Context, filter ports.LinkFilter) ([]domain.Link, error) {
	q := r.db.WithContext(ctx).Model(&linkModel{})
	if filter.AffiliateID != "" {
		q = q.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.ProgramID != "" {
		q = q.Where("program_id = ?", filter.ProgramID)
	}
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	var rows []linkModel
	if err := q.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Link, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLink(row))
	}
	return out, nil
}

func (r *linkRepository) SetActive(ctx context.Context, linkID string, active bool, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&linkModel{}).Where("link_id = ?", linkID).Updates(map[string]any{
		"active":     active,
		"updated_at": at.UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *linkRepository) CountByProgram(ctx context.Context, programID string) (int, int, error) {
	var row struct {
		Total  int64 `gorm:"column:total"`
		Active int64 `gorm:"column:active_total"`
	}
	err := r.db.WithContext(ctx).Model(&linkModel{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN active THEN 1 ELSE 0 END), 0) AS active_total").
		Where("program_id = ?", programID).
		Scan(&row).Error
	return int(row.Total), int(row.Active), err
}

func (r *linkRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&linkModel{}).Count(&n).Error
	return int(n), err
}

var _ ports.LinkRepository = (*linkRepository)(nil)
