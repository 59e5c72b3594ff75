package postgres

import (
	"context"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type clickRepository struct {
	db *gorm.DB
}

func (r *clickRepository) Append(ctx context.Context, row domain.Click) (domain.Click, error) {
	rec := clickModel{
		ClickID: row.ClickID, LinkID: row.LinkID, ClickedAt: row.ClickedAt.UTC(),
		IPAddress: row.IPAddress, UserAgent: row.UserAgent, Referer: row.Referer, Country: row.Country,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Click{}, domain.ErrConflict
		}
		return domain.Click{}, err
	}
	return toDomainClick(rec), nil
}

func (r *clickRepository) ListInWindow(ctx context.Context, linkID string, from, to time.Time) ([]domain.Click, error) {
	var rows []clickModel
	err := r.db.WithContext(ctx).
		Where("link_id = ? AND clicked_at >= ? AND clicked_at <= ?", linkID, from.UTC(), to.UTC()).
		Order("clicked_at desc, seq desc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Click, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainClick(row))
	}
	return out, nil
}

func (r *clickRepository) CountByLinks(ctx context.Context, linkIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(linkIDs))
	if len(linkIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		LinkID string `gorm:"column:link_id"`
		Clicks int64  `gorm:"column:clicks"`
	}
	err := r.db.WithContext(ctx).Model(&clickModel{}).
		Select("link_id, COUNT(*) AS clicks").
		Where("link_id IN ?", linkIDs).
		Group("link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, id := range linkIDs {
		out[id] = 0
	}
	for _, row := range rows {
		out[row.LinkID] = int(row.Clicks)
	}
	return out, nil
}

func (r *clickRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&clickModel{}).Count(&n).Error
	return int(n), err
}

var _ ports.ClickRepository = (*clickRepository)(nil)
