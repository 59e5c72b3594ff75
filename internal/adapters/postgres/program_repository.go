package postgres

import (
	"context"

	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
	"gorm.io/gorm"
)

type programRepository struct {
	db *gorm.DB
}

func (r *programRepository) Create(ctx context.Context, row domain.Program) error {
	rec := fromDomainProgram(row)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *programRepository) GetByID(ctx context.Context, programID string) (domain.Program, error) {
	var rec programModel
	if err := r.db.WithContext(ctx).Where("program_id = ?", programID).Take(&rec).Error; err != nil {
		if isNotFound(err) {
			return domain.Program{}, domain.ErrNotFound
		}
		return domain.Program{}, err
	}
	return toDomainProgram(rec), nil
}

func (r *programRepository) List(ctx context.Context, filter ports.ProgramFilter) ([]domain.Program, error) {
	q := r.db.WithContext(ctx).Model(&programModel{})
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	var rows []programModel
	if err := q.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Program, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainProgram(row))
	}
	return out, nil
}

func (r *programRepository) Update(ctx context.Context, row domain.Program) error {
	rec := fromDomainProgram(row)
	res := r.db.WithContext(ctx).Model(&programModel{}).Where("program_id = ?", row.ProgramID).Updates(map[string]any{
		"name":                    rec.Name,
		"description":             rec.Description,
		"commission_model":        rec.CommissionModel,
		"commission_rate":         rec.CommissionRate,
		"target_url":              rec.TargetURL,
		"active":                  rec.Active,
		"attribution_window_days": rec.AttributionWindowDays,
		"updated_at":              rec.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *programRepository) Delete(ctx context.Context, programID string) error {
	res := r.db.WithContext(ctx).Where("program_id = ?", programID).Delete(&programModel{})
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return domain.ErrConflict
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *programRepository) Count(ctx context.Context) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&programModel{}).Count(&n).Error
	return int(n), err
}

var _ ports.ProgramRepository = (*programRepository)(nil)
