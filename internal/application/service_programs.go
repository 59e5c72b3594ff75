package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

func (s *Service) CreateProgram(ctx context.Context, actor Actor, in ProgramPatch) (domain.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Program{}, err
	}
	now := s.nowFn()
	row := domain.Program{
		ProgramID:             uuid.NewString(),
		Active:                true,
		AttributionWindowDays: domain.DefaultAttributionWindowDays,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := applyProgramPatch(&row, in); err != nil {
		return domain.Program{}, err
	}
	if err := row.Validate(); err != nil {
		return domain.Program{}, err
	}
	if err := s.programs.Create(ctx, row); err != nil {
		return domain.Program{}, err
	}
	_ = s.appendAudit(ctx, domain.AuditEntityProgram, row.ProgramID, "program.created", actor.SubjectID, "", map[string]string{"name": row.Name})
	_ = s.enqueueProgramChanged(ctx, row, "created", actor.RequestID)
	return row, nil
}

func (s *Service) GetProgram(ctx context.Context, programID string) (domain.Program, error) {
	programID = strings.TrimSpace(programID)
	if programID == "" {
		return domain.Program{}, domain.ErrInvalidInput
	}
	return s.programs.GetByID(ctx, programID)
}

func (s *Service) ListPrograms(ctx context.Context, actor Actor, active *bool) ([]domain.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.programs.List(ctx, ports.ProgramFilter{Active: active})
}

func (s *Service) UpdateProgram(ctx context.Context, actor Actor, programID string, in ProgramPatch) (domain.Program, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Program{}, err
	}
	row, err := s.GetProgram(ctx, programID)
	if err != nil {
		return domain.Program{}, err
	}
	wasActive := row.Active
	if err := applyProgramPatch(&row, in); err != nil {
		return domain.Program{}, err
	}
	if err := row.Validate(); err != nil {
		return domain.Program{}, err
	}
	row.UpdatedAt = s.nowFn()
	if err := s.programs.Update(ctx, row); err != nil {
		return domain.Program{}, err
	}
	// Cached resolutions embed the program snapshot.
	s.invalidateProgramLinks(ctx, row.ProgramID)
	meta := map[string]string{"active": fmt.Sprintf("%t", row.Active)}
	_ = s.appendAudit(ctx, domain.AuditEntityProgram, row.ProgramID, "program.updated", actor.SubjectID, "", meta)
	action := "updated"
	if wasActive != row.Active {
		action = "deactivated"
		if row.Active {
			action = "activated"
		}
	}
	_ = s.enqueueProgramChanged(ctx, row, action, actor.RequestID)
	return row, nil
}

// DeleteProgram is blocked while any link references the program; links keep
// attribution history and are never removed implicitly.
func (s *Service) DeleteProgram(ctx context.Context, actor Actor, programID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	row, err := s.GetProgram(ctx, programID)
	if err != nil {
		return err
	}
	total, _, err := s.links.CountByProgram(ctx, row.ProgramID)
	if err != nil {
		return err
	}
	if total > 0 {
		return fmt.Errorf("%w: program has %d links; deactivate it instead", domain.ErrConflict, total)
	}
	if err := s.programs.Delete(ctx, row.ProgramID); err != nil {
		return err
	}
	_ = s.appendAudit(ctx, domain.AuditEntityProgram, row.ProgramID, "program.deleted", actor.SubjectID, "", map[string]string{"name": row.Name})
	_ = s.enqueueProgramChanged(ctx, row, "deleted", actor.RequestID)
	return nil
}

func applyProgramPatch(row *domain.Program, in ProgramPatch) error {
	if in.Name != nil {
		row.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		row.Description = strings.TrimSpace(*in.Description)
	}
	if in.CommissionModel != nil {
		model, err := domain.ParseCommissionModel(*in.CommissionModel)
		if err != nil {
			return err
		}
		row.CommissionModel = model
	}
	if in.CommissionRate != nil {
		row.CommissionRate = *in.CommissionRate
	}
	if in.TargetURL != nil {
		row.TargetURL = strings.TrimSpace(*in.TargetURL)
	}
	if in.Active != nil {
		row.Active = *in.Active
	}
	if in.AttributionWindowDays != nil {
		row.AttributionWindowDays = *in.AttributionWindowDays
	}
	return nil
}

func (s *Service) enqueueProgramChanged(ctx context.Context, row domain.Program, action, traceID string) error {
	return s.enqueueEvent(ctx, domain.EventAffiliateProgramChanged, traceID, contracts.ProgramChangedPayload{
		ProgramID: row.ProgramID,
		Action:    action,
		Active:    row.Active,
		ChangedAt: formatTime(s.nowFn()),
	}, row.ProgramID)
}
