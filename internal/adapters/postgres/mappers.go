package postgres

import (
	"encoding/json"
	"time"

	"github.com/viralforge/affiliate-core/internal/domain"
)

func toDomainProgram(m programModel) domain.Program {
	return domain.Program{
		ProgramID: m.ProgramID, Name: m.Name, Description: m.Description,
		CommissionModel: domain.CommissionModel(m.CommissionModel), CommissionRate: m.CommissionRate,
		TargetURL: m.TargetURL, Active: m.Active, AttributionWindowDays: m.AttributionWindowDays,
		CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func fromDomainProgram(p domain.Program) programModel {
	return programModel{
		ProgramID: p.ProgramID, Name: p.Name, Description: p.Description,
		CommissionModel: string(p.CommissionModel), CommissionRate: p.CommissionRate,
		TargetURL: p.TargetURL, Active: p.Active, AttributionWindowDays: p.AttributionWindowDays,
		CreatedAt: p.CreatedAt.UTC(), UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func toDomainLink(m linkModel) domain.Link {
	return domain.Link{
		LinkID: m.LinkID, Code: m.Code, AffiliateID: m.AffiliateID, ProgramID: m.ProgramID,
		Active: m.Active, RedirectURL: m.RedirectURL, CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func toDomainClick(m clickModel) domain.Click {
	return domain.Click{
		ClickID: m.ClickID, Seq: m.Seq, LinkID: m.LinkID, ClickedAt: m.ClickedAt.UTC(),
		IPAddress: m.IPAddress, UserAgent: m.UserAgent, Referer: m.Referer, Country: m.Country,
	}
}

func toDomainConversion(m conversionModel) domain.Conversion {
	return domain.Conversion{
		ConversionID: m.ConversionID, TransactionID: m.TransactionID, LinkID: m.LinkID,
		AttributedClickID: m.AttributedClickID, Amount: m.Amount, Commission: m.Commission,
		Status: domain.ConversionStatus(m.Status), Notes: m.Notes, ConvertedAt: m.ConvertedAt.UTC(),
		ApprovedAt: utcPtr(m.ApprovedAt), PaidAt: utcPtr(m.PaidAt), UpdatedAt: m.UpdatedAt.UTC(),
	}
}

func toDomainAuditLog(m auditLogModel) domain.AuditLog {
	meta := map[string]string{}
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &meta)
	}
	return domain.AuditLog{
		AuditLogID: m.AuditLogID, EntityType: m.EntityType, EntityID: m.EntityID, Action: m.Action,
		ActorID: m.ActorID, Reason: m.Reason, Metadata: meta, CreatedAt: m.CreatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
