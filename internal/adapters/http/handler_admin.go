package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
	"github.com/viralforge/affiliate-core/internal/ports"
)

func (h *Handler) createProgram(w http.ResponseWriter, r *http.Request) {
	var req contracts.ProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	row, err := h.service.CreateProgram(r.Context(), actorFromContext(r.Context()), toProgramPatch(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toProgramResponse(row))
}

func (h *Handler) listPrograms(w http.ResponseWriter, r *http.Request) {
	active, ok := parseBoolQuery(w, r, "active")
	if !ok {
		return
	}
	rows, err := h.service.ListPrograms(r.Context(), actorFromContext(r.Context()), active)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]contracts.ProgramResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toProgramResponse(row))
	}
	writeSuccess(w, http.StatusOK, contracts.ProgramListResponse{Items: items})
}

func (h *Handler) getProgram(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.GetProgram(r.Context(), chi.URLParam(r, "program_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProgramResponse(row))
}

func (h *Handler) updateProgram(w http.ResponseWriter, r *http.Request) {
	var req contracts.ProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	row, err := h.service.UpdateProgram(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "program_id"), toProgramPatch(req))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toProgramResponse(row))
}

func (h *Handler) deleteProgram(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProgram(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "program_id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) programSummary(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ProgramSummary(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "program_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.ProgramSummaryResponse{
		ProgramID:       out.ProgramID,
		LinkCount:       out.LinkCount,
		ActiveLinkCount: out.ActiveLinkCount,
	})
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	active, ok := parseBoolQuery(w, r, "active")
	if !ok {
		return
	}
	rows, err := h.service.ListLinks(r.Context(), actorFromContext(r.Context()), ports.LinkFilter{
		AffiliateID: strings.TrimSpace(r.URL.Query().Get("affiliate_id")),
		ProgramID:   strings.TrimSpace(r.URL.Query().Get("program_id")),
		Active:      active,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]contracts.LinkResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toLinkResponse(row))
	}
	writeSuccess(w, http.StatusOK, contracts.LinkListResponse{Items: items})
}

func (h *Handler) updateLink(w http.ResponseWriter, r *http.Request) {
	var req contracts.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Active == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "active is required")
		return
	}
	row, err := h.service.SetLinkActive(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "link_id"), *req.Active, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toLinkResponse(row))
}

func (h *Handler) listConversions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	rows, err := h.service.ListConversions(r.Context(), actorFromContext(r.Context()), ports.ConversionFilter{
		LinkID: strings.TrimSpace(r.URL.Query().Get("link_id")),
		Status: domain.ConversionStatus(strings.TrimSpace(r.URL.Query().Get("status"))),
		Limit:  limit,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]contracts.ConversionResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, toConversionResponse(row))
	}
	writeSuccess(w, http.StatusOK, contracts.ConversionListResponse{Items: items})
}

func (h *Handler) getConversion(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.GetConversion(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "conversion_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toConversionResponse(row))
}

func (h *Handler) updateConversionStatus(w http.ResponseWriter, r *http.Request) {
	var req contracts.UpdateConversionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	row, err := h.service.UpdateConversionStatus(r.Context(), actorFromContext(r.Context()), application.UpdateStatusInput{
		ConversionID: chi.URLParam(r, "conversion_id"),
		Status:       req.Status,
		Notes:        req.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toConversionResponse(row))
}

func (h *Handler) deleteConversion(w http.ResponseWriter, r *http.Request) {
	var req contracts.DeleteRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := h.service.DeleteConversion(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "conversion_id"), req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) platformStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.PlatformSummary(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.PlatformStatsResponse{
		Programs: out.Programs,
		Links:    out.Links,
		Clicks:   out.Clicks,
		Totals:   toCommissionTotals(out.Totals),
	})
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.AuditTrail(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "entity_type"), chi.URLParam(r, "entity_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := make([]contracts.AuditLogResponse, 0, len(rows))
	for _, row := range rows {
		items = append(items, contracts.AuditLogResponse{
			AuditLogID: row.AuditLogID, EntityType: row.EntityType, EntityID: row.EntityID, Action: row.Action,
			ActorID: row.ActorID, Reason: row.Reason, Metadata: row.Metadata, CreatedAt: formatTime(row.CreatedAt),
		})
	}
	writeSuccess(w, http.StatusOK, contracts.AuditLogListResponse{Items: items})
}

func toProgramPatch(req contracts.ProgramRequest) application.ProgramPatch {
	return application.ProgramPatch{
		Name:                  req.Name,
		Description:           req.Description,
		CommissionModel:       req.CommissionModel,
		CommissionRate:        req.CommissionRate,
		TargetURL:             req.TargetURL,
		Active:                req.Active,
		AttributionWindowDays: req.AttributionWindowDays,
	}
}

func parseBoolQuery(w http.ResponseWriter, r *http.Request, key string) (*bool, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", key+" must be a boolean")
		return nil, false
	}
	return &v, true
}
