package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/contracts"
	"github.com/viralforge/affiliate-core/internal/domain"
)

const (
	attributionCookie = "affiliate_code"
	attributionHeader = "X-Affiliate-Code"
)

type Handler struct{ service *application.Service }

func NewHandler(service *application.Service) *Handler { return &Handler{service: service} }

func (h *Handler) trackClick(w http.ResponseWriter, r *http.Request) {
	out, ok := h.recordClick(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, contracts.TrackClickResponse{
		LinkID:               out.LinkID,
		RedirectURL:          out.RedirectURL,
		AttributionToken:     out.AttributionToken,
		CookieMaxAgeMinutes:  out.CookieMaxAgeMinutes,
		AttributionCookieKey: attributionCookie,
	})
}

func (h *Handler) redirectClick(w http.ResponseWriter, r *http.Request) {
	out, ok := h.recordClick(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, out.RedirectURL, http.StatusFound)
}

func (h *Handler) recordClick(w http.ResponseWriter, r *http.Request) (application.RecordClickResult, bool) {
	out, err := h.service.RecordClick(r.Context(), chi.URLParam(r, "code"), domain.RequestMetadata{
		IPAddress: clientIP(r),
		UserAgent: strings.TrimSpace(r.UserAgent()),
		Referer:   strings.TrimSpace(r.Referer()),
		Country:   strings.TrimSpace(r.Header.Get("CF-IPCountry")),
	}, requestIDFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return application.RecordClickResult{}, false
	}
	maxAge := time.Duration(out.CookieMaxAgeMinutes) * time.Minute
	http.SetCookie(w, &http.Cookie{
		Name:     attributionCookie,
		Value:    out.AttributionToken,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge).UTC(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return out, true
}

func (h *Handler) recordConversion(w http.ResponseWriter, r *http.Request) {
	var req contracts.RecordConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Amount == nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "amount is required")
		return
	}
	row, err := h.service.RecordConversion(r.Context(), application.RecordConversionInput{
		TransactionID:    req.TransactionID,
		Amount:           *req.Amount,
		AffiliateCode:    req.AffiliateCode,
		AttributionToken: attributionToken(r),
		TraceID:          requestIDFromContext(r.Context()),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toConversionResponse(row))
}

func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.AffiliateSummary(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toDashboardResponse(out))
}

func (h *Handler) joinProgram(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.JoinProgram(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "program_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if out.Created {
		status = http.StatusCreated
	}
	writeSuccess(w, status, toLinkResponse(out.Link))
}

// attributionToken reads the token left by the click, from the cookie or,
// for clients without cookies, from a header.
func attributionToken(r *http.Request) string {
	if c, err := r.Cookie(attributionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value
	}
	return strings.TrimSpace(r.Header.Get(attributionHeader))
}

func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeDecodeError keeps unparseable bodies at 400. Well-formed JSON with a
// field of the wrong type or an unreadable value is a validation failure.
func writeDecodeError(w http.ResponseWriter, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid json body")
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "request body must be a json object")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("%s must not be a %s", typeErr.Field, typeErr.Value))
	default:
		// Field decoders such as decimal.Decimal reject the value itself.
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
	}
}
