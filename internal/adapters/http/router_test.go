package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/viralforge/affiliate-core/internal/adapters/http"
	"github.com/viralforge/affiliate-core/internal/adapters/memory"
	"github.com/viralforge/affiliate-core/internal/adapters/security"
	"github.com/viralforge/affiliate-core/internal/application"
	"github.com/viralforge/affiliate-core/internal/contracts"
)

type harness struct {
	router   http.Handler
	verifier *security.HMACVerifier
}

func newHarness(t *testing.T) harness {
	t.Helper()
	repos := memory.NewRepositories()
	svc := application.NewService(application.Dependencies{
		Config:      application.Config{PublicBaseURL: "https://platform.com"},
		Programs:    repos.Programs,
		Links:       repos.Links,
		Clicks:      repos.Clicks,
		Conversions: repos.Conversions,
		AuditLogs:   repos.AuditLogs,
		Idempotency: repos.Idempotency,
		EventDedup:  repos.EventDedup,
		Outbox:      repos.Outbox,
		Cache:       memory.NewCache(),
	})
	verifier, err := security.NewHMACVerifier("test-secret", "viralforge-auth")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	router := httpadapter.NewRouter(httpadapter.NewHandler(svc), httpadapter.RouterOptions{Verifier: verifier})
	return harness{router: router, verifier: verifier}
}

func (h harness) token(t *testing.T, subject, role string) string {
	t.Helper()
	raw, err := h.verifier.Sign(subject, role, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return "Bearer " + raw
}

func (h harness) do(t *testing.T, method, path, body, auth string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	var env contracts.SuccessResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	raw, _ := json.Marshal(env.Data)
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) contracts.ErrorResponse {
	t.Helper()
	var out contracts.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return out
}

// seedLink creates a program as admin and joins it as aff-1.
func (h harness) seedLink(t *testing.T) contracts.LinkResponse {
	t.Helper()
	adminAuth := h.token(t, "admin-1", "admin")
	createRR := h.do(t, http.MethodPost, "/api/v1/admin/programs",
		`{"name":"Spring","commission_model":"percentage","commission_rate":"10","target_url":"https://shop.example.com/spring","attribution_window_days":30}`,
		adminAuth, nil)
	if createRR.Code != http.StatusCreated {
		t.Fatalf("create program: status=%d body=%s", createRR.Code, createRR.Body.String())
	}
	var program contracts.ProgramResponse
	decodeData(t, createRR, &program)

	joinRR := h.do(t, http.MethodPost, "/api/v1/affiliate/programs/"+program.ProgramID+"/join", "", h.token(t, "aff-1", "affiliate"), nil)
	if joinRR.Code != http.StatusCreated {
		t.Fatalf("join program: status=%d body=%s", joinRR.Code, joinRR.Body.String())
	}
	var link contracts.LinkResponse
	decodeData(t, joinRR, &link)
	if link.Code == "" || link.RedirectURL != "https://platform.com/aff/"+link.Code {
		t.Fatalf("unexpected link payload: %+v", link)
	}

	againRR := h.do(t, http.MethodPost, "/api/v1/affiliate/programs/"+program.ProgramID+"/join", "", h.token(t, "aff-1", "affiliate"), nil)
	if againRR.Code != http.StatusOK {
		t.Fatalf("second join: status=%d body=%s", againRR.Code, againRR.Body.String())
	}
	return link
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := h.do(t, http.MethodGet, path, "", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", path, rr.Code)
		}
	}
	rr := h.do(t, http.MethodGet, "/healthz", "", "", map[string]string{"X-Request-Id": "req-42"})
	if rr.Header().Get("X-Request-Id") != "req-42" {
		t.Fatalf("request id not echoed: %q", rr.Header().Get("X-Request-Id"))
	}
}

func TestRedirectSetsAttributionCookie(t *testing.T) {
	h := newHarness(t)
	link := h.seedLink(t)

	rr := h.do(t, http.MethodGet, "/aff/"+strings.ToLower(link.Code), "", "", nil)
	if rr.Code != http.StatusFound {
		t.Fatalf("redirect: status=%d body=%s", rr.Code, rr.Body.String())
	}
	if loc := rr.Header().Get("Location"); loc != "https://shop.example.com/spring" {
		t.Fatalf("unexpected location %q", loc)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "affiliate_code" || cookies[0].Value != link.Code {
		t.Fatalf("unexpected cookies: %+v", cookies)
	}
	if cookies[0].MaxAge != 30*24*60*60 || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookie attributes: %+v", cookies[0])
	}
}

func TestTrackClickReturnsJSON(t *testing.T) {
	h := newHarness(t)
	link := h.seedLink(t)

	rr := h.do(t, http.MethodGet, "/api/v1/affiliate/"+link.Code, "", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("track: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var out contracts.TrackClickResponse
	decodeData(t, rr, &out)
	if out.LinkID != link.LinkID || out.AttributionToken != link.Code || out.CookieMaxAgeMinutes != 43200 {
		t.Fatalf("unexpected track payload: %+v", out)
	}

	missing := h.do(t, http.MethodGet, "/api/v1/affiliate/NOPE2345", "", "", nil)
	if missing.Code != http.StatusNotFound || decodeError(t, missing).Code != "INVALID_LINK" {
		t.Fatalf("unknown code: status=%d body=%s", missing.Code, missing.Body.String())
	}
}

func TestConversionWebhook(t *testing.T) {
	h := newHarness(t)
	link := h.seedLink(t)

	tests := []struct {
		name    string
		body    string
		headers map[string]string
		status  int
		code    string
	}{
		{name: "malformed json", body: `{"transaction_id":`, status: http.StatusBadRequest, code: "INVALID_JSON"},
		{name: "missing amount", body: `{"transaction_id":"t-0","affiliate_code":"` + link.Code + `"}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "amount not a number", body: `{"transaction_id":"t-0","amount":"abc","affiliate_code":"` + link.Code + `"}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "numeric transaction id", body: `{"transaction_id":123,"amount":10,"affiliate_code":"` + link.Code + `"}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "array body", body: `[1,2]`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "empty body", body: ``, status: http.StatusBadRequest, code: "INVALID_JSON"},
		{name: "negative amount", body: `{"transaction_id":"t-0","amount":-1,"affiliate_code":"` + link.Code + `"}`, status: http.StatusUnprocessableEntity, code: "VALIDATION_ERROR"},
		{name: "no code", body: `{"transaction_id":"t-0","amount":10}`, status: http.StatusBadRequest, code: "NO_ATTRIBUTION_CODE"},
		{name: "unknown code", body: `{"transaction_id":"t-0","amount":10,"affiliate_code":"ZZZZ9999"}`, status: http.StatusNotFound, code: "INVALID_LINK"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := h.do(t, http.MethodPost, "/api/v1/conversions", tc.body, "", tc.headers)
			if rr.Code != tc.status {
				t.Fatalf("status=%d want=%d body=%s", rr.Code, tc.status, rr.Body.String())
			}
			if got := decodeError(t, rr).Code; got != tc.code {
				t.Fatalf("code=%q want=%q", got, tc.code)
			}
		})
	}

	okRR := h.do(t, http.MethodPost, "/api/v1/conversions", `{"transaction_id":"t-1","amount":"99.90"}`, "", map[string]string{"X-Affiliate-Code": link.Code})
	if okRR.Code != http.StatusCreated {
		t.Fatalf("record: status=%d body=%s", okRR.Code, okRR.Body.String())
	}
	var conv contracts.ConversionResponse
	decodeData(t, okRR, &conv)
	if conv.LinkID != link.LinkID || conv.Commission != "9.99" || conv.Status != "pending" || conv.AttributedClickID != nil {
		t.Fatalf("unexpected conversion: %+v", conv)
	}

	dupRR := h.do(t, http.MethodPost, "/api/v1/conversions", `{"transaction_id":"t-1","amount":"99.90","affiliate_code":"`+link.Code+`"}`, "", nil)
	if dupRR.Code != http.StatusConflict || decodeError(t, dupRR).Code != "DUPLICATE_CONVERSION" {
		t.Fatalf("duplicate: status=%d body=%s", dupRR.Code, dupRR.Body.String())
	}
}

func TestCookieAttributesConversionToClick(t *testing.T) {
	h := newHarness(t)
	link := h.seedLink(t)

	click := h.do(t, http.MethodGet, "/aff/"+link.Code, "", "", nil)
	if click.Code != http.StatusFound {
		t.Fatalf("click: status=%d", click.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversions", strings.NewReader(`{"transaction_id":"t-cookie","amount":50}`))
	for _, c := range click.Result().Cookies() {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("record: status=%d body=%s", rr.Code, rr.Body.String())
	}
	var conv contracts.ConversionResponse
	decodeData(t, rr, &conv)
	if conv.AttributedClickID == nil || *conv.AttributedClickID == "" {
		t.Fatalf("expected attributed click, got %+v", conv)
	}
	if conv.Commission != "5.00" {
		t.Fatalf("unexpected commission %q", conv.Commission)
	}
}

func TestDashboardAndAdminAuthorization(t *testing.T) {
	h := newHarness(t)
	link := h.seedLink(t)
	affAuth := h.token(t, "aff-1", "affiliate")
	adminAuth := h.token(t, "admin-1", "admin")

	if rr := h.do(t, http.MethodGet, "/api/v1/affiliate/dashboard", "", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard without token: status=%d", rr.Code)
	}
	if rr := h.do(t, http.MethodGet, "/api/v1/affiliate/dashboard", "", "Bearer not-a-jwt", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("dashboard with bad token: status=%d", rr.Code)
	}
	if rr := h.do(t, http.MethodGet, "/api/v1/admin/stats", "", affAuth, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("admin route as affiliate: status=%d", rr.Code)
	}

	h.do(t, http.MethodGet, "/aff/"+link.Code, "", "", nil)
	record := h.do(t, http.MethodPost, "/api/v1/conversions", `{"transaction_id":"t-1","amount":"40.00","affiliate_code":"`+link.Code+`"}`, "", nil)
	var conv contracts.ConversionResponse
	decodeData(t, record, &conv)

	approve := h.do(t, http.MethodPatch, "/api/v1/admin/conversions/"+conv.ConversionID, `{"status":"approved"}`, adminAuth, nil)
	if approve.Code != http.StatusOK {
		t.Fatalf("approve: status=%d body=%s", approve.Code, approve.Body.String())
	}
	backwards := h.do(t, http.MethodPatch, "/api/v1/admin/conversions/"+conv.ConversionID, `{"status":"pending"}`, adminAuth, nil)
	if backwards.Code != http.StatusUnprocessableEntity || decodeError(t, backwards).Code != "INVALID_TRANSITION" {
		t.Fatalf("backwards transition: status=%d body=%s", backwards.Code, backwards.Body.String())
	}

	dash := h.do(t, http.MethodGet, "/api/v1/affiliate/dashboard", "", affAuth, nil)
	if dash.Code != http.StatusOK {
		t.Fatalf("dashboard: status=%d body=%s", dash.Code, dash.Body.String())
	}
	var out contracts.DashboardResponse
	decodeData(t, dash, &out)
	if out.AffiliateID != "aff-1" || out.Clicks != 1 || len(out.Links) != 1 {
		t.Fatalf("unexpected dashboard: %+v", out)
	}
	if out.Totals.Conversions != 1 || out.Totals.TotalCommission != "4.00" || out.Totals.PendingCommission != "0.00" || out.Totals.PaidCommission != "0.00" {
		t.Fatalf("unexpected totals: %+v", out.Totals)
	}

	other := h.do(t, http.MethodGet, "/api/v1/affiliate/dashboard", "", h.token(t, "aff-2", "affiliate"), nil)
	var empty contracts.DashboardResponse
	decodeData(t, other, &empty)
	if empty.Clicks != 0 || len(empty.Links) != 0 || empty.Totals.TotalCommission != "0.00" {
		t.Fatalf("expected empty dashboard, got %+v", empty)
	}
}
