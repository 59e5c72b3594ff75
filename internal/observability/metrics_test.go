package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics("affiliate")
	m.ClickRecorded("recorded")
	m.ClickRecorded("recorded")
	m.ClickRecorded("invalid_link")
	m.ConversionRecorded("duplicate")
	m.StatusTransitioned("pending", "approved")

	require.Equal(t, 2.0, testutil.ToFloat64(m.clicks.WithLabelValues("recorded")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.clicks.WithLabelValues("invalid_link")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("duplicate")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending", "approved")))
}

func TestMetricsHandlerExposesHTTPSeries(t *testing.T) {
	m := NewMetrics("affiliate")
	m.ObserveHTTP(http.MethodGet, "/aff/{code}", http.StatusFound, 15*time.Millisecond)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	text := string(body)
	require.True(t, strings.Contains(text, `affiliate_http_requests_total{method="GET",route="/aff/{code}",status="302"} 1`), text)
	require.Contains(t, text, "affiliate_http_request_duration_seconds_bucket")
	require.Contains(t, text, "go_goroutines")
}

func TestMetricsInstancesAreIndependent(t *testing.T) {
	a := NewMetrics("affiliate")
	b := NewMetrics("affiliate")
	a.ClickRecorded("recorded")
	require.Equal(t, 0.0, testutil.ToFloat64(b.clicks.WithLabelValues("recorded")))
}
