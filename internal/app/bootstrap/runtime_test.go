package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/viralforge/affiliate-core/internal/domain"
)

func TestNewRuntimeWithMemoryDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	rt, err := NewRuntime(context.Background(), "testdata/does-not-exist.yaml")
	require.NoError(t, err)
	defer rt.cleanupFn(context.Background())

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := httptest.NewRecorder()
		rt.httpServer.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
	}
	require.Equal(t, ":8080", rt.httpServer.Addr)
	require.NotNil(t, rt.grpcServer)
}

func TestNewRuntimeFailsWithoutSecret(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := NewRuntime(context.Background(), "testdata/does-not-exist.yaml")
	require.ErrorContains(t, err, "JWT_SECRET")
}

func TestTopicMap(t *testing.T) {
	require.Nil(t, topicMap(""))
	topics := topicMap("prod")
	require.Len(t, topics, 5)
	require.Equal(t, "prod.affiliate.click.recorded", topics[domain.EventAffiliateClickRecorded])
}
