package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/pkg/store"
)

type failingStore struct{ store.Store }

func (failingStore) Ping(context.Context) error { return fmt.Errorf("store down") }

func TestLivenessAlwaysHealthy(t *testing.T) {
	h := NewHealthChecker(nil, nil)
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessHealthyStore(t *testing.T) {
	h := NewHealthChecker(store.NewMemory(), nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["store"].Status)
}

func TestReadinessUnhealthyStore(t *testing.T) {
	h := NewHealthChecker(failingStore{}, nil)
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Dependencies["store"].Message, "store down")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordOperation("posts", "find", "OK")
		m.RecordCacheHit("posts", "find")
		m.RecordCacheMiss("posts", "get")
		m.SetQueueDepth("posts", 3)
		m.RecordHTTPRequest(http.MethodGet, "/api/posts", http.StatusOK, 0)
	})
}

func TestMetricsHandlerServes(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordOperation("posts", "find", "OK")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inkwell_service_operations_total")
}
