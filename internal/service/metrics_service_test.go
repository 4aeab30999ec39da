package service

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/home", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "unmatched", http.StatusNotFound, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.LiveSubscribers(2)
	m.LiveSubscribers(-1)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.EqualValues(t, 1, snap.LiveSubscribers)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
}

func TestMetricsServiceSweepAndUploads(t *testing.T) {
	m := NewMetricsService()
	m.RecordSweep(3, 1)
	m.RecordUpload("gallery", true)
	m.RecordUpload("gallery", false)
	m.RecordOrphan()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweepOutcomes.WithLabelValues("resolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sweepOutcomes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mediaUploads.WithLabelValues("gallery", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mediaOrphans))
}

func TestMetricsServiceHandlerExposesNamespace(t *testing.T) {
	m := NewMetricsService()
	m.RecordChange("notices", "INSERT")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `council_portal_content_changes_total{action="INSERT",table="notices"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordSweep(1, 0)
	m.LiveSubscribers(1)
	assert.Zero(t, m.Snapshot().RequestsTotal)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
