package observability

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics(testLogger)

	m.RecordAPICall("search", 3, nil, 2*time.Second)
	m.RecordAPICall("details", 1, errors.New("boom"), time.Second)
	m.RecordDiscovery(OutcomeSuccess, 5*time.Second, 12, 10, 2, 1)
	m.RecordStoreOp("memory", "upsert")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `compscout_api_requests_total{op="search",outcome="success"} 1`)
	assert.Contains(t, text, `compscout_api_requests_total{op="details",outcome="failure"} 1`)
	assert.Contains(t, text, `compscout_api_retries_total{op="search"} 2`)
	assert.Contains(t, text, `compscout_discovery_runs_total{outcome="success"} 1`)
	assert.Contains(t, text, `compscout_discovery_competitors_stored_total 10`)
	assert.Contains(t, text, `compscout_store_operations_total{backend="memory",op="upsert"} 1`)
	assert.Contains(t, text, "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAPICall("search", 2, nil, time.Second)
		m.RecordDiscovery(OutcomeEmpty, time.Second, 0, 0, 0, 0)
		m.RecordStoreOp("file", "clear")
	})
}
