package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("")
	b := NewMetrics("")

	a.RecordCacheLookup("feature_set", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheRequests.WithLabelValues("feature_set", "hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheRequests.WithLabelValues("feature_set", "hit")))
}

func TestRecordQuery(t *testing.T) {
	m := NewMetrics("test")

	m.RecordQuery("postgres", "feature_set", 20*time.Millisecond, 120, nil)
	m.RecordQuery("postgres", "feature_set", time.Second, 0, errors.New("boom"))

	assert.Equal(t, 120.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("feature_set")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueryErrors.WithLabelValues("postgres", "feature_set")))
}

func TestRecordPipelineRun(t *testing.T) {
	m := NewMetrics("test")

	m.RecordPipelineRun(time.Second, 500, 40, nil)
	m.RecordPipelineRun(time.Second, 0, 0, errors.New("db down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PipelineRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.ObservationsAnalyzed), "failed run keeps last gauge values")
	assert.Equal(t, 40.0, testutil.ToFloat64(m.MoversComputed))
	assert.Greater(t, testutil.ToFloat64(m.LastSuccessfulPipeline), 0.0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordQuery("fixtures", "feature_set", 0, 1, nil)
		m.RecordCacheLookup("feature_set", false)
		m.SetCacheEntries(3)
		m.RecordCacheInvalidation()
		m.RecordPipelineRun(0, 0, 0, nil)
		m.RecordReport("markdown")
		m.RecordHTTPRequest("/", 200, 0)
	})
}

func TestHandler_ExposesNamespace(t *testing.T) {
	m := NewMetrics("cardlab_test")
	m.RecordReport("csv")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cardlab_test_reporting_reports_generated_total{format="csv"} 1`)
}
