package metrics

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

func TestRecorders(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "/charts/{id}.{format}", "200", 20*time.Millisecond)
	m.RecordHTTPRequest("GET", "/charts/{id}.{format}", "200", 30*time.Millisecond)
	m.RecordInsight("openai", "fallback")
	m.RecordChartRender("risk", "png", "ok")
	m.SetDatasetRecords(1000)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/charts/{id}.{format}", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.insights.WithLabelValues("openai", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chartRenders.WithLabelValues("risk", "png", "ok")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.datasetRecords))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", "200", time.Second)
		m.RecordInsight("gemini", "ok")
		m.RecordChartRender("purpose", "svg", "empty")
		m.SetDatasetRecords(3)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetDatasetRecords(24)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "credit_dashboard_dataset_records 24")
}
