package runtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/mohammad-safakhou/careergraph/config"
)

func TestMetricsRecordAndServe(t *testing.T) {
	m := NewMetrics()
	m.RunFinished("completed")
	m.RunFinished("rejected")
	m.RunFinished("completed")
	m.StageFailed("research", "payload_parse")
	m.ObserveStage("validation", 1500*time.Millisecond)
	m.Discovery("video", "error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageFailures.WithLabelValues("research", "payload_parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discovery.WithLabelValues("video", "error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "careergraph_stage_duration_seconds_bucket")
	assert.Contains(t, rec.Body.String(), `careergraph_pipeline_runs_total{outcome="rejected"} 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RunFinished("failed")
	m.ObserveStage("structure", time.Second)
	m.StageFailed("structure", "panic")
	m.Discovery("book", "hit")
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestSetupTelemetryDisabled(t *testing.T) {
	tel, err := SetupTelemetry(context.Background(), config.TelemetryConfig{}, TelemetryOptions{})
	require.NoError(t, err)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupTelemetryStdoutExporter(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "careergraph-test", SampleRatio: 1}
	tel, err := SetupTelemetry(context.Background(), cfg, TelemetryOptions{ServiceVersion: "test", Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("careergraph/test").Start(context.Background(), "pipeline.run")
	span.End()
	require.NoError(t, tel.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "pipeline.run")
	assert.Contains(t, buf.String(), "careergraph-test")
}
