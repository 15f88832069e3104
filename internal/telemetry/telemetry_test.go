package telemetry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Init(Config{ServiceName: "tracedbg", ServiceVersion: "test", Writer: &buf})
	require.NoError(t, err)

	_, span := otel.Tracer("tracedbg.test").Start(t.Context(), "dap.next")
	span.End()

	require.NoError(t, shutdown(t.Context()))
	assert.Contains(t, buf.String(), `"Name":"dap.next"`)
	assert.Contains(t, buf.String(), "tracedbg")
}

func TestInitRecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	reader := sdkmetric.NewManualReader()
	shutdown, err := Init(Config{ServiceName: "tracedbg", Writer: &buf, MetricReaders: []sdkmetric.Reader{reader}})
	require.NoError(t, err)

	counter, err := otel.Meter("tracedbg.test").Int64Counter("dap_requests_total")
	require.NoError(t, err)
	counter.Add(t.Context(), 2)
	counter.Add(t.Context(), 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(t.Context(), &rm))
	assert.Equal(t, int64(3), counterValue(t, rm, "dap_requests_total"))

	// Shutdown flushes the periodic reader to the writer.
	require.NoError(t, shutdown(t.Context()))
	assert.Contains(t, buf.String(), "dap_requests_total")
}

func TestInitNilWriter(t *testing.T) {
	_, err := Init(Config{})
	assert.ErrorIs(t, err, ErrNilWriter)
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", name, m.Data)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	t.Fatalf("metric %s not collected", name)
	return 0
}
