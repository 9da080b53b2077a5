package metrics

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	assert.NotNil(t, m)
}

func TestRecordFrameRouted_IncrementsByDirectionAndTag(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordFrameRouted(ctx, "client->host", "AudioSegment")
	m.RecordFrameRouted(ctx, "client->host", "AudioSegment")
	m.RecordFrameRouted(ctx, "host->orchestrator", "TranscribedText")

	rm := collect(t, reader)
	met := findMetric(rm, "space_lt.frames.routed")
	require.NotNil(t, met)

	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.EqualValues(t, 3, total)
}

func TestRecordTurnOutcome_TracksApologyAndOk(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordTurnOutcome(ctx, "ok")
	m.RecordTurnOutcome(ctx, "apology")
	m.RecordTurnOutcome(ctx, "ok")

	rm := collect(t, reader)
	met := findMetric(rm, "space_lt.turn.outcomes")
	require.NotNil(t, met)

	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2)
}

func TestTurnDurationHistogram_RecordsSamples(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.TurnDuration.Record(ctx, 0.4)
	m.TurnDuration.Record(ctx, 1.2)

	rm := collect(t, reader)
	met := findMetric(rm, "space_lt.turn.duration")
	require.NotNil(t, met)

	hist, ok := met.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.EqualValues(t, 2, hist.DataPoints[0].Count)
}
