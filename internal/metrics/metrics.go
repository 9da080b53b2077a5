package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/spacecodeur/space-lt"

// latencyBuckets are bucket boundaries in seconds, tuned for the turn-level
// latencies this system deals with: VAD hang times in the tens of
// milliseconds, STT/TTS calls in the hundreds, agent subprocess calls up to
// the full 30s deadline.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// Metrics holds every OpenTelemetry instrument space-lt records. All fields
// are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TranscribeDuration tracks STT adapter latency (pkg/host).
	TranscribeDuration metric.Float64Histogram

	// SynthesizeDuration tracks TTS adapter latency, one observation per
	// StreamSynthesize call (pkg/host).
	SynthesizeDuration metric.Float64Histogram

	// AgentDuration tracks a single agent subprocess invocation, including
	// retries (pkg/orchestrator).
	AgentDuration metric.Float64Histogram

	// TurnDuration tracks a full turn, TranscribedText in to ResponseText
	// out (pkg/orchestrator).
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// FramesRouted counts frames the host forwards between transports, by
	// direction and tag.
	FramesRouted metric.Int64Counter

	// TurnOutcomes counts completed turns by outcome: "ok" or "apology".
	TurnOutcomes metric.Int64Counter

	// VADTransitions counts VAD state-machine transitions by target state.
	VADTransitions metric.Int64Counter

	// AgentRetries counts agent subprocess retry attempts beyond the first.
	AgentRetries metric.Int64Counter

	// --- Error counters ---

	// TranscriptionErrors counts STT adapter failures.
	TranscriptionErrors metric.Int64Counter

	// SynthesisErrors counts TTS adapter failures.
	SynthesisErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveClientConnections tracks whether a TCP audio client is
	// currently attached (0 or 1, but modeled as an UpDownCounter so
	// replacement races never go negative in aggregate).
	ActiveClientConnections metric.Int64UpDownCounter

	// ActiveOrchestratorConnections tracks the host's Unix-socket peer.
	ActiveOrchestratorConnections metric.Int64UpDownCounter
}

// NewMetrics creates a fully initialised Metrics using mp. Returns an error
// if any instrument registration fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.TranscribeDuration, err = m.Float64Histogram("space_lt.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesizeDuration, err = m.Float64Histogram("space_lt.tts.duration",
		metric.WithDescription("Latency of a full text-to-speech stream."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AgentDuration, err = m.Float64Histogram("space_lt.agent.duration",
		metric.WithDescription("Latency of an agent subprocess invocation, including retries."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("space_lt.turn.duration",
		metric.WithDescription("Latency of a full conversational turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.FramesRouted, err = m.Int64Counter("space_lt.frames.routed",
		metric.WithDescription("Total frames routed by the host, by direction and tag."),
	); err != nil {
		return nil, err
	}
	if met.TurnOutcomes, err = m.Int64Counter("space_lt.turn.outcomes",
		metric.WithDescription("Total turns completed, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.VADTransitions, err = m.Int64Counter("space_lt.vad.transitions",
		metric.WithDescription("Total VAD state transitions, by target state."),
	); err != nil {
		return nil, err
	}
	if met.AgentRetries, err = m.Int64Counter("space_lt.agent.retries",
		metric.WithDescription("Total agent subprocess retry attempts."),
	); err != nil {
		return nil, err
	}

	if met.TranscriptionErrors, err = m.Int64Counter("space_lt.stt.errors",
		metric.WithDescription("Total STT adapter failures."),
	); err != nil {
		return nil, err
	}
	if met.SynthesisErrors, err = m.Int64Counter("space_lt.tts.errors",
		metric.WithDescription("Total TTS adapter failures."),
	); err != nil {
		return nil, err
	}

	if met.ActiveClientConnections, err = m.Int64UpDownCounter("space_lt.active_client_connections",
		metric.WithDescription("Whether a TCP audio client is currently attached."),
	); err != nil {
		return nil, err
	}
	if met.ActiveOrchestratorConnections, err = m.Int64UpDownCounter("space_lt.active_orchestrator_connections",
		metric.WithDescription("Whether the orchestrator's Unix-socket link is currently attached."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the package-level Metrics instance, creating it on first
// call from the global OTel meter provider. Panics if instrument creation
// fails, which should not happen against the global provider.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("metrics: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordFrameRouted increments FramesRouted for one frame.
func (m *Metrics) RecordFrameRouted(ctx context.Context, direction, tag string) {
	m.FramesRouted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("tag", tag),
	))
}

// RecordTurnOutcome increments TurnOutcomes for one finished turn.
func (m *Metrics) RecordTurnOutcome(ctx context.Context, outcome string) {
	m.TurnOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordVADTransition increments VADTransitions for a state change.
func (m *Metrics) RecordVADTransition(ctx context.Context, state string) {
	m.VADTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
