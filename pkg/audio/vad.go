package audio

import (
	"math"
	"time"
)

// SegmentState is one of the three states the capture segment lifecycle
// moves through (spec §3, §4.4).
type SegmentState string

const (
	StateSilence        SegmentState = "SILENCE"
	StateSpeaking       SegmentState = "SPEAKING"
	StateTrailingSilence SegmentState = "TRAILING_SILENCE"
)

// SegmentEventType names a VAD-driven transition worth reporting to the
// capture loop.
type SegmentEventType string

const (
	EventSpeechStart SegmentEventType = "SPEECH_START"
	EventSpeechEnd   SegmentEventType = "SPEECH_END" // segment is complete, ready to upload
)

// SegmentEvent is returned by SegmentingVAD.Process when a state transition
// that the caller must act on has occurred.
type SegmentEvent struct {
	Type    SegmentEventType
	Samples []byte // populated on EventSpeechEnd: the finalized segment PCM
}

// VADConfig holds the energy thresholds and hang times from spec §4.4.
// Thresholds are RMS values in [0, 1] against 16-bit PCM normalized to
// [-1, 1]; hang times are durations of sustained energy required to flip
// state (debounce against spikes and echo-onset pops).
type VADConfig struct {
	StartThreshold float64 // e.g. 0.02; Silence -> Speaking above this
	StopThreshold  float64 // e.g. 0.012; lower than StartThreshold (hysteresis)
	StartHang      time.Duration
	EndHang        time.Duration
	MinSegment     time.Duration // drop segments shorter than this
	MaxSegment     time.Duration // truncate segments longer than this
	SampleRate     int
}

// DefaultVADConfig returns the spec's recommended midpoints.
func DefaultVADConfig(sampleRate int) VADConfig {
	return VADConfig{
		StartThreshold: 0.02,
		StopThreshold:  0.012,
		StartHang:      100 * time.Millisecond,
		EndHang:        500 * time.Millisecond,
		MinSegment:     250 * time.Millisecond,
		MaxSegment:     30 * time.Second,
		SampleRate:     sampleRate,
	}
}

// SegmentingVAD implements the Silence -> Speaking -> TrailingSilence state
// machine from spec §4.4, generalizing the teacher's single-threshold
// RMSVAD (pkg_src: team-hashing-lokutor-orchestrator/pkg/orchestrator/vad.go)
// into independent start/stop thresholds with hang timers on both edges.
type SegmentingVAD struct {
	cfg VADConfig

	state SegmentState
	paused bool

	aboveSince time.Time // when energy first crossed StartThreshold, for StartHang
	belowSince time.Time // when energy first fell under StopThreshold, for EndHang

	buf     []byte
	lastRMS float64
}

// NewSegmentingVAD constructs a VAD in the Silence state.
func NewSegmentingVAD(cfg VADConfig) *SegmentingVAD {
	return &SegmentingVAD{cfg: cfg, state: StateSilence}
}

// State reports the current lifecycle state.
func (v *SegmentingVAD) State() SegmentState { return v.state }

// LastRMS reports the RMS of the most recently processed chunk.
func (v *SegmentingVAD) LastRMS() float64 { return v.lastRMS }

// SetPaused implements the pause interlock from spec §4.4: energy is
// ignored and no segments are emitted while paused; the VAD resets to
// Silence on resume.
func (v *SegmentingVAD) SetPaused(paused bool) {
	if paused == v.paused {
		return
	}
	v.paused = paused
	if !paused {
		v.Reset()
	}
}

// Reset returns the VAD to Silence, discarding any partially accumulated
// segment.
func (v *SegmentingVAD) Reset() {
	v.state = StateSilence
	v.aboveSince = time.Time{}
	v.belowSince = time.Time{}
	v.buf = nil
}

// Process feeds one chunk of 16-bit LE PCM captured at the transport rate.
// It returns a non-nil SegmentEvent when a transition the caller must act on
// occurs: EventSpeechStart when the Silence->Speaking edge confirms, and
// EventSpeechEnd (carrying the finalized, possibly size-guarded segment PCM)
// when TrailingSilence persists past EndHang.
func (v *SegmentingVAD) Process(chunk []byte, now time.Time) *SegmentEvent {
	if v.paused {
		return nil
	}

	rms := calculateRMS(chunk)
	v.lastRMS = rms

	// now marks the end of chunk, so the chunk's own audio counts toward
	// StartHang and EndHang: a run is timed from the start of its first chunk.
	chunkStart := now
	if v.cfg.SampleRate > 0 {
		chunkStart = now.Add(-time.Duration(len(chunk)/2) * time.Second / time.Duration(v.cfg.SampleRate))
	}

	switch v.state {
	case StateSilence:
		if rms > v.cfg.StartThreshold {
			if v.aboveSince.IsZero() {
				v.aboveSince = chunkStart
			}
			if now.Sub(v.aboveSince) >= v.cfg.StartHang {
				v.state = StateSpeaking
				v.aboveSince = time.Time{}
				v.buf = append(v.buf[:0], chunk...)
				return &SegmentEvent{Type: EventSpeechStart}
			}
		} else {
			v.aboveSince = time.Time{}
		}
		return nil

	case StateSpeaking:
		v.appendGuarded(chunk)
		if rms < v.cfg.StopThreshold {
			v.state = StateTrailingSilence
			v.belowSince = chunkStart
		}
		if v.maxSegmentExceeded() || (v.state == StateTrailingSilence && now.Sub(v.belowSince) >= v.cfg.EndHang) {
			return v.finalize()
		}
		return nil

	case StateTrailingSilence:
		v.appendGuarded(chunk)
		if rms >= v.cfg.StopThreshold {
			// TrailingSilence -> Speaking: samples during trailing silence
			// are preserved (already appended above).
			v.state = StateSpeaking
			v.belowSince = time.Time{}
			return nil
		}
		if now.Sub(v.belowSince) >= v.cfg.EndHang || v.maxSegmentExceeded() {
			return v.finalize()
		}
		return nil
	}
	return nil
}

func (v *SegmentingVAD) appendGuarded(chunk []byte) {
	v.buf = append(v.buf, chunk...)
}

func (v *SegmentingVAD) maxSegmentExceeded() bool {
	if v.cfg.MaxSegment <= 0 || v.cfg.SampleRate <= 0 {
		return false
	}
	maxBytes := int(v.cfg.MaxSegment.Seconds()*float64(v.cfg.SampleRate)) * 2
	return len(v.buf) >= maxBytes
}

// finalize closes out the current segment: truncates it to MaxSegment if
// needed, drops it entirely if shorter than MinSegment, and returns the
// caller to Silence.
func (v *SegmentingVAD) finalize() *SegmentEvent {
	data := v.buf
	if v.cfg.MaxSegment > 0 && v.cfg.SampleRate > 0 {
		maxBytes := int(v.cfg.MaxSegment.Seconds()*float64(v.cfg.SampleRate)) * 2
		if len(data) > maxBytes {
			data = data[:maxBytes]
		}
	}

	v.state = StateSilence
	v.belowSince = time.Time{}
	v.buf = nil

	if v.cfg.MinSegment > 0 && v.cfg.SampleRate > 0 {
		minBytes := int(v.cfg.MinSegment.Seconds()*float64(v.cfg.SampleRate)) * 2
		if len(data) < minBytes {
			return nil // dropped as likely noise, no STT invocation
		}
	}

	return &SegmentEvent{Type: EventSpeechEnd, Samples: data}
}

func calculateRMS(chunk []byte) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for i := 0; i+1 < len(chunk); i += 2 {
		sample := int16(chunk[i]) | int16(chunk[i+1])<<8
		f := float64(sample) / 32768.0
		sum += f * f
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
