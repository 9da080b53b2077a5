// Package client implements the audio client side of spec §4.4/§4.5: energy
// VAD-segmented capture upload, TTS playback, and the pause interlock, all
// running as independent threads that share nothing but an atomic paused
// flag, per spec §5.
package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/audio"
	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// Uploader is the narrow interface the capture loop needs from the
// transport: one outbound frame per finalized segment or pause toggle. The
// TCP connection to the host implements this via a *protocol.FrameWriter.
type Uploader interface {
	WriteFrame(tag protocol.Tag, payload []byte) error
}

// Capture owns the VAD-driven segmentation described in spec §4.4. It is
// driven by repeated calls to Feed from the OS audio callback (see
// cmd/client), and it never uploads while paused.
type Capture struct {
	vad    *audio.SegmentingVAD
	up     Uploader
	paused atomic.Bool
}

// NewCapture wires a segmenting VAD to an Uploader.
func NewCapture(cfg audio.VADConfig, up Uploader) *Capture {
	return &Capture{vad: audio.NewSegmentingVAD(cfg), up: up}
}

// SetPaused mirrors the hardware pause toggle (spec §4.4): it short-circuits
// local segmentation AND sends PauseRequest/ResumeRequest to the host, since
// local-only pause would leave the host still forwarding transcripts and
// emitting TTS.
func (c *Capture) SetPaused(paused bool) error {
	was := c.paused.Swap(paused)
	if was == paused {
		return nil
	}
	c.vad.SetPaused(paused)
	if paused {
		return c.up.WriteFrame(protocol.TagPauseRequest, nil)
	}
	return c.up.WriteFrame(protocol.TagResumeRequest, nil)
}

// Paused reports the current pause state.
func (c *Capture) Paused() bool { return c.paused.Load() }

// Feed processes one chunk of mic PCM already resampled to the transport
// rate. On a finalized segment it uploads an AudioSegment frame.
func (c *Capture) Feed(ctx context.Context, chunk []byte, now time.Time) error {
	if c.paused.Load() {
		return nil
	}

	ev := c.vad.Process(chunk, now)
	if ev == nil {
		return nil
	}
	metrics.Default().RecordVADTransition(ctx, string(c.vad.State()))
	if ev.Type != audio.EventSpeechEnd {
		return nil
	}
	if len(ev.Samples) == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return c.up.WriteFrame(protocol.TagAudioSegment, ev.Samples)
}

// State exposes the underlying VAD state for UI/debug purposes.
func (c *Capture) State() audio.SegmentState { return c.vad.State() }
