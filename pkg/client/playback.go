package client

import (
	"sync"
	"time"

	"github.com/spacecodeur/space-lt/pkg/audio"
)

// PreRollBudget is the maximum time spec §4.5 allows between the first
// buffered byte and audio output actually starting.
const PreRollBudget = 200 * time.Millisecond

// Playback receives decoded TtsAudioChunk payloads and feeds a bounded ring
// buffer that the OS audio output device drains (see cmd/client). It tracks
// whether output has started so callers can measure pre-roll latency and
// generalizes the teacher's raw `playbackBytes`/`playbackMu` pair in
// cmd/agent/main.go.
type Playback struct {
	buf *audio.RingBuffer

	mu        sync.Mutex
	started   bool
	startedAt time.Time
	firstByte time.Time
}

// NewPlayback creates a Playback backed by a ring buffer of the given byte
// capacity (recommended ~2s of audio at the playback rate).
func NewPlayback(capacityBytes int) *Playback {
	return &Playback{buf: audio.NewRingBuffer(capacityBytes)}
}

// PushChunk enqueues one TtsAudioChunk's decoded PCM.
func (p *Playback) PushChunk(chunk []byte) {
	p.mu.Lock()
	if p.firstByte.IsZero() {
		p.firstByte = time.Now()
	}
	p.mu.Unlock()
	p.buf.Push(chunk)
}

// MarkStarted records that the audio device has begun consuming buffered
// bytes for the current reply; used to measure pre-roll.
func (p *Playback) MarkStarted() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		p.started = true
		p.startedAt = time.Now()
	}
}

// PreRollLatency returns the delay between the first buffered byte and
// playback start, or 0 if playback has not started yet.
func (p *Playback) PreRollLatency() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() || p.firstByte.IsZero() {
		return 0
	}
	return p.startedAt.Sub(p.firstByte)
}

// Drain fills dst from the ring buffer, zero-filling any underrun so the
// audio device never sees a read error (spec §4.5: "underruns emit silence,
// not errors").
func (p *Playback) Drain(dst []byte) int {
	return p.buf.Drain(dst)
}

// HandleTtsEnd marks the producer side closed for the current reply: no
// more chunks are coming, but whatever is already buffered still has to
// play out through the device (spec §4.5: TtsEnd only signals the stream is
// finished, the device continues draining Playback until empty). It resets
// the started/pre-roll bookkeeping so the next reply's pre-roll is measured
// fresh, but never touches the buffer itself.
func (p *Playback) HandleTtsEnd() {
	p.mu.Lock()
	p.started = false
	p.startedAt = time.Time{}
	p.firstByte = time.Time{}
	p.mu.Unlock()
}

// HandleInterrupt clears buffered audio immediately. The core protocol has
// no explicit Interrupted frame, and nothing in cmd/client calls this method.
func (p *Playback) HandleInterrupt() {
	p.buf.Reset()
}

// Buffered reports how many bytes are queued for playback.
func (p *Playback) Buffered() int { return p.buf.Len() }
