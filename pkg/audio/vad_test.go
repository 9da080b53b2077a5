package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loudChunk(n int) []byte {
	chunk := make([]byte, n*2)
	for i := 0; i < n; i++ {
		// constant sample at ~0.61 of full scale, well above any reasonable threshold
		v := int16(20000)
		chunk[i*2] = byte(v)
		chunk[i*2+1] = byte(v >> 8)
	}
	return chunk
}

func silentChunk(n int) []byte {
	return make([]byte, n*2)
}

func TestSegmentingVAD_HappyPath(t *testing.T) {
	cfg := VADConfig{
		StartThreshold: 0.02,
		StopThreshold:  0.012,
		StartHang:      80 * time.Millisecond,
		EndHang:        400 * time.Millisecond,
		MinSegment:     250 * time.Millisecond,
		MaxSegment:     30 * time.Second,
		SampleRate:     16000,
	}
	v := NewSegmentingVAD(cfg)
	now := time.Now()

	// Not yet enough sustained energy to confirm start.
	ev := v.Process(loudChunk(160), now) // 10ms @16kHz
	assert.Nil(t, ev)
	assert.Equal(t, StateSilence, v.State())

	// Cross StartHang.
	now = now.Add(100 * time.Millisecond)
	ev = v.Process(loudChunk(1600), now)
	require.NotNil(t, ev)
	assert.Equal(t, EventSpeechStart, ev.Type)
	assert.Equal(t, StateSpeaking, v.State())

	// Feed a full second of speech so the eventual segment clears MinSegment.
	now = now.Add(1 * time.Second)
	ev = v.Process(loudChunk(16000), now)
	assert.Nil(t, ev)

	// Drop into silence and wait out EndHang.
	now = now.Add(450 * time.Millisecond)
	ev = v.Process(silentChunk(7200), now)
	require.NotNil(t, ev)
	assert.Equal(t, EventSpeechEnd, ev.Type)
	assert.NotEmpty(t, ev.Samples)
	assert.Equal(t, StateSilence, v.State())
}

func TestSegmentingVAD_DropsShortSegment(t *testing.T) {
	cfg := DefaultVADConfig(16000)
	// Trailing silence is part of the segment, so EndHang is shortened to
	// keep speech plus trailing silence under MinSegment.
	cfg.EndHang = 50 * time.Millisecond
	v := NewSegmentingVAD(cfg)
	now := time.Now()

	now = now.Add(cfg.StartHang + 10*time.Millisecond)
	ev := v.Process(loudChunk(1700), now)
	require.NotNil(t, ev)
	assert.Equal(t, EventSpeechStart, ev.Type)

	// Only a tiny bit of speech, well under MinSegment (250ms), then silence.
	now = now.Add(10 * time.Millisecond)
	v.Process(loudChunk(160), now)

	now = now.Add(cfg.EndHang + 10*time.Millisecond)
	ev = v.Process(silentChunk(800), now)
	assert.Nil(t, ev, "segment shorter than MinSegment must be dropped without an event")
	assert.Equal(t, StateSilence, v.State())
}

func TestSegmentingVAD_TrailingSilenceResumesSpeech(t *testing.T) {
	cfg := DefaultVADConfig(16000)
	v := NewSegmentingVAD(cfg)
	now := time.Now()

	now = now.Add(cfg.StartHang + 10*time.Millisecond)
	v.Process(loudChunk(1700), now)
	require.Equal(t, StateSpeaking, v.State())

	now = now.Add(1 * time.Second)
	v.Process(loudChunk(16000), now)

	// Brief silence, but speech resumes before EndHang elapses.
	now = now.Add(cfg.EndHang / 2)
	ev := v.Process(silentChunk(4000), now)
	assert.Nil(t, ev)
	assert.Equal(t, StateTrailingSilence, v.State())

	now = now.Add(10 * time.Millisecond)
	ev = v.Process(loudChunk(200), now)
	assert.Nil(t, ev)
	assert.Equal(t, StateSpeaking, v.State(), "speech resuming during trailing silence must cancel finalization")
}

func TestSegmentingVAD_PauseInterlock(t *testing.T) {
	cfg := DefaultVADConfig(16000)
	v := NewSegmentingVAD(cfg)
	v.SetPaused(true)

	now := time.Now()
	ev := v.Process(loudChunk(16000), now)
	assert.Nil(t, ev, "energy must be ignored while paused")
	assert.Equal(t, StateSilence, v.State())

	v.SetPaused(false)
	assert.Equal(t, StateSilence, v.State(), "resume must reset to Silence")
}

func TestSegmentingVAD_MaxSegmentTruncates(t *testing.T) {
	cfg := DefaultVADConfig(16000)
	cfg.MaxSegment = 300 * time.Millisecond
	v := NewSegmentingVAD(cfg)
	now := time.Now()

	now = now.Add(cfg.StartHang + 10*time.Millisecond)
	ev := v.Process(loudChunk(1700), now)
	require.NotNil(t, ev)

	// Keep feeding speech well past MaxSegment; must finalize on its own.
	now = now.Add(500 * time.Millisecond)
	ev = v.Process(loudChunk(8000), now)
	require.NotNil(t, ev)
	assert.Equal(t, EventSpeechEnd, ev.Type)

	maxBytes := int(cfg.MaxSegment.Seconds()*float64(cfg.SampleRate)) * 2
	assert.LessOrEqual(t, len(ev.Samples), maxBytes)
}
