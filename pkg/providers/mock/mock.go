// Package mock provides deterministic in-memory STT/TTS adapters for tests
// and for `cmd/host --engine mock`, used where a real network-backed engine
// would make tests flaky or require credentials. Modeled on the teacher's
// "thin provider, single responsibility" shape (pkg/providers/stt/groq.go,
// pkg/providers/tts/lokutor.go) with the network call removed.
package mock

import (
	"context"
	"sync/atomic"

	"github.com/spacecodeur/space-lt/pkg/host"
)

// STT always returns a fixed transcript, or calls Func if set.
type STT struct {
	Transcript string
	Func       func(pcm []byte) (string, error)
}

func (s *STT) Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang host.Language) (string, error) {
	if s.Func != nil {
		return s.Func(pcm)
	}
	return s.Transcript, nil
}

func (s *STT) Name() string { return "mock-stt" }

// TTS emits ChunkCount synthetic PCM chunks of ChunkSize bytes each,
// whatever the input text, so tests can assert on chunk counts without
// depending on a real synthesis model.
// Abort sets a flag StreamSynthesize checks between chunks, satisfying the
// "cancellation stops within one chunk" contract (spec §4.3) without any
// real I/O to interrupt.
type TTS struct {
	ChunkSize  int
	ChunkCount int
	aborted    atomic.Bool
}

func New() *TTS {
	return &TTS{ChunkSize: 320, ChunkCount: 3}
}

func (t *TTS) Synthesize(ctx context.Context, text string, voice host.Voice, lang host.Language, speed float64) ([]byte, error) {
	var out []byte
	err := t.StreamSynthesize(ctx, text, voice, lang, speed, func(chunk []byte) error {
		out = append(out, chunk...)
		return nil
	})
	return out, err
}

func (t *TTS) StreamSynthesize(ctx context.Context, text string, voice host.Voice, lang host.Language, speed float64, onChunk func([]byte) error) error {
	t.aborted.Store(false)
	for i := 0; i < t.ChunkCount; i++ {
		if t.aborted.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		chunk := make([]byte, t.ChunkSize)
		for j := range chunk {
			chunk[j] = byte((i*t.ChunkSize + j) % 256)
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}

func (t *TTS) Abort() {
	t.aborted.Store(true)
}

func (t *TTS) Name() string { return "mock-tts" }
