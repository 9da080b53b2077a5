package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/spacecodeur/space-lt/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSTT_ReturnsFixedTranscript(t *testing.T) {
	s := &STT{Transcript: "hello there"}
	text, err := s.Transcribe(context.Background(), []byte{1, 2, 3}, 16000, host.DefaultLanguage)
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Equal(t, "mock-stt", s.Name())
}

func TestSTT_UsesFuncWhenSet(t *testing.T) {
	s := &STT{Func: func(pcm []byte) (string, error) {
		if len(pcm) == 0 {
			return "", errors.New("empty pcm")
		}
		return "func result", nil
	}}
	text, err := s.Transcribe(context.Background(), []byte{1}, 16000, host.DefaultLanguage)
	require.NoError(t, err)
	assert.Equal(t, "func result", text)
}

func TestTTS_StreamSynthesizeEmitsConfiguredChunkCount(t *testing.T) {
	ts := New()
	var chunks [][]byte
	err := ts.StreamSynthesize(context.Background(), "hi", host.Voice("F1"), host.DefaultLanguage, 1.0, func(chunk []byte) error {
		chunks = append(chunks, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, chunks, ts.ChunkCount)
	for _, c := range chunks {
		assert.Len(t, c, ts.ChunkSize)
	}
}

func TestTTS_AbortStopsWithinOneChunk(t *testing.T) {
	ts := New()
	ts.ChunkCount = 100 // enough iterations that an unbounded abort would be observable

	var emitted int
	err := ts.StreamSynthesize(context.Background(), "hi", host.Voice("F1"), host.DefaultLanguage, 1.0, func(chunk []byte) error {
		emitted++
		ts.Abort()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, emitted, "StreamSynthesize must stop within one chunk of Abort")
}

func TestTTS_ContextCancellationStopsStream(t *testing.T) {
	ts := New()
	ts.ChunkCount = 100

	ctx, cancel := context.WithCancel(context.Background())
	var emitted int
	err := ts.StreamSynthesize(ctx, "hi", host.Voice("F1"), host.DefaultLanguage, 1.0, func(chunk []byte) error {
		emitted++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, emitted)
}
