// Package host implements the Audio Host: the dual-protocol router that
// owns the STT/TTS engines, accepts one client and one orchestrator
// connection, and ferries frames between them (spec §4.2/§4.3).
package host

import (
	"context"
	"time"
)

// Logger is the minimal structured-logging surface the host needs; the
// zerolog-backed implementation lives in pkg/logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards every call.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}
func (NoOpLogger) Info(string, ...interface{})  {}
func (NoOpLogger) Warn(string, ...interface{})  {}
func (NoOpLogger) Error(string, ...interface{}) {}

// Voice selects a TTS speaker identity; the concrete set of valid values is
// engine-defined, the host only threads the string through.
type Voice string

// Language is a BCP-47-ish language tag passed to both engines.
type Language string

const DefaultLanguage Language = "en"

// STTProvider is the host's synchronous transcription contract (spec
// §4.3): "transcribe(pcm_i16_le, sample_rate, language) -> text". The
// caller (the host's read thread) serializes calls against one instance.
type STTProvider interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang Language) (string, error)
	Name() string
}

// TTSProvider is the host's synthesis contract (spec §4.3):
// "synthesize(text, voice, speed) -> lazy chunk sequence". StreamSynthesize
// must stop producing within one chunk of Abort being called, satisfying
// the cancellation-between-chunks requirement.
type TTSProvider interface {
	Synthesize(ctx context.Context, text string, voice Voice, lang Language, speed float64) ([]byte, error)
	StreamSynthesize(ctx context.Context, text string, voice Voice, lang Language, speed float64, onChunk func([]byte) error) error
	Abort()
	Name() string
}

// Config collects the host's tunables; CLI flags in cmd/host populate it
// via viper.
type Config struct {
	Port               int
	SocketPath         string
	UplinkSampleRate   int
	DownlinkSampleRate int
	DefaultVoice       Voice
	DefaultLanguage    Language
	WriteTimeout       time.Duration
	ClientDrainTimeout time.Duration
}

// DefaultConfig matches spec §6's recommended defaults.
func DefaultConfig() Config {
	return Config{
		Port:               9500,
		SocketPath:         "/tmp/space_lt_server.sock",
		UplinkSampleRate:   16000,
		DownlinkSampleRate: 22050,
		DefaultVoice:       "F1",
		DefaultLanguage:    DefaultLanguage,
		WriteTimeout:       2 * time.Second,
		ClientDrainTimeout: 500 * time.Millisecond,
	}
}
