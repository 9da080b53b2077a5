package host

import "errors"

var (
	// ErrNoActiveSession names a ResponseText arriving with no current
	// session (spec §4.2: "reject if no current session"); the host logs and
	// drops such a frame and does not return this value.
	ErrNoActiveSession = errors.New("no active session")

	// ErrTranscriptionFailed names an STT adapter failure; the host drops
	// the segment and logs the adapter's own error without wrapping it.
	ErrTranscriptionFailed = errors.New("speech-to-text transcription failed")

	// ErrSynthesisFailed names a TTS adapter failure; the host logs the
	// adapter's own error without wrapping it.
	ErrSynthesisFailed = errors.New("text-to-speech synthesis failed")

	// ErrWriteTimeout is returned when a bounded write to a peer socket
	// exceeds Config.WriteTimeout.
	ErrWriteTimeout = errors.New("write to peer timed out")

	// ErrEngineLoadFailed is fatal at startup: spec §4.2 allows no
	// partial-capability mode. Host.Run also wraps a failure to bind either
	// listener in it.
	ErrEngineLoadFailed = errors.New("engine failed to load")
)
