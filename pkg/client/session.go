package client

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/spacecodeur/space-lt/pkg/audio"
	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// Logger is the minimal structured-logging surface the client needs; the
// zerolog-backed implementation lives in pkg/logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Session owns one TCP connection to the Audio Host: a dedicated reader
// thread (spec §5) that decodes host->client frames and dispatches them to
// Playback, plus the shared FrameWriter used by Capture for uploads.
type Session struct {
	conn     net.Conn
	writer   *protocol.FrameWriter
	capture  *Capture
	playback *Playback
	log      Logger

	ready chan struct{}
}

// NewSession wraps conn, builds a Capture bound to the connection's
// FrameWriter, and returns both so cmd/client can feed microphone chunks
// into capture and audio-output chunks out of playback.
func NewSession(conn net.Conn, vadCfg audio.VADConfig, playbackCapacity int, log Logger) *Session {
	if log == nil {
		log = noopLogger{}
	}
	writer := protocol.NewFrameWriter(conn)
	s := &Session{
		conn:     conn,
		writer:   writer,
		playback: NewPlayback(playbackCapacity),
		log:      log,
		ready:    make(chan struct{}),
	}
	s.capture = NewCapture(vadCfg, writer)
	return s
}

// Capture returns the session's capture pipeline.
func (s *Session) Capture() *Capture { return s.capture }

// Playback returns the session's playback buffer.
func (s *Session) Playback() *Playback { return s.playback }

// WaitReady blocks until the host's Ready frame has been observed or ctx is
// done.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run reads host->client frames until the connection closes or ctx is
// cancelled. It is meant to run on its own goroutine (the "network reader
// thread" from spec §5).
func (s *Session) Run(ctx context.Context) error {
	readyClosed := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := protocol.ReadFrame(s.conn)
		if err != nil {
			if errors.Is(err, protocol.ErrClosed) {
				return nil
			}
			return fmt.Errorf("client session: %w", err)
		}

		msg, err := protocol.DecodeHostToClient(frame)
		if err != nil {
			// ProtocolError: drop the frame, keep the connection.
			s.log.Warn("dropping unrecognized frame", "tag", frame.Tag.String())
			continue
		}

		switch m := msg.(type) {
		case protocol.Ready:
			if !readyClosed {
				close(s.ready)
				readyClosed = true
			}
		case protocol.TtsAudioChunk:
			s.playback.PushChunk(m.PCM)
		case protocol.TtsEnd:
			s.playback.HandleTtsEnd()
		}
	}
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
