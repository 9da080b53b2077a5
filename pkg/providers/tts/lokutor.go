// Package tts provides concrete TTSProvider adapters for the Audio Host.
package tts

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spacecodeur/space-lt/pkg/host"
)

// WebSocketTTS is a websocket streaming synthesis client, adapted nearly
// verbatim from the teacher's pkg/providers/tts/lokutor.go: the request
// shape (JSON control message, then binary chunks terminated by a "EOS"
// text frame) is unchanged, generalized from a single hardcoded endpoint to
// any wss:// host and given a real Abort() that closes the in-flight read
// so StreamSynthesize returns within one chunk (spec §4.3/§5 cancellation
// contract) instead of only resetting on the next call.
type WebSocketTTS struct {
	apiKey string
	host   string
	scheme string

	mu      sync.Mutex
	conn    *websocket.Conn
	aborted atomic.Bool
}

// NewWebSocketTTS builds a client against a wss:// synthesis endpoint.
func NewWebSocketTTS(apiKey, endpointHost string) *WebSocketTTS {
	return &WebSocketTTS{apiKey: apiKey, host: endpointHost, scheme: "wss"}
}

func (t *WebSocketTTS) getConn(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return t.conn, nil
	}

	u := url.URL{Scheme: t.scheme, Host: t.host, Path: "/ws", RawQuery: "api_key=" + t.apiKey}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tts endpoint: %w", err)
	}
	t.conn = conn
	return conn, nil
}

func (t *WebSocketTTS) Synthesize(ctx context.Context, text string, voice host.Voice, lang host.Language, speed float64) ([]byte, error) {
	var audio []byte
	err := t.StreamSynthesize(ctx, text, voice, lang, speed, func(chunk []byte) error {
		audio = append(audio, chunk...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return audio, nil
}

func (t *WebSocketTTS) StreamSynthesize(ctx context.Context, text string, voice host.Voice, lang host.Language, speed float64, onChunk func([]byte) error) error {
	conn, err := t.getConn(ctx)
	if err != nil {
		return err
	}

	t.aborted.Store(false)

	req := map[string]interface{}{
		"text":    text,
		"voice":   string(voice),
		"lang":    string(lang),
		"speed":   speed,
		"steps":   5,
		"version": "versa-1.0",
	}

	t.mu.Lock()
	writeErr := wsjson.Write(ctx, conn, req)
	t.mu.Unlock()
	if writeErr != nil {
		t.resetConn(conn)
		return fmt.Errorf("failed to send synthesis request: %w", writeErr)
	}

	for {
		if t.aborted.Load() {
			return nil
		}

		messageType, payload, err := conn.Read(ctx)
		if err != nil {
			t.resetConn(conn)
			if t.aborted.Load() {
				return nil
			}
			return fmt.Errorf("failed to read from tts endpoint: %w", err)
		}

		switch messageType {
		case websocket.MessageBinary:
			if err := onChunk(payload); err != nil {
				return err
			}
		case websocket.MessageText:
			msg := string(payload)
			if msg == "EOS" {
				return nil
			}
			if len(msg) >= 4 && msg[:4] == "ERR:" {
				return fmt.Errorf("tts endpoint error: %s", msg)
			}
		}
	}
}

// Abort closes the current connection so any blocked Read returns
// immediately; StreamSynthesize treats the resulting error as a clean stop
// rather than propagating it once aborted has been observed.
func (t *WebSocketTTS) Abort() {
	t.aborted.Store(true)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.CloseNow()
		t.conn = nil
	}
}

func (t *WebSocketTTS) resetConn(stale *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == stale {
		t.conn = nil
	}
	stale.Close(websocket.StatusAbnormalClosure, "")
}

func (t *WebSocketTTS) Name() string { return "websocket-tts" }

// Close releases the underlying websocket connection, if any.
func (t *WebSocketTTS) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		err := t.conn.Close(websocket.StatusNormalClosure, "")
		t.conn = nil
		return err
	}
	return nil
}
