package stt

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spacecodeur/space-lt/pkg/host"
)

// StreamingWS is a websocket-based transcription client, grounded in the
// connection-reuse and wsjson request/binary-or-text-response pattern from
// the teacher's pkg/providers/tts/lokutor.go, adapted from a synthesis
// stream to a single-shot transcription request/response exchange: one JSON
// request frame and one binary PCM frame out, one JSON `{"text": ...}` frame
// back.
type StreamingWS struct {
	host string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStreamingWS builds a client against a wss:// transcription endpoint
// (host only, e.g. "asr.example.com").
func NewStreamingWS(endpointHost string) *StreamingWS {
	return &StreamingWS{host: endpointHost}
}

func (s *StreamingWS) getConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	u := url.URL{Scheme: "wss", Host: s.host, Path: "/transcribe"}
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to streaming STT: %w", err)
	}
	s.conn = conn
	return conn, nil
}

type transcribeRequest struct {
	SampleRate int    `json:"sample_rate"`
	Language   string `json:"language"`
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (s *StreamingWS) Transcribe(ctx context.Context, pcm []byte, sampleRate int, lang host.Language) (string, error) {
	conn, err := s.getConn(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := wsjson.Write(ctx, conn, transcribeRequest{SampleRate: sampleRate, Language: string(lang)}); err != nil {
		s.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write request")
		return "", fmt.Errorf("failed to send transcription request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		s.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to write pcm")
		return "", fmt.Errorf("failed to send pcm payload: %w", err)
	}

	var resp transcribeResponse
	if err := wsjson.Read(ctx, conn, &resp); err != nil {
		s.conn = nil
		conn.Close(websocket.StatusAbnormalClosure, "failed to read response")
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("streaming STT error: %s", strings.TrimSpace(resp.Error))
	}
	return resp.Text, nil
}

func (s *StreamingWS) Name() string { return "streaming-ws-stt" }

// Close releases the underlying websocket connection, if any.
func (s *StreamingWS) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		err := s.conn.Close(websocket.StatusNormalClosure, "")
		s.conn = nil
		return err
	}
	return nil
}
