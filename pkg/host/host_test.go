package host

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/spacecodeur/space-lt/pkg/protocol"
	"github.com/spacecodeur/space-lt/pkg/providers/mock"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Port = freePort(t)
	cfg.SocketPath = filepath.Join(t.TempDir(), "space_lt_test.sock")
	cfg.WriteTimeout = 2 * time.Second
	cfg.ClientDrainTimeout = 20 * time.Millisecond
	return cfg
}

func startHost(t *testing.T, cfg Config, stt STTProvider, tts TTSProvider) (context.CancelFunc, chan error) {
	t.Helper()
	h := New(cfg, stt, tts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	// give the listeners a moment to bind before tests dial them.
	time.Sleep(50 * time.Millisecond)
	return cancel, done
}

func dialClient(t *testing.T, cfg Config) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.Port))
	require.NoError(t, err)
	return conn
}

func dialOrchestrator(t *testing.T, cfg Config) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", cfg.SocketPath)
	require.NoError(t, err)
	return conn
}

func TestHost_EmitsReadyOnClientConnect(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{Transcript: "hi"}, mock.New())
	defer cancel()

	conn := dialClient(t, cfg)
	defer conn.Close()

	frame, err := protocol.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, protocol.TagReady, frame.Tag)
}

func TestHost_RoutesAudioSegmentToOrchestrator(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{Transcript: "hello how are you"}, mock.New())
	defer cancel()

	clientConn := dialClient(t, cfg)
	defer clientConn.Close()
	_, err := protocol.ReadFrame(clientConn) // Ready

	orchConn := dialOrchestrator(t, cfg)
	defer orchConn.Close()
	orchWriter := protocol.NewFrameWriter(orchConn)
	require.NoError(t, orchWriter.WriteFrame(protocol.TagSessionStart, []byte(`{"id":"s1"}`)))
	time.Sleep(20 * time.Millisecond)

	clientWriter := protocol.NewFrameWriter(clientConn)
	require.NoError(t, clientWriter.WriteFrame(protocol.TagAudioSegment, make([]byte, 96000)))

	frame, err := protocol.ReadFrame(orchConn)
	require.NoError(t, err)
	require.Equal(t, protocol.TagTranscribedText, frame.Tag)
	require.Equal(t, "hello how are you", string(frame.Payload))
}

func TestHost_ResponseTextRejectedWithoutSession(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{}, mock.New())
	defer cancel()

	clientConn := dialClient(t, cfg)
	defer clientConn.Close()
	_, _ = protocol.ReadFrame(clientConn) // Ready

	orchConn := dialOrchestrator(t, cfg)
	defer orchConn.Close()
	orchWriter := protocol.NewFrameWriter(orchConn)
	frame := protocol.EncodeResponseText(protocol.ResponseText{Text: "hi"})
	require.NoError(t, orchWriter.WriteFrame(frame.Tag, frame.Payload))

	_ = clientConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err := protocol.ReadFrame(clientConn)
	require.Error(t, err, "no TtsAudioChunk should be emitted without an active session")
}

func TestHost_ResponseTextSynthesizesAndEndsReply(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{}, mock.New())
	defer cancel()

	clientConn := dialClient(t, cfg)
	defer clientConn.Close()
	_, _ = protocol.ReadFrame(clientConn) // Ready

	orchConn := dialOrchestrator(t, cfg)
	defer orchConn.Close()
	orchWriter := protocol.NewFrameWriter(orchConn)
	require.NoError(t, orchWriter.WriteFrame(protocol.TagSessionStart, []byte(`{"id":"s1"}`)))
	time.Sleep(20 * time.Millisecond)

	respFrame := protocol.EncodeResponseText(protocol.ResponseText{Text: "hi there"})
	require.NoError(t, orchWriter.WriteFrame(respFrame.Tag, respFrame.Payload))

	sawEnd := false
	chunkCount := 0
	for i := 0; i < 10; i++ {
		_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		frame, err := protocol.ReadFrame(clientConn)
		require.NoError(t, err)
		if frame.Tag == protocol.TagTtsEnd {
			sawEnd = true
			break
		}
		require.Equal(t, protocol.TagTtsAudioChunk, frame.Tag)
		chunkCount++
	}
	require.True(t, sawEnd)
	require.Greater(t, chunkCount, 0)
}

func TestHost_PauseSuppressesTranscriptForwardingAndTtsAudio(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{Transcript: "should not be forwarded"}, mock.New())
	defer cancel()

	clientConn := dialClient(t, cfg)
	defer clientConn.Close()
	_, err := protocol.ReadFrame(clientConn) // Ready
	require.NoError(t, err)

	orchConn := dialOrchestrator(t, cfg)
	defer orchConn.Close()
	orchWriter := protocol.NewFrameWriter(orchConn)
	require.NoError(t, orchWriter.WriteFrame(protocol.TagSessionStart, []byte(`{"id":"s1"}`)))
	time.Sleep(20 * time.Millisecond)

	clientWriter := protocol.NewFrameWriter(clientConn)
	require.NoError(t, clientWriter.WriteFrame(protocol.TagPauseRequest, nil))
	time.Sleep(20 * time.Millisecond)

	// While paused, an AudioSegment must not produce a TranscribedText frame.
	require.NoError(t, clientWriter.WriteFrame(protocol.TagAudioSegment, make([]byte, 96000)))
	_ = orchConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, err = protocol.ReadFrame(orchConn)
	require.Error(t, err, "no TranscribedText should be forwarded while paused")

	// While paused, a ResponseText's synthesized audio must not reach the
	// client, but TtsEnd must still arrive so the client's state machine
	// progresses (spec §4.2 "its output is discarded while paused").
	respFrame := protocol.EncodeResponseText(protocol.ResponseText{Text: "hi there"})
	require.NoError(t, orchWriter.WriteFrame(respFrame.Tag, respFrame.Payload))

	sawEnd := false
	for i := 0; i < 10; i++ {
		_ = clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		frame, err := protocol.ReadFrame(clientConn)
		require.NoError(t, err)
		if frame.Tag == protocol.TagTtsEnd {
			sawEnd = true
			break
		}
		require.NotEqual(t, protocol.TagTtsAudioChunk, frame.Tag, "no TtsAudioChunk should reach the client while paused")
	}
	require.True(t, sawEnd)

	// Resuming restores normal transcript forwarding.
	require.NoError(t, clientWriter.WriteFrame(protocol.TagResumeRequest, nil))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, clientWriter.WriteFrame(protocol.TagAudioSegment, make([]byte, 96000)))

	_ = orchConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := protocol.ReadFrame(orchConn)
	require.NoError(t, err)
	require.Equal(t, protocol.TagTranscribedText, frame.Tag)
}

func TestHost_ClientReplacementDrainsAndCloses(t *testing.T) {
	cfg := testConfig(t)
	cancel, _ := startHost(t, cfg, &mock.STT{}, mock.New())
	defer cancel()

	first := dialClient(t, cfg)
	defer first.Close()
	_, err := protocol.ReadFrame(first)
	require.NoError(t, err)

	second := dialClient(t, cfg)
	defer second.Close()
	_, err = protocol.ReadFrame(second)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	_, err = protocol.ReadFrame(first)
	require.Error(t, err, "the superseded client connection should be closed")
}
