package host

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/protocol"
	"golang.org/x/sync/errgroup"
)

// ttsJob is one queued synthesis request (spec §4.2: "enqueue a TTS job
// that streams synthesis chunks to the client followed by TtsEnd").
type ttsJob struct {
	text  string
	speed float64
}

// Host is the dual-protocol router from spec §4.2: it owns the STT/TTS
// engines, accepts exactly one client and one orchestrator connection, and
// routes frames between them. Supervision of its listener and worker
// goroutines is delegated to an errgroup.Group (grounded in glyphoxa's use
// of golang.org/x/sync), generalizing the teacher's context-based
// cooperative shutdown in ManagedStream.
type Host struct {
	cfg Config
	log Logger

	stt STTProvider
	tts TTSProvider

	paused atomic.Bool

	sessionMu sync.Mutex
	session   *string // most recent SessionStart payload, nil = none

	speedMu sync.Mutex
	speed   float64

	clientMu     sync.Mutex
	client       *peerLink
	clientCancel context.CancelFunc

	orchMu sync.Mutex
	orch   *peerLink

	ttsJobs chan ttsJob
}

// New constructs a Host bound to already-loaded STT/TTS engines. Spec §4.2
// makes engine loading a fatal precondition of startup, so New assumes both
// are non-nil and ready.
func New(cfg Config, stt STTProvider, tts TTSProvider, log Logger) *Host {
	if log == nil {
		log = NoOpLogger{}
	}
	return &Host{
		cfg:     cfg,
		log:     log,
		stt:     stt,
		tts:     tts,
		speed:   1.0,
		ttsJobs: make(chan ttsJob, 1),
	}
}

// Run binds both listeners and runs until ctx is cancelled or a listener
// fails fatally. It never returns nil except on clean shutdown.
func (h *Host) Run(ctx context.Context) error {
	clientLis, err := net.Listen("tcp", fmt.Sprintf(":%d", h.cfg.Port))
	if err != nil {
		return fmt.Errorf("%w: tcp listen: %v", ErrEngineLoadFailed, err)
	}
	defer clientLis.Close()

	_ = os.Remove(h.cfg.SocketPath)
	orchLis, err := net.Listen("unix", h.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("%w: unix listen: %v", ErrEngineLoadFailed, err)
	}
	defer orchLis.Close()
	defer os.Remove(h.cfg.SocketPath)

	h.log.Info("host listening", "port", h.cfg.Port, "socket", h.cfg.SocketPath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.acceptClients(gctx, clientLis) })
	g.Go(func() error { return h.acceptOrchestrator(gctx, orchLis) })
	g.Go(func() error { return h.runSynthWorker(gctx) })

	go func() {
		<-gctx.Done()
		clientLis.Close()
		orchLis.Close()
	}()

	return g.Wait()
}

// Paused reports the current pause state.
func (h *Host) Paused() bool { return h.paused.Load() }

func (h *Host) currentSession() *string {
	h.sessionMu.Lock()
	defer h.sessionMu.Unlock()
	return h.session
}

func (h *Host) setSession(payload string) {
	h.sessionMu.Lock()
	h.session = &payload
	h.sessionMu.Unlock()
}

func (h *Host) clearSession() {
	h.sessionMu.Lock()
	h.session = nil
	h.sessionMu.Unlock()
}

func (h *Host) currentSpeed() float64 {
	h.speedMu.Lock()
	defer h.speedMu.Unlock()
	return h.speed
}

func (h *Host) setSpeed(v float64) {
	h.speedMu.Lock()
	h.speed = v
	h.speedMu.Unlock()
}

func (h *Host) getClientLink() *peerLink {
	h.clientMu.Lock()
	defer h.clientMu.Unlock()
	return h.client
}

func (h *Host) getOrchLink() *peerLink {
	h.orchMu.Lock()
	defer h.orchMu.Unlock()
	return h.orch
}

// forwardTranscript sends TranscribedText to the orchestrator if one is
// connected, silently dropping it otherwise (spec §4.2 defines no queue for
// a missing orchestrator).
func (h *Host) forwardTranscript(text string) {
	link := h.getOrchLink()
	if link == nil {
		h.log.Warn("no orchestrator connected, dropping transcript")
		return
	}
	frame := protocol.EncodeTranscribedText(protocol.TranscribedText{Text: text})
	if err := link.writeFrame(frame.Tag, frame.Payload); err != nil {
		h.log.Error("failed to forward transcript", "error", err.Error())
		return
	}
	metrics.Default().RecordFrameRouted(context.Background(), "host->orchestrator", frame.Tag.String())
}
