package host

import (
	"context"
	"errors"
	"net"

	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// acceptOrchestrator is the accept-and-read thread for the local-stream
// transport.
func (h *Host) acceptOrchestrator(ctx context.Context, lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.onOrchestratorConnect(ctx, conn)
	}
}

// onOrchestratorConnect replaces any previous orchestrator connection
// without the audio-drain grace period the client listener uses (spec
// §4.2: "same replacement policy without the audio drain").
func (h *Host) onOrchestratorConnect(ctx context.Context, conn net.Conn) {
	link := newPeerLink(conn, h.cfg.WriteTimeout)

	h.orchMu.Lock()
	prev := h.orch
	h.orch = link
	h.orchMu.Unlock()

	if prev == nil {
		metrics.Default().ActiveOrchestratorConnections.Add(ctx, 1)
	}
	if prev != nil {
		prev.close()
	}

	go h.orchReadLoop(ctx, link)
}

func (h *Host) orchReadLoop(ctx context.Context, link *peerLink) {
	defer func() {
		h.orchMu.Lock()
		wasCurrent := h.orch == link
		if wasCurrent {
			h.orch = nil
		}
		h.orchMu.Unlock()
		if wasCurrent {
			metrics.Default().ActiveOrchestratorConnections.Add(ctx, -1)
		}
		link.close()
		h.clearSession()
	}()

	for {
		frame, err := protocol.ReadFrame(link.conn)
		if err != nil {
			if !errors.Is(err, protocol.ErrClosed) {
				h.log.Warn("orchestrator connection error", "error", err.Error())
			}
			return
		}

		msg, err := protocol.DecodeOrchestratorToHost(frame)
		if err != nil {
			h.log.Warn("dropping unrecognized orchestrator frame", "tag", frame.Tag.String())
			continue
		}

		metrics.Default().RecordFrameRouted(ctx, "orchestrator->host", frame.Tag.String())

		switch m := msg.(type) {
		case protocol.SessionStart:
			h.setSession(m.PayloadJSON)
			h.log.Info("session started")
		case protocol.SessionEnd:
			h.clearSession()
			h.log.Info("session ended")
		case protocol.ResponseText:
			h.handleResponseText(ctx, m)
		}
	}
}

// handleResponseText rejects a reply with no active session (spec §4.2:
// "reject if no current session"), otherwise enqueues a TTS job. The speed
// override, if present, updates the host's persistent per-session speed
// before this job is synthesized (spec §4.6: "persistent across turns
// until changed").
func (h *Host) handleResponseText(ctx context.Context, m protocol.ResponseText) {
	if h.currentSession() == nil {
		h.log.Warn("dropping ResponseText, no active session")
		return
	}
	if m.Speed != nil {
		h.setSpeed(*m.Speed)
	}

	job := ttsJob{text: m.Text, speed: h.currentSpeed()}
	select {
	case h.ttsJobs <- job:
	case <-ctx.Done():
	}
}
