package host

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// acceptClients is the dedicated accept-and-read thread for the TCP
// transport (spec §5: "one dedicated accept-and-read thread per listener").
func (h *Host) acceptClients(ctx context.Context, lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		h.onClientConnect(ctx, conn)
	}
}

// onClientConnect enforces the "exactly one active client" policy (spec
// §4.2): any previous connection is drained for up to ClientDrainTimeout,
// allowing an in-flight TtsAudioChunk write to land, then closed. The new
// connection becomes current immediately and is sent Ready.
func (h *Host) onClientConnect(parentCtx context.Context, conn net.Conn) {
	clientCtx, cancel := context.WithCancel(parentCtx)
	link := newPeerLink(conn, h.cfg.WriteTimeout)

	h.clientMu.Lock()
	prev := h.client
	prevCancel := h.clientCancel
	h.client = link
	h.clientCancel = cancel
	h.clientMu.Unlock()

	m := metrics.Default()
	if prev == nil {
		m.ActiveClientConnections.Add(parentCtx, 1)
	}

	if prev != nil {
		go func() {
			time.Sleep(h.cfg.ClientDrainTimeout)
			prevCancel()
			prev.close()
		}()
	}

	if err := link.writeFrame(protocol.TagReady, nil); err != nil {
		h.log.Error("failed to send Ready", "error", err.Error())
	}

	go h.clientReadLoop(clientCtx, link)
}

// clientReadLoop decodes client->host frames until the connection drops or
// it is superseded by a replacement.
func (h *Host) clientReadLoop(ctx context.Context, link *peerLink) {
	defer func() {
		h.clientMu.Lock()
		wasCurrent := h.client == link
		if wasCurrent {
			h.client = nil
			h.clientCancel = nil
		}
		h.clientMu.Unlock()
		if wasCurrent {
			metrics.Default().ActiveClientConnections.Add(ctx, -1)
		}
		link.close()
	}()

	for {
		frame, err := protocol.ReadFrame(link.conn)
		if err != nil {
			if !errors.Is(err, protocol.ErrClosed) {
				h.log.Warn("client connection error", "error", err.Error())
			}
			return
		}

		msg, err := protocol.DecodeClientToHost(frame)
		if err != nil {
			h.log.Warn("dropping unrecognized client frame", "tag", frame.Tag.String())
			continue
		}

		metrics.Default().RecordFrameRouted(ctx, "client->host", frame.Tag.String())

		switch m := msg.(type) {
		case protocol.AudioSegment:
			h.handleAudioSegment(ctx, m.PCM)
		case protocol.PauseRequest:
			h.paused.Store(true)
			h.log.Info("paused")
		case protocol.ResumeRequest:
			h.paused.Store(false)
			h.log.Info("resumed")
		}
	}
}

// handleAudioSegment runs STT synchronously on the read thread (spec §4.3:
// "the host serializes calls per STT instance") and forwards the
// transcript unless paused.
func (h *Host) handleAudioSegment(ctx context.Context, pcm []byte) {
	start := time.Now()
	text, err := h.stt.Transcribe(ctx, pcm, h.cfg.UplinkSampleRate, h.cfg.DefaultLanguage)
	m := metrics.Default()
	m.TranscribeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.TranscriptionErrors.Add(ctx, 1)
		h.log.Error("transcription failed, dropping segment", "error", err.Error())
		return
	}
	if h.paused.Load() {
		return
	}
	if h.currentSession() == nil {
		h.log.Warn("dropping transcript, no active session")
		return
	}
	h.forwardTranscript(text)
}
