package host

import (
	"context"
	"errors"
	"time"

	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/protocol"
)

// runSynthWorker is the single TTS job consumer (spec §5: "TTS engine:
// serialized by the synthesis worker; one job at a time"). Jobs are
// processed strictly in arrival order because they are drained from one
// channel.
func (h *Host) runSynthWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-h.ttsJobs:
			h.runSynthJob(ctx, job)
		}
	}
}

// runSynthJob streams one reply to whichever client is currently connected.
// A write timeout cancels the synthesizer and still emits TtsEnd so the
// client's state machine progresses (spec §4.2 back-pressure semantics). If
// the host is paused, chunks are still drained from the engine to let
// synthesis finish normally but are never written to the client (spec
// §4.2: "its output is discarded while paused").
func (h *Host) runSynthJob(parentCtx context.Context, job ttsJob) {
	link := h.getClientLink()
	if link == nil {
		h.log.Warn("no client connected, discarding TTS job")
		return
	}

	jobCtx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	start := time.Now()
	m := metrics.Default()

	var writeErr error
	err := h.tts.StreamSynthesize(jobCtx, job.text, h.cfg.DefaultVoice, h.cfg.DefaultLanguage, job.speed, func(chunk []byte) error {
		if h.paused.Load() {
			return nil
		}
		frame := protocol.EncodeTtsAudioChunk(protocol.TtsAudioChunk{PCM: chunk})
		if err := link.writeFrame(frame.Tag, frame.Payload); err != nil {
			writeErr = err
			if errors.Is(err, ErrWriteTimeout) {
				h.tts.Abort()
				cancel()
			}
			return err
		}
		m.RecordFrameRouted(jobCtx, "host->client", frame.Tag.String())
		return nil
	})
	m.SynthesizeDuration.Record(parentCtx, time.Since(start).Seconds())

	if err != nil && writeErr == nil {
		m.SynthesisErrors.Add(parentCtx, 1)
		h.log.Error("synthesis failed", "error", err.Error())
	} else if writeErr != nil {
		h.log.Warn("dropped TTS job on write timeout", "error", writeErr.Error())
	}

	if endErr := link.writeFrame(protocol.TagTtsEnd, nil); endErr != nil {
		h.log.Error("failed to send TtsEnd", "error", endErr.Error())
	}
}
