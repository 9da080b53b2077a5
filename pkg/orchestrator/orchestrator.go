package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacecodeur/space-lt/internal/metrics"
	"github.com/spacecodeur/space-lt/pkg/protocol"
	"github.com/spacecodeur/space-lt/pkg/retry"
)

// Dialer opens a fresh connection to the host's local-stream listener; it is
// called once at startup and again on every reconnect (spec §4.7).
type Dialer func(ctx context.Context) (net.Conn, error)

// AgentInvoker is the narrow interface the turn loop needs from the agent
// bridge; *agent.Bridge satisfies it. Kept as an interface so tests can
// substitute a fake subprocess without actually launching one.
type AgentInvoker interface {
	Invoke(ctx context.Context, message, sessionHandle string) (string, error)
}

// sessionPayload is the JSON blob sent as SessionStart; opaque to the host.
type sessionPayload struct {
	SessionID string `json:"session_id"`
	Handle    string `json:"agent_session_handle"`
}

// Orchestrator mediates between the host's local stream and the external
// agent subprocess (spec §4.6/§4.7). It owns exactly one TurnState at a
// time and enforces at-most-one-in-flight-turn by sequencing transcripts
// through a single processing loop rather than locking.
type Orchestrator struct {
	dial   Dialer
	bridge AgentInvoker
	log    Logger

	retryAttempts int
	retryDelay    time.Duration

	mu      sync.Mutex
	state   TurnState
	session *Session

	transcripts chan string
}

// New builds an Orchestrator. bridge.Invoke is called once per attempt, up
// to the configured retry attempts per turn; dial
// is used both for the initial connection and every reconnect attempt.
func New(dial Dialer, bridge AgentInvoker, cfg Config, log Logger) *Orchestrator {
	if log == nil {
		log = &NoOpLogger{}
	}
	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = RetryAttempts
	}
	delaySec := cfg.RetryDelaySec
	if delaySec <= 0 {
		delaySec = RetryDelay
	}
	return &Orchestrator{
		dial:          dial,
		bridge:        bridge,
		log:           log,
		retryAttempts: attempts,
		retryDelay:    time.Duration(delaySec) * time.Second,
		state:         TurnIdle,
		transcripts:   make(chan string, 32),
	}
}

// State reports the current turn state (for tests/diagnostics).
func (o *Orchestrator) State() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s TurnState) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run drives the connect/reconnect loop until ctx is cancelled. Each
// connection cycle: dial, emit SessionStart, spawn a reader goroutine that
// feeds TranscribedText frames into the transcript queue, then process that
// queue serially on this goroutine (the orchestrator's single main loop
// thread per spec §5) until the connection drops, at which point it
// reconnects with bounded exponential backoff (spec §4.7).
func (o *Orchestrator) Run(ctx context.Context) error {
	backoff := retry.NewBackoff(retry.DefaultReconnectBackoff())

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := o.dial(ctx)
		if err != nil {
			o.log.Warn("dial failed, backing off", "error", err.Error())
			if sleepErr := backoff.Sleep(ctx); sleepErr != nil {
				return sleepErr
			}
			continue
		}
		backoff.Reset()

		if err := o.runConnection(ctx, conn); err != nil && ctx.Err() == nil {
			o.log.Warn("connection lost, reconnecting", "error", err.Error())
			if sleepErr := backoff.Sleep(ctx); sleepErr != nil {
				return sleepErr
			}
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// runConnection owns one connection's lifetime: it blocks until the
// connection drops or ctx is cancelled.
func (o *Orchestrator) runConnection(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	writer := protocol.NewFrameWriter(conn)
	o.session = NewSession(uuid.NewString(), uuid.NewString())

	payload, err := json.Marshal(sessionPayload{SessionID: o.session.ID, Handle: o.session.Handle})
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}
	if err := writer.WriteFrame(protocol.TagSessionStart, payload); err != nil {
		return fmt.Errorf("emit SessionStart: %w", err)
	}

	readErrCh := make(chan error, 1)
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		readErrCh <- o.readLoop(connCtx, conn)
	}()

	for {
		select {
		case <-connCtx.Done():
			o.emitSessionEnd(writer)
			return connCtx.Err()
		case err := <-readErrCh:
			return err
		case text := <-o.transcripts:
			o.processTranscript(connCtx, writer, text)
		}
	}
}

// emitSessionEnd writes a best-effort SessionEnd frame on clean shutdown
// (spec §4.6: "on clean shutdown it emits SessionEnd"). The connection is
// about to be closed by runConnection's deferred Close regardless of
// whether this write succeeds.
func (o *Orchestrator) emitSessionEnd(writer *protocol.FrameWriter) {
	if err := writer.WriteFrame(protocol.TagSessionEnd, nil); err != nil {
		o.log.Warn("failed to emit SessionEnd", "error", err.Error())
	}
}

// readLoop decodes host->orchestrator frames and enqueues transcripts. It
// never processes a turn itself, keeping with "one transcript at a time on
// the main loop".
func (o *Orchestrator) readLoop(ctx context.Context, conn net.Conn) error {
	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, protocol.ErrClosed) {
				return nil
			}
			return fmt.Errorf("orchestrator read: %w", err)
		}

		msg, err := protocol.DecodeHostToOrchestrator(frame)
		if err != nil {
			o.log.Warn("dropping unrecognized frame", "tag", frame.Tag.String())
			continue
		}

		if tt, ok := msg.(protocol.TranscribedText); ok {
			select {
			case o.transcripts <- tt.Text:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// processTranscript runs one full turn: AwaitingAgent -> (SynthesizingResponse | ErrorSpeaking) -> Idle.
func (o *Orchestrator) processTranscript(ctx context.Context, writer *protocol.FrameWriter, text string) {
	turnStart := time.Now()
	m := metrics.Default()

	o.setState(TurnAwaitingAgent)
	o.session.RecordUserMessage(text)

	agentStart := time.Now()
	var reply string
	err := retry.FixedRetry(ctx, o.retryAttempts, o.retryDelay, func(attempt int) error {
		if attempt > 1 {
			m.AgentRetries.Add(ctx, 1)
		}
		r, invokeErr := o.bridge.Invoke(ctx, text, o.session.Handle)
		if invokeErr != nil {
			o.log.Warn("agent invocation failed", "attempt", attempt, "error", invokeErr.Error())
			return invokeErr
		}
		reply = r
		return nil
	})
	m.AgentDuration.Record(ctx, time.Since(agentStart).Seconds())

	if err != nil {
		o.setState(TurnErrorSpeaking)
		o.log.Error("agent retries exhausted", "error", ErrAgentRetriesExhausted.Error(), "cause", err.Error())
		apology := protocol.EncodeResponseText(protocol.ResponseText{Text: ApologyText})
		if writeErr := writer.WriteFrame(apology.Tag, apology.Payload); writeErr != nil {
			o.log.Error("failed to send apology response", "error", writeErr.Error())
		}
		o.setState(TurnIdle)
		m.RecordTurnOutcome(ctx, "apology")
		m.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())
		return
	}

	o.setState(TurnSynthesizingResponse)
	extracted := ExtractMarkers(reply)
	if extracted.Speed != nil {
		o.session.SetSpeed(*extracted.Speed)
	}
	if extracted.Feedback != "" {
		o.log.Info("agent feedback", "feedback", extracted.Feedback)
	}

	frame := protocol.EncodeResponseText(protocol.ResponseText{Text: extracted.CleanedText, Speed: extracted.Speed})
	if writeErr := writer.WriteFrame(frame.Tag, frame.Payload); writeErr != nil {
		o.log.Error("failed to send response text", "error", writeErr.Error())
	}
	o.setState(TurnIdle)
	m.RecordTurnOutcome(ctx, "ok")
	m.TurnDuration.Record(ctx, time.Since(turnStart).Seconds())
}
