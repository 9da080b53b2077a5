// Package agent bridges the orchestrator's turn loop to the external
// conversational agent, which spec §4.6 treats as a black-box subprocess
// with a text-in/text-out contract rather than an HTTP LLM endpoint. This
// replaces the teacher's pkg/providers/llm HTTP clients entirely: there is
// no API surface to call, only a process to launch per turn.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// DefaultDeadline is the hard per-invocation timeout recommended by spec
// §4.6.
const DefaultDeadline = 30 * time.Second

// Bridge launches the external agent binary once per turn, passing the
// transcript, a session-continuity handle, and a system-prompt file per the
// spec §6 invocation surface.
type Bridge struct {
	// Command is the agent executable path or name resolved via PATH.
	Command string
	// Args are additional fixed arguments prepended before the per-call
	// message/session flags (e.g. model selection flags for the agent CLI).
	Args []string
	// SystemPromptPath is loaded once at orchestrator startup and passed on
	// every invocation; the file's content is not read by this package, only
	// its path is threaded through to the subprocess.
	SystemPromptPath string
	// Deadline bounds a single invocation; defaults to DefaultDeadline.
	Deadline time.Duration
}

// NewBridge constructs a Bridge with DefaultDeadline applied.
func NewBridge(command, systemPromptPath string, args ...string) *Bridge {
	return &Bridge{
		Command:          command,
		Args:             args,
		SystemPromptPath: systemPromptPath,
		Deadline:         DefaultDeadline,
	}
}

// Invoke runs one turn: message + sessionHandle are passed as CLI
// arguments, the system prompt path as a flag, and the reply is the
// subprocess's full trimmed standard output. A deadline overrun surfaces as
// ErrAgentTimeout and a non-zero exit as ErrAgentFailed, each wrapping the
// underlying cause; for a failed exit, stderr is captured and included for
// diagnostics.
func (b *Bridge) Invoke(ctx context.Context, message, sessionHandle string) (string, error) {
	deadline := b.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	args := make([]string, 0, len(b.Args)+4)
	args = append(args, b.Args...)
	args = append(args,
		"--session", sessionHandle,
		"--system-prompt", b.SystemPromptPath,
		"--message", message,
	)

	cmd := exec.CommandContext(callCtx, b.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// The agent subprocess is run in its own process group so a deadline or
	// orchestrator shutdown kills everything it spawned, not just the direct
	// child (spec §5: killed via standard process-group termination).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()
	if callCtx.Err() != nil {
		return "", fmt.Errorf("%w: %v", ErrAgentTimeout, callCtx.Err())
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v (stderr: %s)", ErrAgentFailed, err, strings.TrimSpace(stderr.String()))
	}

	reply := strings.TrimSpace(stdout.String())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
