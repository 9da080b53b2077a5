package agent

import "errors"

var (
	// ErrAgentTimeout is returned when an invocation exceeds its deadline.
	ErrAgentTimeout = errors.New("agent invocation exceeded deadline")

	// ErrAgentFailed is returned on a non-zero exit or launch failure.
	ErrAgentFailed = errors.New("agent invocation failed")

	// ErrEmptyReply is returned when the subprocess exits 0 but prints
	// nothing usable.
	ErrEmptyReply = errors.New("agent returned an empty reply")
)
