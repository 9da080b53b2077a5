package orchestrator

import "errors"

var (
	// ErrAgentRetriesExhausted is logged when every retry attempt against
	// the agent subprocess has failed for a turn; it is not returned.
	ErrAgentRetriesExhausted = errors.New("agent invocation failed after all retries")

	// ErrContextCancelled names a turn abandoned because its context was
	// cancelled mid-flight; no code in this package returns it.
	ErrContextCancelled = errors.New("operation cancelled by context")
)
