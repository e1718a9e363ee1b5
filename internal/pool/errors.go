package pool

import "errors"

// Failure taxonomy. ErrContextInvalid and ErrProcessDead are recovered
// locally by the repair chain and only surface when repair itself is
// exhausted. ErrCreationFailed and ErrCapacityExceeded surface to the
// caller as task-start failures.
var (
	// ErrCreationFailed indicates session or context allocation failed
	// even after the repair chain's retry.
	ErrCreationFailed = errors.New("session creation failed")

	// ErrCapacityExceeded indicates the pool is at its configured maximum
	// and no idle slot was available to evict.
	ErrCapacityExceeded = errors.New("pool at capacity with no evictable slot")

	// ErrContextInvalid indicates the execution context failed its
	// lightweight validity check. Recoverable by re-deriving the context.
	ErrContextInvalid = errors.New("execution context invalid")

	// ErrProcessDead indicates the liveness probe classified the session's
	// process as dead. Recoverable by a full rebuild.
	ErrProcessDead = errors.New("session process dead")

	// ErrConcurrentAccess indicates a second task attempted to bind an
	// executor while one was already bound for the same slot. The
	// per-owner lock makes this unreachable for well-behaved callers; it
	// is detected and rejected rather than silently corrupting state.
	ErrConcurrentAccess = errors.New("executor already bound for this owner")
)
