package pool

import "context"

// Liveness is the result of probing a session's underlying process.
type Liveness int

const (
	// Alive indicates the process answered the probe.
	Alive Liveness = iota

	// Dead indicates the process is gone or unreachable.
	Dead
)

// String returns a human-readable name for the liveness result.
func (l Liveness) String() string {
	switch l {
	case Alive:
		return "alive"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Handle is a reference to one external long-lived stateful process
// (a browser session). A Handle is exclusively owned by at most one Slot
// at a time and is never shared across owner keys.
type Handle interface {
	// ID returns a stable identifier for this handle.
	ID() string
}

// ExecContext is a session-scoped derivative of a Handle (one tab within a
// browser). It is invalid whenever its owning Handle's process is dead;
// validity is re-checked, never assumed, across task boundaries.
type ExecContext interface {
	// ID returns a stable identifier for this context.
	ID() string

	// Check performs a lightweight validity check. It must be cheap enough
	// to run on every acquisition.
	Check(ctx context.Context) error
}

// Executor is a single-task-lifetime driver bound to one ExecContext.
// The pool only creates and discards executors; driving them is the
// caller's concern.
type Executor interface {
	// ID returns a unique identifier for this executor instance.
	ID() string
}

// Provisioner creates and destroys session resources. The pool consumes
// this contract and never launches processes itself.
type Provisioner interface {
	// Create allocates a new Handle.
	Create(ctx context.Context) (Handle, error)

	// Derive creates a fresh ExecContext from an existing Handle.
	Derive(ctx context.Context, h Handle) (ExecContext, error)

	// Destroy tears down the Handle and everything derived from it.
	// It must be safe to call on an already-dead handle.
	Destroy(ctx context.Context, h Handle) error
}

// Prober decides whether a Handle's underlying process is still alive.
// Implementations must be cheap, bounded-time round trips, and must
// classify known process-exit error signatures as Dead instead of
// propagating them as unrelated faults.
type Prober interface {
	// Probe reports whether the process behind h is alive.
	Probe(ctx context.Context, h Handle) Liveness

	// Verify performs the strict handle-attribute check applied to
	// long-lived handles. Handles allocated within the current acquisition
	// skip this check: a resource immediately after creation may not yet
	// expose all attributes a mature one does.
	Verify(ctx context.Context, h Handle) error
}

// ExecutorFactory binds a brand-new Executor to a (possibly reused)
// ExecContext for exactly one task.
type ExecutorFactory interface {
	Bind(ctx context.Context, ec ExecContext) (Executor, error)
}
