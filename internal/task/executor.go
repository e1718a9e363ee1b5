// Package task provides the default executor factory. Executors are the
// per-task driver objects; they are never reused across tasks even when
// the underlying session is.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randomizedcoder/go-browser-session-pool/internal/pool"
)

// Executor is one single-use task driver attached to an execution
// context. It implements pool.Executor.
type Executor struct {
	id        string
	contextID string
	createdAt time.Time
}

// ID returns the executor's unique identifier.
func (e *Executor) ID() string {
	return e.id
}

// ContextID returns the ID of the execution context this executor is
// attached to.
func (e *Executor) ContextID() string {
	return e.contextID
}

// CreatedAt returns when the executor was constructed.
func (e *Executor) CreatedAt() time.Time {
	return e.createdAt
}

// Factory builds a fresh Executor per bind. It implements
// pool.ExecutorFactory.
type Factory struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewFactory creates an executor factory.
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Bind constructs a new executor attached to the given execution
// context. The context has already passed its validity check; Bind does
// not re-check it.
func (f *Factory) Bind(ctx context.Context, ec pool.ExecContext) (pool.Executor, error) {
	if ec == nil {
		return nil, fmt.Errorf("bind: nil execution context")
	}

	e := &Executor{
		id:        fmt.Sprintf("exec-%d", f.seq.Add(1)),
		contextID: ec.ID(),
		createdAt: time.Now(),
	}
	f.logger.Debug("executor_created",
		"executor_id", e.id,
		"context_id", e.contextID,
	)
	return e, nil
}
