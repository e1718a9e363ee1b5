package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Callbacks contains optional callback functions for pool events.
// The metrics and stats layers hook in here so the pool itself stays
// free of Prometheus types.
type Callbacks struct {
	// OnSessionCreated is called when a brand-new session is provisioned.
	OnSessionCreated func(ownerKey string)

	// OnSessionReused is called when an existing session passes validation.
	OnSessionReused func(ownerKey string)

	// OnSessionRebuilt is called when a session is replaced by the repair
	// chain (context-only recreation does not count as a rebuild).
	OnSessionRebuilt func(ownerKey string)

	// OnSlotEvicted is called after a slot is torn down and removed.
	// Reason is one of "idle", "capacity", "manual", "drain", "failed".
	OnSlotEvicted func(ownerKey, reason string)

	// OnProbe is called with the result of every liveness probe.
	OnProbe func(ownerKey string, result Liveness)

	// OnTaskFinished is called when an executor is released, with the
	// duration it was bound.
	OnTaskFinished func(ownerKey string, boundFor time.Duration)
}

// Config holds configuration for creating a new Pool.
type Config struct {
	Provisioner Provisioner
	Prober      Prober
	Executors   ExecutorFactory
	Logger      *slog.Logger

	// MaxSlots is the maximum number of concurrent sessions (default: 10).
	MaxSlots int

	// IdleTimeout is how long a slot may sit without activity before the
	// cleaner evicts it (default: 30m).
	IdleTimeout time.Duration

	Callbacks Callbacks
}

// Pool maps owner keys to slots. All session lifecycle decisions
// (create, reuse, repair, evict) happen here; launching and probing the
// actual processes is delegated to the configured contracts.
type Pool struct {
	provisioner Provisioner
	prober      Prober
	executors   ExecutorFactory
	logger      *slog.Logger
	maxSlots    int
	idleTimeout time.Duration
	callbacks   Callbacks

	// mu guards the map structure only. It is never held while acquiring
	// a slot's operation lock, so a slow provisioning for one owner never
	// blocks lookups for another.
	mu    sync.RWMutex
	slots map[string]*Slot

	// Counters
	created      atomic.Int64
	reused       atomic.Int64
	rebuilt      atomic.Int64
	evicted      atomic.Int64
	tasksStarted atomic.Int64
}

// New creates a new Pool with the given configuration.
func New(cfg Config) *Pool {
	maxSlots := cfg.MaxSlots
	if maxSlots <= 0 {
		maxSlots = 10
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		provisioner: cfg.Provisioner,
		prober:      cfg.Prober,
		executors:   cfg.Executors,
		logger:      logger,
		maxSlots:    maxSlots,
		idleTimeout: idleTimeout,
		callbacks:   cfg.Callbacks,
		slots:       make(map[string]*Slot),
	}
}

// Acquire returns the slot for ownerKey with a confirmed-usable session,
// creating or repairing the session as needed.
//
// Validation runs on every call, even when an executor is still believed
// bound: a bound executor once masked process death and must never
// short-circuit the probe. Same-owner acquisitions serialize on the
// slot's operation lock; different owners proceed in parallel.
func (p *Pool) Acquire(ctx context.Context, ownerKey string) (*Slot, error) {
	for {
		s, err := p.lookupOrCreate(ctx, ownerKey)
		if err != nil {
			return nil, err
		}

		s.opMu.Lock()
		if s.State() == StateDead {
			// Evicted between lookup and lock; go back to the map.
			s.opMu.Unlock()
			continue
		}

		if err := p.ensureUsable(ctx, s); err != nil {
			// No usable session could be produced. Mark the slot dead
			// before unlocking so concurrent same-owner waiters retry
			// against the map instead of using the husk.
			s.setState(StateDead)
			s.opMu.Unlock()
			p.removeSlot(s)
			p.notifyEvicted(ownerKey, "failed")
			return nil, err
		}

		s.touch(time.Now())
		if s.Executor() == nil {
			s.setState(StateIdle)
		}
		// Claim before unlocking: the caller is about to use this slot,
		// and a capacity-pressured eviction must not select it as an LRU
		// victim before BindExecutor runs. Release drops the claim.
		s.claim()
		s.opMu.Unlock()
		return s, nil
	}
}

// lookupOrCreate finds or inserts the slot for ownerKey, enforcing the
// capacity policy: a new owner at capacity first evicts the
// least-recently-active idle slot, and fails with ErrCapacityExceeded
// when none exists.
func (p *Pool) lookupOrCreate(ctx context.Context, ownerKey string) (*Slot, error) {
	for {
		p.mu.Lock()
		if s, ok := p.slots[ownerKey]; ok {
			p.mu.Unlock()
			return s, nil
		}
		if len(p.slots) < p.maxSlots {
			s := newSlot(ownerKey, time.Now())
			p.slots[ownerKey] = s
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()

		if !p.evictIdleLRU(ctx) {
			p.logger.Warn("capacity_exceeded",
				"owner_key", ownerKey,
				"max_slots", p.maxSlots,
			)
			return nil, ErrCapacityExceeded
		}
		// Capacity was reclaimed; retry, since a racing owner may have
		// consumed the freed slot.
	}
}

// ensureUsable validates the slot's session and repairs it if necessary.
// Caller must hold s.opMu.
func (p *Pool) ensureUsable(ctx context.Context, s *Slot) error {
	// First acquisition for this owner: provision from scratch.
	if s.Handle() == nil {
		h, ec, err := p.provision(ctx)
		if err != nil {
			return err
		}
		s.setSession(h, ec)
		p.created.Add(1)
		if p.callbacks.OnSessionCreated != nil {
			p.callbacks.OnSessionCreated(s.ownerKey)
		}
		p.logger.Info("session_created",
			"owner_key", s.ownerKey,
			"handle_id", h.ID(),
			"context_id", ec.ID(),
		)
		// Brand-new handle: the strict attribute verification is skipped
		// on purpose; see Prober.Verify.
		return nil
	}

	// Step 1: unconditional process liveness probe.
	result := p.prober.Probe(ctx, s.Handle())
	if p.callbacks.OnProbe != nil {
		p.callbacks.OnProbe(s.ownerKey, result)
	}
	alive := result == Alive

	if !alive {
		p.logger.Warn("probe_dead",
			"owner_key", s.ownerKey,
			"handle_id", s.Handle().ID(),
		)
	}

	// Mature handles additionally get the strict attribute check.
	if alive {
		if err := p.prober.Verify(ctx, s.Handle()); err != nil {
			p.logger.Warn("session_verify_failed",
				"owner_key", s.ownerKey,
				"handle_id", s.Handle().ID(),
				"error", err,
			)
			alive = false
		}
	}

	// Step 2: lightweight context validity check. A process can be alive
	// while its tab has been closed underneath us.
	if alive {
		if ec := s.Context(); ec != nil {
			err := ec.Check(ctx)
			if err == nil {
				p.reused.Add(1)
				if p.callbacks.OnSessionReused != nil {
					p.callbacks.OnSessionReused(s.ownerKey)
				}
				p.logger.Debug("session_reused",
					"owner_key", s.ownerKey,
					"handle_id", s.Handle().ID(),
					"task_count", s.TaskCount(),
				)
				return nil
			}
			p.logger.Debug("context_check_failed",
				"owner_key", s.ownerKey,
				"context_id", ec.ID(),
				"error", err,
			)
		}
	}

	// Step 3: run the repair chain.
	return p.repair(ctx, s, alive)
}

// provision allocates a handle and derives its first context, retrying
// once before surfacing ErrCreationFailed.
func (p *Pool) provision(ctx context.Context) (Handle, ExecContext, error) {
	const attempts = 2

	var lastErr error
	for i := 0; i < attempts; i++ {
		h, err := p.provisioner.Create(ctx)
		if err != nil {
			lastErr = err
			p.logger.Warn("session_create_failed", "attempt", i+1, "error", err)
			continue
		}

		ec, err := p.provisioner.Derive(ctx, h)
		if err == nil {
			return h, ec, nil
		}
		lastErr = err
		p.logger.Warn("context_derive_failed",
			"attempt", i+1,
			"handle_id", h.ID(),
			"error", err,
		)
		p.destroyHandle(ctx, h)
	}

	return nil, nil, fmt.Errorf("%w: %v", ErrCreationFailed, lastErr)
}

// BindExecutor constructs a brand-new executor bound to the slot's
// current context. It never returns a previously used executor: reusing
// the session is safe and desired, reusing the executor would leak stale
// task state into the new task.
func (p *Pool) BindExecutor(ctx context.Context, s *Slot) (Executor, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.State() == StateDead {
		return nil, fmt.Errorf("%w: slot evicted before bind", ErrProcessDead)
	}
	if s.Executor() != nil {
		return nil, fmt.Errorf("%w: owner %q", ErrConcurrentAccess, s.ownerKey)
	}
	ec := s.Context()
	if ec == nil {
		return nil, fmt.Errorf("%w: slot has no context", ErrContextInvalid)
	}

	e, err := p.executors.Bind(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("bind executor: %w", err)
	}

	s.bind(e, time.Now())
	p.tasksStarted.Add(1)

	p.logger.Debug("executor_bound",
		"owner_key", s.ownerKey,
		"executor_id", e.ID(),
		"task_count", s.TaskCount(),
	)
	return e, nil
}

// Release drops the caller's claim from Acquire, clears the bound
// executor and marks the slot idle. The slot stays in the pool for
// reuse. Every successful Acquire must be paired with one Release,
// whether or not an executor was ever bound.
//
// Release must succeed even when the task was interrupted mid-flight, so
// it deliberately takes no operation lock and performs no probing: an
// interrupted task must never leave the slot permanently busy.
func (p *Pool) Release(s *Slot) {
	s.unclaim()

	boundFor, wasBound := s.unbind(time.Now())
	if !wasBound {
		return
	}

	if p.callbacks.OnTaskFinished != nil {
		p.callbacks.OnTaskFinished(s.ownerKey, boundFor)
	}
	p.logger.Debug("executor_released",
		"owner_key", s.ownerKey,
		"bound_for", boundFor.String(),
	)
}

// Evict tears down the session for ownerKey and removes its slot.
// Returns false if no slot exists for the key. Safe to call whether or
// not a task is in flight; an in-flight executor is orphaned and its
// Release becomes a no-op state-wise.
func (p *Pool) Evict(ctx context.Context, ownerKey string) bool {
	p.mu.Lock()
	s, ok := p.slots[ownerKey]
	if ok {
		delete(p.slots, ownerKey)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}

	s.opMu.Lock()
	p.teardown(ctx, s, "manual")
	s.opMu.Unlock()
	return true
}

// DrainAll evicts every slot. Used at process shutdown. Idempotent:
// draining an empty pool does nothing.
func (p *Pool) DrainAll(ctx context.Context) {
	p.mu.Lock()
	drained := p.slots
	p.slots = make(map[string]*Slot)
	p.mu.Unlock()

	for _, s := range drained {
		s.opMu.Lock()
		p.teardown(ctx, s, "drain")
		s.opMu.Unlock()
	}

	if len(drained) > 0 {
		p.logger.Info("pool_drained", "slots", len(drained))
	}
}

// SweepIdle evicts every slot that has been idle longer than the
// configured idle timeout. Returns the number of slots evicted. A slot
// whose process already died is torn down with the same best-effort
// semantics and never aborts the sweep for the others.
func (p *Pool) SweepIdle(ctx context.Context) int {
	now := time.Now()

	p.mu.RLock()
	candidates := make([]*Slot, 0, len(p.slots))
	for _, s := range p.slots {
		candidates = append(candidates, s)
	}
	p.mu.RUnlock()

	evicted := 0
	for _, s := range candidates {
		last, evictable := s.idleSince()
		if !evictable || now.Sub(last) <= p.idleTimeout {
			continue
		}
		if p.evictSlot(ctx, s, "idle") {
			evicted++
		}
	}
	return evicted
}

// evictIdleLRU evicts the least-recently-active idle slot to make room
// for a new owner. Returns false when no idle slot exists.
func (p *Pool) evictIdleLRU(ctx context.Context) bool {
	// A selected candidate can become busy between selection and
	// eviction; bound attempts so a flapping pool cannot spin us forever.
	const maxAttempts = 8

	for attempt := 0; attempt < maxAttempts; attempt++ {
		p.mu.RLock()
		var oldest *Slot
		var oldestAt time.Time
		for _, s := range p.slots {
			last, evictable := s.idleSince()
			if !evictable {
				continue
			}
			if oldest == nil || last.Before(oldestAt) {
				oldest = s
				oldestAt = last
			}
		}
		p.mu.RUnlock()

		if oldest == nil {
			return false
		}
		if p.evictSlot(ctx, oldest, "capacity") {
			return true
		}
	}
	return false
}

// evictSlot removes s from the map and tears it down, unless a task
// claimed it between candidate selection and now.
func (p *Pool) evictSlot(ctx context.Context, s *Slot, reason string) bool {
	// Remove from the map first so no new acquisition can find the slot
	// while it is being destroyed.
	p.mu.Lock()
	cur, ok := p.slots[s.ownerKey]
	if !ok || cur != s {
		p.mu.Unlock()
		return false
	}
	delete(p.slots, s.ownerKey)
	p.mu.Unlock()

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if _, evictable := s.idleSince(); !evictable {
		// Lost the race: an acquisition claimed or bound the slot after
		// selection. Put it back unless the key has been reoccupied.
		p.mu.Lock()
		if _, exists := p.slots[s.ownerKey]; !exists {
			p.slots[s.ownerKey] = s
			p.mu.Unlock()
			return false
		}
		p.mu.Unlock()
		// Key reoccupied by a newer slot; this one is orphaned and must
		// still be destroyed to avoid leaking its process.
	}

	p.teardown(ctx, s, reason)
	return true
}

// teardown destroys the slot's session best-effort and marks it dead.
// Teardown errors are logged and swallowed: they must never block the
// pool's forward progress. Caller must hold s.opMu.
func (p *Pool) teardown(ctx context.Context, s *Slot, reason string) {
	p.destroySession(ctx, s)
	s.setState(StateDead)
	p.evicted.Add(1)
	p.notifyEvicted(s.ownerKey, reason)

	p.logger.Info("slot_evicted",
		"owner_key", s.ownerKey,
		"reason", reason,
		"task_count", s.TaskCount(),
	)
}

// destroySession releases the slot's handle, context and executor.
// Caller must hold s.opMu.
func (p *Pool) destroySession(ctx context.Context, s *Slot) {
	if h := s.Handle(); h != nil {
		p.destroyHandle(ctx, h)
	}
	s.setSession(nil, nil)
	s.unbind(time.Now())
}

// destroyHandle destroys a handle, logging and swallowing any error.
// The provisioner guarantees Destroy is safe on already-dead handles.
func (p *Pool) destroyHandle(ctx context.Context, h Handle) {
	if err := p.provisioner.Destroy(ctx, h); err != nil {
		p.logger.Warn("session_destroy_failed",
			"handle_id", h.ID(),
			"error", err,
		)
	}
}

func (p *Pool) notifyEvicted(ownerKey, reason string) {
	if p.callbacks.OnSlotEvicted != nil {
		p.callbacks.OnSlotEvicted(ownerKey, reason)
	}
}

// removeSlot deletes s from the map if the map still points at this
// exact slot.
func (p *Pool) removeSlot(s *Slot) {
	p.mu.Lock()
	if cur, ok := p.slots[s.ownerKey]; ok && cur == s {
		delete(p.slots, s.ownerKey)
	}
	p.mu.Unlock()
}

// Len returns the current number of slots.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}

// IdleTimeout returns the configured idle timeout.
func (p *Pool) IdleTimeout() time.Duration {
	return p.idleTimeout
}

// Status is a read-only snapshot of the pool.
type Status struct {
	Capacity        int           `json:"capacity"`
	Occupancy       int           `json:"occupancy"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	SessionsCreated int64         `json:"sessions_created"`
	SessionsReused  int64         `json:"sessions_reused"`
	SessionsRebuilt int64         `json:"sessions_rebuilt"`
	SlotsEvicted    int64         `json:"slots_evicted"`
	TasksStarted    int64         `json:"tasks_started"`
	Slots           []SlotStatus  `json:"slots"`
}

// Status returns a snapshot of the pool and every slot in it, sorted by
// owner key for stable output.
func (p *Pool) Status() Status {
	now := time.Now()

	p.mu.RLock()
	slots := make([]SlotStatus, 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s.snapshot(now))
	}
	p.mu.RUnlock()

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].OwnerKey < slots[j].OwnerKey
	})

	return Status{
		Capacity:        p.maxSlots,
		Occupancy:       len(slots),
		IdleTimeout:     p.idleTimeout,
		SessionsCreated: p.created.Load(),
		SessionsReused:  p.reused.Load(),
		SessionsRebuilt: p.rebuilt.Load(),
		SlotsEvicted:    p.evicted.Load(),
		TasksStarted:    p.tasksStarted.Load(),
		Slots:           slots,
	}
}
