package pool

import (
	"sync"
	"time"
)

// Slot is the per-owner record bundling a session handle, its current
// execution context, the currently bound executor (if any) and usage
// bookkeeping.
//
// Two locks, in the manner of the supervisor's state/cmd split:
//   - opMu is the per-owner operation lock. It serializes validation,
//     repair and executor binding for one owner, and is never held for a
//     task's full runtime.
//   - mu guards the bookkeeping fields so status snapshots and eviction
//     candidate selection can read them without contending on opMu.
//
// Lock order is pool-structural lock before opMu before mu; mu is never
// held while acquiring another lock.
type Slot struct {
	ownerKey string

	opMu sync.Mutex

	mu           sync.RWMutex
	handle       Handle
	context      ExecContext
	executor     Executor
	state        State
	claims       int
	taskCount    int64
	createdAt    time.Time
	lastActivity time.Time
	boundAt      time.Time
}

// newSlot creates an empty slot for an owner key. The session is
// provisioned by the first acquisition.
func newSlot(ownerKey string, now time.Time) *Slot {
	return &Slot{
		ownerKey:     ownerKey,
		state:        StateFresh,
		createdAt:    now,
		lastActivity: now,
	}
}

// OwnerKey returns the owner key this slot belongs to.
func (s *Slot) OwnerKey() string {
	return s.ownerKey
}

// Handle returns the slot's current session handle. May be nil before the
// first provisioning or after eviction.
func (s *Slot) Handle() Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

// Context returns the slot's current execution context.
func (s *Slot) Context() ExecContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// Executor returns the currently bound executor, or nil when no task is
// in flight.
func (s *Slot) Executor() Executor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.executor
}

// State returns the slot's current state.
func (s *Slot) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TaskCount returns the number of tasks bound to this slot so far.
func (s *Slot) TaskCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.taskCount
}

// IdleFor returns how long the slot has been without activity.
func (s *Slot) IdleFor(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}

// idleSince returns the last-activity timestamp and whether the slot is
// currently evictable: no executor bound, no outstanding claim, and not
// dead or mid-repair.
func (s *Slot) idleSince() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evictable := s.executor == nil && s.claims == 0 &&
		(s.state == StateIdle || s.state == StateFresh)
	return s.lastActivity, evictable
}

// claim marks the slot as handed out to an acquirer that has not yet
// released it. A claimed slot is never an eviction candidate: between
// Acquire returning and Release, the caller holds a session the pool
// promised was usable.
func (s *Slot) claim() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims++
}

// unclaim releases one claim. Clamped at zero so a redundant Release
// cannot underflow the count.
func (s *Slot) unclaim() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claims > 0 {
		s.claims--
	}
}

// setSession replaces the slot's handle and context. Ownership of the old
// pair must already have been released via teardown; a dead process
// reference is only ever replaced, never resurrected.
func (s *Slot) setSession(h Handle, ec ExecContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
	s.context = ec
}

// setContext replaces only the execution context, keeping the handle.
func (s *Slot) setContext(ec ExecContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = ec
}

// setState transitions the slot to a new state.
func (s *Slot) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// touch stamps the last-activity time.
func (s *Slot) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = now
}

// bind records a freshly constructed executor and updates counters.
func (s *Slot) bind(e Executor, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executor = e
	s.taskCount++
	s.lastActivity = now
	s.boundAt = now
	s.state = StateActive
}

// unbind clears the bound executor and returns how long it was bound.
// Safe to call on an already-unbound or evicted slot.
func (s *Slot) unbind(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasBound := s.executor != nil
	s.executor = nil
	s.lastActivity = now
	// Only an Active slot goes back to Idle. Teardown and repair manage
	// their own states; an unbind inside destroySession must not flip a
	// Repairing slot to Idle and expose it to eviction mid-rebuild.
	if s.state == StateActive {
		s.state = StateIdle
	}

	if !wasBound {
		return 0, false
	}
	return now.Sub(s.boundAt), true
}

// SlotStatus is a read-only snapshot of one slot.
type SlotStatus struct {
	OwnerKey      string        `json:"owner_key"`
	State         string        `json:"state"`
	HandleID      string        `json:"handle_id,omitempty"`
	ExecutorBound bool          `json:"executor_bound"`
	TaskCount     int64         `json:"task_count"`
	CreatedAt     time.Time     `json:"created_at"`
	LastActivity  time.Time     `json:"last_activity"`
	Age           time.Duration `json:"age"`
	IdleFor       time.Duration `json:"idle_for"`
}

// snapshot captures the slot's bookkeeping at a point in time.
func (s *Slot) snapshot(now time.Time) SlotStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SlotStatus{
		OwnerKey:      s.ownerKey,
		State:         s.state.String(),
		ExecutorBound: s.executor != nil,
		TaskCount:     s.taskCount,
		CreatedAt:     s.createdAt,
		LastActivity:  s.lastActivity,
		Age:           now.Sub(s.createdAt),
		IdleFor:       now.Sub(s.lastActivity),
	}
	if s.handle != nil {
		st.HandleID = s.handle.ID()
	}
	return st
}
