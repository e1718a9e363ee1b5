// Package pool maps owner keys to browser-session slots and owns the
// session lifecycle: creation, validated reuse, repair, capacity
// enforcement and eviction.
package pool

// State represents the current state of a Slot.
//
// Every transition is a function of an explicit probe or pool operation,
// never of "an executor happens to be bound".
type State int

const (
	// StateFresh is the initial state before the slot's first session
	// has been provisioned.
	StateFresh State = iota

	// StateActive indicates an executor is bound and a task is in flight.
	StateActive

	// StateIdle indicates the slot holds a usable session with no task
	// in flight.
	StateIdle

	// StateRepairing indicates the slot's session is being recreated
	// after a failed probe or context check.
	StateRepairing

	// StateDead indicates the slot has been evicted. Terminal.
	StateDead
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateActive:
		return "active"
	case StateIdle:
		return "idle"
	case StateRepairing:
		return "repairing"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the slot can serve tasks without repair.
func (s State) IsUsable() bool {
	return s == StateActive || s == StateIdle
}

// IsTerminal returns true if the state is terminal (evicted).
func (s State) IsTerminal() bool {
	return s == StateDead
}
