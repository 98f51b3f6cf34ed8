package syncer

import "fmt"

// State is the sync state of a stream.
type State int

const (
	StateInit State = iota
	StateArmed
	StatePending
	StateSyncing
	StateReconciling
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateArmed:
		return "ARMED"
	case StatePending:
		return "PENDING"
	case StateSyncing:
		return "SYNCING"
	case StateReconciling:
		return "RECONCILING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trigger is an input to the state machine.
type Trigger int

const (
	TriggerLoaded Trigger = iota + 1
	TriggerEdit
	TriggerElapsed
	TriggerFlush
	TriggerResponded
	TriggerFailed
	TriggerReconciled
)

func (t Trigger) String() string {
	switch t {
	case TriggerLoaded:
		return "loaded"
	case TriggerEdit:
		return "edit"
	case TriggerElapsed:
		return "elapsed"
	case TriggerFlush:
		return "flush"
	case TriggerResponded:
		return "responded"
	case TriggerFailed:
		return "failed"
	case TriggerReconciled:
		return "reconciled"
	default:
		return fmt.Sprintf("Trigger(%d)", int(t))
	}
}

// transitions is the complete transition table. Anything not listed is illegal.
var transitions = map[State]map[Trigger]State{
	StateInit: {
		TriggerLoaded: StateArmed,
	},
	StateArmed: {
		TriggerEdit:  StatePending,
		TriggerFlush: StateSyncing,
	},
	StatePending: {
		TriggerEdit:    StatePending,
		TriggerElapsed: StateSyncing,
		TriggerFlush:   StateSyncing,
	},
	StateSyncing: {
		TriggerEdit:      StateSyncing,
		TriggerResponded: StateReconciling,
		TriggerFailed:    StateArmed,
	},
	StateReconciling: {
		TriggerEdit:       StateReconciling,
		TriggerReconciled: StateArmed,
	},
}

// TransitionError reports a trigger that is not legal in the current state.
type TransitionError struct {
	From    State
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("syncer: illegal transition %s --%s-->", e.From, e.Trigger)
}

// Machine is the sync state machine of one stream. The zero value is in INIT.
type Machine struct {
	state State
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Can reports whether t is legal in the current state.
func (m *Machine) Can(t Trigger) bool {
	_, ok := transitions[m.state][t]
	return ok
}

// Fire applies t. On an illegal trigger the state is unchanged.
func (m *Machine) Fire(t Trigger) (State, error) {
	next, ok := transitions[m.state][t]
	if !ok {
		return m.state, &TransitionError{From: m.state, Trigger: t}
	}
	m.state = next
	return next, nil
}
