package workflows

import (
	"blineit/investor-portal/investor-portal-backend/pkg/faults"
)

// Status is a lifecycle state name.
type Status string

// StateMachine enforces lifecycle status transitions
type StateMachine struct {
	allowedTransitions map[Status][]Status
}

// NewStateMachine creates a state machine from an allowed-transition table.
// Statuses with an empty (or absent) entry are terminal.
func NewStateMachine(transitions map[Status][]Status) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to Status) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition validates a transition, returning an InvalidTransitionError
// when it is outside the allowed set.
func (sm *StateMachine) Transition(from, to Status) error {
	if !sm.CanTransition(from, to) {
		return &faults.InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// Terminal reports whether a status has no outgoing transitions.
func (sm *StateMachine) Terminal(s Status) bool {
	return len(sm.allowedTransitions[s]) == 0
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from Status) []Status {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []Status{}
	}
	return allowed
}
