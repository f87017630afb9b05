// Package lifecycle holds the order status state machine.
//
// pending -> preparing -> ready -> served, with cancellation allowed from
// any non-terminal state. served and cancelled are terminal.
package lifecycle

import (
	"time"

	"blossom-cafe/internal/domain"
)

var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:   {domain.StatusPreparing, domain.StatusCancelled},
	domain.StatusPreparing: {domain.StatusReady, domain.StatusCancelled},
	domain.StatusReady:     {domain.StatusServed, domain.StatusCancelled},
	domain.StatusServed:    {},
	domain.StatusCancelled: {},
}

// CanTransition reports whether target is reachable from current in one step.
func CanTransition(current, target domain.Status) bool {
	for _, s := range transitions[current] {
		if s == target {
			return true
		}
	}
	return false
}

// NextStates returns the statuses reachable from current. The returned slice
// must not be mutated.
func NextStates(current domain.Status) []domain.Status {
	return transitions[current]
}

func IsTerminal(s domain.Status) bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// freezesElapsed reports whether entering s stops the elapsed-time clock.
func freezesElapsed(s domain.Status) bool {
	switch s {
	case domain.StatusReady, domain.StatusServed, domain.StatusCancelled:
		return true
	}
	return false
}

// Apply moves the order to target, or returns InvalidTransitionError leaving
// the order untouched. On success it bumps UpdatedAt and stamps CompletedAt
// when entering ready, served or cancelled, unless already set.
func Apply(o *domain.Order, target domain.Status, now time.Time) error {
	if !target.Valid() {
		return domain.Invalid("unknown status %q", target)
	}
	if !CanTransition(o.Status, target) {
		return &domain.InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = now
	if freezesElapsed(target) && o.CompletedAt == nil {
		t := now
		o.CompletedAt = &t
	}
	return nil
}
