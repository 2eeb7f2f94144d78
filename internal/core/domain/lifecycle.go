package domain

// UserState represents the lifecycle state of a user account.
type UserState string

const (
	StateActive      UserState = "active"
	StateSoftDeleted UserState = "soft_deleted"
	StatePurged      UserState = "purged"
)

// validTransitions defines the allowed state machine transitions.
// Purged is terminal.
var validTransitions = map[UserState][]UserState{
	StateActive:      {StateSoftDeleted},
	StateSoftDeleted: {StateActive, StatePurged},
}

// CanTransitionTo reports whether a transition from current state to next is valid.
func (s UserState) CanTransitionTo(next UserState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
