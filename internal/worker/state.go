package worker

// State enumerates the per-message lifecycle of the task worker. Every
// message advances Received -> Validated -> Priced -> Persisted -> Notified
// -> Acknowledged, or terminates in Rejected (deterministic rule violation)
// or Failed (side-effect failures exhausted the retry budget).
type State int

const (
	StateReceived State = iota
	StateValidated
	StatePriced
	StatePersisted
	StateNotified
	StateAcknowledged
	StateRejected
	StateFailed
)

var stateNames = map[State]string{
	StateReceived:     "received",
	StateValidated:    "validated",
	StatePriced:       "priced",
	StatePersisted:    "persisted",
	StateNotified:     "notified",
	StateAcknowledged: "acknowledged",
	StateRejected:     "rejected",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	switch s {
	case StateAcknowledged, StateRejected, StateFailed:
		return true
	}
	return false
}
