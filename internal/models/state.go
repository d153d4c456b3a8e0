package models

// SessionState is the lifecycle state of a countdown session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateCompleted
	StateInvalid
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
