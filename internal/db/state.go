package db

import "fmt"

// State is the lifecycle phase of the managed connection. The numeric values
// are reported verbatim as the readyState of a Status.
type State int

const (
	StateDisconnected  State = 0
	StateConnected     State = 1
	StateConnecting    State = 2
	StateDisconnecting State = 3
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateConnecting:
		return "connecting"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateDisconnected:  {StateConnecting, StateConnected, StateDisconnecting},
	StateConnecting:    {StateConnected, StateDisconnected, StateDisconnecting},
	StateConnected:     {StateDisconnected, StateDisconnecting},
	StateDisconnecting: {StateDisconnected},
}

// CanTransition reports whether the lifecycle allows moving from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Status is a point-in-time view of the connection for diagnostics and health checks.
type Status struct {
	Connected  bool   `json:"connected"`
	ReadyState int    `json:"readyState"`
	State      string `json:"state"`
	Host       string `json:"host"`
	Name       string `json:"name"`
	RetryCount int    `json:"retryCount"`
}

const unknown = "Unknown"

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
