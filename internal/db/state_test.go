package db

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateConnecting, StateConnected, true},
		{StateConnecting, StateDisconnected, true},
		{StateConnecting, StateConnecting, false},
		{StateConnected, StateDisconnected, true},
		{StateConnected, StateConnecting, false},
		{StateConnected, StateConnected, false},
		{StateDisconnected, StateConnecting, true},
		{StateDisconnected, StateConnected, true},
		{StateDisconnecting, StateDisconnected, true},
		{StateDisconnecting, StateConnecting, false},
		{StateDisconnecting, StateConnected, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
		ready int
	}{
		{StateDisconnected, "disconnected", 0},
		{StateConnected, "connected", 1},
		{StateConnecting, "connecting", 2},
		{StateDisconnecting, "disconnecting", 3},
		{State(99), "unknown(99)", 99},
		{State(7), "unknown(7)", 7},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
		if int(tt.state) != tt.ready {
			t.Fatalf("State %q has readyState %d, want %d", tt.want, int(tt.state), tt.ready)
		}
	}
}
