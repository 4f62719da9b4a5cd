package db

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/description"
)

// recordingSink collects events in arrival order.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) record(name string) {
	s.mu.Lock()
	s.events = append(s.events, name)
	s.mu.Unlock()
}

func (s *recordingSink) Connected()    { s.record("connected") }
func (s *recordingSink) Disconnected() { s.record("disconnected") }
func (s *recordingSink) Error(error)   { s.record("error") }

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func topology(kinds ...description.ServerKind) *event.TopologyDescriptionChangedEvent {
	servers := make([]description.Server, len(kinds))
	for i, k := range kinds {
		servers[i] = description.Server{Kind: k}
	}
	return &event.TopologyDescriptionChangedEvent{
		NewDescription: description.Topology{Servers: servers},
	}
}

func TestServerMonitor_AvailabilityChanges(t *testing.T) {
	sink := &recordingSink{}
	mon := newServerMonitor(sink)

	mon.TopologyDescriptionChanged(topology(description.Unknown))
	mon.TopologyDescriptionChanged(topology(description.Standalone))
	mon.TopologyDescriptionChanged(topology(description.Standalone))
	mon.TopologyDescriptionChanged(topology(description.Unknown, description.RSPrimary))
	mon.TopologyDescriptionChanged(topology(description.Unknown))
	mon.TopologyDescriptionChanged(topology())

	assert.Equal(t, []string{"connected", "disconnected"}, sink.Events())
}

func TestServerMonitor_HeartbeatFailure(t *testing.T) {
	sink := &recordingSink{}
	mon := newServerMonitor(sink)

	mon.ServerHeartbeatFailed(&event.ServerHeartbeatFailedEvent{Failure: errors.New("i/o timeout")})
	assert.Equal(t, []string{"error"}, sink.Events())
}

func TestTopologyAvailable(t *testing.T) {
	tests := []struct {
		name string
		topo description.Topology
		want bool
	}{
		{"empty", description.Topology{}, false},
		{"unknown only", topology(description.Unknown).NewDescription, false},
		{"standalone", topology(description.Standalone).NewDescription, true},
		{"mixed", topology(description.Unknown, description.RSSecondary).NewDescription, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, topologyAvailable(tt.topo))
		})
	}
}
