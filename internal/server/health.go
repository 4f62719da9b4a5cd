package server

import (
	"net/http"
	"time"

	"docgate/internal/db"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status  ComponentStatus `json:"status"`
	Message string          `json:"message,omitempty"`
	Details any             `json:"details,omitempty"`
}

// HandleHealth reports the database connection state. It never performs
// I/O; the status comes from the connection manager.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.checkHealth()

	status := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// HandleLive provides a liveness probe (is the process running?)
func (s *Server) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) checkHealth() Health {
	database := s.checkDatabaseHealth()
	health := Health{
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    s.cfg.Version,
		Components: map[string]ComponentHealth{"database": database},
	}
	if database.Status != ComponentStatusUp {
		health.Status = HealthStatusUnhealthy
	}
	return health
}

func (s *Server) checkDatabaseHealth() ComponentHealth {
	if s.db == nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "database not configured"}
	}
	st := s.db.Status()
	if !st.Connected {
		return ComponentHealth{
			Status:  ComponentStatusDown,
			Message: "database " + st.State,
			Details: st,
		}
	}
	return ComponentHealth{
		Status:  ComponentStatusUp,
		Message: "database connected",
		Details: st,
	}
}

var _ StatusReporter = (*db.Manager)(nil)
