package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/version"
)

// ComponentHealth is the health of a single dependency
type ComponentHealth struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthStatus represents the overall daemon health
type HealthStatus struct {
	Healthy    bool              `json:"healthy"`
	Uptime     string            `json:"uptime"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var components []ComponentHealth
	allHealthy := true

	// Database health check
	dbHealthy := true
	dbMessage := ""
	if err := s.db.Ping(); err != nil {
		dbHealthy = false
		dbMessage = err.Error()
		allHealthy = false
	}
	components = append(components, ComponentHealth{
		Name:    "database",
		Healthy: dbHealthy,
		Message: dbMessage,
	})

	if s.bitbucket != nil {
		bbHealthy := true
		bbMessage := ""
		if err := s.bitbucket.TestConnection(r.Context()); err != nil {
			bbHealthy = false
			bbMessage = err.Error()
			allHealthy = false
		}
		components = append(components, ComponentHealth{
			Name:    "bitbucket",
			Healthy: bbHealthy,
			Message: bbMessage,
		})
	}

	if s.llm != nil {
		llmHealthy := true
		llmMessage := ""
		if err := s.llm.TestConnection(r.Context()); err != nil {
			llmHealthy = false
			llmMessage = err.Error()
			allHealthy = false
		}
		components = append(components, ComponentHealth{
			Name:    "llm",
			Healthy: llmHealthy,
			Message: llmMessage,
		})
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthStatus{
		Healthy:    allHealthy,
		Uptime:     formatDuration(time.Since(s.startTime)),
		Version:    version.Version,
		Components: components,
	})
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, sec)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
