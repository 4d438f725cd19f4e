package scheduler

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Health components recorded by the bot.
const (
	ComponentPublish     = "publish"
	ComponentPosition    = "position"
	ComponentCredentials = "credentials"
)

// HealthStatus represents the health of a component.
type HealthStatus struct {
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	LastError   error
	Message     string

	// Failures counts consecutive unhealthy reports since the last success.
	Failures int
}

// Health tracks the health of various components.
type Health struct {
	mu         sync.RWMutex
	components map[string]*HealthStatus
	now        func() time.Time
}

// NewHealth creates a new health tracker.
func NewHealth() *Health {
	return &Health{
		components: make(map[string]*HealthStatus),
		now:        time.Now,
	}
}

func (h *Health) component(name string) *HealthStatus {
	if _, exists := h.components[name]; !exists {
		h.components[name] = &HealthStatus{}
	}
	return h.components[name]
}

// SetHealthy marks a component as healthy.
func (h *Health) SetHealthy(component, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	c := h.component(component)
	c.Healthy = true
	c.LastCheck = now
	c.LastSuccess = now
	c.LastError = nil
	c.Message = message
	c.Failures = 0
}

// SetUnhealthy marks a component as unhealthy.
func (h *Health) SetUnhealthy(component string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := h.component(component)
	c.Healthy = false
	c.LastCheck = h.now()
	c.LastError = err
	c.Message = "unknown error"
	if err != nil {
		c.Message = err.Error()
	}
	c.Failures++
}

// GetStatus returns the status of a component.
func (h *Health) GetStatus(component string) *HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if status, exists := h.components[component]; exists {
		// Return a copy to avoid race conditions
		cp := *status
		return &cp
	}

	return nil
}

// GetAllStatuses returns all component statuses.
func (h *Health) GetAllStatuses() map[string]*HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*HealthStatus, len(h.components))
	for name, status := range h.components {
		cp := *status
		result[name] = &cp
	}

	return result
}

// IsOverallHealthy returns true if all components are healthy.
func (h *Health) IsOverallHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, status := range h.components {
		if !status.Healthy {
			return false
		}
	}

	return true
}

// LogSummary writes one log line per component, sorted by name.
func (h *Health) LogSummary() {
	statuses := h.GetAllStatuses()
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := statuses[name]
		if s.Healthy {
			slog.Info("health", "component", name, "healthy", true, "message", s.Message)
			continue
		}
		slog.Warn("health",
			"component", name,
			"healthy", false,
			"failures", s.Failures,
			"error", s.LastError,
		)
	}
}
