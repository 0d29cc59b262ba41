// Package health aggregates component health checks
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"dex_trader/internal/core"
)

// ComponentStatus is the last result of one check
type ComponentStatus struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Report is the aggregated health of every registered component
type Report struct {
	Status     string                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Time       int64                      `json:"time"`
}

// HealthManager runs registered checks on demand
type HealthManager struct {
	logger core.ILogger
	mu     sync.RWMutex
	checks map[string]func() error
}

var _ core.IHealthMonitor = (*HealthManager)(nil)

// NewHealthManager creates a manager; logger may be nil
func NewHealthManager(logger core.ILogger) *HealthManager {
	hm := &HealthManager{checks: make(map[string]func() error)}
	if logger != nil {
		hm.logger = logger.WithField("component", "health_manager")
	}
	return hm
}

// Register adds or replaces the check of component
func (hm *HealthManager) Register(component string, check func() error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[component] = check
}

func (hm *HealthManager) Unregister(component string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	delete(hm.checks, component)
}

// Components lists registered component names in order
func (hm *HealthManager) Components() []string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	names := make([]string, 0, len(hm.checks))
	for name := range hm.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report runs every check once
func (hm *HealthManager) Report() Report {
	hm.mu.RLock()
	checks := make(map[string]func() error, len(hm.checks))
	for name, check := range hm.checks {
		checks[name] = check
	}
	hm.mu.RUnlock()

	report := Report{
		Status:     "ok",
		Components: make(map[string]ComponentStatus, len(checks)),
		Time:       time.Now().Unix(),
	}
	for name, check := range checks {
		if err := check(); err != nil {
			report.Status = "unhealthy"
			report.Components[name] = ComponentStatus{Error: err.Error()}
			if hm.logger != nil {
				hm.logger.Warn("Component unhealthy", "name", name, "error", err)
			}
			continue
		}
		report.Components[name] = ComponentStatus{Healthy: true}
	}
	return report
}

// GetStatus returns "Healthy" or "Unhealthy: <error>" per component
func (hm *HealthManager) GetStatus() map[string]string {
	report := hm.Report()
	status := make(map[string]string, len(report.Components))
	for name, c := range report.Components {
		if c.Healthy {
			status[name] = "Healthy"
		} else {
			status[name] = "Unhealthy: " + c.Error
		}
	}
	return status
}

// IsHealthy reports whether every check passes
func (hm *HealthManager) IsHealthy() bool {
	return hm.Report().Status == "ok"
}

// Handler serves the report as JSON, 503 when unhealthy
func (hm *HealthManager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.Report()
		w.Header().Set("Content-Type", "application/json")
		if report.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
