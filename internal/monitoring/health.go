package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

const maxHealthErrors = 10

var startTime = time.Now()

// HealthChecker tracks the freshness of market data for /healthz
type HealthChecker struct {
	mu          sync.RWMutex
	staleAfter  time.Duration
	lastFetch   time.Time
	isConnected bool
	errors      []string
	now         func() time.Time
}

type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastFetch   time.Time `json:"last_fetch"`
	IsConnected bool      `json:"is_connected"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

// NewHealthChecker reports degraded once no fetch succeeded within staleAfter.
// A zero staleAfter disables the freshness check.
func NewHealthChecker(staleAfter time.Duration) *HealthChecker {
	return &HealthChecker{
		staleAfter: staleAfter,
		errors:     make([]string, 0),
		now:        time.Now,
	}
}

// RecordFetch marks a successful fetch and clears recorded errors
func (h *HealthChecker) RecordFetch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastFetch = h.now()
	h.isConnected = true
	h.errors = h.errors[:0]
}

// RecordFailure keeps the most recent fetch errors
func (h *HealthChecker) RecordFailure(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = false
	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[len(h.errors)-maxHealthErrors:]
	}
}

// Status computes the current health
func (h *HealthChecker) Status() (HealthStatus, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	status, code := "healthy", http.StatusOK
	if !h.isConnected || (h.staleAfter > 0 && now.Sub(h.lastFetch) > h.staleAfter) {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	if len(h.errors) > 0 {
		status, code = "unhealthy", http.StatusInternalServerError
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)
	return HealthStatus{
		Status:      status,
		Timestamp:   now,
		LastFetch:   h.lastFetch,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
		Errors:      errs,
	}, code
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health, code := h.Status()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(health)
}
