package handler

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds all dependency pings of one readiness probe.
const readyTimeout = 3 * time.Second

const (
	checkOK            = "ok"
	checkNotConfigured = "not configured"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	checker  HealthChecker
	required bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps []dependency
}

// NewHealthHandler creates a new HealthHandler. storeName labels the store
// check ("postgres", "sqlite", "memory"); the store is required. Pass nil
// for cache when Redis is not configured.
func NewHealthHandler(storeName string, store, cache HealthChecker) *HealthHandler {
	if storeName == "" {
		storeName = "store"
	}
	return &HealthHandler{deps: []dependency{
		{name: storeName, checker: store, required: true},
		{name: "redis", checker: cache},
	}}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint. No dependency checks.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: checkOK})
}

// Readyz pings every dependency concurrently and returns 200 only if
// each configured one answers and every required one is configured.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	results := make([]string, len(h.deps))

	var wg sync.WaitGroup
	for i, dep := range h.deps {
		if dep.checker == nil {
			results[i] = checkNotConfigured
			continue
		}
		wg.Add(1)
		go func(i int, dep dependency) {
			defer wg.Done()
			if err := dep.checker.Ping(ctx); err != nil {
				results[i] = "error: " + err.Error()
				return
			}
			results[i] = checkOK
		}(i, dep)
	}
	wg.Wait()

	resp := HealthResponse{Status: checkOK, Checks: make(map[string]string, len(h.deps))}
	code := http.StatusOK
	for i, dep := range h.deps {
		resp.Checks[dep.name] = results[i]

		failed := results[i] != checkOK && results[i] != checkNotConfigured
		missing := dep.required && results[i] == checkNotConfigured
		if failed || missing {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, resp)
}
