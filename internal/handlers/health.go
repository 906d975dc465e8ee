package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	pkghttp "github.com/kosanku/kosanku-api/pkg/http"
)

// HealthChecker is a dependency that can report its reachability
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	checks  map[string]HealthChecker
	timeout time.Duration
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"pong": true})
}

// Health reports each dependency as up or down; any down yields 503
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := map[string]string{"status": "healthy"}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name].HealthCheck(ctx); err != nil {
			resp[name] = "down"
			resp["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp[name] = "up"
	}
	pkghttp.WriteJSON(w, status, resp)
}
