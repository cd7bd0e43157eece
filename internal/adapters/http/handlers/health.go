package handlers

import (
	"context"
	"net/http"
	"time"
)

// Version is reported by the health endpoints; the CLI overrides it at link time.
var Version = "dev"

// HealthCheckConfig holds configuration for health checks
type HealthCheckConfig struct {
	Timeout time.Duration // Timeout for each individual health check
}

// DefaultHealthCheckConfig returns default health check configuration
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Timeout: 5 * time.Second,
	}
}

// HealthCheck checks one dependency. A failing critical check makes the
// service unhealthy; any other failing check only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

type HealthHandler struct {
	config HealthCheckConfig
	checks []HealthCheck
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		config: DefaultHealthCheckConfig(),
		checks: checks,
	}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type DetailedHealthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Services map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status    string  `json:"status"`
	Critical  bool    `json:"critical,omitempty"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`
	Error     *string `json:"error,omitempty"`
}

// Handle provides a basic health check endpoint
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{Status: "ok", Version: Version}, http.StatusOK)
}

// HandleDetailed runs every registered check
func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	response := DetailedHealthResponse{
		Version:  Version,
		Services: make(map[string]ServiceHealth, len(h.checks)),
	}
	for _, c := range h.checks {
		response.Services[c.Name] = h.run(r.Context(), c)
	}

	response.Status = calculateOverallStatus(response.Services)

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	respondJSON(w, response, statusCode)
}

func (h *HealthHandler) run(ctx context.Context, c HealthCheck) ServiceHealth {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	err := c.Check(checkCtx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		errMsg := err.Error()
		return ServiceHealth{
			Status:    "unhealthy",
			Critical:  c.Critical,
			LatencyMs: &latency,
			Error:     &errMsg,
		}
	}
	return ServiceHealth{
		Status:    "healthy",
		Critical:  c.Critical,
		LatencyMs: &latency,
	}
}

// calculateOverallStatus determines the overall system status based on individual services
func calculateOverallStatus(services map[string]ServiceHealth) string {
	degraded := false
	for _, s := range services {
		if s.Status == "healthy" {
			continue
		}
		if s.Status == "unhealthy" && s.Critical {
			return "unhealthy"
		}
		degraded = true
	}
	if degraded {
		return "degraded"
	}
	return "healthy"
}
