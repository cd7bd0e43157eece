package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandler_Handle_Success(t *testing.T) {
	handler := NewHealthHandler()

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	handler.Handle(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	contentType := rr.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", contentType)
	}

	var response HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", response.Status)
	}

	if response.Version != Version {
		t.Errorf("expected version '%s', got '%s'", Version, response.Version)
	}
}

func TestHealthHandler_HandleDetailed_NoDependencies(t *testing.T) {
	handler := NewHealthHandler()

	req := httptest.NewRequest("GET", "/health/detailed", nil)
	rr := httptest.NewRecorder()

	handler.HandleDetailed(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response DetailedHealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "healthy" {
		t.Errorf("expected status 'healthy', got '%s'", response.Status)
	}

	if len(response.Services) != 0 {
		t.Errorf("expected 0 services, got %d", len(response.Services))
	}
}

func TestHealthHandler_HandleDetailed_Checks(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     []HealthCheck
		wantStatus string
		wantCode   int
	}{
		{
			name: "all healthy",
			checks: []HealthCheck{
				{Name: "database", Critical: true, Check: ok},
				{Name: "executor", Check: ok},
			},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name: "critical check failing",
			checks: []HealthCheck{
				{Name: "database", Critical: true, Check: down},
				{Name: "executor", Check: ok},
			},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name: "optional check failing",
			checks: []HealthCheck{
				{Name: "database", Critical: true, Check: ok},
				{Name: "executor", Check: down},
			},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.checks...)
			rr := httptest.NewRecorder()
			handler.HandleDetailed(rr, httptest.NewRequest("GET", "/health/detailed", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rr.Code)
			}
			var response DetailedHealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Status != tt.wantStatus {
				t.Errorf("expected status '%s', got '%s'", tt.wantStatus, response.Status)
			}
			if len(response.Services) != len(tt.checks) {
				t.Errorf("expected %d services, got %d", len(tt.checks), len(response.Services))
			}
			for name, s := range response.Services {
				if s.LatencyMs == nil {
					t.Errorf("service %s should report latency", name)
				}
				if s.Status == "unhealthy" && (s.Error == nil || *s.Error != "connection refused") {
					t.Errorf("service %s should report its error, got %v", name, s.Error)
				}
			}
		})
	}
}

func TestHealthHandler_CheckTimeout(t *testing.T) {
	handler := NewHealthHandler(HealthCheck{
		Name:     "database",
		Critical: true,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	handler.config.Timeout = 10 * time.Millisecond

	rr := httptest.NewRecorder()
	handler.HandleDetailed(rr, httptest.NewRequest("GET", "/health/detailed", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestCalculateOverallStatus(t *testing.T) {
	tests := []struct {
		name     string
		services map[string]ServiceHealth
		want     string
	}{
		{
			name:     "no services",
			services: map[string]ServiceHealth{},
			want:     "healthy",
		},
		{
			name: "critical unhealthy",
			services: map[string]ServiceHealth{
				"database": {Status: "unhealthy", Critical: true},
				"store":    {Status: "healthy"},
			},
			want: "unhealthy",
		},
		{
			name: "optional unhealthy",
			services: map[string]ServiceHealth{
				"database": {Status: "healthy", Critical: true},
				"executor": {Status: "unhealthy"},
			},
			want: "degraded",
		},
		{
			name: "service degraded",
			services: map[string]ServiceHealth{
				"database": {Status: "degraded", Critical: true},
			},
			want: "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateOverallStatus(tt.services); got != tt.want {
				t.Errorf("calculateOverallStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}
