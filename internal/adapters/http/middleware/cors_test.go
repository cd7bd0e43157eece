package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(origins []string, method, origin string, preflight bool) *httptest.ResponseRecorder {
	handler := CORS(origins)(http.HandlerFunc(okHandler))
	req := httptest.NewRequest(method, "/api/v1/runs", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if preflight {
		req.Header.Set("Access-Control-Request-Method", "GET")
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestCORS(t *testing.T) {
	origins := []string{"http://localhost:3000", "https://dash.example.com"}

	tests := []struct {
		name        string
		method      string
		origin      string
		preflight   bool
		wantStatus  int
		wantOrigin  string
		wantMethods bool
	}{
		{"listed origin", "GET", "http://localhost:3000", false, http.StatusOK, "http://localhost:3000", false},
		{"second listed origin", "GET", "https://dash.example.com", false, http.StatusOK, "https://dash.example.com", false},
		{"unlisted origin still served", "GET", "https://evil.example.com", false, http.StatusOK, "", false},
		{"no origin", "GET", "", false, http.StatusOK, "", false},
		{"preflight from listed origin", "OPTIONS", "http://localhost:3000", true, http.StatusNoContent, "http://localhost:3000", true},
		{"preflight from unlisted origin", "OPTIONS", "https://evil.example.com", true, http.StatusForbidden, "", false},
		{"plain OPTIONS passes through", "OPTIONS", "http://localhost:3000", false, http.StatusOK, "http://localhost:3000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveCORS(origins, tt.method, tt.origin, tt.preflight)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if got := rr.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected Allow-Origin %q, got %q", tt.wantOrigin, got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Methods") != ""; got != tt.wantMethods {
				t.Errorf("expected Allow-Methods set=%v, got %v", tt.wantMethods, got)
			}
			if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
				t.Error("credentials must never be allowed")
			}
		})
	}
}

func TestCORS_Wildcard(t *testing.T) {
	rr := serveCORS([]string{"*"}, "GET", "https://anywhere.example.com", false)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard Allow-Origin, got %q", got)
	}
	if got := rr.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCORS_EmptyList(t *testing.T) {
	rr := serveCORS(nil, "OPTIONS", "http://localhost:3000", true)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected preflight to be rejected, got %d", rr.Code)
	}
}
