package encoding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestNegotiateContentType(t *testing.T) {
	tests := []struct {
		name         string
		acceptHeader string
		expectedType string
	}{
		{
			name:         "Empty Accept header defaults to JSON",
			acceptHeader: "",
			expectedType: ContentTypeJSON,
		},
		{
			name:         "Explicit MessagePack request",
			acceptHeader: "application/msgpack",
			expectedType: ContentTypeMsgpack,
		},
		{
			name:         "Legacy MessagePack media type",
			acceptHeader: "application/x-msgpack",
			expectedType: ContentTypeMsgpack,
		},
		{
			name:         "Explicit JSON request",
			acceptHeader: "application/json",
			expectedType: ContentTypeJSON,
		},
		{
			name:         "Wildcard defaults to JSON",
			acceptHeader: "*/*",
			expectedType: ContentTypeJSON,
		},
		{
			name:         "Multiple types with MessagePack",
			acceptHeader: "application/json, application/msgpack",
			expectedType: ContentTypeMsgpack,
		},
		{
			name:         "Unknown content type defaults to JSON",
			acceptHeader: "application/xml",
			expectedType: ContentTypeJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.acceptHeader != "" {
				req.Header.Set("Accept", tt.acceptHeader)
			}

			contentType := NegotiateContentType(req)
			if contentType != tt.expectedType {
				t.Errorf("expected content type %s, got %s", tt.expectedType, contentType)
			}
		})
	}
}

type payload struct {
	RunID   string  `json:"run_id"`
	Quality float64 `json:"quality"`
}

func TestWrite(t *testing.T) {
	data := payload{RunID: "sr_1", Quality: 1.5}

	t.Run("json", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()
		if err := Write(rr, req, http.StatusCreated, data); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != ContentTypeJSON {
			t.Errorf("expected JSON content type, got %s", ct)
		}
		var got payload
		if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got != data {
			t.Errorf("expected %+v, got %+v", data, got)
		}
	})

	t.Run("msgpack uses json field names", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Accept", ContentTypeMsgpack)
		rr := httptest.NewRecorder()
		if err := Write(rr, req, http.StatusOK, data); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ct := rr.Header().Get("Content-Type"); ct != ContentTypeMsgpack {
			t.Errorf("expected msgpack content type, got %s", ct)
		}
		var got map[string]any
		if err := msgpack.Unmarshal(rr.Body.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got["run_id"] != "sr_1" {
			t.Errorf("expected run_id key, got %v", got)
		}
		if got["quality"] != 1.5 {
			t.Errorf("expected quality 1.5, got %v", got["quality"])
		}
	})
}
