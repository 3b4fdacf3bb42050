package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		keys     []string
		header   string
		value    string
		wantCode int
	}{
		{"no key configured", nil, "Authorization", "Bearer anything", http.StatusUnauthorized},
		{"blank keys ignored", []string{"", "  "}, "Authorization", "Bearer ", http.StatusUnauthorized},
		{"missing header", []string{"k1"}, "", "", http.StatusUnauthorized},
		{"wrong scheme", []string{"k1"}, "Authorization", "Basic k1", http.StatusUnauthorized},
		{"wrong key", []string{"k1"}, "Authorization", "Bearer k2", http.StatusUnauthorized},
		{"bearer", []string{"k1"}, "Authorization", "Bearer k1", http.StatusNoContent},
		{"bearer lowercase scheme", []string{"k1"}, "Authorization", "bearer k1", http.StatusNoContent},
		{"rotated second key", []string{"old", "new"}, "Authorization", "Bearer new", http.StatusNoContent},
		{"x-api-key header", []string{"k1"}, HeaderAPIKey, "k1", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := APIKeyAuth(zap.NewNop(), tt.keys...)(ok)
			req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %q, want application/json", ct)
				}
			}
		})
	}
}
