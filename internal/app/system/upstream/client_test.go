package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestGetJSON_DecodesEnvelopeWithNumbers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":9007199254740993,"status":"active"}]}`))
	}))
	defer srv.Close()

	c := New(context.Background(), Config{}, zap.NewNop())
	payload, err := c.GetJSON(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}

	env, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type %T", payload)
	}
	list := env["data"].([]any)
	rec := list[0].(map[string]any)
	if n, ok := rec["id"].(json.Number); !ok || n.String() != "9007199254740993" {
		t.Errorf("id = %#v, want json.Number 9007199254740993", rec["id"])
	}
}

func TestGetJSON_BearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(context.Background(), Config{Token: "s3cret"}, zap.NewNop())
	if _, err := c.Source(srv.URL).Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(context.Background(), Config{}, zap.NewNop())
	_, err := c.GetJSON(context.Background(), srv.URL)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || se.Body != "maintenance" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestGetJSON_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":`))
	}))
	defer srv.Close()

	c := New(context.Background(), Config{}, zap.NewNop())
	if _, err := c.GetJSON(context.Background(), srv.URL); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(context.Background(), Config{Timeout: 50 * time.Millisecond}, zap.NewNop())
	_, err := c.GetJSON(context.Background(), srv.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestGetJSON_ClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	tokenCalls := 0
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	})
	var gotAuth string
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(context.Background(), Config{
		Token: "ignored",
		OAuth: OAuthConfig{ClientID: "id", ClientSecret: "secret", TokenURL: srv.URL + "/token"},
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := c.GetJSON(context.Background(), srv.URL+"/accounts"); err != nil {
			t.Fatalf("GetJSON() error = %v", err)
		}
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if tokenCalls != 1 {
		t.Errorf("token endpoint called %d times, want 1 (cached)", tokenCalls)
	}
}
