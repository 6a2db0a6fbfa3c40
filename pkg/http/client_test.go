package http

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.UserAgent != "multipass/1.0" {
		t.Errorf("UserAgent = %q", config.UserAgent)
	}
	if config.Headers == nil {
		t.Error("Headers should be initialized")
	}
	if config.MaxRetries != 3 || config.Timeout != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", config)
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		UserAgent:    "test/1.0",
		Headers:      map[string]string{},
	})

	resp, err := client.GetWithContext(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("GetWithContext() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetDoesNotRetryTerminalStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Headers:      map[string]string{},
	})

	resp, err := client.GetWithContext(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("GetWithContext() error: %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 1 {
		t.Errorf("404 should not be retried, got %d attempts", calls.Load())
	}
}

func TestPostIsNotRetriedOnStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{
		Timeout:      time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
		Headers:      map[string]string{},
	})

	resp, err := client.PostWithContext(t.Context(), srv.URL, "text/plain", nil)
	if err != nil {
		t.Fatalf("PostWithContext() error: %v", err)
	}
	resp.Body.Close()

	if calls.Load() != 1 {
		t.Errorf("POST must not be replayed on status, got %d attempts", calls.Load())
	}
}

func TestUserAgentAndHeadersApplied(t *testing.T) {
	var gotUA, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Custom")
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{
		Timeout:    time.Second,
		MaxRetries: 0,
		UserAgent:  "multipass/1.0",
		Headers:    map[string]string{"X-Custom": "yes"},
	})

	resp, err := client.GetWithContext(t.Context(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotUA != "multipass/1.0" || gotCustom != "yes" {
		t.Errorf("headers not applied: ua=%q custom=%q", gotUA, gotCustom)
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	terminal := []int{0, 200, 201, 301, 400, 401, 403, 404, 505}

	for _, code := range retryable {
		if !IsRetryableStatusCode(code) {
			t.Errorf("IsRetryableStatusCode(%d) should be true", code)
		}
	}
	for _, code := range terminal {
		if IsRetryableStatusCode(code) {
			t.Errorf("IsRetryableStatusCode(%d) should be false", code)
		}
	}
}
