package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// fastRetry keeps test retries near-instant.
func fastRetry() *RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.Jitter = 0
	return cfg
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New("test-app",
		WithBaseURL(srv.URL),
		WithAccessToken("test-token"),
		WithRetryConfig(fastRetry()),
	)
	if err != nil {
		t.Fatal(err)
	}
	return client, srv
}

func TestNew_RequiresAppID(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("expected error for empty app id")
	}
}

func TestDo_SetsHeaders(t *testing.T) {
	var gotAppID, gotRequestID, gotAuth string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAppID = r.Header.Get("X-App-Id")
		gotRequestID = r.Header.Get("X-Request-Id")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Do(context.Background(), "GET", "/v2/ping", nil, nil); err != nil {
		t.Fatal(err)
	}
	if gotAppID != "test-app" {
		t.Errorf("X-App-Id = %q, want %q", gotAppID, "test-app")
	}
	if gotRequestID == "" {
		t.Error("X-Request-Id not set")
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var requestIDs []string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestIDs = append(requestIDs, r.Header.Get("X-Request-Id"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Do(context.Background(), "GET", "/v2/flaky", nil, nil); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
	for i, id := range requestIDs[1:] {
		if id != requestIDs[0] {
			t.Errorf("retry %d changed the request id: %q vs %q", i+1, id, requestIDs[0])
		}
	}
}

func TestDo_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "bad_request",
			"message": "malformed block",
		})
	}))

	err := client.Do(context.Background(), "POST", "/v2/blocks", map[string]string{"a": "b"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 400 || apiErr.Message != "malformed block" {
		t.Errorf("unexpected error contents: %+v", apiErr)
	}
	if apiErr.RequestID == "" {
		t.Error("request id not attached to the error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestDo_SentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		sentinel error
	}{
		{"unauthorized", 401, "", ErrUnauthorized},
		{"forbidden maps to unauthorized", 403, "", ErrUnauthorized},
		{"app not found", 404, "app_not_found", ErrAppNotFound},
		{"block not found", 404, "block_not_found", ErrBlockNotFound},
		{"group conflict", 409, "group_conflict", ErrGroupConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]string{"code": tt.code, "message": tt.name})
			}))
			err := client.Do(context.Background(), "GET", "/v2/thing", nil, nil)
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, sentinel) = false", err)
			}
		})
	}
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := New("test-app", WithBaseURL(url), WithRetryConfig(fastRetry()))
	if err != nil {
		t.Fatal(err)
	}

	doErr := client.Do(context.Background(), "GET", "/v2/ping", nil, nil)
	var netErr *NetworkError
	if !errors.As(doErr, &netErr) {
		t.Fatalf("error = %v, want *NetworkError", doErr)
	}
}

func TestDo_DecodesResult(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"blocks": []string{"YWJj"}})
	}))

	var result blocksResponse
	if err := client.Do(context.Background(), "GET", "/v2/thing", nil, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Blocks) != 1 || string(result.Blocks[0]) != "abc" {
		t.Errorf("decoded %v", result.Blocks)
	}
}
