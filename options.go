package trustvault

import (
	"net/http"
	"time"

	"github.com/trustvault/client-go/internal/storage"
)

const (
	defaultBaseURL = "https://api.trustvault.io"
	defaultTimeout = 30 * time.Second
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	store       storage.Store
	timeout     time.Duration
	retries     int
	sessionTTL  time.Duration
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithAccessToken sets the bearer token sent with API calls.
func WithAccessToken(token string) Option {
	return func(c *clientConfig) {
		c.accessToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithStore sets the local store backing the key and session caches.
// Defaults to a process-lifetime in-memory store.
func WithStore(store storage.Store) Option {
	return func(c *clientConfig) {
		c.store = store
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithRetries sets the number of retries for API calls.
func WithRetries(count int) Option {
	return func(c *clientConfig) {
		c.retries = count
	}
}

// WithSessionTTL sets how long cached transparent sessions stay usable.
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.sessionTTL = ttl
	}
}
