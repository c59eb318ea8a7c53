package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client is the HTTP API client. All block payloads cross the wire as
// base64; this package never inspects them.
type Client struct {
	baseURL     string
	appID       string
	accessToken string
	httpClient  *http.Client
	retry       *RetryConfig
}

// Option configures the API client.
type Option func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithAccessToken sets the bearer token sent with every request.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetryConfig replaces the default retry configuration.
func WithRetryConfig(retry *RetryConfig) Option {
	return func(c *Client) {
		c.retry = retry
	}
}

// New creates a new API client for the given app id.
func New(appID string, opts ...Option) (*Client, error) {
	if appID == "" {
		return nil, fmt.Errorf("app id is required")
	}

	c := &Client{
		baseURL: "https://api.trustvault.io",
		appID:   appID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: DefaultRetryConfig(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Do performs one API call, retrying on retryable status codes and network
// failures. The request body is re-marshaled once up front so retries replay
// identical bytes.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyBytes []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyBytes = data
	}

	requestID := uuid.NewString()
	url := c.baseURL + path

	var resp *http.Response
	var lastErr error

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-App-Id", c.appID)
		req.Header.Set("X-Request-Id", requestID)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.accessToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil && !c.retry.ShouldRetry(attempt, resp.StatusCode) {
			break
		}
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}
		if lastErr != nil && attempt >= c.retry.MaxRetries {
			break
		}
		if err := c.retry.Wait(ctx, attempt); err != nil {
			if lastErr != nil {
				return &NetworkError{Err: lastErr, URL: url, Attempt: attempt}
			}
			return err
		}
	}

	if lastErr != nil {
		return &NetworkError{Err: lastErr, URL: url, Attempt: c.retry.MaxRetries}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp, requestID)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func parseErrorResponse(resp *http.Response, requestID string) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}

	if err := json.Unmarshal(body, &errResp); err == nil && (errResp.Code != "" || errResp.Message != "") {
		if errResp.RequestID == "" {
			errResp.RequestID = requestID
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Code,
			Message:    errResp.Message,
			RequestID:  errResp.RequestID,
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RequestID:  requestID,
	}
}
