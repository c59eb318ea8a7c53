package api

import (
	"errors"
	"fmt"
)

// Common API errors that can be checked with errors.Is.
var (
	// ErrUnauthorized indicates the access token is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired access token")
	// ErrAppNotFound indicates the app id is unknown to the server.
	ErrAppNotFound = errors.New("app not found")
	// ErrBlockNotFound indicates a requested block does not exist.
	ErrBlockNotFound = errors.New("block not found")
	// ErrGroupConflict indicates a group mutation raced with another writer.
	ErrGroupConflict = errors.New("group was modified concurrently")
	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// APIError represents an HTTP error response from the TrustVault server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		if e.Message != "" {
			return fmt.Sprintf("API error %d: %s (request_id: %s)", e.StatusCode, e.Message, e.RequestID)
		}
		return fmt.Sprintf("API error %d (request_id: %s)", e.StatusCode, e.RequestID)
	}
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d", e.StatusCode)
}

// TrustVaultError implements the TrustVaultError interface.
func (e *APIError) TrustVaultError() {}

// Is implements errors.Is for sentinel error matching.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case 401, 403:
		return target == ErrUnauthorized
	case 404:
		switch e.Code {
		case "app_not_found":
			return target == ErrAppNotFound
		case "block_not_found":
			return target == ErrBlockNotFound
		default:
			return target == ErrAppNotFound || target == ErrBlockNotFound
		}
	case 409:
		return target == ErrGroupConflict
	case 429:
		return target == ErrRateLimited
	}
	return false
}

// NetworkError represents a network-level failure.
type NetworkError struct {
	Err     error
	URL     string
	Attempt int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TrustVaultError implements the TrustVaultError interface.
func (e *NetworkError) TrustVaultError() {}
