package trustvault

import (
	"errors"
	"fmt"

	"github.com/trustvault/client-go/internal/api"
	"github.com/trustvault/client-go/internal/groups"
	"github.com/trustvault/client-go/internal/resource"
	"github.com/trustvault/client-go/internal/verify"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrMissingAppID is returned when no app id is provided.
	ErrMissingAppID = errors.New("app id is required")

	// ErrMissingIdentity is returned when no device identity is provided.
	ErrMissingIdentity = errors.New("device identity is required")

	// ErrClientClosed is returned when operations are attempted on a closed client.
	ErrClientClosed = errors.New("client has been closed")

	// ErrUnauthorized is returned when the access token is invalid or expired.
	ErrUnauthorized = errors.New("invalid or expired access token")

	// ErrUserNotFound is returned when a user id cannot be resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupNotFound is returned when a group id or public key cannot be resolved.
	ErrGroupNotFound = errors.New("group not found")

	// ErrResourceKeyNotFound is returned when no key publish exists for a resource.
	ErrResourceKeyNotFound = errors.New("resource key not found")

	// ErrNoAccess is returned when a key publish exists but none of the local
	// keys can open it.
	ErrNoAccess = errors.New("no access to resource key")

	// ErrVerificationFailed is returned when a ledger block fails verification.
	ErrVerificationFailed = errors.New("block verification failed")

	// ErrInvalidImportData is returned when imported identity data is invalid.
	ErrInvalidImportData = errors.New("invalid identity import data")

	// ErrRateLimited is returned when the API rate limit is exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// TrustVaultError is implemented by all SDK errors.
type TrustVaultError interface {
	error
	TrustVaultError() // marker method
}

// APIError represents an HTTP error from the TrustVault API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // if returned by server
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

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TrustVaultError implements the TrustVaultError interface.
func (e *NetworkError) TrustVaultError() {}

// VerificationError reports a ledger block that failed verification. Kind is
// the stable failure identifier ("invalid_signature", "forbidden", ...);
// Message adds context.
type VerificationError struct {
	Kind    string
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("block verification failed (%s): %s", e.Kind, e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// TrustVaultError implements the TrustVaultError interface.
func (e *VerificationError) TrustVaultError() {}

// wrapError converts internal errors to public ones, so errors.Is() checks
// work with the package's sentinel errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var verifyErr *verify.Error
	if errors.As(err, &verifyErr) {
		return &VerificationError{
			Kind:    string(verifyErr.Kind),
			Message: verifyErr.Message,
		}
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
			RequestID:  apiErr.RequestID,
		}
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return &NetworkError{
			Err:     netErr.Err,
			URL:     netErr.URL,
			Attempt: netErr.Attempt,
		}
	}

	switch {
	case errors.Is(err, groups.ErrGroupNotFound), errors.Is(err, groups.ErrUnexpectedGroup):
		return fmt.Errorf("%w: %v", ErrGroupNotFound, err)
	case errors.Is(err, resource.ErrKeyNotFound):
		return fmt.Errorf("%w: %v", ErrResourceKeyNotFound, err)
	case errors.Is(err, resource.ErrNoRecipientKey):
		return fmt.Errorf("%w: %v", ErrNoAccess, err)
	}

	return err
}
