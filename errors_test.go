package trustvault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/trustvault/client-go/internal/api"
	"github.com/trustvault/client-go/internal/groups"
	"github.com/trustvault/client-go/internal/resource"
	"github.com/trustvault/client-go/internal/verify"
)

func TestWrapError_Verification(t *testing.T) {
	internal := &verify.Error{
		Kind:    verify.KindInvalidSignature,
		Message: "signature does not open",
	}
	err := wrapError(fmt.Errorf("fetching groups: %w", internal))

	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("wrapError() = %T, want *VerificationError", err)
	}
	if verr.Kind != "invalid_signature" {
		t.Errorf("Kind = %q, want %q", verr.Kind, "invalid_signature")
	}
	if !errors.Is(err, ErrVerificationFailed) {
		t.Error("wrapped verification error does not match ErrVerificationFailed")
	}
}

func TestWrapError_API(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{name: "unauthorized", status: 401, sentinel: ErrUnauthorized},
		{name: "forbidden", status: 403, sentinel: ErrUnauthorized},
		{name: "rate limited", status: 429, sentinel: ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(&api.APIError{StatusCode: tt.status, RequestID: "req-1"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("wrapError() = %T, want *APIError", err)
			}
			if apiErr.RequestID != "req-1" {
				t.Errorf("RequestID = %q, want %q", apiErr.RequestID, "req-1")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("status %d does not match its sentinel", tt.status)
			}
		})
	}
}

func TestWrapError_Network(t *testing.T) {
	cause := errors.New("connection refused")
	err := wrapError(&api.NetworkError{Err: cause, URL: "https://api.test", Attempt: 2})

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("wrapError() = %T, want *NetworkError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped network error does not unwrap to its cause")
	}
	if netErr.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", netErr.Attempt)
	}
}

func TestWrapError_Sentinels(t *testing.T) {
	tests := []struct {
		name     string
		internal error
		sentinel error
	}{
		{name: "group not found", internal: groups.ErrGroupNotFound, sentinel: ErrGroupNotFound},
		{name: "unexpected group", internal: groups.ErrUnexpectedGroup, sentinel: ErrGroupNotFound},
		{name: "key not found", internal: resource.ErrKeyNotFound, sentinel: ErrResourceKeyNotFound},
		{name: "no recipient key", internal: resource.ErrNoRecipientKey, sentinel: ErrNoAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(fmt.Errorf("op failed: %w", tt.internal))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("wrapError(%v) does not match %v", tt.internal, tt.sentinel)
			}
		})
	}
}

func TestWrapError_Passthrough(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}
	plain := errors.New("something else")
	if wrapError(plain) != plain {
		t.Error("wrapError rewrote an unrelated error")
	}
}

func TestMarkerInterface(t *testing.T) {
	for _, err := range []error{
		&APIError{StatusCode: 500},
		&NetworkError{Err: errors.New("x")},
		&VerificationError{Kind: "forbidden"},
	} {
		if _, ok := err.(TrustVaultError); !ok {
			t.Errorf("%T does not implement TrustVaultError", err)
		}
	}
}
