// Package api implements the HTTP client for the TrustVault server. It
// moves opaque ledger blocks back and forth as base64 strings; decoding and
// verification happen in the caller's packages. Requests carry a generated
// X-Request-Id so failures can be correlated with server logs.
package api
