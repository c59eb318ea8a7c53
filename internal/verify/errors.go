// Package verify implements the block verification rules. Every function is
// a pure, synchronous predicate over (block, context): no I/O, no mutation.
// A rejection carries a specific kind string; those strings are part of the
// observable contract and must never change.
package verify

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
)

// ErrorKind names the verification rule a block failed.
type ErrorKind string

const (
	KindInvalidSignature                   ErrorKind = "invalid_signature"
	KindInvalidDelegationSignature         ErrorKind = "invalid_delegation_signature"
	KindInvalidAuthor                      ErrorKind = "invalid_author"
	KindForbidden                          ErrorKind = "forbidden"
	KindRevokedAuthor                      ErrorKind = "revoked_author_error"
	KindInvalidRevokedDevice               ErrorKind = "invalid_revoked_device"
	KindDeviceAlreadyRevoked               ErrorKind = "device_already_revoked"
	KindInvalidLastReset                   ErrorKind = "invalid_last_reset"
	KindInvalidPublicUserKey               ErrorKind = "invalid_public_user_key"
	KindInvalidPreviousKey                 ErrorKind = "invalid_previous_key"
	KindInvalidNewKey                      ErrorKind = "invalid_new_key"
	KindMissingUserKeys                    ErrorKind = "missing_user_keys"
	KindInvalidRevocationVersion           ErrorKind = "invalid_revocation_version"
	KindInvalidNature                      ErrorKind = "invalid_nature"
	KindInvalidAuthorForTrustchainCreation ErrorKind = "invalid_author_for_trustchain_creation"
	KindInvalidRootBlock                   ErrorKind = "invalid_root_block"
	KindInvalidPreviousGroupBlock          ErrorKind = "invalid_previous_group_block"
)

// Error is a verification (trust) failure: the server sent a block we must
// not accept. It identifies the offending block so callers can audit-log it.
// There is exactly one error type for all rules, discriminated by Kind.
type Error struct {
	Kind    ErrorKind
	Message string

	BlockNature block.Nature
	BlockHash   []byte
	BlockAuthor []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("block %s rejected (%s): %s [hash=%s author=%s]",
		e.BlockNature, e.Kind, e.Message,
		hex.EncodeToString(e.BlockHash), hex.EncodeToString(e.BlockAuthor))
}

// KindOf returns the verification kind of err, unwrapping as needed, or ""
// if no verification failure is in the chain.
func KindOf(err error) ErrorKind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return ""
}

func reject(b *block.Block, kind ErrorKind, format string, args ...interface{}) error {
	return &Error{
		Kind:        kind,
		Message:     fmt.Sprintf(format, args...),
		BlockNature: b.Nature,
		BlockHash:   b.Hash(),
		BlockAuthor: b.Author,
	}
}
