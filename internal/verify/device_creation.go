package verify

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// DelegationSignedData returns the buffer covered by a device creation's
// delegation signature: ephemeralPublicSignatureKey ‖ userID.
func DelegationSignedData(dc *block.DeviceCreation) []byte {
	out := append([]byte(nil), dc.EphemeralPublicSignatureKey...)
	return append(out, dc.UserID...)
}

// DeviceCreation checks a device-creation block against the current state.
//
// authorUser is the folded state of the user the block claims to belong to,
// or nil if that user does not exist yet. authorDevice is the author's device
// resolved from that state, or nil when the block is delegated by the
// trustchain root key (first device, or a never-before-seen author).
// trustchainID and rootPublicSignatureKey identify the root of trust.
func DeviceCreation(b *block.Block, dc *block.DeviceCreation, authorUser *users.User, authorDevice *users.Device, trustchainID, rootPublicSignatureKey []byte) error {
	// last_reset is a legacy field, always null in the current protocol.
	if !isZero(dc.LastReset) {
		return reject(b, KindInvalidLastReset, "last reset must be zero")
	}

	// Once a user owns a user key, only the latest wire version may add
	// devices. Accepting a downgrade would let a malicious server strip the
	// key rotation machinery.
	if authorUser != nil && authorUser.CurrentPublicKey() != nil && dc.Version != 3 {
		return reject(b, KindForbidden, "device creation v%d forbidden for a user with a user key", dc.Version)
	}

	if !crypto.VerifyDetached(b.Hash(), b.Signature, dc.EphemeralPublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the ephemeral key")
	}

	delegated := DelegationSignedData(dc)

	if authorDevice != nil {
		if !crypto.VerifyDetached(delegated, dc.DelegationSignature, authorDevice.PublicSignatureKey) {
			return reject(b, KindInvalidDelegationSignature, "delegation signature does not verify against the author device key")
		}
		if authorDevice.Revoked {
			return reject(b, KindRevokedAuthor, "author device is revoked")
		}
		if dc.Version == 3 && dc.UserKeyPair != nil {
			if current := authorUser.CurrentPublicKey(); current != nil && !bytes.Equal(dc.UserKeyPair.PublicEncryptionKey, current) {
				return reject(b, KindInvalidPublicUserKey, "user key pair does not match the user's current public key")
			}
		}
		if !bytes.Equal(dc.UserID, authorUser.UserID) {
			return reject(b, KindForbidden, "claimed user id does not match the author's user id")
		}
		return nil
	}

	// No author device: the delegation must come from the trustchain root.
	if !crypto.VerifyDetached(delegated, dc.DelegationSignature, rootPublicSignatureKey) {
		return reject(b, KindInvalidDelegationSignature, "delegation signature does not verify against the trustchain key")
	}
	if !bytes.Equal(b.Author, trustchainID) {
		return reject(b, KindInvalidAuthor, "author of a root-delegated device creation must be the trustchain id")
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
