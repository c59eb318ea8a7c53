package verify

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// DeviceRevocation checks a device-revocation block against the author
// user's current state. The author device is resolved from user by the
// block's author hash; both target and author must belong to the same user.
func DeviceRevocation(b *block.Block, dr *block.DeviceRevocation, user *users.User) error {
	authorDevice := user.FindDevice(b.Author)
	if authorDevice == nil {
		return reject(b, KindInvalidAuthor, "author device is not a device of the user")
	}
	if !crypto.VerifyDetached(b.Hash(), b.Signature, authorDevice.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the author device key")
	}

	target := user.FindDevice(dr.DeviceID)
	if target == nil {
		return reject(b, KindInvalidRevokedDevice, "target device is not a device of the user")
	}
	if target.Revoked {
		return reject(b, KindDeviceAlreadyRevoked, "target device is already revoked")
	}

	if dr.Version == 1 {
		// v1 predates user key rotation and is structurally incompatible
		// with a user that owns user keys.
		if len(user.UserPublicKeys) != 0 {
			return reject(b, KindInvalidRevocationVersion, "revocation v1 forbidden for a user with user keys")
		}
		return nil
	}

	if dr.UserKeys == nil {
		return reject(b, KindMissingUserKeys, "revocation v2 must rotate the user key")
	}
	if current := user.CurrentPublicKey(); !bytes.Equal(dr.UserKeys.PreviousPublicEncryptionKey, current) {
		return reject(b, KindInvalidPreviousKey, "previous public encryption key does not match the user's current key")
	}

	// The rotated private key must be fanned out to exactly the devices that
	// remain active after this revocation: same count, same membership, one
	// entry per device. Duplicate recipients are rejected outright.
	remaining := make(map[string]bool)
	for _, d := range user.Devices {
		if !d.Revoked && !bytes.Equal(d.DeviceID, dr.DeviceID) {
			remaining[string(d.DeviceID)] = false
		}
	}
	if len(dr.UserKeys.PrivateKeys) != len(remaining) {
		return reject(b, KindInvalidNewKey, "%d sealed keys for %d remaining active devices", len(dr.UserKeys.PrivateKeys), len(remaining))
	}
	for _, pk := range dr.UserKeys.PrivateKeys {
		seen, ok := remaining[string(pk.RecipientDeviceID)]
		if !ok {
			return reject(b, KindInvalidNewKey, "sealed key recipient is not a remaining active device")
		}
		if seen {
			return reject(b, KindInvalidNewKey, "duplicate sealed key recipient")
		}
		remaining[string(pk.RecipientDeviceID)] = true
	}
	return nil
}
