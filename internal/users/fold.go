package users

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
)

// ApplyDeviceCreation folds a verified device-creation block into the user
// snapshot. A nil user means this is the user's first device; the returned
// snapshot is freshly created. The device id is the block hash.
//
// A user-key-pair equal to the user's current key is a no-op on the key
// history: the block merely re-delivers the key to the new device. A
// mismatching key is a verifier concern, never the folder's.
func ApplyDeviceCreation(user *User, b *block.Block, dc *block.DeviceCreation) *User {
	device := Device{
		DeviceID:            b.Hash(),
		PublicSignatureKey:  dc.PublicSignatureKey,
		PublicEncryptionKey: dc.PublicEncryptionKey,
		IsGhostDevice:       dc.IsGhostDevice,
	}

	if user == nil {
		u := &User{
			UserID:  dc.UserID,
			Devices: []Device{device},
		}
		if dc.UserKeyPair != nil {
			u.UserPublicKeys = [][]byte{dc.UserKeyPair.PublicEncryptionKey}
		}
		return u
	}

	u := user.Clone()
	u.Devices = append(u.Devices, device)
	if dc.UserKeyPair != nil && u.CurrentPublicKey() == nil {
		u.UserPublicKeys = append(u.UserPublicKeys, dc.UserKeyPair.PublicEncryptionKey)
	}
	return u
}

// ApplyDeviceRevocation folds a verified device-revocation block into the
// user snapshot: the target device is marked revoked, and a rotated user key
// (v2) is appended to the key history.
func ApplyDeviceRevocation(user *User, dr *block.DeviceRevocation) *User {
	u := user.Clone()
	for i := range u.Devices {
		if bytes.Equal(u.Devices[i].DeviceID, dr.DeviceID) {
			u.Devices[i].Revoked = true
			break
		}
	}
	if dr.UserKeys != nil {
		u.UserPublicKeys = append(u.UserPublicKeys, dr.UserKeys.PublicEncryptionKey)
	}
	return u
}
