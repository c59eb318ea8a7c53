package block

import "github.com/trustvault/client-go/internal/crypto"

// UserKeyPair carries a user's public encryption key together with its
// private half sealed to the new device.
type UserKeyPair struct {
	PublicEncryptionKey        []byte // 32 bytes
	SealedPrivateEncryptionKey []byte // 80 bytes
}

// DeviceCreation is the normalized in-memory record for every wire version
// of a device-creation payload.
//
// v1 has no LastReset and no user key; v2 prepends LastReset (must be all
// zero in the current protocol); v3 drops LastReset again and appends the
// user key pair plus the ghost-device flag.
type DeviceCreation struct {
	Version int

	LastReset                   []byte // 32 bytes, zero for v1/v3
	EphemeralPublicSignatureKey []byte // 32 bytes
	UserID                      []byte // 32 bytes
	DelegationSignature         []byte // 64 bytes
	PublicSignatureKey          []byte // 32 bytes
	PublicEncryptionKey         []byte // 32 bytes

	// UserKeyPair is present on v3 blocks only.
	UserKeyPair *UserKeyPair
	// IsGhostDevice marks a recovery-only device. v3 only.
	IsGhostDevice bool
}

func (*DeviceCreation) recordNature() {}

// Nature returns the wire nature matching the record's version.
func (dc *DeviceCreation) Nature() Nature {
	switch dc.Version {
	case 1:
		return NatureDeviceCreationV1
	case 2:
		return NatureDeviceCreationV2
	default:
		return NatureDeviceCreationV3
	}
}

// EncodeDeviceCreation serializes the record in its version's wire layout.
func EncodeDeviceCreation(dc *DeviceCreation) ([]byte, error) {
	nature := dc.Nature()
	if err := checkSize(nature, "ephemeral public signature key", dc.EphemeralPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "user id", dc.UserID, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "delegation signature", dc.DelegationSignature, crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "public signature key", dc.PublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "public encryption key", dc.PublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}

	var out []byte
	if dc.Version == 2 {
		lastReset := dc.LastReset
		if lastReset == nil {
			lastReset = make([]byte, crypto.HashSize)
		}
		if err := checkSize(nature, "last reset", lastReset, crypto.HashSize); err != nil {
			return nil, err
		}
		out = append(out, lastReset...)
	}
	out = append(out, dc.EphemeralPublicSignatureKey...)
	out = append(out, dc.UserID...)
	out = append(out, dc.DelegationSignature...)
	out = append(out, dc.PublicSignatureKey...)
	out = append(out, dc.PublicEncryptionKey...)

	if dc.Version == 3 {
		if dc.UserKeyPair == nil {
			return nil, decodeErrorf(nature, "missing user key pair")
		}
		if err := checkSize(nature, "user public encryption key", dc.UserKeyPair.PublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if err := checkSize(nature, "sealed user private encryption key", dc.UserKeyPair.SealedPrivateEncryptionKey, crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, err
		}
		out = append(out, dc.UserKeyPair.PublicEncryptionKey...)
		out = append(out, dc.UserKeyPair.SealedPrivateEncryptionKey...)
		if dc.IsGhostDevice {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out, nil
}

// DecodeDeviceCreation parses a device-creation payload of the version
// implied by nature.
func DecodeDeviceCreation(nature Nature, payload []byte) (*DeviceCreation, error) {
	var version int
	switch nature {
	case NatureDeviceCreationV1:
		version = 1
	case NatureDeviceCreationV2:
		version = 2
	case NatureDeviceCreationV3:
		version = 3
	default:
		return nil, decodeErrorf(nature, "not a device creation nature")
	}

	r := newReader(nature, payload)
	dc := &DeviceCreation{Version: version, LastReset: make([]byte, crypto.HashSize)}

	var err error
	if version == 2 {
		if dc.LastReset, err = r.bytes("last reset", crypto.HashSize); err != nil {
			return nil, err
		}
	}
	if dc.EphemeralPublicSignatureKey, err = r.bytes("ephemeral public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if dc.UserID, err = r.bytes("user id", crypto.HashSize); err != nil {
		return nil, err
	}
	if dc.DelegationSignature, err = r.bytes("delegation signature", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if dc.PublicSignatureKey, err = r.bytes("public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if dc.PublicEncryptionKey, err = r.bytes("public encryption key", crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}

	if version == 3 {
		ukp := &UserKeyPair{}
		if ukp.PublicEncryptionKey, err = r.bytes("user public encryption key", crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if ukp.SealedPrivateEncryptionKey, err = r.bytes("sealed user private encryption key", crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, err
		}
		dc.UserKeyPair = ukp
		ghost, err := r.byte("ghost device flag")
		if err != nil {
			return nil, err
		}
		if ghost > 1 {
			return nil, decodeErrorf(nature, "ghost device flag %d, want 0 or 1", ghost)
		}
		dc.IsGhostDevice = ghost == 1
	}

	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return dc, nil
}

func checkSize(nature Nature, field string, b []byte, want int) error {
	if len(b) != want {
		return decodeErrorf(nature, "%s size %d, want %d", field, len(b), want)
	}
	return nil
}
