package block

import "github.com/trustvault/client-go/internal/crypto"

// EncryptedPrivateKey is one entry of a revocation's key fan-out: the rotated
// user private encryption key sealed to one remaining device.
type EncryptedPrivateKey struct {
	RecipientDeviceID []byte // 32 bytes
	SealedKey         []byte // 80 bytes
}

// RevocationUserKeys carries a user key rotation: the new public key, the key
// it supersedes, the previous private key sealed to the new one, and the new
// private key sealed to every device that stays active.
type RevocationUserKeys struct {
	PublicEncryptionKey                []byte // 32 bytes
	PreviousPublicEncryptionKey        []byte // 32 bytes
	SealedPreviousPrivateEncryptionKey []byte // 80 bytes
	PrivateKeys                        []EncryptedPrivateKey
}

// DeviceRevocation is the normalized record for both wire versions of a
// device-revocation payload. v1 predates user key rotation and carries only
// the target device id; v2 adds the mandatory rotation.
type DeviceRevocation struct {
	Version  int
	DeviceID []byte // 32 bytes

	// UserKeys is present on v2 blocks only.
	UserKeys *RevocationUserKeys
}

func (*DeviceRevocation) recordNature() {}

// Nature returns the wire nature matching the record's version.
func (dr *DeviceRevocation) Nature() Nature {
	if dr.Version == 1 {
		return NatureDeviceRevocationV1
	}
	return NatureDeviceRevocationV2
}

const revocationPrivateKeyEntrySize = crypto.HashSize + crypto.SealedEncryptionPrivateKeySize

// EncodeDeviceRevocation serializes the record in its version's wire layout.
func EncodeDeviceRevocation(dr *DeviceRevocation) ([]byte, error) {
	nature := dr.Nature()
	if err := checkSize(nature, "device id", dr.DeviceID, crypto.HashSize); err != nil {
		return nil, err
	}

	out := append([]byte(nil), dr.DeviceID...)
	if dr.Version == 1 {
		return out, nil
	}

	uk := dr.UserKeys
	if uk == nil {
		return nil, decodeErrorf(nature, "missing user keys")
	}
	if err := checkSize(nature, "public encryption key", uk.PublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "previous public encryption key", uk.PreviousPublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "sealed previous private encryption key", uk.SealedPreviousPrivateEncryptionKey, crypto.SealedEncryptionPrivateKeySize); err != nil {
		return nil, err
	}

	out = append(out, uk.PublicEncryptionKey...)
	out = append(out, uk.PreviousPublicEncryptionKey...)
	out = append(out, uk.SealedPreviousPrivateEncryptionKey...)
	out = appendUvarint(out, uint64(len(uk.PrivateKeys)))
	for i, pk := range uk.PrivateKeys {
		if err := checkSize(nature, "private key recipient", pk.RecipientDeviceID, crypto.HashSize); err != nil {
			return nil, decodeErrorf(nature, "entry %d: %v", i, err)
		}
		if err := checkSize(nature, "sealed private key", pk.SealedKey, crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, decodeErrorf(nature, "entry %d: %v", i, err)
		}
		out = append(out, pk.RecipientDeviceID...)
		out = append(out, pk.SealedKey...)
	}
	return out, nil
}

// DecodeDeviceRevocation parses a device-revocation payload of the version
// implied by nature.
func DecodeDeviceRevocation(nature Nature, payload []byte) (*DeviceRevocation, error) {
	var version int
	switch nature {
	case NatureDeviceRevocationV1:
		version = 1
	case NatureDeviceRevocationV2:
		version = 2
	default:
		return nil, decodeErrorf(nature, "not a device revocation nature")
	}

	r := newReader(nature, payload)
	dr := &DeviceRevocation{Version: version}

	var err error
	if dr.DeviceID, err = r.bytes("device id", crypto.HashSize); err != nil {
		return nil, err
	}

	if version == 2 {
		uk := &RevocationUserKeys{}
		if uk.PublicEncryptionKey, err = r.bytes("public encryption key", crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if uk.PreviousPublicEncryptionKey, err = r.bytes("previous public encryption key", crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if uk.SealedPreviousPrivateEncryptionKey, err = r.bytes("sealed previous private encryption key", crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, err
		}
		count, err := r.listCount("private keys", revocationPrivateKeyEntrySize)
		if err != nil {
			return nil, err
		}
		uk.PrivateKeys = make([]EncryptedPrivateKey, 0, count)
		for i := 0; i < count; i++ {
			var pk EncryptedPrivateKey
			if pk.RecipientDeviceID, err = r.bytes("private key recipient", crypto.HashSize); err != nil {
				return nil, err
			}
			if pk.SealedKey, err = r.bytes("sealed private key", crypto.SealedEncryptionPrivateKeySize); err != nil {
				return nil, err
			}
			uk.PrivateKeys = append(uk.PrivateKeys, pk)
		}
		dr.UserKeys = uk
	}

	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return dr, nil
}
