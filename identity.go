package trustvault

import (
	"bytes"
	"fmt"

	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/resource"
)

// SignatureKeyPair and EncryptionKeyPair are aliased so callers can hold
// identity key material without importing internal packages.
type (
	SignatureKeyPair  = crypto.SignatureKeyPair
	EncryptionKeyPair = crypto.EncryptionKeyPair
)

// ProvisionalIdentity is a claimed provisional identity: both signature and
// encryption halves, app-side and vault-side.
type ProvisionalIdentity struct {
	AppSignatureKeys    *crypto.SignatureKeyPair
	VaultSignatureKeys  *crypto.SignatureKeyPair
	AppEncryptionKeys   *crypto.EncryptionKeyPair
	VaultEncryptionKeys *crypto.EncryptionKeyPair
}

// Identity is the local device's key material: the device's own key pairs
// plus the user key rotation history and any claimed provisional identities.
// It is what an identity export file round-trips.
type Identity struct {
	TrustchainID []byte
	UserID       []byte
	DeviceID     []byte

	DeviceSignatureKeys  *crypto.SignatureKeyPair
	DeviceEncryptionKeys *crypto.EncryptionKeyPair

	// UserKeys is the user encryption key history, oldest first. The last
	// entry is the current key.
	UserKeys []*crypto.EncryptionKeyPair

	ProvisionalIdentities []ProvisionalIdentity
}

// Validate checks the identity's key material sizes.
func (id *Identity) Validate() error {
	if len(id.TrustchainID) != crypto.HashSize {
		return fmt.Errorf("%w: trustchain id must be %d bytes", ErrInvalidImportData, crypto.HashSize)
	}
	if len(id.UserID) != crypto.HashSize {
		return fmt.Errorf("%w: user id must be %d bytes", ErrInvalidImportData, crypto.HashSize)
	}
	if len(id.DeviceID) != crypto.HashSize {
		return fmt.Errorf("%w: device id must be %d bytes", ErrInvalidImportData, crypto.HashSize)
	}
	if id.DeviceSignatureKeys == nil || len(id.DeviceSignatureKeys.PrivateKey) != crypto.SignaturePrivateKeySize {
		return fmt.Errorf("%w: device signature key missing or wrong size", ErrInvalidImportData)
	}
	if id.DeviceEncryptionKeys == nil || len(id.DeviceEncryptionKeys.PrivateKey) != crypto.EncryptionPrivateKeySize {
		return fmt.Errorf("%w: device encryption key missing or wrong size", ErrInvalidImportData)
	}
	for i, pair := range id.UserKeys {
		if pair == nil || len(pair.PublicKey) != crypto.EncryptionPublicKeySize ||
			len(pair.PrivateKey) != crypto.EncryptionPrivateKeySize {
			return fmt.Errorf("%w: user key %d missing or wrong size", ErrInvalidImportData, i)
		}
	}
	return nil
}

// CurrentUserKey returns the user's current encryption key pair, or nil.
func (id *Identity) CurrentUserKey() *crypto.EncryptionKeyPair {
	if len(id.UserKeys) == 0 {
		return nil
	}
	return id.UserKeys[len(id.UserKeys)-1]
}

// FindEncryptionKey resolves a public key to one of the identity's
// encryption key pairs: any user key from the rotation history, or the
// device key. Returns nil when the key is not ours.
func (id *Identity) FindEncryptionKey(publicKey []byte) *crypto.EncryptionKeyPair {
	for _, pair := range id.UserKeys {
		if bytes.Equal(pair.PublicKey, publicKey) {
			return pair
		}
	}
	if id.DeviceEncryptionKeys != nil && bytes.Equal(id.DeviceEncryptionKeys.PublicKey, publicKey) {
		return id.DeviceEncryptionKeys
	}
	return nil
}

// FindProvisionalKeys resolves a provisional identity by its public
// signature key halves. Returns nil when unclaimed.
func (id *Identity) FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey []byte) *resource.ProvisionalKeyPair {
	for _, p := range id.ProvisionalIdentities {
		if p.AppSignatureKeys == nil || p.VaultSignatureKeys == nil {
			continue
		}
		if bytes.Equal(p.AppSignatureKeys.PublicKey, appPublicSignatureKey) &&
			bytes.Equal(p.VaultSignatureKeys.PublicKey, vaultPublicSignatureKey) {
			return &resource.ProvisionalKeyPair{
				AppEncryptionKeyPair:   p.AppEncryptionKeys,
				VaultEncryptionKeyPair: p.VaultEncryptionKeys,
			}
		}
	}
	return nil
}
