package block

import "github.com/trustvault/client-go/internal/crypto"

// ProvisionalIdentityClaim binds a provisional identity (an email, phone or
// OIDC subject known out of band) to the claiming user. The sealed payload
// carries the app-side and vault-side provisional private encryption keys,
// concatenated and sealed to the claiming user's current public key.
type ProvisionalIdentityClaim struct {
	UserID                  []byte // 32 bytes
	AppPublicSignatureKey   []byte // 32 bytes
	VaultPublicSignatureKey []byte // 32 bytes

	// AuthorSignatureByAppKey and AuthorSignatureByVaultKey both sign
	// deviceID ‖ appPublicSignatureKey ‖ vaultPublicSignatureKey, proving
	// possession of both provisional signature keys.
	AuthorSignatureByAppKey   []byte // 64 bytes
	AuthorSignatureByVaultKey []byte // 64 bytes

	RecipientUserPublicKey []byte // 32 bytes
	SealedPrivateKeys      []byte // 112 bytes: app priv (32) ‖ vault priv (32), sealed
}

func (*ProvisionalIdentityClaim) recordNature() {}

// Nature returns the wire nature of a provisional identity claim.
func (*ProvisionalIdentityClaim) Nature() Nature { return NatureProvisionalIdentityClaim }

// SignedData returns the buffer covered by the two provisional signatures.
func (c *ProvisionalIdentityClaim) SignedData(deviceID []byte) []byte {
	out := append([]byte(nil), deviceID...)
	out = append(out, c.AppPublicSignatureKey...)
	return append(out, c.VaultPublicSignatureKey...)
}

const sealedProvisionalPrivateKeysSize = 2*crypto.EncryptionPrivateKeySize + crypto.SealOverhead

// EncodeProvisionalIdentityClaim serializes a claim payload.
func EncodeProvisionalIdentityClaim(c *ProvisionalIdentityClaim) ([]byte, error) {
	nature := NatureProvisionalIdentityClaim
	if err := checkSize(nature, "user id", c.UserID, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "app public signature key", c.AppPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "vault public signature key", c.VaultPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "author signature by app key", c.AuthorSignatureByAppKey, crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "author signature by vault key", c.AuthorSignatureByVaultKey, crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "recipient user public key", c.RecipientUserPublicKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "sealed private keys", c.SealedPrivateKeys, sealedProvisionalPrivateKeysSize); err != nil {
		return nil, err
	}

	out := append([]byte(nil), c.UserID...)
	out = append(out, c.AppPublicSignatureKey...)
	out = append(out, c.VaultPublicSignatureKey...)
	out = append(out, c.AuthorSignatureByAppKey...)
	out = append(out, c.AuthorSignatureByVaultKey...)
	out = append(out, c.RecipientUserPublicKey...)
	return append(out, c.SealedPrivateKeys...), nil
}

// DecodeProvisionalIdentityClaim parses a claim payload.
func DecodeProvisionalIdentityClaim(nature Nature, payload []byte) (*ProvisionalIdentityClaim, error) {
	if nature != NatureProvisionalIdentityClaim {
		return nil, decodeErrorf(nature, "not a provisional identity claim nature")
	}

	r := newReader(nature, payload)
	c := &ProvisionalIdentityClaim{}

	var err error
	if c.UserID, err = r.bytes("user id", crypto.HashSize); err != nil {
		return nil, err
	}
	if c.AppPublicSignatureKey, err = r.bytes("app public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if c.VaultPublicSignatureKey, err = r.bytes("vault public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if c.AuthorSignatureByAppKey, err = r.bytes("author signature by app key", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if c.AuthorSignatureByVaultKey, err = r.bytes("author signature by vault key", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if c.RecipientUserPublicKey, err = r.bytes("recipient user public key", crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if c.SealedPrivateKeys, err = r.bytes("sealed private keys", sealedProvisionalPrivateKeysSize); err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return c, nil
}
