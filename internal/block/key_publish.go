package block

import "github.com/trustvault/client-go/internal/crypto"

// KeyPublish delivers a sealed copy of a resource's symmetric key to one
// recipient: a user, a user group, or a provisional identity. The Recipient
// field holds the user's public encryption key, the group's public
// encryption key, or the provisional identity's app public signature key,
// depending on the nature.
type KeyPublish struct {
	PublishNature Nature

	Recipient []byte // 32 bytes
	// VaultPublicSignatureKey is only present when publishing to a
	// provisional identity: the vault-side half of the recipient.
	VaultPublicSignatureKey []byte // 32 bytes
	ResourceID              []byte // 16 bytes
	// SealedKey is 80 bytes for user and group publishes, 128 bytes
	// (sealed twice) for provisional publishes.
	SealedKey []byte
}

func (*KeyPublish) recordNature() {}

// Nature returns the wire nature of the publish record.
func (kp *KeyPublish) Nature() Nature { return kp.PublishNature }

// EncodeKeyPublish serializes a key-publish payload.
func EncodeKeyPublish(kp *KeyPublish) ([]byte, error) {
	nature := kp.PublishNature
	if !nature.IsKeyPublish() {
		return nil, decodeErrorf(nature, "not a key publish nature")
	}
	if err := checkSize(nature, "recipient", kp.Recipient, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "resource id", kp.ResourceID, crypto.ResourceIDSize); err != nil {
		return nil, err
	}

	wantKey := crypto.SealedSymmetricKeySize
	if nature == NatureKeyPublishToProvisionalUser {
		wantKey = crypto.TwiceSealedSymmetricKeySize
	}
	if err := checkSize(nature, "sealed key", kp.SealedKey, wantKey); err != nil {
		return nil, err
	}

	out := append([]byte(nil), kp.Recipient...)
	if nature == NatureKeyPublishToProvisionalUser {
		if err := checkSize(nature, "vault public signature key", kp.VaultPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
		out = append(out, kp.VaultPublicSignatureKey...)
	}
	out = append(out, kp.ResourceID...)
	out = append(out, kp.SealedKey...)
	return out, nil
}

// DecodeKeyPublish parses a key-publish payload of any recipient kind.
func DecodeKeyPublish(nature Nature, payload []byte) (*KeyPublish, error) {
	if !nature.IsKeyPublish() {
		return nil, decodeErrorf(nature, "not a key publish nature")
	}

	r := newReader(nature, payload)
	kp := &KeyPublish{PublishNature: nature}

	var err error
	if kp.Recipient, err = r.bytes("recipient", crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if nature == NatureKeyPublishToProvisionalUser {
		if kp.VaultPublicSignatureKey, err = r.bytes("vault public signature key", crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
	}
	if kp.ResourceID, err = r.bytes("resource id", crypto.ResourceIDSize); err != nil {
		return nil, err
	}

	keySize := crypto.SealedSymmetricKeySize
	if nature == NatureKeyPublishToProvisionalUser {
		keySize = crypto.TwiceSealedSymmetricKeySize
	}
	if kp.SealedKey, err = r.bytes("sealed key", keySize); err != nil {
		return nil, err
	}

	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return kp, nil
}
