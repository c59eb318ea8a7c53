package resource

import (
	"context"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
)

// Key is one resource key to share.
type Key struct {
	ResourceID []byte
	Key        []byte
}

// ProvisionalRecipient addresses a not-yet-registered recipient by its
// provisional key halves.
type ProvisionalRecipient struct {
	AppPublicSignatureKey    []byte
	VaultPublicSignatureKey  []byte
	AppPublicEncryptionKey   []byte
	VaultPublicEncryptionKey []byte
}

// Recipients is the fan-out target of a share: user and group public
// encryption keys plus provisional identities.
type Recipients struct {
	UserPublicKeys  [][]byte
	GroupPublicKeys [][]byte
	Provisional     []ProvisionalRecipient
}

// Share seals each resource key to every recipient and pushes the resulting
// key-publish blocks in one batch.
func (m *Manager) Share(ctx context.Context, keys []Key, recipients Recipients) error {
	var rawBlocks [][]byte

	for _, k := range keys {
		if len(k.Key) != crypto.SymmetricKeySize {
			return fmt.Errorf("resource: refusing to share a %d-byte key", len(k.Key))
		}

		for _, userKey := range recipients.UserPublicKeys {
			raw, err := m.publishBlock(block.NatureKeyPublishToUser, k, userKey, nil, userKey)
			if err != nil {
				return err
			}
			rawBlocks = append(rawBlocks, raw)
		}
		for _, groupKey := range recipients.GroupPublicKeys {
			raw, err := m.publishBlock(block.NatureKeyPublishToUserGroup, k, groupKey, nil, groupKey)
			if err != nil {
				return err
			}
			rawBlocks = append(rawBlocks, raw)
		}
		for _, p := range recipients.Provisional {
			once, err := crypto.SealEncrypt(k.Key, p.AppPublicEncryptionKey)
			if err != nil {
				return err
			}
			raw, err := m.provisionalPublishBlock(k, p, once)
			if err != nil {
				return err
			}
			rawBlocks = append(rawBlocks, raw)
		}
	}

	if len(rawBlocks) == 0 {
		return nil
	}
	return m.transport.PublishKeys(ctx, rawBlocks)
}

// publishBlock seals the key to sealKey and wraps it in a signed block
// addressed to recipient.
func (m *Manager) publishBlock(nature block.Nature, k Key, recipient, vaultSigKey, sealKey []byte) ([]byte, error) {
	sealed, err := crypto.SealEncrypt(k.Key, sealKey)
	if err != nil {
		return nil, err
	}
	kp := &block.KeyPublish{
		PublishNature:           nature,
		Recipient:               recipient,
		VaultPublicSignatureKey: vaultSigKey,
		ResourceID:              k.ResourceID,
		SealedKey:               sealed,
	}
	return m.signAndMarshal(kp)
}

// provisionalPublishBlock finishes the double seal with the vault-side key.
func (m *Manager) provisionalPublishBlock(k Key, p ProvisionalRecipient, once []byte) ([]byte, error) {
	twice, err := crypto.SealEncrypt(once, p.VaultPublicEncryptionKey)
	if err != nil {
		return nil, err
	}
	kp := &block.KeyPublish{
		PublishNature:           block.NatureKeyPublishToProvisionalUser,
		Recipient:               p.AppPublicSignatureKey,
		VaultPublicSignatureKey: p.VaultPublicSignatureKey,
		ResourceID:              k.ResourceID,
		SealedKey:               twice,
	}
	return m.signAndMarshal(kp)
}

func (m *Manager) signAndMarshal(kp *block.KeyPublish) ([]byte, error) {
	payload, err := block.EncodeKeyPublish(kp)
	if err != nil {
		return nil, err
	}
	blk := &block.Block{Nature: kp.Nature(), Author: m.deviceID, Payload: payload}
	sig, err := crypto.SignDetached(blk.Hash(), m.deviceSignatureKey.PrivateKey)
	if err != nil {
		return nil, err
	}
	blk.Signature = sig
	return blk.Marshal()
}
