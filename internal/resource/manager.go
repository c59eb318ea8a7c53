package resource

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/coalescer"
	"github.com/trustvault/client-go/internal/crypto"
)

// Errors reported by key resolution, checkable with errors.Is.
var (
	// ErrKeyNotFound indicates no key-publish block exists for the
	// resource, or none is addressed to the local user.
	ErrKeyNotFound = errors.New("resource: key not found")
	// ErrNoRecipientKey indicates a key-publish block was found but the
	// local user holds no key able to open it.
	ErrNoRecipientKey = errors.New("resource: no matching recipient key")
)

// Transport is the slice of the network client the manager needs.
type Transport interface {
	GetKeyPublishes(ctx context.Context, resourceIDs [][]byte) ([][]byte, error)
	PublishKeys(ctx context.Context, rawBlocks [][]byte) error
}

// KeyFinder resolves a user public encryption key to the local key pair, or
// nil when the key is not ours.
type KeyFinder interface {
	FindEncryptionKey(publicKey []byte) *crypto.EncryptionKeyPair
}

// GroupKeySource resolves a group public encryption key to the group's key
// pair. The group manager implements it, fetching and caching as needed.
type GroupKeySource interface {
	GroupEncryptionKeyPair(ctx context.Context, publicEncryptionKey []byte) (*crypto.EncryptionKeyPair, error)
}

// ProvisionalKeyPair is both encryption halves of a claimed provisional
// identity.
type ProvisionalKeyPair struct {
	AppEncryptionKeyPair   *crypto.EncryptionKeyPair
	VaultEncryptionKeyPair *crypto.EncryptionKeyPair
}

// ProvisionalKeySource resolves a provisional identity, addressed by its two
// public signature keys, to its claimed encryption key pairs. Returns nil
// when the identity was never claimed by the local user.
type ProvisionalKeySource interface {
	FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey []byte) *ProvisionalKeyPair
}

// Manager resolves and shares resource keys. Concurrent FindKey calls for
// the same resource share one fetch; calls for distinct resources that
// overlap in time share one round-trip.
type Manager struct {
	transport   Transport
	keys        *KeyStore
	local       KeyFinder
	groupKeys   GroupKeySource
	provisional ProvisionalKeySource

	deviceID           []byte
	deviceSignatureKey *crypto.SignatureKeyPair

	lookups *coalescer.Coalescer[string, []byte]
}

// NewManager wires a resource key manager.
func NewManager(transport Transport, keys *KeyStore, local KeyFinder, groupKeys GroupKeySource, provisional ProvisionalKeySource, deviceID []byte, deviceSignatureKey *crypto.SignatureKeyPair) *Manager {
	return &Manager{
		transport:          transport,
		keys:               keys,
		local:              local,
		groupKeys:          groupKeys,
		provisional:        provisional,
		deviceID:           deviceID,
		deviceSignatureKey: deviceSignatureKey,
		lookups:            coalescer.New[string, []byte](),
	}
}

// FindKey returns the symmetric key of the resource, consulting the local
// store before fetching.
func (m *Manager) FindKey(ctx context.Context, resourceID []byte) ([]byte, error) {
	if key, err := m.keys.Find(ctx, resourceID); err != nil || key != nil {
		return key, err
	}

	results, err := m.lookups.Run(ctx, []string{hex.EncodeToString(resourceID)}, m.fetchBatch)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: resource %x", ErrKeyNotFound, resourceID)
	}
	return results[0], nil
}

// fetchBatch fetches and decrypts the key publishes for one coalesced id
// set. Ids with no matching publish are left out of the result; a decrypt
// failure fails the batch.
func (m *Manager) fetchBatch(ctx context.Context, ids []string) (map[string][]byte, error) {
	resourceIDs := make([][]byte, len(ids))
	for i, id := range ids {
		decoded, err := hex.DecodeString(id)
		if err != nil {
			return nil, err
		}
		resourceIDs[i] = decoded
	}

	rawBlocks, err := m.transport.GetKeyPublishes(ctx, resourceIDs)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}

	out := make(map[string][]byte, len(rawBlocks))
	for _, raw := range rawBlocks {
		blk, err := block.Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		record, err := block.DecodePayload(blk)
		if err != nil {
			return nil, err
		}
		kp, ok := record.(*block.KeyPublish)
		if !ok {
			return nil, fmt.Errorf("resource: unexpected %s block in a key-publish response", blk.Nature)
		}
		idKey := hex.EncodeToString(kp.ResourceID)
		if !requested[idKey] {
			continue
		}

		key, err := m.decrypt(ctx, kp)
		if err != nil {
			return nil, err
		}
		if err := m.keys.Save(ctx, kp.ResourceID, key); err != nil {
			return nil, err
		}
		out[idKey] = key
	}
	return out, nil
}

// decrypt opens the sealed key along the path the publish nature selects.
func (m *Manager) decrypt(ctx context.Context, kp *block.KeyPublish) ([]byte, error) {
	switch kp.PublishNature {
	case block.NatureKeyPublishToUser:
		pair := m.local.FindEncryptionKey(kp.Recipient)
		if pair == nil {
			return nil, fmt.Errorf("%w: user key %x", ErrNoRecipientKey, kp.Recipient[:8])
		}
		return crypto.SealDecrypt(kp.SealedKey, pair)

	case block.NatureKeyPublishToUserGroup:
		pair, err := m.groupKeys.GroupEncryptionKeyPair(ctx, kp.Recipient)
		if err != nil {
			return nil, err
		}
		return crypto.SealDecrypt(kp.SealedKey, pair)

	case block.NatureKeyPublishToProvisionalUser:
		pair := m.provisional.FindProvisionalKeys(kp.Recipient, kp.VaultPublicSignatureKey)
		if pair == nil {
			return nil, fmt.Errorf("%w: provisional identity %x", ErrNoRecipientKey, kp.Recipient[:8])
		}
		once, err := crypto.SealDecrypt(kp.SealedKey, pair.VaultEncryptionKeyPair)
		if err != nil {
			return nil, err
		}
		return crypto.SealDecrypt(once, pair.AppEncryptionKeyPair)

	default:
		return nil, fmt.Errorf("resource: %s is not a key publish nature", kp.PublishNature)
	}
}
