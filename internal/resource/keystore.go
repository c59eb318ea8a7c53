// Package resource resolves resource symmetric keys: local store first, then
// a coalesced batched fetch of key-publish blocks, decrypted along the user,
// group or provisional path the block's nature selects.
package resource

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/storage"
)

// KeyStore persists resolved resource keys. Writes are first-write-wins: a
// key already on record is never replaced, so a late or malicious duplicate
// publish cannot substitute the key of an already-decrypted resource.
type KeyStore struct {
	store storage.Store
}

// NewKeyStore wraps a storage.Store.
func NewKeyStore(store storage.Store) *KeyStore {
	return &KeyStore{store: store}
}

// Find returns the stored key for the resource, or (nil, nil) on a miss.
func (s *KeyStore) Find(ctx context.Context, resourceID []byte) ([]byte, error) {
	key, err := s.store.Get(ctx, storage.TableResourceKeys, hex.EncodeToString(resourceID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

// Save records the key for the resource unless one is already on record.
func (s *KeyStore) Save(ctx context.Context, resourceID, key []byte) error {
	if len(key) != crypto.SymmetricKeySize {
		return fmt.Errorf("resource: refusing to store a %d-byte key", len(key))
	}
	existing, err := s.Find(ctx, resourceID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.store.Put(ctx, storage.TableResourceKeys, hex.EncodeToString(resourceID), key)
}
