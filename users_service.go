package trustvault

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/coalescer"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/resource"
	"github.com/trustvault/client-go/internal/users"
	"github.com/trustvault/client-go/internal/verify"
)

// userBlockSource feeds the user service raw history blocks. Ids may be user
// ids or device ids; the server resolves either to the owning user.
type userBlockSource interface {
	GetUserHistories(ctx context.Context, ids [][]byte) (rootBlock []byte, blocks [][]byte, err error)
}

// userService fetches user histories, verifies every block against the
// trustchain and folds them into user snapshots. Snapshots accumulate across
// calls; concurrent lookups of the same user share one fetch.
type userService struct {
	source       userBlockSource
	trustchainID []byte
	identity     *Identity

	mu            sync.RWMutex
	rootPublicKey []byte
	usersByID     map[string]*users.User
	deviceOwner   map[string]string
	folded        map[string]struct{}
	claimedKeys   map[string]*resource.ProvisionalKeyPair

	lookups *coalescer.Coalescer[string, *users.User]
}

// newUserService wires a user service. identity may be nil when no local
// user exists; claim blocks are then verified but never unsealed.
func newUserService(source userBlockSource, trustchainID []byte, identity *Identity) *userService {
	return &userService{
		source:       source,
		trustchainID: trustchainID,
		identity:     identity,
		usersByID:    make(map[string]*users.User),
		deviceOwner:  make(map[string]string),
		folded:       make(map[string]struct{}),
		claimedKeys:  make(map[string]*resource.ProvisionalKeyPair),
		lookups:      coalescer.New[string, *users.User](),
	}
}

// replay verifies and folds one history response. The root block always
// comes first so the trustchain's signature key is known before any
// delegation check needs it.
func (s *userService) replay(rootBlock []byte, rawBlocks [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rootPublicKey == nil {
		blk, err := block.Unmarshal(rootBlock)
		if err != nil {
			return err
		}
		if err := verify.TrustchainCreation(blk, s.trustchainID); err != nil {
			return err
		}
		record, err := block.DecodePayload(blk)
		if err != nil {
			return err
		}
		tc, ok := record.(*block.TrustchainCreation)
		if !ok {
			return fmt.Errorf("trustvault: root block is not a trustchain creation")
		}
		s.rootPublicKey = tc.PublicSignatureKey
	}

	for _, raw := range rawBlocks {
		blk, err := block.Unmarshal(raw)
		if err != nil {
			return err
		}
		// Histories overlap when users share devices in one response; a
		// block already folded must not be folded twice.
		hash := string(blk.Hash())
		if _, ok := s.folded[hash]; ok {
			continue
		}
		record, err := block.DecodePayload(blk)
		if err != nil {
			return err
		}

		switch r := record.(type) {
		case *block.DeviceCreation:
			user := s.usersByID[string(r.UserID)]
			var authorDevice *users.Device
			if user != nil && !bytes.Equal(blk.Author, s.trustchainID) {
				authorDevice = user.FindDevice(blk.Author)
			}
			if err := verify.DeviceCreation(blk, r, user, authorDevice, s.trustchainID, s.rootPublicKey); err != nil {
				return err
			}
			folded := users.ApplyDeviceCreation(user, blk, r)
			s.usersByID[string(r.UserID)] = folded
			s.deviceOwner[string(blk.Hash())] = string(r.UserID)

		case *block.DeviceRevocation:
			ownerID, ok := s.deviceOwner[string(blk.Author)]
			if !ok {
				return fmt.Errorf("%w: revocation by unknown device", ErrUserNotFound)
			}
			user := s.usersByID[ownerID]
			if err := verify.DeviceRevocation(blk, r, user); err != nil {
				return err
			}
			s.usersByID[ownerID] = users.ApplyDeviceRevocation(user, r)

		case *block.ProvisionalIdentityClaim:
			ownerID, ok := s.deviceOwner[string(blk.Author)]
			if !ok {
				return fmt.Errorf("%w: claim by unknown device", ErrUserNotFound)
			}
			if err := verify.ProvisionalIdentityClaim(blk, r, s.usersByID[ownerID]); err != nil {
				return err
			}
			if err := s.absorbClaim(r); err != nil {
				return err
			}

		default:
			return fmt.Errorf("trustvault: unexpected %s block in a user history", blk.Nature)
		}
		s.folded[hash] = struct{}{}
	}
	return nil
}

// absorbClaim unseals the provisional private keys out of a claim authored
// by the local user, so key publishes addressed to the provisional identity
// open after the claim. Claims by other users carry nothing we can open.
// Called with the state lock held.
func (s *userService) absorbClaim(r *block.ProvisionalIdentityClaim) error {
	if s.identity == nil || !bytes.Equal(r.UserID, s.identity.UserID) {
		return nil
	}
	userKey := s.identity.FindEncryptionKey(r.RecipientUserPublicKey)
	if userKey == nil {
		return nil
	}
	private, err := crypto.SealDecrypt(r.SealedPrivateKeys, userKey)
	if err != nil {
		return fmt.Errorf("trustvault: unsealing claimed provisional keys: %w", err)
	}
	appPair, err := crypto.EncryptionKeyPairFromPrivateKey(private[:crypto.EncryptionPrivateKeySize])
	if err != nil {
		return err
	}
	vaultPair, err := crypto.EncryptionKeyPairFromPrivateKey(private[crypto.EncryptionPrivateKeySize:])
	if err != nil {
		return err
	}
	s.claimedKeys[claimKey(r.AppPublicSignatureKey, r.VaultPublicSignatureKey)] = &resource.ProvisionalKeyPair{
		AppEncryptionKeyPair:   appPair,
		VaultEncryptionKeyPair: vaultPair,
	}
	return nil
}

func claimKey(appPublicSignatureKey, vaultPublicSignatureKey []byte) string {
	return string(appPublicSignatureKey) + string(vaultPublicSignatureKey)
}

// FindProvisionalKeys returns the encryption key pairs recovered from a
// claim block authored by the local user, or nil when no such claim was
// replayed.
func (s *userService) FindProvisionalKeys(appPublicSignatureKey, vaultPublicSignatureKey []byte) *resource.ProvisionalKeyPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claimedKeys[claimKey(appPublicSignatureKey, vaultPublicSignatureKey)]
}

// GetUsers resolves user ids to verified user snapshots. Every id must
// resolve or the lookup fails with ErrUserNotFound.
func (s *userService) GetUsers(ctx context.Context, userIDs [][]byte) ([]*users.User, error) {
	fetch := func(ctx context.Context, keys []string) (map[string]*users.User, error) {
		ids := make([][]byte, len(keys))
		for i, k := range keys {
			id, err := hex.DecodeString(k)
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		rootBlock, rawBlocks, err := s.source.GetUserHistories(ctx, ids)
		if err != nil {
			return nil, err
		}
		if err := s.replay(rootBlock, rawBlocks); err != nil {
			return nil, err
		}

		s.mu.RLock()
		defer s.mu.RUnlock()
		out := make(map[string]*users.User, len(ids))
		for i, id := range ids {
			if user, ok := s.usersByID[string(id)]; ok {
				out[keys[i]] = user
			}
		}
		return out, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = hex.EncodeToString(id)
	}
	result, err := s.lookups.Run(ctx, keys, fetch)
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		distinct[k] = struct{}{}
	}
	if len(result) != len(distinct) {
		resolved := make(map[string]bool, len(result))
		for _, u := range result {
			resolved[hex.EncodeToString(u.UserID)] = true
		}
		for _, k := range keys {
			if !resolved[k] {
				return nil, fmt.Errorf("%w: id %s", ErrUserNotFound, k)
			}
		}
	}
	return result, nil
}

// DeviceByID resolves a device id to its verified device state, fetching the
// owning user's history on a cache miss.
func (s *userService) DeviceByID(ctx context.Context, deviceID []byte) (*users.Device, error) {
	if d := s.cachedDevice(deviceID); d != nil {
		return d, nil
	}

	rootBlock, rawBlocks, err := s.source.GetUserHistories(ctx, [][]byte{deviceID})
	if err != nil {
		return nil, err
	}
	if err := s.replay(rootBlock, rawBlocks); err != nil {
		return nil, err
	}

	if d := s.cachedDevice(deviceID); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("%w: device %x", ErrUserNotFound, deviceID)
}

func (s *userService) cachedDevice(deviceID []byte) *users.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ownerID, ok := s.deviceOwner[string(deviceID)]
	if !ok {
		return nil
	}
	return s.usersByID[ownerID].FindDevice(deviceID)
}
