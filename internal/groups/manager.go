package groups

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/coalescer"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/storage"
	"github.com/trustvault/client-go/internal/users"
	"github.com/trustvault/client-go/internal/verify"
)

// Transport is the slice of the network client the manager needs.
type Transport interface {
	GetGroupHistories(ctx context.Context, groupIDs [][]byte) ([][]byte, error)
	GetGroupHistoriesByPublicKeys(ctx context.Context, publicKeys [][]byte) ([][]byte, error)
	CreateGroup(ctx context.Context, rawBlock []byte) error
	PatchGroup(ctx context.Context, rawBlock []byte) error
}

// DeviceResolver resolves a block author to its verified device state.
type DeviceResolver interface {
	DeviceByID(ctx context.Context, deviceID []byte) (*users.Device, error)
}

// Manager fetches, verifies and mutates groups. Lookups are coalesced so
// concurrent requests for the same group share one history fetch.
type Manager struct {
	transport Transport
	devices   DeviceResolver
	keys      KeyFinder
	store     storage.Store

	deviceID           []byte
	deviceSignatureKey *crypto.SignatureKeyPair

	lookups *coalescer.Coalescer[string, *Group]
}

// NewManager wires a group manager. Unsealed group keys are cached in store
// so resolved publishes do not refetch the history. deviceID and
// deviceSignatureKey identify the local device authoring mutation blocks.
func NewManager(transport Transport, devices DeviceResolver, keys KeyFinder, store storage.Store, deviceID []byte, deviceSignatureKey *crypto.SignatureKeyPair) *Manager {
	return &Manager{
		transport:          transport,
		devices:            devices,
		keys:               keys,
		store:              store,
		deviceID:           deviceID,
		deviceSignatureKey: deviceSignatureKey,
		lookups:            coalescer.New[string, *Group](),
	}
}

// persistGroupKeys caches every unsealed group key pair. First write wins: a
// group key never changes once known, so a cached value is never replaced.
func (m *Manager) persistGroupKeys(ctx context.Context, g *Group) error {
	for _, pair := range g.EncryptionKeyPairs {
		key := hex.EncodeToString(pair.PublicKey)
		_, err := m.store.Get(ctx, storage.TableGroups, key)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := m.store.Put(ctx, storage.TableGroups, key, pair.PrivateKey); err != nil {
			return err
		}
	}
	return nil
}

// GroupEncryptionKeyPair resolves a group public encryption key, current or
// superseded, to the matching unsealed key pair. The local cache answers
// first; on a miss the group history is fetched, verified and its keys
// cached.
func (m *Manager) GroupEncryptionKeyPair(ctx context.Context, publicEncryptionKey []byte) (*crypto.EncryptionKeyPair, error) {
	cached, err := m.store.Get(ctx, storage.TableGroups, hex.EncodeToString(publicEncryptionKey))
	if err == nil {
		return crypto.NewEncryptionKeyPairFromBytes(publicEncryptionKey, cached)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	resolved, err := m.GetGroupsByPublicKeys(ctx, [][]byte{publicEncryptionKey})
	if err != nil {
		return nil, err
	}
	pair := resolved[0].FindEncryptionKeyPair(publicEncryptionKey)
	if pair == nil {
		return nil, fmt.Errorf("%w: group key %x", ErrNotGroupMember, publicEncryptionKey)
	}
	return pair, nil
}

// replay folds a raw group block stream into group snapshots, verifying
// every block against its author device and the group state built so far.
// Blocks must arrive in server wire order.
func (m *Manager) replay(ctx context.Context, rawBlocks [][]byte) (map[string]*Group, error) {
	found := make(map[string]*Group)

	for _, raw := range rawBlocks {
		blk, err := block.Unmarshal(raw)
		if err != nil {
			return nil, err
		}
		record, err := block.DecodePayload(blk)
		if err != nil {
			return nil, err
		}
		authorDevice, err := m.devices.DeviceByID(ctx, blk.Author)
		if err != nil {
			return nil, err
		}

		switch r := record.(type) {
		case *block.UserGroupCreation:
			if err := verify.UserGroupCreation(blk, r, authorDevice); err != nil {
				return nil, err
			}
			g, err := ApplyUserGroupCreation(blk, r, m.keys)
			if err != nil {
				return nil, err
			}
			found[string(g.GroupID)] = g

		case *block.UserGroupAddition:
			g, ok := found[string(r.GroupID)]
			if !ok {
				return nil, fmt.Errorf("%w: addition for group %x without its creation", ErrGroupNotFound, r.GroupID[:8])
			}
			if err := verify.UserGroupAddition(blk, r, authorDevice, g.PublicSignatureKey, g.LastGroupBlock); err != nil {
				return nil, err
			}
			if found[string(r.GroupID)], err = ApplyUserGroupAddition(g, blk, r, m.keys); err != nil {
				return nil, err
			}

		case *block.UserGroupUpdate:
			g, ok := found[string(r.GroupID)]
			if !ok {
				return nil, fmt.Errorf("%w: update for group %x without its creation", ErrGroupNotFound, r.GroupID[:8])
			}
			if err := verify.UserGroupUpdate(blk, r, authorDevice, g.PublicSignatureKey, g.LastGroupBlock); err != nil {
				return nil, err
			}
			if found[string(r.GroupID)], err = ApplyUserGroupUpdate(g, blk, r, m.keys); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("groups: unexpected %s block in a group history", blk.Nature)
		}
	}
	for _, g := range found {
		if err := m.persistGroupKeys(ctx, g); err != nil {
			return nil, err
		}
	}
	return found, nil
}

// GetGroups fetches and verifies the groups for the given ids. Every id must
// resolve; a missing id fails the whole lookup with ErrGroupNotFound, and a
// group the server volunteered without being asked fails it with
// ErrUnexpectedGroup.
func (m *Manager) GetGroups(ctx context.Context, groupIDs [][]byte) ([]*Group, error) {
	fetch := func(ctx context.Context, keys []string) (map[string]*Group, error) {
		ids := make([][]byte, len(keys))
		for i, k := range keys {
			id, err := hex.DecodeString(k)
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		rawBlocks, err := m.transport.GetGroupHistories(ctx, ids)
		if err != nil {
			return nil, err
		}
		found, err := m.replay(ctx, rawBlocks)
		if err != nil {
			return nil, err
		}

		requested := make(map[string]bool, len(ids))
		for _, id := range ids {
			requested[string(id)] = true
		}
		out := make(map[string]*Group, len(found))
		for key, g := range found {
			if !requested[key] {
				return nil, fmt.Errorf("%w: got %x", ErrUnexpectedGroup, g.GroupID[:8])
			}
			out[hex.EncodeToString([]byte(key))] = g
		}
		return out, nil
	}

	keys := make([]string, len(groupIDs))
	for i, id := range groupIDs {
		keys[i] = hex.EncodeToString(id)
	}
	result, err := m.lookups.Run(ctx, keys, fetch)
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		distinct[k] = struct{}{}
	}
	if len(result) != len(distinct) {
		resolved := make(map[string]bool, len(result))
		for _, g := range result {
			resolved[hex.EncodeToString(g.GroupID)] = true
		}
		for _, k := range keys {
			if !resolved[k] {
				return nil, fmt.Errorf("%w: id %s", ErrGroupNotFound, k[:16])
			}
		}
	}
	return result, nil
}

// GetGroupsByPublicKeys fetches and verifies the groups whose key rotation
// history contains one of publicKeys, with the same returned-set validation
// as GetGroups. Matching covers superseded keys: a publish sealed before a
// rotation still names the key of its era.
func (m *Manager) GetGroupsByPublicKeys(ctx context.Context, publicKeys [][]byte) ([]*Group, error) {
	rawBlocks, err := m.transport.GetGroupHistoriesByPublicKeys(ctx, publicKeys)
	if err != nil {
		return nil, err
	}
	found, err := m.replay(ctx, rawBlocks)
	if err != nil {
		return nil, err
	}

	out := make([]*Group, 0, len(publicKeys))
	for _, key := range publicKeys {
		var match *Group
		for _, g := range found {
			if g.HasEncryptionKey(key) {
				match = g
				break
			}
		}
		if match == nil {
			return nil, fmt.Errorf("%w: public key %x", ErrGroupNotFound, key[:8])
		}
		out = append(out, match)
	}
	for _, g := range found {
		requested := false
		for _, key := range publicKeys {
			if g.HasEncryptionKey(key) {
				requested = true
				break
			}
		}
		if !requested {
			return nil, fmt.Errorf("%w: got %x", ErrUnexpectedGroup, g.GroupID[:8])
		}
	}
	return out, nil
}
