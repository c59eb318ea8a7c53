// Package groups reconstructs group state from group ledger blocks and
// builds the blocks for group mutations. A group is "internal" when one of
// the local user's keys appears in its member entries, in which case the
// group's private keys get unsealed and kept alongside the public state.
package groups

import (
	"bytes"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
)

// KeyFinder resolves a user public encryption key to the matching local key
// pair, or nil when the key is not ours. The local identity implements it
// over the user key rotation history.
type KeyFinder interface {
	FindEncryptionKey(publicKey []byte) *crypto.EncryptionKeyPair
}

// Group is the folded state of one group id. SignatureKeyPair and the
// entries of EncryptionKeyPairs are populated only for internal groups.
type Group struct {
	GroupID              []byte
	PublicSignatureKey   []byte
	PublicEncryptionKey  []byte
	LastGroupBlock       []byte
	LastKeyRotationBlock []byte

	// MemberPublicKeys and ProvisionalMemberIDs are the current membership
	// as folded from the history. A provisional member id is the app public
	// signature key followed by the vault one.
	MemberPublicKeys     [][]byte
	ProvisionalMemberIDs [][]byte

	// EncryptionKeyPairs holds every group encryption key pair the local
	// user could unseal, oldest first. Superseded pairs stay around: a key
	// publish sealed before a rotation still opens with the key of its era.
	EncryptionKeyPairs []*crypto.EncryptionKeyPair
	SignatureKeyPair   *crypto.SignatureKeyPair

	// publicEncryptionKeys is the full rotation history of public
	// encryption keys, oldest first, whether the local user is a member or
	// not. sealedSignatureKey is the latest sealed private signature key,
	// kept so a member granted access by a later addition can still unseal
	// it.
	publicEncryptionKeys [][]byte
	sealedSignatureKey   []byte
}

// Clone returns a copy safe to fold forward; key material is immutable once
// set, so the pairs themselves are shared.
func (g *Group) Clone() *Group {
	dup := *g
	dup.MemberPublicKeys = append([][]byte(nil), g.MemberPublicKeys...)
	dup.ProvisionalMemberIDs = append([][]byte(nil), g.ProvisionalMemberIDs...)
	dup.EncryptionKeyPairs = append([]*crypto.EncryptionKeyPair(nil), g.EncryptionKeyPairs...)
	dup.publicEncryptionKeys = append([][]byte(nil), g.publicEncryptionKeys...)
	return &dup
}

// Matches reports whether the group answers to the given id.
func (g *Group) Matches(groupID []byte) bool {
	return bytes.Equal(g.GroupID, groupID)
}

// CurrentEncryptionKeyPair returns the key pair for the group's current
// public encryption key, or nil when the local user cannot use the current
// key.
func (g *Group) CurrentEncryptionKeyPair() *crypto.EncryptionKeyPair {
	return g.FindEncryptionKeyPair(g.PublicEncryptionKey)
}

// FindEncryptionKeyPair returns the unsealed key pair matching publicKey,
// current or superseded, or nil.
func (g *Group) FindEncryptionKeyPair(publicKey []byte) *crypto.EncryptionKeyPair {
	for _, pair := range g.EncryptionKeyPairs {
		if bytes.Equal(pair.PublicKey, publicKey) {
			return pair
		}
	}
	return nil
}

// IsMember reports whether the local user holds the group's current
// encryption key.
func (g *Group) IsMember() bool {
	return g.CurrentEncryptionKeyPair() != nil
}

// HasEncryptionKey reports whether publicKey appears anywhere in the group's
// key rotation history.
func (g *Group) HasEncryptionKey(publicKey []byte) bool {
	for _, key := range g.publicEncryptionKeys {
		if bytes.Equal(key, publicKey) {
			return true
		}
	}
	return false
}

func (g *Group) hasMember(userPublicKey []byte) bool {
	for _, key := range g.MemberPublicKeys {
		if bytes.Equal(key, userPublicKey) {
			return true
		}
	}
	return false
}

func (g *Group) hasProvisionalMember(id []byte) bool {
	for _, known := range g.ProvisionalMemberIDs {
		if bytes.Equal(known, id) {
			return true
		}
	}
	return false
}

func (g *Group) addEncryptionKeyPair(pair *crypto.EncryptionKeyPair) {
	if g.FindEncryptionKeyPair(pair.PublicKey) == nil {
		g.EncryptionKeyPairs = append(g.EncryptionKeyPairs, pair)
	}
}

func provisionalMemberID(appPublicSignatureKey, vaultPublicSignatureKey []byte) []byte {
	id := make([]byte, 0, len(appPublicSignatureKey)+len(vaultPublicSignatureKey))
	id = append(id, appPublicSignatureKey...)
	return append(id, vaultPublicSignatureKey...)
}

func memberKeys(members []block.GroupMember) [][]byte {
	keys := make([][]byte, len(members))
	for i, m := range members {
		keys[i] = m.UserPublicEncryptionKey
	}
	return keys
}

func provisionalIDs(members []block.ProvisionalGroupMember) [][]byte {
	ids := make([][]byte, len(members))
	for i, m := range members {
		ids[i] = provisionalMemberID(m.AppPublicSignatureKey, m.VaultPublicSignatureKey)
	}
	return ids
}

// unsealMembership scans member entries for one addressed to a local user
// key and unseals the group's current private encryption key when found.
func unsealMembership(g *Group, members []block.GroupMember, keys KeyFinder) error {
	if keys == nil || g.IsMember() {
		return nil
	}
	for _, m := range members {
		kp := keys.FindEncryptionKey(m.UserPublicEncryptionKey)
		if kp == nil {
			continue
		}
		groupPrivate, err := crypto.SealDecrypt(m.SealedGroupPrivateEncryptionKey, kp)
		if err != nil {
			return fmt.Errorf("groups: unsealing group encryption key: %w", err)
		}
		encPair, err := crypto.NewEncryptionKeyPairFromBytes(g.PublicEncryptionKey, groupPrivate)
		if err != nil {
			return err
		}
		g.addEncryptionKeyPair(encPair)
		return nil
	}
	return nil
}

// unsealSignatureKey recovers the group's private signature key once the
// current encryption key is known. The sealed signature key travels on
// creation and update blocks only, so members granted access by an addition
// unseal it from the retained copy.
func unsealSignatureKey(g *Group) error {
	if g.SignatureKeyPair != nil || len(g.sealedSignatureKey) == 0 {
		return nil
	}
	encPair := g.CurrentEncryptionKeyPair()
	if encPair == nil {
		return nil
	}
	sigPrivate, err := crypto.SealDecrypt(g.sealedSignatureKey, encPair)
	if err != nil {
		return fmt.Errorf("groups: unsealing group signature key: %w", err)
	}
	sigPair, err := crypto.SignatureKeyPairFromPrivateKey(sigPrivate)
	if err != nil {
		return err
	}
	g.SignatureKeyPair = sigPair
	return nil
}

// ApplyUserGroupCreation folds a verified group-creation block into a fresh
// group. The group id is the initial public signature key.
func ApplyUserGroupCreation(b *block.Block, gc *block.UserGroupCreation, keys KeyFinder) (*Group, error) {
	g := &Group{
		GroupID:              gc.PublicSignatureKey,
		PublicSignatureKey:   gc.PublicSignatureKey,
		PublicEncryptionKey:  gc.PublicEncryptionKey,
		LastGroupBlock:       b.Hash(),
		LastKeyRotationBlock: b.Hash(),
		MemberPublicKeys:     memberKeys(gc.Members),
		ProvisionalMemberIDs: provisionalIDs(gc.ProvisionalMembers),
		publicEncryptionKeys: [][]byte{gc.PublicEncryptionKey},
		sealedSignatureKey:   gc.SealedPrivateSignatureKey,
	}
	if err := unsealMembership(g, gc.Members, keys); err != nil {
		return nil, err
	}
	if err := unsealSignatureKey(g); err != nil {
		return nil, err
	}
	return g, nil
}

// ApplyUserGroupAddition folds a verified addition. Keys do not rotate; the
// new member entries may grant the local user membership.
func ApplyUserGroupAddition(g *Group, b *block.Block, ga *block.UserGroupAddition, keys KeyFinder) (*Group, error) {
	next := g.Clone()
	next.LastGroupBlock = b.Hash()

	for _, m := range ga.Members {
		if !next.hasMember(m.UserPublicEncryptionKey) {
			next.MemberPublicKeys = append(next.MemberPublicKeys, m.UserPublicEncryptionKey)
		}
	}
	for _, m := range ga.ProvisionalMembers {
		id := provisionalMemberID(m.AppPublicSignatureKey, m.VaultPublicSignatureKey)
		if !next.hasProvisionalMember(id) {
			next.ProvisionalMemberIDs = append(next.ProvisionalMemberIDs, id)
		}
	}

	if err := unsealMembership(next, ga.Members, keys); err != nil {
		return nil, err
	}
	if err := unsealSignatureKey(next); err != nil {
		return nil, err
	}
	return next, nil
}

// ApplyUserGroupUpdate folds a verified update: both group keys rotate and
// the remaining membership is re-sealed under the new encryption key. Key
// pairs unsealed before the rotation are retained, and the update's sealed
// previous key recovers the superseded pair for members who joined through
// this very update.
func ApplyUserGroupUpdate(g *Group, b *block.Block, gu *block.UserGroupUpdate, keys KeyFinder) (*Group, error) {
	next := g.Clone()
	previousPublicKey := g.PublicEncryptionKey
	next.PublicSignatureKey = gu.PublicSignatureKey
	next.PublicEncryptionKey = gu.PublicEncryptionKey
	next.LastGroupBlock = b.Hash()
	next.LastKeyRotationBlock = b.Hash()
	next.SignatureKeyPair = nil
	next.sealedSignatureKey = gu.SealedPrivateSignatureKey
	next.publicEncryptionKeys = append(next.publicEncryptionKeys, gu.PublicEncryptionKey)
	next.MemberPublicKeys = memberKeys(gu.Members)
	next.ProvisionalMemberIDs = provisionalIDs(gu.ProvisionalMembers)

	if err := unsealMembership(next, gu.Members, keys); err != nil {
		return nil, err
	}
	newPair := next.CurrentEncryptionKeyPair()
	if newPair == nil {
		return next, nil
	}
	if err := unsealSignatureKey(next); err != nil {
		return nil, err
	}

	if next.FindEncryptionKeyPair(previousPublicKey) == nil {
		previousPrivate, err := crypto.SealDecrypt(gu.SealedPreviousPrivateEncryptionKey, newPair)
		if err != nil {
			return nil, fmt.Errorf("groups: unsealing previous group encryption key: %w", err)
		}
		previousPair, err := crypto.NewEncryptionKeyPairFromBytes(previousPublicKey, previousPrivate)
		if err != nil {
			return nil, err
		}
		// Keep the history oldest first: the recovered pair slots in just
		// before the pair this update introduced.
		n := len(next.EncryptionKeyPairs)
		pairs := make([]*crypto.EncryptionKeyPair, 0, n+1)
		pairs = append(pairs, next.EncryptionKeyPairs[:n-1]...)
		pairs = append(pairs, previousPair, next.EncryptionKeyPairs[n-1])
		next.EncryptionKeyPairs = pairs
	}
	return next, nil
}
