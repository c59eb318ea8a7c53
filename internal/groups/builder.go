package groups

import (
	"context"
	"fmt"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
)

// ProvisionalMember identifies a not-yet-registered member by its two
// provisional key halves.
type ProvisionalMember struct {
	AppPublicSignatureKey    []byte
	VaultPublicSignatureKey  []byte
	AppPublicEncryptionKey   []byte
	VaultPublicEncryptionKey []byte
}

// sealToMembers seals the group's private encryption key to each member's
// user public key.
func sealToMembers(groupPrivateKey []byte, memberPublicKeys [][]byte) ([]block.GroupMember, error) {
	members := make([]block.GroupMember, 0, len(memberPublicKeys))
	for _, key := range memberPublicKeys {
		sealed, err := crypto.SealEncrypt(groupPrivateKey, key)
		if err != nil {
			return nil, fmt.Errorf("groups: sealing to member: %w", err)
		}
		members = append(members, block.GroupMember{
			UserPublicEncryptionKey:         key,
			SealedGroupPrivateEncryptionKey: sealed,
		})
	}
	return members, nil
}

// sealToProvisionalMembers double-seals the group's private encryption key:
// first to the app-side provisional key, then to the vault-side one, so both
// halves must be claimed before the key opens.
func sealToProvisionalMembers(groupPrivateKey []byte, provisional []ProvisionalMember) ([]block.ProvisionalGroupMember, error) {
	members := make([]block.ProvisionalGroupMember, 0, len(provisional))
	for _, p := range provisional {
		once, err := crypto.SealEncrypt(groupPrivateKey, p.AppPublicEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("groups: sealing to provisional member: %w", err)
		}
		twice, err := crypto.SealEncrypt(once, p.VaultPublicEncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("groups: sealing to provisional member: %w", err)
		}
		members = append(members, block.ProvisionalGroupMember{
			AppPublicSignatureKey:                p.AppPublicSignatureKey,
			VaultPublicSignatureKey:              p.VaultPublicSignatureKey,
			TwiceSealedGroupPrivateEncryptionKey: twice,
		})
	}
	return members, nil
}

// signAndMarshal signs the block with the local device key and serializes it.
func (m *Manager) signAndMarshal(blk *block.Block) ([]byte, error) {
	sig, err := crypto.SignDetached(blk.Hash(), m.deviceSignatureKey.PrivateKey)
	if err != nil {
		return nil, err
	}
	blk.Signature = sig
	return blk.Marshal()
}

// Create builds, signs and pushes a group-creation block sharing the new
// group's keys with the given members. It returns the internal group state,
// private keys included, since the caller created the group.
func (m *Manager) Create(ctx context.Context, memberPublicKeys [][]byte, provisional []ProvisionalMember) (*Group, error) {
	if len(memberPublicKeys)+len(provisional) == 0 {
		return nil, ErrNoMembers
	}

	sigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		return nil, err
	}
	encKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		return nil, err
	}
	sealedSigKey, err := crypto.SealEncrypt(sigKeys.PrivateKey, encKeys.PublicKey)
	if err != nil {
		return nil, err
	}

	gc := &block.UserGroupCreation{
		Version:                   2,
		PublicSignatureKey:        sigKeys.PublicKey,
		PublicEncryptionKey:       encKeys.PublicKey,
		SealedPrivateSignatureKey: sealedSigKey,
	}
	if gc.Members, err = sealToMembers(encKeys.PrivateKey, memberPublicKeys); err != nil {
		return nil, err
	}
	if gc.ProvisionalMembers, err = sealToProvisionalMembers(encKeys.PrivateKey, provisional); err != nil {
		return nil, err
	}

	signed, err := gc.SignedData()
	if err != nil {
		return nil, err
	}
	if gc.SelfSignature, err = crypto.SignDetached(signed, sigKeys.PrivateKey); err != nil {
		return nil, err
	}

	payload, err := block.EncodeUserGroupCreation(gc)
	if err != nil {
		return nil, err
	}
	blk := &block.Block{Nature: gc.Nature(), Author: m.deviceID, Payload: payload}
	raw, err := m.signAndMarshal(blk)
	if err != nil {
		return nil, err
	}
	if err := m.transport.CreateGroup(ctx, raw); err != nil {
		return nil, err
	}

	g := &Group{
		GroupID:              sigKeys.PublicKey,
		PublicSignatureKey:   sigKeys.PublicKey,
		PublicEncryptionKey:  encKeys.PublicKey,
		LastGroupBlock:       blk.Hash(),
		LastKeyRotationBlock: blk.Hash(),
		MemberPublicKeys:     memberKeys(gc.Members),
		ProvisionalMemberIDs: provisionalIDs(gc.ProvisionalMembers),
		SignatureKeyPair:     sigKeys,
		EncryptionKeyPairs:   []*crypto.EncryptionKeyPair{encKeys},
		publicEncryptionKeys: [][]byte{encKeys.PublicKey},
		sealedSignatureKey:   sealedSigKey,
	}
	if err := m.persistGroupKeys(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// AddMembers builds, signs and pushes an addition granting the given members
// access to the group's current key. The local user must hold the group's
// private keys.
func (m *Manager) AddMembers(ctx context.Context, groupID []byte, memberPublicKeys [][]byte, provisional []ProvisionalMember) (*Group, error) {
	if len(memberPublicKeys)+len(provisional) == 0 {
		return nil, ErrNoMembers
	}
	g, err := m.internalGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, key := range memberPublicKeys {
		if g.hasMember(key) {
			return nil, fmt.Errorf("%w: user key %x", ErrMemberAlreadyPresent, key)
		}
	}
	for _, p := range provisional {
		if g.hasProvisionalMember(provisionalMemberID(p.AppPublicSignatureKey, p.VaultPublicSignatureKey)) {
			return nil, fmt.Errorf("%w: provisional identity %x", ErrMemberAlreadyPresent, p.AppPublicSignatureKey)
		}
	}
	groupKeys := g.CurrentEncryptionKeyPair()

	ga := &block.UserGroupAddition{
		Version:            2,
		GroupID:            g.GroupID,
		PreviousGroupBlock: g.LastGroupBlock,
	}
	if ga.Members, err = sealToMembers(groupKeys.PrivateKey, memberPublicKeys); err != nil {
		return nil, err
	}
	if ga.ProvisionalMembers, err = sealToProvisionalMembers(groupKeys.PrivateKey, provisional); err != nil {
		return nil, err
	}

	signed, err := ga.SignedData()
	if err != nil {
		return nil, err
	}
	if ga.SelfSignature, err = crypto.SignDetached(signed, g.SignatureKeyPair.PrivateKey); err != nil {
		return nil, err
	}

	payload, err := block.EncodeUserGroupAddition(ga)
	if err != nil {
		return nil, err
	}
	blk := &block.Block{Nature: ga.Nature(), Author: m.deviceID, Payload: payload}
	raw, err := m.signAndMarshal(blk)
	if err != nil {
		return nil, err
	}
	if err := m.transport.PatchGroup(ctx, raw); err != nil {
		return nil, err
	}

	next := g.Clone()
	next.LastGroupBlock = blk.Hash()
	next.MemberPublicKeys = append(next.MemberPublicKeys, memberPublicKeys...)
	next.ProvisionalMemberIDs = append(next.ProvisionalMemberIDs, provisionalIDs(ga.ProvisionalMembers)...)
	return next, nil
}

// UpdateMembers builds, signs and pushes an update that rotates both group
// keys and re-seals them to exactly the remaining members. Members left off
// the list lose access to everything encrypted under the new key.
func (m *Manager) UpdateMembers(ctx context.Context, groupID []byte, remainingPublicKeys [][]byte, provisional []ProvisionalMember) (*Group, error) {
	if len(remainingPublicKeys)+len(provisional) == 0 {
		return nil, ErrNoMembers
	}
	g, err := m.internalGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, key := range remainingPublicKeys {
		if !g.hasMember(key) {
			return nil, fmt.Errorf("%w: user key %x", ErrUnknownMember, key)
		}
	}
	for _, p := range provisional {
		if !g.hasProvisionalMember(provisionalMemberID(p.AppPublicSignatureKey, p.VaultPublicSignatureKey)) {
			return nil, fmt.Errorf("%w: provisional identity %x", ErrUnknownMember, p.AppPublicSignatureKey)
		}
	}

	newSigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		return nil, err
	}
	newEncKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		return nil, err
	}
	sealedPrevious, err := crypto.SealEncrypt(g.CurrentEncryptionKeyPair().PrivateKey, newEncKeys.PublicKey)
	if err != nil {
		return nil, err
	}
	sealedSigKey, err := crypto.SealEncrypt(newSigKeys.PrivateKey, newEncKeys.PublicKey)
	if err != nil {
		return nil, err
	}

	gu := &block.UserGroupUpdate{
		GroupID:                            g.GroupID,
		PreviousGroupBlock:                 g.LastGroupBlock,
		PreviousKeyRotationBlock:           g.LastKeyRotationBlock,
		PublicSignatureKey:                 newSigKeys.PublicKey,
		PublicEncryptionKey:                newEncKeys.PublicKey,
		SealedPreviousPrivateEncryptionKey: sealedPrevious,
		SealedPrivateSignatureKey:          sealedSigKey,
	}
	if gu.Members, err = sealToMembers(newEncKeys.PrivateKey, remainingPublicKeys); err != nil {
		return nil, err
	}
	if gu.ProvisionalMembers, err = sealToProvisionalMembers(newEncKeys.PrivateKey, provisional); err != nil {
		return nil, err
	}

	signed, err := gu.SignedData()
	if err != nil {
		return nil, err
	}
	if gu.SelfSignatureWithPreviousKey, err = crypto.SignDetached(signed, g.SignatureKeyPair.PrivateKey); err != nil {
		return nil, err
	}
	if gu.SelfSignature, err = crypto.SignDetached(signed, newSigKeys.PrivateKey); err != nil {
		return nil, err
	}

	payload, err := block.EncodeUserGroupUpdate(gu)
	if err != nil {
		return nil, err
	}
	blk := &block.Block{Nature: gu.Nature(), Author: m.deviceID, Payload: payload}
	raw, err := m.signAndMarshal(blk)
	if err != nil {
		return nil, err
	}
	if err := m.transport.PatchGroup(ctx, raw); err != nil {
		return nil, err
	}

	next := g.Clone()
	next.PublicSignatureKey = newSigKeys.PublicKey
	next.PublicEncryptionKey = newEncKeys.PublicKey
	next.LastGroupBlock = blk.Hash()
	next.LastKeyRotationBlock = blk.Hash()
	next.MemberPublicKeys = append([][]byte(nil), remainingPublicKeys...)
	next.ProvisionalMemberIDs = provisionalIDs(gu.ProvisionalMembers)
	next.SignatureKeyPair = newSigKeys
	next.sealedSignatureKey = sealedSigKey
	next.addEncryptionKeyPair(newEncKeys)
	next.publicEncryptionKeys = append(next.publicEncryptionKeys, newEncKeys.PublicKey)
	if err := m.persistGroupKeys(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// internalGroup fetches the group and insists on membership.
func (m *Manager) internalGroup(ctx context.Context, groupID []byte) (*Group, error) {
	found, err := m.GetGroups(ctx, [][]byte{groupID})
	if err != nil {
		return nil, err
	}
	g := found[0]
	if g.SignatureKeyPair == nil || g.CurrentEncryptionKeyPair() == nil {
		return nil, fmt.Errorf("%w: group %x", ErrNotGroupMember, groupID[:8])
	}
	return g, nil
}
