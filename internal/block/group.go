package block

import "github.com/trustvault/client-go/internal/crypto"

// GroupMember is one registered-user entry of a group block: the member's
// current user public encryption key, with the group private encryption key
// sealed to it.
type GroupMember struct {
	UserPublicEncryptionKey         []byte // 32 bytes
	SealedGroupPrivateEncryptionKey []byte // 80 bytes
}

// ProvisionalGroupMember is one provisional-identity entry of a group block.
// The group private encryption key is sealed twice: first to the app-side
// provisional key, then to the vault-side one.
type ProvisionalGroupMember struct {
	AppPublicSignatureKey                []byte // 32 bytes
	VaultPublicSignatureKey              []byte // 32 bytes
	TwiceSealedGroupPrivateEncryptionKey []byte // 128 bytes
}

// UserGroupCreation creates a group: fresh signature and encryption key
// pairs, the private signature key sealed to the group encryption key, and
// the private encryption key fanned out to every initial member. v1 has no
// provisional members.
type UserGroupCreation struct {
	Version int

	PublicSignatureKey        []byte // 32 bytes, this is also the group id
	PublicEncryptionKey       []byte // 32 bytes
	SealedPrivateSignatureKey []byte // 112 bytes, sealed to the group encryption key
	Members                   []GroupMember
	ProvisionalMembers        []ProvisionalGroupMember
	SelfSignature             []byte // 64 bytes, by the group private signature key
}

// UserGroupAddition appends members to a group without rotating its keys.
// v1 has no provisional members.
type UserGroupAddition struct {
	Version int

	GroupID            []byte // 32 bytes
	PreviousGroupBlock []byte // 32 bytes, hash of the group's latest block
	Members            []GroupMember
	ProvisionalMembers []ProvisionalGroupMember
	SelfSignature      []byte // 64 bytes, by the current group private signature key
}

// UserGroupUpdate changes group membership with removal support. Removal
// forces a full rotation: new signature and encryption key pairs, fanned out
// to every remaining and newly added member and withheld from removed ones.
type UserGroupUpdate struct {
	GroupID                  []byte // 32 bytes
	PreviousGroupBlock       []byte // 32 bytes
	PreviousKeyRotationBlock []byte // 32 bytes

	PublicSignatureKey                 []byte // 32 bytes, rotated
	PublicEncryptionKey                []byte // 32 bytes, rotated
	SealedPreviousPrivateEncryptionKey []byte // 80 bytes, sealed to the new encryption key
	SealedPrivateSignatureKey          []byte // 112 bytes, sealed to the new encryption key
	Members                            []GroupMember
	ProvisionalMembers                 []ProvisionalGroupMember

	SelfSignatureWithPreviousKey []byte // 64 bytes, by the superseded signature key
	SelfSignature                []byte // 64 bytes, by the new signature key
}

func (*UserGroupCreation) recordNature() {}
func (*UserGroupAddition) recordNature() {}
func (*UserGroupUpdate) recordNature()   {}

// Nature returns the wire nature matching the record's version.
func (gc *UserGroupCreation) Nature() Nature {
	if gc.Version == 1 {
		return NatureUserGroupCreationV1
	}
	return NatureUserGroupCreationV2
}

// Nature returns the wire nature matching the record's version.
func (ga *UserGroupAddition) Nature() Nature {
	if ga.Version == 1 {
		return NatureUserGroupAdditionV1
	}
	return NatureUserGroupAdditionV2
}

// Nature returns the wire nature of a group update.
func (*UserGroupUpdate) Nature() Nature { return NatureUserGroupUpdate }

const (
	groupMemberEntrySize            = crypto.EncryptionPublicKeySize + crypto.SealedEncryptionPrivateKeySize
	provisionalGroupMemberEntrySize = 2*crypto.SignaturePublicKeySize + crypto.TwiceSealedSymmetricKeySize
)

func appendGroupMembers(nature Nature, out []byte, members []GroupMember) ([]byte, error) {
	out = appendUvarint(out, uint64(len(members)))
	for _, m := range members {
		if err := checkSize(nature, "member public encryption key", m.UserPublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if err := checkSize(nature, "sealed group private encryption key", m.SealedGroupPrivateEncryptionKey, crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, err
		}
		out = append(out, m.UserPublicEncryptionKey...)
		out = append(out, m.SealedGroupPrivateEncryptionKey...)
	}
	return out, nil
}

func appendProvisionalGroupMembers(nature Nature, out []byte, members []ProvisionalGroupMember) ([]byte, error) {
	out = appendUvarint(out, uint64(len(members)))
	for _, m := range members {
		if err := checkSize(nature, "provisional app public signature key", m.AppPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
		if err := checkSize(nature, "provisional vault public signature key", m.VaultPublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
		if err := checkSize(nature, "twice-sealed group private encryption key", m.TwiceSealedGroupPrivateEncryptionKey, crypto.TwiceSealedSymmetricKeySize); err != nil {
			return nil, err
		}
		out = append(out, m.AppPublicSignatureKey...)
		out = append(out, m.VaultPublicSignatureKey...)
		out = append(out, m.TwiceSealedGroupPrivateEncryptionKey...)
	}
	return out, nil
}

func readGroupMembers(r *reader) ([]GroupMember, error) {
	count, err := r.listCount("members", groupMemberEntrySize)
	if err != nil {
		return nil, err
	}
	members := make([]GroupMember, 0, count)
	for i := 0; i < count; i++ {
		var m GroupMember
		if m.UserPublicEncryptionKey, err = r.bytes("member public encryption key", crypto.EncryptionPublicKeySize); err != nil {
			return nil, err
		}
		if m.SealedGroupPrivateEncryptionKey, err = r.bytes("sealed group private encryption key", crypto.SealedEncryptionPrivateKeySize); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func readProvisionalGroupMembers(r *reader) ([]ProvisionalGroupMember, error) {
	count, err := r.listCount("provisional members", provisionalGroupMemberEntrySize)
	if err != nil {
		return nil, err
	}
	members := make([]ProvisionalGroupMember, 0, count)
	for i := 0; i < count; i++ {
		var m ProvisionalGroupMember
		if m.AppPublicSignatureKey, err = r.bytes("provisional app public signature key", crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
		if m.VaultPublicSignatureKey, err = r.bytes("provisional vault public signature key", crypto.SignaturePublicKeySize); err != nil {
			return nil, err
		}
		if m.TwiceSealedGroupPrivateEncryptionKey, err = r.bytes("twice-sealed group private encryption key", crypto.TwiceSealedSymmetricKeySize); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

// SignedData returns the bytes covered by the creation's self-signature:
// the full payload minus the trailing signature.
func (gc *UserGroupCreation) SignedData() ([]byte, error) {
	return gc.encodeBody()
}

func (gc *UserGroupCreation) encodeBody() ([]byte, error) {
	nature := gc.Nature()
	if err := checkSize(nature, "public signature key", gc.PublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "public encryption key", gc.PublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "sealed private signature key", gc.SealedPrivateSignatureKey, crypto.SealedSignaturePrivateKeySize); err != nil {
		return nil, err
	}

	out := append([]byte(nil), gc.PublicSignatureKey...)
	out = append(out, gc.PublicEncryptionKey...)
	out = append(out, gc.SealedPrivateSignatureKey...)
	out, err := appendGroupMembers(nature, out, gc.Members)
	if err != nil {
		return nil, err
	}
	if gc.Version >= 2 {
		if out, err = appendProvisionalGroupMembers(nature, out, gc.ProvisionalMembers); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeUserGroupCreation serializes the record in its version's wire layout.
func EncodeUserGroupCreation(gc *UserGroupCreation) ([]byte, error) {
	out, err := gc.encodeBody()
	if err != nil {
		return nil, err
	}
	if err := checkSize(gc.Nature(), "self signature", gc.SelfSignature, crypto.SignatureSize); err != nil {
		return nil, err
	}
	return append(out, gc.SelfSignature...), nil
}

// DecodeUserGroupCreation parses a group-creation payload of the version
// implied by nature.
func DecodeUserGroupCreation(nature Nature, payload []byte) (*UserGroupCreation, error) {
	var version int
	switch nature {
	case NatureUserGroupCreationV1:
		version = 1
	case NatureUserGroupCreationV2:
		version = 2
	default:
		return nil, decodeErrorf(nature, "not a group creation nature")
	}

	r := newReader(nature, payload)
	gc := &UserGroupCreation{Version: version}

	var err error
	if gc.PublicSignatureKey, err = r.bytes("public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if gc.PublicEncryptionKey, err = r.bytes("public encryption key", crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if gc.SealedPrivateSignatureKey, err = r.bytes("sealed private signature key", crypto.SealedSignaturePrivateKeySize); err != nil {
		return nil, err
	}
	if gc.Members, err = readGroupMembers(r); err != nil {
		return nil, err
	}
	if version >= 2 {
		if gc.ProvisionalMembers, err = readProvisionalGroupMembers(r); err != nil {
			return nil, err
		}
	}
	if gc.SelfSignature, err = r.bytes("self signature", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return gc, nil
}

// SignedData returns the bytes covered by the addition's self-signature.
func (ga *UserGroupAddition) SignedData() ([]byte, error) {
	return ga.encodeBody()
}

func (ga *UserGroupAddition) encodeBody() ([]byte, error) {
	nature := ga.Nature()
	if err := checkSize(nature, "group id", ga.GroupID, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "previous group block", ga.PreviousGroupBlock, crypto.HashSize); err != nil {
		return nil, err
	}

	out := append([]byte(nil), ga.GroupID...)
	out = append(out, ga.PreviousGroupBlock...)
	out, err := appendGroupMembers(nature, out, ga.Members)
	if err != nil {
		return nil, err
	}
	if ga.Version >= 2 {
		if out, err = appendProvisionalGroupMembers(nature, out, ga.ProvisionalMembers); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// EncodeUserGroupAddition serializes the record in its version's wire layout.
func EncodeUserGroupAddition(ga *UserGroupAddition) ([]byte, error) {
	out, err := ga.encodeBody()
	if err != nil {
		return nil, err
	}
	if err := checkSize(ga.Nature(), "self signature", ga.SelfSignature, crypto.SignatureSize); err != nil {
		return nil, err
	}
	return append(out, ga.SelfSignature...), nil
}

// DecodeUserGroupAddition parses a group-addition payload of the version
// implied by nature.
func DecodeUserGroupAddition(nature Nature, payload []byte) (*UserGroupAddition, error) {
	var version int
	switch nature {
	case NatureUserGroupAdditionV1:
		version = 1
	case NatureUserGroupAdditionV2:
		version = 2
	default:
		return nil, decodeErrorf(nature, "not a group addition nature")
	}

	r := newReader(nature, payload)
	ga := &UserGroupAddition{Version: version}

	var err error
	if ga.GroupID, err = r.bytes("group id", crypto.HashSize); err != nil {
		return nil, err
	}
	if ga.PreviousGroupBlock, err = r.bytes("previous group block", crypto.HashSize); err != nil {
		return nil, err
	}
	if ga.Members, err = readGroupMembers(r); err != nil {
		return nil, err
	}
	if version >= 2 {
		if ga.ProvisionalMembers, err = readProvisionalGroupMembers(r); err != nil {
			return nil, err
		}
	}
	if ga.SelfSignature, err = r.bytes("self signature", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return ga, nil
}

// SignedData returns the bytes covered by both of the update's signatures.
func (gu *UserGroupUpdate) SignedData() ([]byte, error) {
	return gu.encodeBody()
}

func (gu *UserGroupUpdate) encodeBody() ([]byte, error) {
	nature := gu.Nature()
	if err := checkSize(nature, "group id", gu.GroupID, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "previous group block", gu.PreviousGroupBlock, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "previous key rotation block", gu.PreviousKeyRotationBlock, crypto.HashSize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "public signature key", gu.PublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "public encryption key", gu.PublicEncryptionKey, crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "sealed previous private encryption key", gu.SealedPreviousPrivateEncryptionKey, crypto.SealedEncryptionPrivateKeySize); err != nil {
		return nil, err
	}
	if err := checkSize(nature, "sealed private signature key", gu.SealedPrivateSignatureKey, crypto.SealedSignaturePrivateKeySize); err != nil {
		return nil, err
	}

	out := append([]byte(nil), gu.GroupID...)
	out = append(out, gu.PreviousGroupBlock...)
	out = append(out, gu.PreviousKeyRotationBlock...)
	out = append(out, gu.PublicSignatureKey...)
	out = append(out, gu.PublicEncryptionKey...)
	out = append(out, gu.SealedPreviousPrivateEncryptionKey...)
	out = append(out, gu.SealedPrivateSignatureKey...)
	out, err := appendGroupMembers(nature, out, gu.Members)
	if err != nil {
		return nil, err
	}
	return appendProvisionalGroupMembers(nature, out, gu.ProvisionalMembers)
}

// EncodeUserGroupUpdate serializes a group-update payload.
func EncodeUserGroupUpdate(gu *UserGroupUpdate) ([]byte, error) {
	out, err := gu.encodeBody()
	if err != nil {
		return nil, err
	}
	if err := checkSize(gu.Nature(), "self signature with previous key", gu.SelfSignatureWithPreviousKey, crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := checkSize(gu.Nature(), "self signature", gu.SelfSignature, crypto.SignatureSize); err != nil {
		return nil, err
	}
	out = append(out, gu.SelfSignatureWithPreviousKey...)
	return append(out, gu.SelfSignature...), nil
}

// DecodeUserGroupUpdate parses a group-update payload.
func DecodeUserGroupUpdate(nature Nature, payload []byte) (*UserGroupUpdate, error) {
	if nature != NatureUserGroupUpdate {
		return nil, decodeErrorf(nature, "not a group update nature")
	}

	r := newReader(nature, payload)
	gu := &UserGroupUpdate{}

	var err error
	if gu.GroupID, err = r.bytes("group id", crypto.HashSize); err != nil {
		return nil, err
	}
	if gu.PreviousGroupBlock, err = r.bytes("previous group block", crypto.HashSize); err != nil {
		return nil, err
	}
	if gu.PreviousKeyRotationBlock, err = r.bytes("previous key rotation block", crypto.HashSize); err != nil {
		return nil, err
	}
	if gu.PublicSignatureKey, err = r.bytes("public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if gu.PublicEncryptionKey, err = r.bytes("public encryption key", crypto.EncryptionPublicKeySize); err != nil {
		return nil, err
	}
	if gu.SealedPreviousPrivateEncryptionKey, err = r.bytes("sealed previous private encryption key", crypto.SealedEncryptionPrivateKeySize); err != nil {
		return nil, err
	}
	if gu.SealedPrivateSignatureKey, err = r.bytes("sealed private signature key", crypto.SealedSignaturePrivateKeySize); err != nil {
		return nil, err
	}
	if gu.Members, err = readGroupMembers(r); err != nil {
		return nil, err
	}
	if gu.ProvisionalMembers, err = readProvisionalGroupMembers(r); err != nil {
		return nil, err
	}
	if gu.SelfSignatureWithPreviousKey, err = r.bytes("self signature with previous key", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if gu.SelfSignature, err = r.bytes("self signature", crypto.SignatureSize); err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return gu, nil
}
