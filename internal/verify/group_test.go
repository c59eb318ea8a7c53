package verify

import (
	"testing"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
)

// testGroup bundles a group-creation block with the group's key material.
type testGroup struct {
	blk     *block.Block
	gc      *block.UserGroupCreation
	sigKeys *crypto.SignatureKeyPair
	encKeys *crypto.EncryptionKeyPair
}

// buildGroupCreation assembles a signed v2 group-creation block authored by
// device, sharing the group keys with the given member public keys.
func buildGroupCreation(t *testing.T, device *testDevice, memberKeys ...[]byte) *testGroup {
	t.Helper()

	sigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	encKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sealedSigKey, err := crypto.SealEncrypt(sigKeys.PrivateKey, encKeys.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	gc := &block.UserGroupCreation{
		Version:                   2,
		PublicSignatureKey:        sigKeys.PublicKey,
		PublicEncryptionKey:       encKeys.PublicKey,
		SealedPrivateSignatureKey: sealedSigKey,
		ProvisionalMembers:        []block.ProvisionalGroupMember{},
	}
	for _, key := range memberKeys {
		sealed, err := crypto.SealEncrypt(encKeys.PrivateKey, key)
		if err != nil {
			t.Fatal(err)
		}
		gc.Members = append(gc.Members, block.GroupMember{
			UserPublicEncryptionKey:         key,
			SealedGroupPrivateEncryptionKey: sealed,
		})
	}

	signed, err := gc.SignedData()
	if err != nil {
		t.Fatal(err)
	}
	if gc.SelfSignature, err = crypto.SignDetached(signed, sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}

	payload, err := block.EncodeUserGroupCreation(gc)
	if err != nil {
		t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  gc.Nature(),
		Author:  device.id,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), device.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}
	return &testGroup{blk: blk, gc: gc, sigKeys: sigKeys, encKeys: encKeys}
}

// buildGroupAddition assembles a signed v2 addition appending memberKeys.
func buildGroupAddition(t *testing.T, device *testDevice, g *testGroup, lastBlock []byte, memberKeys ...[]byte) (*block.Block, *block.UserGroupAddition) {
	t.Helper()

	ga := &block.UserGroupAddition{
		Version:            2,
		GroupID:            g.sigKeys.PublicKey,
		PreviousGroupBlock: lastBlock,
		Members:            []block.GroupMember{},
		ProvisionalMembers: []block.ProvisionalGroupMember{},
	}
	for _, key := range memberKeys {
		sealed, err := crypto.SealEncrypt(g.encKeys.PrivateKey, key)
		if err != nil {
			t.Fatal(err)
		}
		ga.Members = append(ga.Members, block.GroupMember{
			UserPublicEncryptionKey:         key,
			SealedGroupPrivateEncryptionKey: sealed,
		})
	}

	signed, err := ga.SignedData()
	if err != nil {
		t.Fatal(err)
	}
	if ga.SelfSignature, err = crypto.SignDetached(signed, g.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}

	payload, err := block.EncodeUserGroupAddition(ga)
	if err != nil {
		t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  ga.Nature(),
		Author:  device.id,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), device.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}
	return blk, ga
}

// buildGroupUpdate assembles a signed update rotating both group keys.
func buildGroupUpdate(t *testing.T, device *testDevice, g *testGroup, lastBlock, lastRotation []byte, memberKeys ...[]byte) (*block.Block, *block.UserGroupUpdate, *testGroup) {
	t.Helper()

	newSigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	newEncKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	sealedPrevious, err := crypto.SealEncrypt(g.encKeys.PrivateKey, newEncKeys.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	sealedSigKey, err := crypto.SealEncrypt(newSigKeys.PrivateKey, newEncKeys.PublicKey)
	if err != nil {
		t.Fatal(err)
	}

	gu := &block.UserGroupUpdate{
		GroupID:                            g.sigKeys.PublicKey,
		PreviousGroupBlock:                 lastBlock,
		PreviousKeyRotationBlock:           lastRotation,
		PublicSignatureKey:                 newSigKeys.PublicKey,
		PublicEncryptionKey:                newEncKeys.PublicKey,
		SealedPreviousPrivateEncryptionKey: sealedPrevious,
		SealedPrivateSignatureKey:          sealedSigKey,
		Members:                            []block.GroupMember{},
		ProvisionalMembers:                 []block.ProvisionalGroupMember{},
	}
	for _, key := range memberKeys {
		sealed, err := crypto.SealEncrypt(newEncKeys.PrivateKey, key)
		if err != nil {
			t.Fatal(err)
		}
		gu.Members = append(gu.Members, block.GroupMember{
			UserPublicEncryptionKey:         key,
			SealedGroupPrivateEncryptionKey: sealed,
		})
	}

	signed, err := gu.SignedData()
	if err != nil {
		t.Fatal(err)
	}
	if gu.SelfSignatureWithPreviousKey, err = crypto.SignDetached(signed, g.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}
	if gu.SelfSignature, err = crypto.SignDetached(signed, newSigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}

	payload, err := block.EncodeUserGroupUpdate(gu)
	if err != nil {
		t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  gu.Nature(),
		Author:  device.id,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), device.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}
	rotated := &testGroup{blk: g.blk, gc: g.gc, sigKeys: newSigKeys, encKeys: newEncKeys}
	return blk, gu, rotated
}

func groupAuthor(t *testing.T) (*testChain, *testDevice) {
	t.Helper()
	chain := newTestChain(t)
	device := chain.createDevice(nil, fillID(0xf0), deviceCreationOptions{})
	return chain, device
}

func TestUserGroupCreation_Valid(t *testing.T) {
	_, device := groupAuthor(t)
	member, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	g := buildGroupCreation(t, device, member.PublicKey)
	user := foldCreation(nil, device)
	if err := UserGroupCreation(g.blk, g.gc, user.FindDevice(device.id)); err != nil {
		t.Fatalf("group creation rejected: %v", err)
	}
}

func TestUserGroupCreation_Rejections(t *testing.T) {
	_, device := groupAuthor(t)
	user := foldCreation(nil, device)
	g := buildGroupCreation(t, device)

	t.Run("unknown author", func(t *testing.T) {
		wantKind(t, UserGroupCreation(g.blk, g.gc, nil), KindInvalidAuthor)
	})

	t.Run("tampered block signature", func(t *testing.T) {
		blk := *g.blk
		blk.Signature = append([]byte(nil), g.blk.Signature...)
		blk.Signature[5] ^= 0x01
		wantKind(t, UserGroupCreation(&blk, g.gc, user.FindDevice(device.id)), KindInvalidSignature)
	})

	t.Run("tampered group self-signature", func(t *testing.T) {
		gc := *g.gc
		gc.SelfSignature = append([]byte(nil), g.gc.SelfSignature...)
		gc.SelfSignature[5] ^= 0x01
		wantKind(t, UserGroupCreation(g.blk, &gc, user.FindDevice(device.id)), KindInvalidSignature)
	})
}

func TestUserGroupAddition_Verifies(t *testing.T) {
	_, device := groupAuthor(t)
	user := foldCreation(nil, device)
	authorDevice := user.FindDevice(device.id)
	g := buildGroupCreation(t, device)

	member, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	lastBlock := g.blk.Hash()
	blk, ga := buildGroupAddition(t, device, g, lastBlock, member.PublicKey)

	if err := UserGroupAddition(blk, ga, authorDevice, g.sigKeys.PublicKey, lastBlock); err != nil {
		t.Fatalf("group addition rejected: %v", err)
	}

	t.Run("stale previous block", func(t *testing.T) {
		wantKind(t, UserGroupAddition(blk, ga, authorDevice, g.sigKeys.PublicKey, fillID(0xf1)), KindInvalidPreviousGroupBlock)
	})

	t.Run("signed with wrong group key", func(t *testing.T) {
		other, err := crypto.NewSignatureKeyPair()
		if err != nil {
			t.Fatal(err)
		}
		wantKind(t, UserGroupAddition(blk, ga, authorDevice, other.PublicKey, lastBlock), KindInvalidSignature)
	})
}

func TestUserGroupUpdate_Verifies(t *testing.T) {
	_, device := groupAuthor(t)
	user := foldCreation(nil, device)
	authorDevice := user.FindDevice(device.id)
	g := buildGroupCreation(t, device)

	remaining, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	lastBlock := g.blk.Hash()
	blk, gu, _ := buildGroupUpdate(t, device, g, lastBlock, lastBlock, remaining.PublicKey)

	if err := UserGroupUpdate(blk, gu, authorDevice, g.sigKeys.PublicKey, lastBlock); err != nil {
		t.Fatalf("group update rejected: %v", err)
	}

	t.Run("stale previous block", func(t *testing.T) {
		wantKind(t, UserGroupUpdate(blk, gu, authorDevice, g.sigKeys.PublicKey, fillID(0xf2)), KindInvalidPreviousGroupBlock)
	})

	t.Run("tampered previous-key signature", func(t *testing.T) {
		tampered := *gu
		tampered.SelfSignatureWithPreviousKey = append([]byte(nil), gu.SelfSignatureWithPreviousKey...)
		tampered.SelfSignatureWithPreviousKey[1] ^= 0x01
		wantKind(t, UserGroupUpdate(blk, &tampered, authorDevice, g.sigKeys.PublicKey, lastBlock), KindInvalidSignature)
	})

	t.Run("tampered new-key signature", func(t *testing.T) {
		tampered := *gu
		tampered.SelfSignature = append([]byte(nil), gu.SelfSignature...)
		tampered.SelfSignature[1] ^= 0x01
		wantKind(t, UserGroupUpdate(blk, &tampered, authorDevice, g.sigKeys.PublicKey, lastBlock), KindInvalidSignature)
	})
}
