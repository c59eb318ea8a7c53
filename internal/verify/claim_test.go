package verify

import (
	"testing"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// provisionalKeys is the key material of one provisional identity half.
type provisionalKeys struct {
	sig *crypto.SignatureKeyPair
	enc *crypto.EncryptionKeyPair
}

func newProvisionalKeys(t *testing.T) *provisionalKeys {
	t.Helper()
	sig, err := crypto.NewSignatureKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	enc, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return &provisionalKeys{sig: sig, enc: enc}
}

// buildClaim assembles a fully signed provisional-identity-claim block
// authored by device on behalf of user.
func buildClaim(t *testing.T, device *testDevice, user *users.User, app, vault *provisionalKeys) (*block.Block, *block.ProvisionalIdentityClaim) {
	t.Helper()

	privateKeys := append(append([]byte(nil), app.enc.PrivateKey...), vault.enc.PrivateKey...)
	sealed, err := crypto.SealEncrypt(privateKeys, user.CurrentPublicKey())
	if err != nil {
		t.Fatal(err)
	}

	c := &block.ProvisionalIdentityClaim{
		UserID:                  user.UserID,
		AppPublicSignatureKey:   app.sig.PublicKey,
		VaultPublicSignatureKey: vault.sig.PublicKey,
		RecipientUserPublicKey:  user.CurrentPublicKey(),
		SealedPrivateKeys:       sealed,
	}

	signed := c.SignedData(device.id)
	if c.AuthorSignatureByAppKey, err = crypto.SignDetached(signed, app.sig.PrivateKey); err != nil {
		t.Fatal(err)
	}
	if c.AuthorSignatureByVaultKey, err = crypto.SignDetached(signed, vault.sig.PrivateKey); err != nil {
		t.Fatal(err)
	}

	payload, err := block.EncodeProvisionalIdentityClaim(c)
	if err != nil {
		t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  block.NatureProvisionalIdentityClaim,
		Author:  device.id,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), device.sigKeys.PrivateKey); err != nil {
		t.Fatal(err)
	}
	return blk, c
}

func TestProvisionalIdentityClaim_Valid(t *testing.T) {
	chain := newTestChain(t)
	userID := fillID(0xe0)
	device := chain.createDevice(nil, userID, deviceCreationOptions{})
	user := foldCreation(nil, device)

	blk, c := buildClaim(t, device, user, newProvisionalKeys(t), newProvisionalKeys(t))
	if err := ProvisionalIdentityClaim(blk, c, user); err != nil {
		t.Fatalf("claim rejected: %v", err)
	}
}

func TestProvisionalIdentityClaim_WrongUserID(t *testing.T) {
	chain := newTestChain(t)
	device := chain.createDevice(nil, fillID(0xe1), deviceCreationOptions{})
	user := foldCreation(nil, device)

	blk, c := buildClaim(t, device, user, newProvisionalKeys(t), newProvisionalKeys(t))
	c.UserID = fillID(0xe2)
	wantKind(t, ProvisionalIdentityClaim(blk, c, user), KindInvalidAuthor)
}

func TestProvisionalIdentityClaim_UnknownDevice(t *testing.T) {
	chain := newTestChain(t)
	device := chain.createDevice(nil, fillID(0xe3), deviceCreationOptions{})
	user := foldCreation(nil, device)

	blk, c := buildClaim(t, device, user, newProvisionalKeys(t), newProvisionalKeys(t))
	tampered := *blk
	tampered.Author = fillID(0xe4)
	wantKind(t, ProvisionalIdentityClaim(&tampered, c, user), KindInvalidAuthor)
}

func TestProvisionalIdentityClaim_TamperedSignatures(t *testing.T) {
	chain := newTestChain(t)
	device := chain.createDevice(nil, fillID(0xe5), deviceCreationOptions{})
	user := foldCreation(nil, device)
	blk, c := buildClaim(t, device, user, newProvisionalKeys(t), newProvisionalKeys(t))

	t.Run("block self-signature", func(t *testing.T) {
		tampered := *blk
		tampered.Signature = append([]byte(nil), blk.Signature...)
		tampered.Signature[10] ^= 0x01
		wantKind(t, ProvisionalIdentityClaim(&tampered, c, user), KindInvalidSignature)
	})

	t.Run("app-side signature", func(t *testing.T) {
		tc := *c
		tc.AuthorSignatureByAppKey = append([]byte(nil), c.AuthorSignatureByAppKey...)
		tc.AuthorSignatureByAppKey[0] ^= 0x01
		wantKind(t, ProvisionalIdentityClaim(blk, &tc, user), KindInvalidSignature)
	})

	t.Run("vault-side signature", func(t *testing.T) {
		tc := *c
		tc.AuthorSignatureByVaultKey = append([]byte(nil), c.AuthorSignatureByVaultKey...)
		tc.AuthorSignatureByVaultKey[0] ^= 0x01
		wantKind(t, ProvisionalIdentityClaim(blk, &tc, user), KindInvalidSignature)
	})
}
