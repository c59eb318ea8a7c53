package verify

import (
	"testing"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// testChain builds real, fully signed ledgers for verification tests.
type testChain struct {
	t            *testing.T
	trustchainID []byte
	rootKeys     *crypto.SignatureKeyPair
	rootBlock    *block.Block
}

// testDevice bundles a device-creation block with the private key material
// needed to author further blocks from that device.
type testDevice struct {
	id      []byte
	blk     *block.Block
	dc      *block.DeviceCreation
	sigKeys *crypto.SignatureKeyPair
	encKeys *crypto.EncryptionKeyPair
	ephKeys *crypto.SignatureKeyPair
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()
	rootKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	payload, err := block.EncodeTrustchainCreation(&block.TrustchainCreation{
		PublicSignatureKey: rootKeys.PublicKey,
	})
	if err != nil {
		t.Fatal(err)
	}
	rootBlock := &block.Block{
		Nature:    block.NatureTrustchainCreation,
		Author:    make([]byte, crypto.HashSize),
		Signature: make([]byte, crypto.SignatureSize),
		Payload:   payload,
	}
	return &testChain{
		t:            t,
		trustchainID: rootBlock.Hash(),
		rootKeys:     rootKeys,
		rootBlock:    rootBlock,
	}
}

// deviceCreationOptions tweaks the generated block for failure-path tests.
type deviceCreationOptions struct {
	version     int
	userKeys    *crypto.EncryptionKeyPair // user key pair carried by v3 blocks
	ghost       bool
	lastReset   []byte
	claimUserID []byte // overrides the user id written into the payload
}

// createDevice builds a device-creation block. A nil author means the block
// is delegated by the trustchain root key and authored by the trustchain id;
// otherwise the given device delegates and authors it.
func (c *testChain) createDevice(author *testDevice, userID []byte, opts deviceCreationOptions) *testDevice {
	c.t.Helper()

	if opts.version == 0 {
		opts.version = 3
	}
	sigKeys, err := crypto.NewSignatureKeyPair()
	if err != nil {
		c.t.Fatal(err)
	}
	encKeys, err := crypto.NewEncryptionKeyPair()
	if err != nil {
		c.t.Fatal(err)
	}
	ephemeral, err := crypto.NewSignatureKeyPair()
	if err != nil {
		c.t.Fatal(err)
	}

	payloadUserID := userID
	if opts.claimUserID != nil {
		payloadUserID = opts.claimUserID
	}

	dc := &block.DeviceCreation{
		Version:                     opts.version,
		LastReset:                   make([]byte, crypto.HashSize),
		EphemeralPublicSignatureKey: ephemeral.PublicKey,
		UserID:                      payloadUserID,
		PublicSignatureKey:          sigKeys.PublicKey,
		PublicEncryptionKey:         encKeys.PublicKey,
		IsGhostDevice:               opts.ghost,
	}
	if opts.lastReset != nil {
		dc.LastReset = opts.lastReset
	}
	if opts.version == 3 {
		userKeys := opts.userKeys
		if userKeys == nil {
			if userKeys, err = crypto.NewEncryptionKeyPair(); err != nil {
				c.t.Fatal(err)
			}
		}
		sealed, err := crypto.SealEncrypt(userKeys.PrivateKey, encKeys.PublicKey)
		if err != nil {
			c.t.Fatal(err)
		}
		dc.UserKeyPair = &block.UserKeyPair{
			PublicEncryptionKey:        userKeys.PublicKey,
			SealedPrivateEncryptionKey: sealed,
		}
	}

	delegationKey := c.rootKeys.PrivateKey
	blockAuthor := c.trustchainID
	if author != nil {
		delegationKey = author.sigKeys.PrivateKey
		blockAuthor = author.id
	}
	dc.DelegationSignature, err = crypto.SignDetached(DelegationSignedData(dc), delegationKey)
	if err != nil {
		c.t.Fatal(err)
	}

	payload, err := block.EncodeDeviceCreation(dc)
	if err != nil {
		c.t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  dc.Nature(),
		Author:  blockAuthor,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), ephemeral.PrivateKey); err != nil {
		c.t.Fatal(err)
	}

	return &testDevice{
		id:      blk.Hash(),
		blk:     blk,
		dc:      dc,
		sigKeys: sigKeys,
		encKeys: encKeys,
		ephKeys: ephemeral,
	}
}

// revocationOptions tweaks the generated revocation for failure-path tests.
type revocationOptions struct {
	version     int
	previousKey []byte                      // overrides previous_public_encryption_key
	recipients  []block.EncryptedPrivateKey // overrides the private-keys fan-out
}

// revokeDevice builds a device-revocation block authored by author targeting
// targetID, rotating the user key for every device of user that stays active.
func (c *testChain) revokeDevice(author *testDevice, targetID []byte, user *users.User, opts revocationOptions) (*block.Block, *block.DeviceRevocation) {
	c.t.Helper()

	if opts.version == 0 {
		opts.version = 2
	}
	dr := &block.DeviceRevocation{Version: opts.version, DeviceID: targetID}

	if opts.version == 2 {
		newKeys, err := crypto.NewEncryptionKeyPair()
		if err != nil {
			c.t.Fatal(err)
		}
		previous := user.CurrentPublicKey()
		if opts.previousKey != nil {
			previous = opts.previousKey
		}
		sealedPrevious, err := crypto.SealEncrypt(make([]byte, crypto.EncryptionPrivateKeySize), newKeys.PublicKey)
		if err != nil {
			c.t.Fatal(err)
		}

		privateKeys := opts.recipients
		if privateKeys == nil {
			for _, d := range user.Devices {
				if d.Revoked || string(d.DeviceID) == string(targetID) {
					continue
				}
				sealed, err := crypto.SealEncrypt(newKeys.PrivateKey, d.PublicEncryptionKey)
				if err != nil {
					c.t.Fatal(err)
				}
				privateKeys = append(privateKeys, block.EncryptedPrivateKey{
					RecipientDeviceID: d.DeviceID,
					SealedKey:         sealed,
				})
			}
		}

		dr.UserKeys = &block.RevocationUserKeys{
			PublicEncryptionKey:                newKeys.PublicKey,
			PreviousPublicEncryptionKey:        previous,
			SealedPreviousPrivateEncryptionKey: sealedPrevious,
			PrivateKeys:                        privateKeys,
		}
	}

	payload, err := block.EncodeDeviceRevocation(dr)
	if err != nil {
		c.t.Fatal(err)
	}
	blk := &block.Block{
		Nature:  dr.Nature(),
		Author:  author.id,
		Payload: payload,
	}
	if blk.Signature, err = crypto.SignDetached(blk.Hash(), author.sigKeys.PrivateKey); err != nil {
		c.t.Fatal(err)
	}
	return blk, dr
}

// foldCreation applies a device-creation block to the user snapshot.
func foldCreation(user *users.User, d *testDevice) *users.User {
	return users.ApplyDeviceCreation(user, d.blk, d.dc)
}

// wantKind asserts that err is a verification failure of the given kind.
func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("verification accepted, want rejection with kind %q", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("rejection kind = %q, want %q (err: %v)", got, kind, err)
	}
}
