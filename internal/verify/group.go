package verify

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// UserGroupCreation checks a group-creation block: the block self-signature
// against the author device, and the payload self-signature against the
// group's own new signature key.
func UserGroupCreation(b *block.Block, gc *block.UserGroupCreation, authorDevice *users.Device) error {
	if authorDevice == nil {
		return reject(b, KindInvalidAuthor, "author device unknown")
	}
	if authorDevice.Revoked {
		return reject(b, KindRevokedAuthor, "author device is revoked")
	}
	if !crypto.VerifyDetached(b.Hash(), b.Signature, authorDevice.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the author device key")
	}

	signed, err := gc.SignedData()
	if err != nil {
		return err
	}
	if !crypto.VerifyDetached(signed, gc.SelfSignature, gc.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "group self-signature does not verify against the group key")
	}
	return nil
}

// UserGroupAddition checks a group-addition block against the group's
// current signature key and last block hash.
func UserGroupAddition(b *block.Block, ga *block.UserGroupAddition, authorDevice *users.Device, groupPublicSignatureKey, lastGroupBlock []byte) error {
	if authorDevice == nil {
		return reject(b, KindInvalidAuthor, "author device unknown")
	}
	if authorDevice.Revoked {
		return reject(b, KindRevokedAuthor, "author device is revoked")
	}
	if !crypto.VerifyDetached(b.Hash(), b.Signature, authorDevice.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the author device key")
	}
	if !bytes.Equal(ga.PreviousGroupBlock, lastGroupBlock) {
		return reject(b, KindInvalidPreviousGroupBlock, "previous group block does not match the group's last block")
	}

	signed, err := ga.SignedData()
	if err != nil {
		return err
	}
	if !crypto.VerifyDetached(signed, ga.SelfSignature, groupPublicSignatureKey) {
		return reject(b, KindInvalidSignature, "group self-signature does not verify against the current group key")
	}
	return nil
}

// UserGroupUpdate checks a group-update block. Rotation is mandatory: the
// update is signed both by the superseded group key (proving continuity) and
// by the new one (proving possession).
func UserGroupUpdate(b *block.Block, gu *block.UserGroupUpdate, authorDevice *users.Device, groupPublicSignatureKey, lastGroupBlock []byte) error {
	if authorDevice == nil {
		return reject(b, KindInvalidAuthor, "author device unknown")
	}
	if authorDevice.Revoked {
		return reject(b, KindRevokedAuthor, "author device is revoked")
	}
	if !crypto.VerifyDetached(b.Hash(), b.Signature, authorDevice.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the author device key")
	}
	if !bytes.Equal(gu.PreviousGroupBlock, lastGroupBlock) {
		return reject(b, KindInvalidPreviousGroupBlock, "previous group block does not match the group's last block")
	}

	signed, err := gu.SignedData()
	if err != nil {
		return err
	}
	if !crypto.VerifyDetached(signed, gu.SelfSignatureWithPreviousKey, groupPublicSignatureKey) {
		return reject(b, KindInvalidSignature, "group self-signature does not verify against the superseded group key")
	}
	if !crypto.VerifyDetached(signed, gu.SelfSignature, gu.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "group self-signature does not verify against the rotated group key")
	}
	return nil
}
