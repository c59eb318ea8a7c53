package verify

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
	"github.com/trustvault/client-go/internal/users"
)

// ProvisionalIdentityClaim checks a claim block. user is the independently
// known claiming user; the claim's stated user id must match it, and the
// block must be signed by one of that user's devices. The two provisional
// signatures prove possession of both halves of the claimed identity.
func ProvisionalIdentityClaim(b *block.Block, c *block.ProvisionalIdentityClaim, user *users.User) error {
	if !bytes.Equal(c.UserID, user.UserID) {
		return reject(b, KindInvalidAuthor, "claimed user id does not match the claiming user")
	}

	device := user.FindDevice(b.Author)
	if device == nil {
		return reject(b, KindInvalidAuthor, "author device is not a device of the claiming user")
	}
	if !crypto.VerifyDetached(b.Hash(), b.Signature, device.PublicSignatureKey) {
		return reject(b, KindInvalidSignature, "self-signature does not verify against the claiming device key")
	}

	signed := c.SignedData(device.DeviceID)
	if !crypto.VerifyDetached(signed, c.AuthorSignatureByAppKey, c.AppPublicSignatureKey) {
		return reject(b, KindInvalidSignature, "app-side provisional signature does not verify")
	}
	if !crypto.VerifyDetached(signed, c.AuthorSignatureByVaultKey, c.VaultPublicSignatureKey) {
		return reject(b, KindInvalidSignature, "vault-side provisional signature does not verify")
	}
	return nil
}
