package crypto

import "github.com/cloudflare/circl/sign/ed25519"

// SignDetached signs message with the given Ed25519 private key and returns
// the detached 64-byte signature.
func SignDetached(message, privateKey []byte) ([]byte, error) {
	if len(privateKey) != SignaturePrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey), message), nil
}

// VerifyDetached reports whether signature is a valid Ed25519 signature of
// message under publicKey. Malformed keys or signatures report false rather
// than an error: a wrong size can only come from a forged or corrupted block.
func VerifyDetached(message, signature, publicKey []byte) bool {
	if len(publicKey) != SignaturePublicKeySize || len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}
