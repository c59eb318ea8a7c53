package crypto

import (
	"crypto/rand"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// randReader is the random source used for key generation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

func randSource() io.Reader {
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// SignatureKeyPair is an Ed25519 key pair used to sign and verify blocks.
type SignatureKeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// EncryptionKeyPair is a Curve25519 key pair used for sealed-box encryption.
type EncryptionKeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// NewSignatureKeyPair generates a fresh Ed25519 key pair.
func NewSignatureKeyPair() (*SignatureKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(randSource())
	if err != nil {
		return nil, err
	}
	return &SignatureKeyPair{
		PublicKey:  []byte(pub),
		PrivateKey: []byte(priv),
	}, nil
}

// SignatureKeyPairFromPrivateKey reconstructs a signature key pair from the
// private key. The public key occupies the last 32 bytes of an Ed25519
// private key.
func SignatureKeyPairFromPrivateKey(privateKey []byte) (*SignatureKeyPair, error) {
	if len(privateKey) != SignaturePrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	pub := make([]byte, SignaturePublicKeySize)
	copy(pub, privateKey[SignaturePrivateKeySize-SignaturePublicKeySize:])
	return &SignatureKeyPair{
		PublicKey:  pub,
		PrivateKey: privateKey,
	}, nil
}

// NewEncryptionKeyPair generates a fresh Curve25519 key pair.
func NewEncryptionKeyPair() (*EncryptionKeyPair, error) {
	pub, priv, err := box.GenerateKey(randSource())
	if err != nil {
		return nil, err
	}
	return &EncryptionKeyPair{
		PublicKey:  pub[:],
		PrivateKey: priv[:],
	}, nil
}

// NewEncryptionKeyPairFromBytes creates an encryption key pair from raw bytes.
func NewEncryptionKeyPairFromBytes(publicKey, privateKey []byte) (*EncryptionKeyPair, error) {
	if len(publicKey) != EncryptionPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}
	if len(privateKey) != EncryptionPrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	return &EncryptionKeyPair{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}

// EncryptionKeyPairFromPrivateKey reconstructs an encryption key pair from
// the private key alone, deriving the public half by scalar multiplication
// with the curve base point.
func EncryptionKeyPairFromPrivateKey(privateKey []byte) (*EncryptionKeyPair, error) {
	if len(privateKey) != EncryptionPrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	pub, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	return &EncryptionKeyPair{
		PublicKey:  pub,
		PrivateKey: privateKey,
	}, nil
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randSource(), b); err != nil {
		return nil, err
	}
	return b, nil
}
