package crypto

import (
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// EncryptAEAD encrypts plaintext with the 32-byte symmetric key using
// XSalsa20-Poly1305. The random 24-byte nonce is prepended to the ciphertext.
func EncryptAEAD(key, plaintext []byte) ([]byte, error) {
	if len(key) != SymmetricKeySize {
		return nil, ErrInvalidKeySize
	}

	var nonce [AEADNonceSize]byte
	if _, err := io.ReadFull(randSource(), nonce[:]); err != nil {
		return nil, err
	}

	var k [SymmetricKeySize]byte
	copy(k[:], key)

	out := make([]byte, AEADNonceSize, AEADNonceSize+len(plaintext)+secretbox.Overhead)
	copy(out, nonce[:])
	return secretbox.Seal(out, plaintext, &nonce, &k), nil
}

// DecryptAEAD decrypts a ciphertext produced by EncryptAEAD.
func DecryptAEAD(key, ciphertext []byte) ([]byte, error) {
	if len(key) != SymmetricKeySize {
		return nil, ErrInvalidKeySize
	}
	if len(ciphertext) < AEADOverhead {
		return nil, ErrCiphertextTooShort
	}

	var nonce [AEADNonceSize]byte
	copy(nonce[:], ciphertext[:AEADNonceSize])

	var k [SymmetricKeySize]byte
	copy(k[:], key)

	plaintext, ok := secretbox.Open(nil, ciphertext[AEADNonceSize:], &nonce, &k)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
