package crypto

import "golang.org/x/crypto/nacl/box"

// SealEncrypt encrypts data to the recipient's Curve25519 public key using an
// anonymous sealed box. The sender needs no key material; only the recipient
// can decrypt.
func SealEncrypt(data, recipientPublicKey []byte) ([]byte, error) {
	if len(recipientPublicKey) != EncryptionPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}
	var pub [EncryptionPublicKeySize]byte
	copy(pub[:], recipientPublicKey)
	return box.SealAnonymous(nil, data, &pub, randSource())
}

// SealDecrypt opens a sealed box with the recipient key pair.
func SealDecrypt(sealed []byte, keyPair *EncryptionKeyPair) ([]byte, error) {
	if len(keyPair.PublicKey) != EncryptionPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}
	if len(keyPair.PrivateKey) != EncryptionPrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	if len(sealed) < SealOverhead {
		return nil, ErrSealedDataTooShort
	}

	var pub, priv [EncryptionPublicKeySize]byte
	copy(pub[:], keyPair.PublicKey)
	copy(priv[:], keyPair.PrivateKey)

	plaintext, ok := box.OpenAnonymous(nil, sealed, &pub, &priv)
	if !ok {
		return nil, ErrSealOpenFailed
	}
	return plaintext, nil
}
