package crypto

import "errors"

var (
	// ErrInvalidPublicKeySize is returned when a public key size is invalid.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidPrivateKeySize is returned when a private key size is invalid.
	ErrInvalidPrivateKeySize = errors.New("invalid private key size")

	// ErrInvalidSignatureSize is returned when a signature size is invalid.
	ErrInvalidSignatureSize = errors.New("invalid signature size")

	// ErrInvalidKeySize is returned when a symmetric key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrSealedDataTooShort is returned when sealed data is shorter than the
	// seal overhead.
	ErrSealedDataTooShort = errors.New("sealed data too short")

	// ErrSealOpenFailed is returned when seal decryption fails.
	ErrSealOpenFailed = errors.New("seal decryption failed")

	// ErrCiphertextTooShort is returned when an AEAD ciphertext is shorter
	// than the AEAD overhead.
	ErrCiphertextTooShort = errors.New("ciphertext too short")

	// ErrDecryptionFailed is returned when AEAD decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")
)
