package crypto

const (
	// HashSize is the size of a BLAKE2b generic hash in bytes.
	// Block hashes, user ids, device ids and group ids are all this size.
	HashSize = 32

	// SignaturePublicKeySize is the size of an Ed25519 public key in bytes.
	SignaturePublicKeySize = 32
	// SignaturePrivateKeySize is the size of an Ed25519 private key in bytes.
	SignaturePrivateKeySize = 64
	// SignatureSize is the size of an Ed25519 detached signature in bytes.
	SignatureSize = 64

	// EncryptionPublicKeySize is the size of a Curve25519 public key in bytes.
	EncryptionPublicKeySize = 32
	// EncryptionPrivateKeySize is the size of a Curve25519 private key in bytes.
	EncryptionPrivateKeySize = 32

	// SymmetricKeySize is the size of a resource symmetric key in bytes.
	SymmetricKeySize = 32
	// ResourceIDSize is the size of a resource identifier (a MAC) in bytes.
	ResourceIDSize = 16

	// SealOverhead is the byte overhead added by SealEncrypt: an ephemeral
	// Curve25519 public key (32) plus a Poly1305 MAC (16).
	SealOverhead = 48

	// SealedEncryptionPrivateKeySize is the size of a sealed Curve25519
	// private key.
	SealedEncryptionPrivateKeySize = EncryptionPrivateKeySize + SealOverhead
	// SealedSignaturePrivateKeySize is the size of a sealed Ed25519 private key.
	SealedSignaturePrivateKeySize = SignaturePrivateKeySize + SealOverhead
	// SealedSymmetricKeySize is the size of a sealed resource symmetric key.
	SealedSymmetricKeySize = SymmetricKeySize + SealOverhead
	// TwiceSealedSymmetricKeySize is the size of a resource symmetric key
	// sealed twice, as delivered to provisional identities.
	TwiceSealedSymmetricKeySize = SealedSymmetricKeySize + SealOverhead

	// AEADNonceSize is the size of an XSalsa20-Poly1305 nonce in bytes.
	AEADNonceSize = 24
	// AEADOverhead is the byte overhead of the symmetric AEAD: the prepended
	// nonce plus the Poly1305 MAC.
	AEADOverhead = AEADNonceSize + 16
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
var AlgsCiphersuite = "Ed25519:Curve25519-Seal:XSalsa20-Poly1305:BLAKE2b-256"
