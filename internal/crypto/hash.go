package crypto

import "golang.org/x/crypto/blake2b"

// GenericHash computes the 32-byte BLAKE2b hash of data.
func GenericHash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// HashConcat hashes the concatenation of the given byte slices without
// building an intermediate buffer.
func HashConcat(parts ...[]byte) []byte {
	// New256 with a nil key never fails.
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
