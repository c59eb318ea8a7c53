package verify

import (
	"bytes"

	"github.com/trustvault/client-go/internal/block"
)

// TrustchainCreation checks a root block against the externally known
// trustchain id. The root block is self-certifying: its author and signature
// are all-zero sentinels and its hash must equal the trustchain id.
func TrustchainCreation(b *block.Block, trustchainID []byte) error {
	if b.Nature != block.NatureTrustchainCreation {
		return reject(b, KindInvalidNature, "nature is not trustchain creation")
	}
	if !isZero(b.Author) {
		return reject(b, KindInvalidAuthorForTrustchainCreation, "author must be the all-zero sentinel")
	}
	if !isZero(b.Signature) {
		return reject(b, KindInvalidSignature, "signature must be all-zero")
	}
	if !bytes.Equal(b.Hash(), trustchainID) {
		return reject(b, KindInvalidRootBlock, "block hash does not match the trustchain id")
	}
	return nil
}
