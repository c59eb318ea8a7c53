package verify

import (
	"testing"

	"github.com/trustvault/client-go/internal/block"
	"github.com/trustvault/client-go/internal/crypto"
)

func TestTrustchainCreation_Valid(t *testing.T) {
	chain := newTestChain(t)
	if err := TrustchainCreation(chain.rootBlock, chain.trustchainID); err != nil {
		t.Fatalf("root block rejected: %v", err)
	}
}

func TestTrustchainCreation_Rejections(t *testing.T) {
	chain := newTestChain(t)

	t.Run("wrong nature", func(t *testing.T) {
		blk := *chain.rootBlock
		blk.Nature = block.NatureDeviceCreationV3
		wantKind(t, TrustchainCreation(&blk, chain.trustchainID), KindInvalidNature)
	})

	t.Run("non-zero author", func(t *testing.T) {
		blk := *chain.rootBlock
		blk.Author = fillID(0x01)
		wantKind(t, TrustchainCreation(&blk, blk.Hash()), KindInvalidAuthorForTrustchainCreation)
	})

	t.Run("non-zero signature", func(t *testing.T) {
		blk := *chain.rootBlock
		blk.Signature = make([]byte, crypto.SignatureSize)
		blk.Signature[3] = 1
		wantKind(t, TrustchainCreation(&blk, chain.trustchainID), KindInvalidSignature)
	})

	t.Run("hash mismatch", func(t *testing.T) {
		wantKind(t, TrustchainCreation(chain.rootBlock, fillID(0x02)), KindInvalidRootBlock)
	})
}
