package block

import "github.com/trustvault/client-go/internal/crypto"

// TrustchainCreation is the root block of a ledger: it carries nothing but
// the trustchain's root public signature key. Its author and signature are
// all-zero sentinels; its hash is the trustchain id.
type TrustchainCreation struct {
	PublicSignatureKey []byte // 32 bytes
}

func (*TrustchainCreation) recordNature() {}

// Nature returns the wire nature of a trustchain creation.
func (*TrustchainCreation) Nature() Nature { return NatureTrustchainCreation }

// EncodeTrustchainCreation serializes a trustchain-creation payload.
func EncodeTrustchainCreation(tc *TrustchainCreation) ([]byte, error) {
	if err := checkSize(NatureTrustchainCreation, "public signature key", tc.PublicSignatureKey, crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	return append([]byte(nil), tc.PublicSignatureKey...), nil
}

// DecodeTrustchainCreation parses a trustchain-creation payload.
func DecodeTrustchainCreation(nature Nature, payload []byte) (*TrustchainCreation, error) {
	if nature != NatureTrustchainCreation {
		return nil, decodeErrorf(nature, "not a trustchain creation nature")
	}

	r := newReader(nature, payload)
	tc := &TrustchainCreation{}

	var err error
	if tc.PublicSignatureKey, err = r.bytes("public signature key", crypto.SignaturePublicKeySize); err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}
	return tc, nil
}
