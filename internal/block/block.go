package block

import (
	"bytes"
	"encoding/binary"

	"github.com/trustvault/client-go/internal/crypto"
)

// Block is the wire unit of the ledger: one signed identity or key event.
// It is immutable once received; Nature discriminates payload decoding and
// verification rules.
type Block struct {
	Nature    Nature
	Author    []byte // 32 bytes
	Signature []byte // 64 bytes
	Payload   []byte
}

// Hash computes the block hash: BLAKE2b-256 over varint(nature) ‖ author ‖
// payload. The self-signature signs this hash.
func (b *Block) Hash() []byte {
	return crypto.HashConcat(binary.AppendUvarint(nil, uint64(b.Nature)), b.Author, b.Payload)
}

// Marshal serializes the block envelope:
//
//	varint(nature) ‖ author(32) ‖ signature(64) ‖ varint(len) ‖ payload
func (b *Block) Marshal() ([]byte, error) {
	if len(b.Author) != crypto.HashSize {
		return nil, decodeErrorf(b.Nature, "author size %d, want %d", len(b.Author), crypto.HashSize)
	}
	if len(b.Signature) != crypto.SignatureSize {
		return nil, decodeErrorf(b.Nature, "signature size %d, want %d", len(b.Signature), crypto.SignatureSize)
	}

	out := binary.AppendUvarint(nil, uint64(b.Nature))
	out = append(out, b.Author...)
	out = append(out, b.Signature...)
	out = binary.AppendUvarint(out, uint64(len(b.Payload)))
	out = append(out, b.Payload...)
	return out, nil
}

// Unmarshal parses a block envelope. The payload is not decoded; callers
// dispatch on Nature via DecodePayload.
func Unmarshal(data []byte) (*Block, error) {
	r := newReader(0, data)

	nature, err := r.varint()
	if err != nil {
		return nil, err
	}
	r.nature = Nature(nature)

	author, err := r.bytes("author", crypto.HashSize)
	if err != nil {
		return nil, err
	}
	signature, err := r.bytes("signature", crypto.SignatureSize)
	if err != nil {
		return nil, err
	}
	payloadLen, err := r.varint()
	if err != nil {
		return nil, err
	}
	payload, err := r.bytes("payload", int(payloadLen))
	if err != nil {
		return nil, err
	}
	if err := r.expectEOF(); err != nil {
		return nil, err
	}

	return &Block{
		Nature:    Nature(nature),
		Author:    author,
		Signature: signature,
		Payload:   payload,
	}, nil
}

// reader reads fixed-size fields from a wire buffer. Lengths embedded in the
// stream are never trusted beyond what the fixed layout specifies.
type reader struct {
	nature Nature
	buf    []byte
	off    int
}

func newReader(nature Nature, buf []byte) *reader {
	return &reader{nature: nature, buf: buf}
}

func (r *reader) bytes(field string, n int) ([]byte, error) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, decodeErrorf(r.nature, "truncated %s: need %d bytes, have %d", field, n, len(r.buf)-r.off)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

func (r *reader) byte(field string) (byte, error) {
	b, err := r.bytes(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) varint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, decodeErrorf(r.nature, "invalid varint at offset %d", r.off)
	}
	r.off += n
	return v, nil
}

// listCount reads a varint list count and bounds it against the remaining
// bytes, assuming each entry occupies at least entrySize bytes. A hostile
// count can therefore never trigger an oversized allocation.
func (r *reader) listCount(field string, entrySize int) (int, error) {
	v, err := r.varint()
	if err != nil {
		return 0, err
	}
	if entrySize > 0 && v > uint64(len(r.buf)-r.off)/uint64(entrySize) {
		return 0, decodeErrorf(r.nature, "%s count %d exceeds remaining payload", field, v)
	}
	return int(v), nil
}

func (r *reader) expectEOF() error {
	if r.off != len(r.buf) {
		return decodeErrorf(r.nature, "%d trailing bytes", len(r.buf)-r.off)
	}
	return nil
}

// Equal reports whether two blocks are identical.
func (b *Block) Equal(other *Block) bool {
	return b.Nature == other.Nature &&
		bytes.Equal(b.Author, other.Author) &&
		bytes.Equal(b.Signature, other.Signature) &&
		bytes.Equal(b.Payload, other.Payload)
}
