package message

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxBodyBytes bounds the variable-length body of a single message.
	MaxBodyBytes = 2048

	// prologueBytes is the size of the fixed-width fields preceding the
	// body: origin (4) + sender (32) + nonce (4) + destination (4) +
	// recipient (32).
	prologueBytes = 4 + 32 + 4 + 32 + 4
)

var (
	// ErrBodyTooLarge is returned when a body exceeds MaxBodyBytes.
	ErrBodyTooLarge = errors.New("message: body exceeds maximum size")

	// ErrTruncated is returned when Decode is handed fewer bytes than the
	// fixed prologue occupies.
	ErrTruncated = errors.New("message: truncated envelope")
)

// Envelope is one cross-chain message. Its serialized form is a wire
// contract: destination chains recompute leaves from these exact bytes, so
// the layout is a fixed-order concatenation with big-endian integers, no
// length prefixes, and the body occupying the remainder.
type Envelope struct {
	Origin      uint32
	Sender      [32]byte
	Nonce       uint32
	Destination uint32
	Recipient   [32]byte
	Body        []byte
}

// Encode serializes the envelope into its canonical wire form.
func (e *Envelope) Encode() []byte {
	buf := make([]byte, 0, prologueBytes+len(e.Body))
	var u32 [4]byte

	binary.BigEndian.PutUint32(u32[:], e.Origin)
	buf = append(buf, u32[:]...)
	buf = append(buf, e.Sender[:]...)
	binary.BigEndian.PutUint32(u32[:], e.Nonce)
	buf = append(buf, u32[:]...)
	binary.BigEndian.PutUint32(u32[:], e.Destination)
	buf = append(buf, u32[:]...)
	buf = append(buf, e.Recipient[:]...)
	buf = append(buf, e.Body...)
	return buf
}

// Leaf returns the content leaf of the envelope, the keccak-256 digest of its
// wire form. This is the value inserted into the outbox accumulator.
func (e *Envelope) Leaf() common.Hash {
	return Leaf(e.Encode())
}

// Leaf hashes already-encoded message bytes into their content leaf.
func Leaf(encoded []byte) common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(encoded))
}

// Decode parses wire bytes back into an envelope. The body slice is copied so
// the envelope does not alias the input.
func Decode(encoded []byte) (*Envelope, error) {
	if len(encoded) < prologueBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(encoded))
	}
	e := &Envelope{}
	e.Origin = binary.BigEndian.Uint32(encoded[0:4])
	copy(e.Sender[:], encoded[4:36])
	e.Nonce = binary.BigEndian.Uint32(encoded[36:40])
	e.Destination = binary.BigEndian.Uint32(encoded[40:44])
	copy(e.Recipient[:], encoded[44:76])
	body := encoded[76:]
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	e.Body = append([]byte(nil), body...)
	return e, nil
}
