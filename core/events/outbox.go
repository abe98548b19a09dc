package events

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"outboxd/core/types"
)

const (
	// TypeDispatch is emitted once per accepted message.
	TypeDispatch = "outbox.dispatch"
	// TypeCheckpoint is emitted on every checkpoint call, including ones
	// that re-record an unchanged root.
	TypeCheckpoint = "outbox.checkpoint"
	// TypeValidatorManagerUpdated is emitted when the owner rotates the
	// validator-manager reference.
	TypeValidatorManagerUpdated = "outbox.validator_manager_updated"
	// TypeOwnershipTransferred is emitted on ownership transfer and on
	// renouncement (with an all-zero new owner).
	TypeOwnershipTransferred = "outbox.ownership_transferred"
)

// Dispatch records one accepted message: its content leaf, position in the
// accumulator, packed (destination, nonce) ordering key, the last checkpointed
// root at the time of dispatch, and the full wire bytes relayers ship to the
// destination chain.
type Dispatch struct {
	MessageHash         common.Hash
	LeafIndex           uint64
	DestinationAndNonce uint64
	CheckpointedRoot    common.Hash
	Message             []byte
}

func (Dispatch) EventType() string { return TypeDispatch }

func (e Dispatch) Event() *types.Event {
	return &types.Event{Type: TypeDispatch, Attributes: map[string]string{
		"messageHash":         hashHex(e.MessageHash),
		"leafIndex":           strconv.FormatUint(e.LeafIndex, 10),
		"destinationAndNonce": strconv.FormatUint(e.DestinationAndNonce, 10),
		"checkpointedRoot":    hashHex(e.CheckpointedRoot),
		"message":             "0x" + strings.ToLower(hex.EncodeToString(e.Message)),
	}}
}

// Checkpoint records a snapshot of the accumulator offered to attestors.
type Checkpoint struct {
	Root  common.Hash
	Index uint64
}

func (Checkpoint) EventType() string { return TypeCheckpoint }

func (e Checkpoint) Event() *types.Event {
	return &types.Event{Type: TypeCheckpoint, Attributes: map[string]string{
		"root":  hashHex(e.Root),
		"index": strconv.FormatUint(e.Index, 10),
	}}
}

// ValidatorManagerUpdated records a change of the fault-reporting principal.
type ValidatorManagerUpdated struct {
	Previous common.Address
	Current  common.Address
}

func (ValidatorManagerUpdated) EventType() string { return TypeValidatorManagerUpdated }

func (e ValidatorManagerUpdated) Event() *types.Event {
	return &types.Event{Type: TypeValidatorManagerUpdated, Attributes: map[string]string{
		"previous": addressHex(e.Previous),
		"current":  addressHex(e.Current),
	}}
}

// OwnershipTransferred records an ownership change. Renouncement is a
// transfer to the zero address.
type OwnershipTransferred struct {
	Previous common.Address
	Current  common.Address
}

func (OwnershipTransferred) EventType() string { return TypeOwnershipTransferred }

func (e OwnershipTransferred) Event() *types.Event {
	return &types.Event{Type: TypeOwnershipTransferred, Attributes: map[string]string{
		"previous": addressHex(e.Previous),
		"current":  addressHex(e.Current),
	}}
}

func hashHex(h common.Hash) string {
	return "0x" + strings.ToLower(hex.EncodeToString(h[:]))
}

func addressHex(a common.Address) string {
	return "0x" + strings.ToLower(hex.EncodeToString(a[:]))
}
