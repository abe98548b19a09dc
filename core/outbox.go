package core

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"outboxd/core/events"
	"outboxd/core/merkle"
	"outboxd/core/message"
)

// MaxMessageBodyBytes bounds the body of a single dispatched message.
const MaxMessageBodyBytes = message.MaxBodyBytes

// Outbox is the append-only accumulator of outbound cross-chain messages. It
// owns the incremental merkle tree, the per-destination nonce counters, the
// checkpoint registry, the safety lifecycle, and the owner/validator-manager
// roles.
//
// Every externally visible operation runs under one mutex so dispatches,
// checkpoints, and the halt transition observe a globally consistent state.
// Do not shard this by destination domain: Root and Checkpoint need a
// consistent snapshot of the whole tree.
type Outbox struct {
	mu sync.Mutex

	localDomain uint32
	state       State

	owner            common.Address
	validatorManager common.Address

	tree   merkle.Tree
	nonces map[uint32]uint32

	checkpoints       map[common.Hash]uint64
	checkpointedRoot  common.Hash
	checkpointedIndex uint64

	emitter events.Emitter
	store   *Store
}

// NewOutbox creates an uninitialized outbox for the given local domain. The
// domain is immutable for the lifetime of the instance.
func NewOutbox(localDomain uint32) *Outbox {
	return &Outbox{
		localDomain: localDomain,
		nonces:      make(map[uint32]uint32),
		checkpoints: make(map[common.Hash]uint64),
		emitter:     events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to
// a no-op implementation.
func (o *Outbox) SetEmitter(emitter events.Emitter) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if emitter == nil {
		o.emitter = events.NoopEmitter{}
		return
	}
	o.emitter = emitter
}

// SetStore configures snapshot persistence. Once set, every mutating
// operation persists the post-state before it commits; a failed write rolls
// the operation back.
func (o *Outbox) SetStore(store *Store) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.store = store
}

// LoadFrom restores a previously persisted snapshot and adopts the store for
// subsequent writes. A missing snapshot leaves the outbox untouched; a
// snapshot recorded for a different local domain is rejected.
func (o *Outbox) LoadFrom(store *Store) error {
	snap, ok, err := store.Load()
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if ok {
		if snap.LocalDomain != o.localDomain {
			return fmt.Errorf("outbox: snapshot domain %d does not match configured domain %d", snap.LocalDomain, o.localDomain)
		}
		o.adopt(snap)
	}
	o.store = store
	return nil
}

// Initialize activates the outbox: the caller becomes the owner and the given
// address becomes the validator manager. It can succeed exactly once.
func (o *Outbox) Initialize(caller, validatorManager common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateUninitialized {
		return ErrAlreadyInitialized
	}

	o.state = StateActive
	o.owner = caller
	o.validatorManager = validatorManager
	if err := o.persist(); err != nil {
		o.state = StateUninitialized
		o.owner = common.Address{}
		o.validatorManager = common.Address{}
		return err
	}
	return nil
}

// Dispatch accepts one outbound message and returns its leaf index. The
// envelope is encoded with the configured local domain as origin and the
// caller's 32-byte identifier as sender, tagged with the next nonce for the
// destination, and its keccak leaf is appended to the accumulator. The
// emitted record carries the last checkpointed root, not the root produced by
// this insertion, so consumers can correlate the message to the most recent
// attested state.
func (o *Outbox) Dispatch(sender [32]byte, destination uint32, recipient [32]byte, body []byte) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireActive(); err != nil {
		return 0, err
	}
	if len(body) > MaxMessageBodyBytes {
		return 0, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(body))
	}

	nonce := o.nonces[destination]
	env := &message.Envelope{
		Origin:      o.localDomain,
		Sender:      sender,
		Nonce:       nonce,
		Destination: destination,
		Recipient:   recipient,
		Body:        body,
	}
	encoded := env.Encode()
	leaf := message.Leaf(encoded)

	prevTree := o.tree
	if err := o.tree.Insert(leaf); err != nil {
		return 0, err
	}
	o.nonces[destination] = nonce + 1
	if err := o.persist(); err != nil {
		o.tree = prevTree
		o.nonces[destination] = nonce
		return 0, err
	}

	leafIndex := o.tree.Count() - 1
	o.emitter.Emit(events.Dispatch{
		MessageHash:         leaf,
		LeafIndex:           leafIndex,
		DestinationAndNonce: destinationAndNonce(destination, nonce),
		CheckpointedRoot:    o.checkpointedRoot,
		Message:             encoded,
	})
	return leafIndex, nil
}

// Checkpoint snapshots the current root and leaf count, records the pair in
// the registry, and advances the latest-checkpoint pointer. Calling it twice
// with no intervening dispatch re-records the same pair and re-emits the
// event; downstream consumers rely on one event per call, so there is no
// "nothing changed" short-circuit.
func (o *Outbox) Checkpoint() (common.Hash, uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireActive(); err != nil {
		return common.Hash{}, 0, err
	}
	count := o.tree.Count()
	if count == 0 {
		return common.Hash{}, 0, ErrEmptyTree
	}

	root := o.tree.Root()
	prevIndex, hadEntry := o.checkpoints[root]
	prevRoot, prevPointerIndex := o.checkpointedRoot, o.checkpointedIndex

	o.checkpoints[root] = count
	o.checkpointedRoot = root
	o.checkpointedIndex = count
	if err := o.persist(); err != nil {
		if hadEntry {
			o.checkpoints[root] = prevIndex
		} else {
			delete(o.checkpoints, root)
		}
		o.checkpointedRoot = prevRoot
		o.checkpointedIndex = prevPointerIndex
		return common.Hash{}, 0, err
	}

	o.emitter.Emit(events.Checkpoint{Root: root, Index: count})
	return root, count, nil
}

// Fail moves the outbox into the terminal Failed state. Only the configured
// validator manager may trigger it; afterwards Dispatch and Checkpoint refuse
// all calls while reads stay available.
func (o *Outbox) Fail(caller common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireActive(); err != nil {
		return err
	}
	if caller != o.validatorManager {
		return ErrUnauthorized
	}

	o.state = StateFailed
	if err := o.persist(); err != nil {
		o.state = StateActive
		return err
	}
	return nil
}

// SetValidatorManager rotates the fault-reporting principal. Owner only.
func (o *Outbox) SetValidatorManager(caller, manager common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireOwner(caller); err != nil {
		return err
	}

	previous := o.validatorManager
	o.validatorManager = manager
	if err := o.persist(); err != nil {
		o.validatorManager = previous
		return err
	}
	o.emitter.Emit(events.ValidatorManagerUpdated{Previous: previous, Current: manager})
	return nil
}

// TransferOwnership reassigns the owner role. The zero address is refused;
// use RenounceOwnership to give up the role for good.
func (o *Outbox) TransferOwnership(caller, newOwner common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrZeroAddress
	}

	previous := o.owner
	o.owner = newOwner
	if err := o.persist(); err != nil {
		o.owner = previous
		return err
	}
	o.emitter.Emit(events.OwnershipTransferred{Previous: previous, Current: newOwner})
	return nil
}

// RenounceOwnership clears the owner to the zero address, irreversibly
// abandoning every owner-gated operation.
func (o *Outbox) RenounceOwnership(caller common.Address) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.requireOwner(caller); err != nil {
		return err
	}

	previous := o.owner
	o.owner = common.Address{}
	if err := o.persist(); err != nil {
		o.owner = previous
		return err
	}
	o.emitter.Emit(events.OwnershipTransferred{Previous: previous, Current: common.Address{}})
	return nil
}

// Root returns the current merkle root of the accumulator.
func (o *Outbox) Root() common.Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tree.Root()
}

// Count returns the number of dispatched messages.
func (o *Outbox) Count() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tree.Count()
}

// CheckpointedRoot returns the most recently checkpointed root, or the zero
// hash when no checkpoint has been taken.
func (o *Outbox) CheckpointedRoot() common.Hash {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkpointedRoot
}

// LatestCheckpoint returns the most recent (root, index) pair.
func (o *Outbox) LatestCheckpoint() (common.Hash, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkpointedRoot, o.checkpointedIndex
}

// Checkpoints looks up the leaf count recorded for a checkpointed root.
func (o *Outbox) Checkpoints(root common.Hash) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	index, ok := o.checkpoints[root]
	return index, ok
}

// Nonces returns the next nonce for a destination domain.
func (o *Outbox) Nonces(destination uint32) uint32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.nonces[destination]
}

// LocalDomain returns the immutable domain identifier of this outbox.
func (o *Outbox) LocalDomain() uint32 {
	return o.localDomain
}

// Owner returns the current owner, or the zero address after renouncement.
func (o *Outbox) Owner() common.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.owner
}

// ValidatorManager returns the principal allowed to trigger Fail.
func (o *Outbox) ValidatorManager() common.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.validatorManager
}

// State returns the lifecycle state.
func (o *Outbox) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Outbox) requireActive() error {
	switch o.state {
	case StateActive:
		return nil
	case StateUninitialized:
		return ErrNotInitialized
	default:
		return ErrHalted
	}
}

func (o *Outbox) requireOwner(caller common.Address) error {
	if o.state == StateUninitialized {
		return ErrNotInitialized
	}
	if caller == (common.Address{}) || caller != o.owner {
		return ErrUnauthorized
	}
	return nil
}

// destinationAndNonce packs a destination domain and nonce into the 64-bit
// ordering key consumers use for dedup: domain in the high 32 bits, nonce in
// the low.
func destinationAndNonce(destination uint32, nonce uint32) uint64 {
	return uint64(destination)<<32 | uint64(nonce)
}

// AddressIdentifier widens a 20-byte address into the 32-byte sender
// identifier used in message envelopes, left-padded with zeroes.
func AddressIdentifier(addr common.Address) [32]byte {
	var id [32]byte
	copy(id[12:], addr[:])
	return id
}
