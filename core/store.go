package core

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"outboxd/core/merkle"
	"outboxd/storage"
)

var snapshotKey = []byte("outbox/snapshot")

// Store persists the outbox aggregate as a single RLP snapshot so a restarted
// process resumes with the same tree, nonces, and checkpoint registry.
type Store struct {
	db storage.Database
}

// NewStore creates an outbox store backed by the provided database.
func NewStore(db storage.Database) *Store {
	return &Store{db: db}
}

// Snapshot is the persisted shape of the outbox state. Map-backed fields are
// flattened into slices with deterministic ordering so the encoding is stable
// across runs.
type Snapshot struct {
	State             uint8
	LocalDomain       uint32
	Owner             common.Address
	ValidatorManager  common.Address
	Branch            []common.Hash
	Count             uint64
	Nonces            []NonceRecord
	Checkpoints       []CheckpointRecord
	CheckpointedRoot  common.Hash
	CheckpointedIndex uint64
}

// NonceRecord is one (destination domain, next nonce) pair.
type NonceRecord struct {
	Domain uint32
	Nonce  uint32
}

// CheckpointRecord is one entry of the root registry.
type CheckpointRecord struct {
	Root  common.Hash
	Index uint64
}

// Save writes the snapshot, replacing any previous one.
func (s *Store) Save(snap *Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("outbox store uninitialised")
	}
	encoded, err := rlp.EncodeToBytes(snap)
	if err != nil {
		return fmt.Errorf("encode outbox snapshot: %w", err)
	}
	return s.db.Put(snapshotKey, encoded)
}

// Load reads the persisted snapshot. The boolean reports whether one existed.
func (s *Store) Load() (*Snapshot, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, fmt.Errorf("outbox store uninitialised")
	}
	encoded, err := s.db.Get(snapshotKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	snap := &Snapshot{}
	if err := rlp.DecodeBytes(encoded, snap); err != nil {
		return nil, false, fmt.Errorf("decode outbox snapshot: %w", err)
	}
	if len(snap.Branch) != merkle.TreeDepth {
		return nil, false, fmt.Errorf("decode outbox snapshot: branch has %d levels, want %d", len(snap.Branch), merkle.TreeDepth)
	}
	return snap, true, nil
}

// snapshot captures the current state. Callers hold o.mu.
func (o *Outbox) snapshot() *Snapshot {
	branch := o.tree.Branch()
	snap := &Snapshot{
		State:             uint8(o.state),
		LocalDomain:       o.localDomain,
		Owner:             o.owner,
		ValidatorManager:  o.validatorManager,
		Branch:            append([]common.Hash(nil), branch[:]...),
		Count:             o.tree.Count(),
		CheckpointedRoot:  o.checkpointedRoot,
		CheckpointedIndex: o.checkpointedIndex,
	}
	for domain, nonce := range o.nonces {
		snap.Nonces = append(snap.Nonces, NonceRecord{Domain: domain, Nonce: nonce})
	}
	sort.Slice(snap.Nonces, func(i, j int) bool { return snap.Nonces[i].Domain < snap.Nonces[j].Domain })
	for root, index := range o.checkpoints {
		snap.Checkpoints = append(snap.Checkpoints, CheckpointRecord{Root: root, Index: index})
	}
	sort.Slice(snap.Checkpoints, func(i, j int) bool {
		return bytes.Compare(snap.Checkpoints[i].Root[:], snap.Checkpoints[j].Root[:]) < 0
	})
	return snap
}

// adopt replaces the in-memory state with a loaded snapshot. Callers hold
// o.mu.
func (o *Outbox) adopt(snap *Snapshot) {
	o.state = State(snap.State)
	o.owner = snap.Owner
	o.validatorManager = snap.ValidatorManager

	var branch [merkle.TreeDepth]common.Hash
	copy(branch[:], snap.Branch)
	o.tree.Restore(branch, snap.Count)

	o.nonces = make(map[uint32]uint32, len(snap.Nonces))
	for _, rec := range snap.Nonces {
		o.nonces[rec.Domain] = rec.Nonce
	}
	o.checkpoints = make(map[common.Hash]uint64, len(snap.Checkpoints))
	for _, rec := range snap.Checkpoints {
		o.checkpoints[rec.Root] = rec.Index
	}
	o.checkpointedRoot = snap.CheckpointedRoot
	o.checkpointedIndex = snap.CheckpointedIndex
}

// persist writes the current state through the configured store, if any.
// Callers hold o.mu and roll their mutation back when it fails.
func (o *Outbox) persist() error {
	if o.store == nil {
		return nil
	}
	if err := o.store.Save(o.snapshot()); err != nil {
		return fmt.Errorf("persist outbox state: %w", err)
	}
	return nil
}
