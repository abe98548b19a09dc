package merkle

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// TreeDepth is the fixed height of the accumulator. A depth-32 tree holds up
// to 2^32 leaves, which bounds the lifetime message volume of one outbox.
const TreeDepth = 32

// MaxLeaves is the insertion capacity of a depth-32 tree. The final slot is
// unusable: inserting leaf 2^32 would have to write a sibling hash one level
// above the branch array.
const MaxLeaves = uint64(1)<<TreeDepth - 1

// ErrTreeFull is returned by Insert once the accumulator holds 2^32 leaves.
var ErrTreeFull = errors.New("merkle: tree full")

// Tree is an append-only incremental merkle accumulator. Instead of
// materialising the full tree it keeps one hash per level (the root of the
// left sibling subtree at that level, when one exists) plus the leaf count;
// the current root is recomputed from those on demand. Insert and Root are
// both O(TreeDepth) regardless of count.
//
// The zero value is an empty tree and is ready to use. Tree is not safe for
// concurrent use; callers serialise access.
type Tree struct {
	branch [TreeDepth]common.Hash
	count  uint64
}

// Insert appends a leaf to the accumulator. The branch slot for level i is
// rewritten only when bit i of the new count flips from 0 to 1, i.e. when the
// subtree at that level has just filled; all other slots keep their previous
// values.
func (t *Tree) Insert(leaf common.Hash) error {
	if t.count >= MaxLeaves {
		return ErrTreeFull
	}
	t.count++
	size := t.count
	node := leaf
	for i := 0; i < TreeDepth; i++ {
		if size&1 == 1 {
			t.branch[i] = node
			return nil
		}
		node = hashPair(t.branch[i], node)
		size >>= 1
	}
	// Unreachable: size < 2^32 always has a set bit within TreeDepth
	// halvings.
	panic("merkle: branch update overran tree depth")
}

// Root folds the branch against the zero-hash table: at level i the running
// node is combined with the stored left sibling when bit i of count is set,
// or with the empty-subtree hash when it is not.
func (t *Tree) Root() common.Hash {
	var node common.Hash
	index := t.count
	for i := 0; i < TreeDepth; i++ {
		if (index>>uint(i))&1 == 1 {
			node = hashPair(t.branch[i], node)
		} else {
			node = hashPair(node, zeroHashes[i])
		}
	}
	return node
}

// Count reports the number of leaves inserted so far.
func (t *Tree) Count() uint64 {
	return t.count
}

// Branch returns a copy of the per-level sibling hashes. Exposed for
// persistence; mutating the copy does not affect the tree.
func (t *Tree) Branch() [TreeDepth]common.Hash {
	return t.branch
}

// Restore overwrites the accumulator with a previously captured branch and
// count, e.g. when reloading a snapshot from disk.
func (t *Tree) Restore(branch [TreeDepth]common.Hash, count uint64) {
	t.branch = branch
	t.count = count
}
