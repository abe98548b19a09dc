package merkle

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// zeroHashes[i] is the root of an all-zero subtree of height i. Slot 0 is the
// zero leaf itself; every higher slot hashes two copies of the slot below.
var zeroHashes = computeZeroHashes()

func computeZeroHashes() [TreeDepth]common.Hash {
	var table [TreeDepth]common.Hash
	for i := 1; i < TreeDepth; i++ {
		table[i] = hashPair(table[i-1], table[i-1])
	}
	return table
}

// ZeroHash returns the precomputed empty-subtree hash for the given level.
// Levels outside [0, TreeDepth) return the zero value.
func ZeroHash(level int) common.Hash {
	if level < 0 || level >= TreeDepth {
		return common.Hash{}
	}
	return zeroHashes[level]
}

func hashPair(left, right common.Hash) common.Hash {
	return common.BytesToHash(ethcrypto.Keccak256(left[:], right[:]))
}
