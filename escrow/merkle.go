package escrow

import (
	"bytes"
	"encoding/binary"
)

// MerkleLeaf computes the leaf hash for secretIndex's entry in a
// partial-fill Merkle tree: keccak256(index as u64 little-endian ||
// secretHash). secretHash is keccak256(secret), not the secret itself --
// the leaf preimage the resolver submits on-chain is already hashed once,
// so a single wrong byte order here would silently desynchronize every
// cross-chain proof built against this tree.
func MerkleLeaf(secretIndex uint64, secretHash Hash32) Hash32 {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], secretIndex)
	return Keccak256(idx[:], secretHash[:])
}

// merkleParent hashes a pair of sibling nodes using the sorted-pair
// convention: keccak256(min(a,b) || max(a,b)). Implementers must preserve
// this exact sort order -- swapping it silently breaks compatibility with
// every proof produced off-chain.
func merkleParent(a, b Hash32) Hash32 {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return Keccak256(a[:], b[:])
	}
	return Keccak256(b[:], a[:])
}

// VerifyMerkleProof walks proof (ordered leaf-to-root, one sibling per
// level) starting from leaf, and reports whether the resulting root
// matches want.
func VerifyMerkleProof(leaf Hash32, proof []Hash32, want Hash32) bool {
	node := leaf
	for _, sibling := range proof {
		node = merkleParent(node, sibling)
	}
	return node == want
}

// CheckMerkleProof is the error-returning counterpart of VerifyMerkleProof,
// used by CreateEscrowSrc to check a partial fill's leaf against the
// wallet's root.
func CheckMerkleProof(secretIndex uint64, secretHash Hash32, proof []Hash32, root Hash32) error {
	leaf := MerkleLeaf(secretIndex, secretHash)
	if !VerifyMerkleProof(leaf, proof, root) {
		return newErr(ErrInvalidMerkleProof, "proof does not resolve to the stored root")
	}
	return nil
}
