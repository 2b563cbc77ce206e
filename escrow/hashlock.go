package escrow

import (
	"golang.org/x/crypto/sha3"
)

// MinSecretLen is the minimum accepted length, in bytes, of a revealed
// secret. Secrets shorter than this are rejected outright, independent of
// whether they happen to hash to the right value.
const MinSecretLen = 32

// Keccak256 hashes data with the original (pre-NIST) Keccak padding, the
// construction Solidity's keccak256 opcode implements. Using the NIST
// SHA3-256 variant here instead would silently desynchronize every
// hashlock computed against the source-chain contract.
func Keccak256(data ...[]byte) Hash32 {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash32
	copy(out[:], h.Sum(nil))
	return out
}

// CheckHashlock reports whether secret is a valid preimage of hashlock: it
// must be at least MinSecretLen bytes, and keccak256(secret) must equal
// hashlock exactly.
func CheckHashlock(secret []byte, hashlock Hash32) error {
	if len(secret) < MinSecretLen {
		return newErr(ErrInvalidSecret, "secret is %d bytes, want >= %d",
			len(secret), MinSecretLen)
	}

	if got := Keccak256(secret); got != hashlock {
		return newErr(ErrInvalidSecret, "keccak256(secret) does not match hashlock")
	}

	return nil
}
