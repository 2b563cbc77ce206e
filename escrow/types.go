package escrow

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/google/uuid"
)

// HashSize is the width, in bytes, of every content hash, hashlock, secret,
// and Merkle node this protocol handles. 32 bytes matches keccak256's
// output and the object ledger's native address width, which is why a
// single wire representation (chainhash.Hash) can stand in for all of them.
const HashSize = chainhash.HashSize

// Hash32 is the wire representation shared by order hashes, hashlocks,
// secrets, and Merkle roots/nodes.
type Hash32 = chainhash.Hash

// AccountID identifies a maker, taker, resolver, or arbitrary caller on the
// destination ledger.
type AccountID [HashSize]byte

// String renders the account as hex, matching chainhash.Hash's own
// convention for 32-byte values.
func (a AccountID) String() string {
	return hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// ObjectID is the handle assigned to a Wallet or Escrow when it is
// published as a shared object, analogous to a Move UID. It is generated
// from a random UUID widened to 32 bytes: the low 16 bytes hold the UUID,
// the high 16 bytes are zero. This keeps every 32-byte handle in the
// system (hashes and object ids alike) representable as the same Hash32
// type at the storage layer.
type ObjectID [HashSize]byte

// NewObjectID mints a fresh, randomly generated object handle.
func NewObjectID() ObjectID {
	var id ObjectID
	u := uuid.New()
	copy(id[:16], u[:])
	return id
}

// String renders the object id as hex.
func (o ObjectID) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero reports whether o is the unset object handle.
func (o ObjectID) IsZero() bool {
	return o == ObjectID{}
}

// AssetID tags the type of coin an escrow or wallet holds. The protocol
// never inspects an asset beyond equality: two escrows are "the same
// asset" iff their AssetID fields are equal.
type AssetID [HashSize]byte

func (a AssetID) String() string {
	return hex.EncodeToString(a[:])
}
