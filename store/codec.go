package store

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/lightningnetwork/lnd/tlv"
)

// Every persisted object is a flat TLV stream, the same append-only,
// skip-what-you-don't-recognise record format lnd's chanbackup package
// uses for channel backups: a future schema addition is a new type
// number, never a rewrite of an existing one.
const (
	typeWalletID tlv.Type = iota
	typeWalletOrderHash
	typeWalletAsset
	typeWalletMaker
	typeWalletHashlockOrRoot
	typeWalletPartsAmount
	typeWalletAuctionStart
	typeWalletAuctionDuration
	typeWalletAuctionTakeStart
	typeWalletAuctionTakeEnd
	typeWalletTotalAmount
	typeWalletBalance
	typeWalletLastUsedIndex
	typeWalletIndexSeen
	typeWalletIsActive
	typeWalletDeployedAt
)

const (
	typeEscrowID tlv.Type = iota
	typeEscrowSide
	typeEscrowStatus
	typeEscrowHashlock
	typeEscrowPrincipal
	typeEscrowSafetyDeposit
	typeEscrowMerkleRoot
	typeEscrowMerkleParts
	typeEscrowMerkleIndex
	typeEscrowHasMerkle

	typeParamsOrderHash
	typeParamsAsset
	typeParamsMaker
	typeParamsTaker
	typeParamsResolver
	typeParamsAmount
	typeParamsSafetyDeposit
	typeParamsDeployedAt
	typeParamsTimelocks
)

const (
	typeCfgRescueDelay tlv.Type = iota
	typeCfgMinSafetyDeposit
)

func e32(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

func d32(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

func eHash(w io.Writer, val interface{}, _ *[8]byte) error {
	h := val.(*escrow.Hash32)
	return e32(w, h[:])
}

func dHash(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	h := val.(*escrow.Hash32)
	return d32(r, h[:])
}

func eAccount(w io.Writer, val interface{}, _ *[8]byte) error {
	a := val.(*escrow.AccountID)
	return e32(w, a[:])
}

func dAccount(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	a := val.(*escrow.AccountID)
	return d32(r, a[:])
}

func eObject(w io.Writer, val interface{}, _ *[8]byte) error {
	o := val.(*escrow.ObjectID)
	return e32(w, o[:])
}

func dObject(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	o := val.(*escrow.ObjectID)
	return d32(r, o[:])
}

func eAsset(w io.Writer, val interface{}, _ *[8]byte) error {
	a := val.(*escrow.AssetID)
	return e32(w, a[:])
}

func dAsset(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	a := val.(*escrow.AssetID)
	return d32(r, a[:])
}

func eU64(w io.Writer, buf *[8]byte, v uint64) error {
	binary.BigEndian.PutUint64(buf[:8], v)
	_, err := w.Write(buf[:8])
	return err
}

func dU64(r io.Reader, buf *[8]byte) (uint64, error) {
	if _, err := io.ReadFull(r, buf[:8]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:8]), nil
}

func eUint64(w io.Writer, val interface{}, buf *[8]byte) error {
	return eU64(w, buf, *val.(*uint64))
}

func dUint64(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	v, err := dU64(r, buf)
	if err != nil {
		return err
	}
	*val.(*uint64) = v
	return nil
}

func eBalance(w io.Writer, val interface{}, buf *[8]byte) error {
	return eU64(w, buf, uint64(*val.(*escrow.Balance)))
}

func dBalance(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	v, err := dU64(r, buf)
	if err != nil {
		return err
	}
	*val.(*escrow.Balance) = escrow.Balance(v)
	return nil
}

func ePartsAmount(w io.Writer, val interface{}, buf *[8]byte) error {
	return eU64(w, buf, uint64(*val.(*escrow.PartsAmount)))
}

func dPartsAmount(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	v, err := dU64(r, buf)
	if err != nil {
		return err
	}
	*val.(*escrow.PartsAmount) = escrow.PartsAmount(v)
	return nil
}

func eTime(w io.Writer, val interface{}, buf *[8]byte) error {
	return eU64(w, buf, uint64(val.(*time.Time).UnixNano()))
}

func dTime(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	v, err := dU64(r, buf)
	if err != nil {
		return err
	}
	*val.(*time.Time) = time.Unix(0, int64(v)).UTC()
	return nil
}

func eDuration(w io.Writer, val interface{}, buf *[8]byte) error {
	return eU64(w, buf, uint64(*val.(*time.Duration)))
}

func dDuration(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	v, err := dU64(r, buf)
	if err != nil {
		return err
	}
	*val.(*time.Duration) = time.Duration(v)
	return nil
}

func eBool(w io.Writer, val interface{}, _ *[8]byte) error {
	var b [1]byte
	if *val.(*bool) {
		b[0] = 1
	}
	_, err := w.Write(b[:])
	return err
}

func dBool(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	*val.(*bool) = b[0] != 0
	return nil
}

func eUint8(w io.Writer, val interface{}, _ *[8]byte) error {
	_, err := w.Write([]byte{*val.(*uint8)})
	return err
}

func dUint8(r io.Reader, val interface{}, _ *[8]byte, _ uint64) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	*val.(*uint8) = b[0]
	return nil
}

// eTimelocks and dTimelocks encode a Timelocks value as its seven
// big-endian uint64 durations, one fixed-width (timelocksSize) record under
// a single type: the seven durations are always present together, so there
// is no forward-compatibility benefit to splitting them into seven
// independent top-level types.
func eTimelocks(w io.Writer, val interface{}, buf *[8]byte) error {
	t := val.(*escrow.Timelocks)
	durs := []time.Duration{
		t.DstWithdrawal, t.DstPublicWithdrawal, t.DstCancellation,
		t.SrcWithdrawal, t.SrcPublicWithdrawal, t.SrcCancellation,
		t.SrcPublicCancellation,
	}
	for _, d := range durs {
		if err := eU64(w, buf, uint64(d)); err != nil {
			return err
		}
	}
	return nil
}

func dTimelocks(r io.Reader, val interface{}, buf *[8]byte, _ uint64) error {
	t := val.(*escrow.Timelocks)
	durs := make([]time.Duration, 7)
	for i := range durs {
		v, err := dU64(r, buf)
		if err != nil {
			return err
		}
		durs[i] = time.Duration(v)
	}
	t.DstWithdrawal = durs[0]
	t.DstPublicWithdrawal = durs[1]
	t.DstCancellation = durs[2]
	t.SrcWithdrawal = durs[3]
	t.SrcPublicWithdrawal = durs[4]
	t.SrcCancellation = durs[5]
	t.SrcPublicCancellation = durs[6]
	return nil
}

const timelocksSize = 7 * 8

func walletRecords(w *escrow.Wallet) []tlv.Record {
	return []tlv.Record{
		tlv.MakeStaticRecord(typeWalletID, &w.ID, escrow.HashSize, eObject, dObject),
		tlv.MakeStaticRecord(typeWalletOrderHash, &w.OrderHash, escrow.HashSize, eHash, dHash),
		tlv.MakeStaticRecord(typeWalletAsset, &w.Asset, escrow.HashSize, eAsset, dAsset),
		tlv.MakeStaticRecord(typeWalletMaker, &w.Maker, escrow.HashSize, eAccount, dAccount),
		tlv.MakeStaticRecord(typeWalletHashlockOrRoot, &w.HashlockOrRoot, escrow.HashSize, eHash, dHash),
		tlv.MakeStaticRecord(typeWalletPartsAmount, &w.PartsAmount, 8, ePartsAmount, dPartsAmount),
		tlv.MakeStaticRecord(typeWalletAuctionStart, &w.Auction.Start, 8, eTime, dTime),
		tlv.MakeStaticRecord(typeWalletAuctionDuration, &w.Auction.Duration, 8, eDuration, dDuration),
		tlv.MakeStaticRecord(typeWalletAuctionTakeStart, &w.Auction.TakingAmountStart, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeWalletAuctionTakeEnd, &w.Auction.TakingAmountEnd, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeWalletTotalAmount, &w.TotalAmount, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeWalletBalance, &w.Balance, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeWalletLastUsedIndex, &w.LastUsedIndex, 8, eUint64, dUint64),
		tlv.MakeStaticRecord(typeWalletIndexSeen, &w.IndexSeen, 1, eBool, dBool),
		tlv.MakeStaticRecord(typeWalletIsActive, &w.IsActive, 1, eBool, dBool),
		tlv.MakeStaticRecord(typeWalletDeployedAt, &w.DeployedAt, 8, eTime, dTime),
	}
}

// escrowScratch holds the non-primitive or derived fields of an Escrow
// that need a scratch variable on the way in or out of the wire format:
// Side/Status are stored as a single byte, and the optional Merkle state
// is flattened into three always-present fields guarded by a presence
// flag rather than encoded as a variable-length sub-stream.
type escrowScratch struct {
	side      uint8
	status    uint8
	hasMerkle bool
	root      escrow.Hash32
	parts     escrow.PartsAmount
	index     uint64
}

func newEscrowScratch(e *escrow.Escrow) *escrowScratch {
	s := &escrowScratch{
		side:   uint8(e.Side),
		status: uint8(e.Status),
	}
	if e.Merkle != nil {
		s.hasMerkle = true
		s.root = e.Merkle.Root
		s.parts = e.Merkle.PartsAmount
		s.index = e.Merkle.Index
	}
	return s
}

func (s *escrowScratch) applyTo(e *escrow.Escrow) {
	e.Side = escrow.Side(s.side)
	e.Status = escrow.Status(s.status)
	if s.hasMerkle {
		e.Merkle = &escrow.MerkleState{
			Root:        s.root,
			PartsAmount: s.parts,
			Index:       s.index,
		}
	}
}

func escrowRecords(e *escrow.Escrow, s *escrowScratch) []tlv.Record {
	return []tlv.Record{
		tlv.MakeStaticRecord(typeEscrowID, &e.ID, escrow.HashSize, eObject, dObject),
		tlv.MakeStaticRecord(typeEscrowSide, &s.side, 1, eUint8, dUint8),
		tlv.MakeStaticRecord(typeEscrowStatus, &s.status, 1, eUint8, dUint8),
		tlv.MakeStaticRecord(typeEscrowHashlock, &e.Hashlock, escrow.HashSize, eHash, dHash),
		tlv.MakeStaticRecord(typeEscrowPrincipal, &e.Principal, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeEscrowSafetyDeposit, &e.SafetyDeposit, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeEscrowMerkleRoot, &s.root, escrow.HashSize, eHash, dHash),
		tlv.MakeStaticRecord(typeEscrowMerkleParts, &s.parts, 8, ePartsAmount, dPartsAmount),
		tlv.MakeStaticRecord(typeEscrowMerkleIndex, &s.index, 8, eUint64, dUint64),
		tlv.MakeStaticRecord(typeEscrowHasMerkle, &s.hasMerkle, 1, eBool, dBool),

		tlv.MakeStaticRecord(typeParamsOrderHash, &e.Params.OrderHash, escrow.HashSize, eHash, dHash),
		tlv.MakeStaticRecord(typeParamsAsset, &e.Params.Asset, escrow.HashSize, eAsset, dAsset),
		tlv.MakeStaticRecord(typeParamsMaker, &e.Params.Maker, escrow.HashSize, eAccount, dAccount),
		tlv.MakeStaticRecord(typeParamsTaker, &e.Params.Taker, escrow.HashSize, eAccount, dAccount),
		tlv.MakeStaticRecord(typeParamsResolver, &e.Params.Resolver, escrow.HashSize, eAccount, dAccount),
		tlv.MakeStaticRecord(typeParamsAmount, &e.Params.Amount, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeParamsSafetyDeposit, &e.Params.SafetyDeposit, 8, eBalance, dBalance),
		tlv.MakeStaticRecord(typeParamsDeployedAt, &e.Params.DeployedAt, 8, eTime, dTime),
		tlv.MakeStaticRecord(typeParamsTimelocks, &e.Params.Timelocks, timelocksSize, eTimelocks, dTimelocks),
	}
}

// encodeEscrow serializes e as a TLV stream.
func encodeEscrow(e *escrow.Escrow) ([]byte, error) {
	scratch := newEscrowScratch(e)
	stream, err := tlv.NewStream(escrowRecords(e, scratch)...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeEscrow deserializes an Escrow from its TLV-encoded form.
func decodeEscrow(data []byte) (*escrow.Escrow, error) {
	e := &escrow.Escrow{}
	scratch := &escrowScratch{}
	stream, err := tlv.NewStream(escrowRecords(e, scratch)...)
	if err != nil {
		return nil, err
	}
	if err := stream.Decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	scratch.applyTo(e)
	return e, nil
}

// encodeWallet serializes w as a TLV stream.
func encodeWallet(w *escrow.Wallet) ([]byte, error) {
	stream, err := tlv.NewStream(walletRecords(w)...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeWallet deserializes a Wallet from its TLV-encoded form.
func decodeWallet(data []byte) (*escrow.Wallet, error) {
	w := &escrow.Wallet{}
	stream, err := tlv.NewStream(walletRecords(w)...)
	if err != nil {
		return nil, err
	}
	if err := stream.Decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return w, nil
}

func adminConfigRecords(cfg *escrow.AdminConfig) []tlv.Record {
	return []tlv.Record{
		tlv.MakeStaticRecord(typeCfgRescueDelay, &cfg.RescueDelay, 8, eDuration, dDuration),
		tlv.MakeStaticRecord(typeCfgMinSafetyDeposit, &cfg.MinSafetyDeposit, 8, eBalance, dBalance),
	}
}

// encodeAdminConfig serializes cfg as a TLV stream.
func encodeAdminConfig(cfg *escrow.AdminConfig) ([]byte, error) {
	stream, err := tlv.NewStream(adminConfigRecords(cfg)...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stream.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeAdminConfig deserializes an AdminConfig from its TLV-encoded form.
func decodeAdminConfig(data []byte) (*escrow.AdminConfig, error) {
	cfg := &escrow.AdminConfig{}
	stream, err := tlv.NewStream(adminConfigRecords(cfg)...)
	if err != nil {
		return nil, err
	}
	if err := stream.Decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return cfg, nil
}
