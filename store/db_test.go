package store

import (
	"testing"
	"time"

	"github.com/fusionswap/escrowd/escrow"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWalletRoundTrip(t *testing.T) {
	db := openTestDB(t)

	w := escrow.NewWallet(
		escrow.NewObjectID(),
		escrow.Hash32{1},
		escrow.AssetID{2},
		escrow.AccountID{3},
		escrow.Hash32{4},
		3,
		escrow.DutchAuction{
			Start:             time.Unix(1_700_000_000, 0).UTC(),
			Duration:          time.Minute,
			TakingAmountStart: 100,
			TakingAmountEnd:   50,
		},
		1_000,
		time.Unix(1_700_000_000, 0).UTC(),
	)
	w.LastUsedIndex = 2
	w.IndexSeen = true

	if err := db.PutWallet(w); err != nil {
		t.Fatalf("PutWallet: %v", err)
	}

	got, err := db.GetWallet(w.ID)
	if err != nil {
		t.Fatalf("GetWallet: %v", err)
	}
	if got == nil {
		t.Fatalf("wallet not found after PutWallet")
	}

	if got.ID != w.ID || got.Balance != w.Balance || got.TotalAmount != w.TotalAmount {
		t.Fatalf("round-tripped wallet mismatch: got %+v, want %+v", got, w)
	}
	if got.LastUsedIndex != 2 || !got.IndexSeen {
		t.Fatalf("partial-fill bookkeeping did not survive round trip: %+v", got)
	}
	if !got.DeployedAt.Equal(w.DeployedAt) {
		t.Fatalf("deployedAt mismatch: got %v, want %v", got.DeployedAt, w.DeployedAt)
	}
}

func TestEscrowRoundTripWithMerkle(t *testing.T) {
	db := openTestDB(t)

	e := &escrow.Escrow{
		ID:   escrow.NewObjectID(),
		Side: escrow.SideSrc,
		Params: escrow.Params{
			OrderHash:     escrow.Hash32{1},
			Asset:         escrow.AssetID{2},
			Maker:         escrow.AccountID{3},
			Taker:         escrow.AccountID{4},
			Resolver:      escrow.AccountID{5},
			Amount:        250,
			SafetyDeposit: 4,
			Timelocks: escrow.Timelocks{
				DstWithdrawal:         time.Minute,
				DstPublicWithdrawal:   2 * time.Minute,
				DstCancellation:       3 * time.Minute,
				SrcWithdrawal:         4 * time.Minute,
				SrcPublicWithdrawal:   5 * time.Minute,
				SrcCancellation:       6 * time.Minute,
				SrcPublicCancellation: 7 * time.Minute,
			},
			DeployedAt: time.Unix(1_700_000_000, 0).UTC(),
		},
		Principal:     250,
		SafetyDeposit: 4,
		Status:        escrow.StatusActive,
		Hashlock:      escrow.Hash32{9},
		Merkle: &escrow.MerkleState{
			Root:        escrow.Hash32{8},
			PartsAmount: 4,
			Index:       0,
		},
	}

	if err := db.PutEscrow(e); err != nil {
		t.Fatalf("PutEscrow: %v", err)
	}

	got, err := db.GetEscrow(e.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if got == nil {
		t.Fatalf("escrow not found after PutEscrow")
	}

	if got.Side != e.Side || got.Status != e.Status || got.Principal != e.Principal {
		t.Fatalf("round-tripped escrow mismatch: got %+v, want %+v", got, e)
	}
	if got.Merkle == nil || got.Merkle.Root != e.Merkle.Root || got.Merkle.Index != e.Merkle.Index {
		t.Fatalf("merkle state did not survive round trip: %+v", got.Merkle)
	}
	if got.Params.Timelocks != e.Params.Timelocks {
		t.Fatalf("timelocks did not survive round trip: got %+v, want %+v",
			got.Params.Timelocks, e.Params.Timelocks)
	}
}

func TestEscrowRoundTripWithoutMerkle(t *testing.T) {
	db := openTestDB(t)

	e := &escrow.Escrow{
		ID:   escrow.NewObjectID(),
		Side: escrow.SideDst,
		Params: escrow.Params{
			OrderHash:  escrow.Hash32{1},
			DeployedAt: time.Unix(1_700_000_000, 0).UTC(),
		},
		Principal: 500,
		Status:    escrow.StatusActive,
		Hashlock:  escrow.Hash32{7},
	}

	if err := db.PutEscrow(e); err != nil {
		t.Fatalf("PutEscrow: %v", err)
	}

	got, err := db.GetEscrow(e.ID)
	if err != nil {
		t.Fatalf("GetEscrow: %v", err)
	}
	if got.Merkle != nil {
		t.Fatalf("expected no merkle state, got %+v", got.Merkle)
	}
}

func TestAdminConfigRoundTrip(t *testing.T) {
	db := openTestDB(t)

	cfg := &escrow.AdminConfig{
		RescueDelay:      48 * time.Hour,
		MinSafetyDeposit: 25,
	}
	if err := db.PutAdminConfig(cfg); err != nil {
		t.Fatalf("PutAdminConfig: %v", err)
	}

	got, err := db.GetAdminConfig()
	if err != nil {
		t.Fatalf("GetAdminConfig: %v", err)
	}
	if got.RescueDelay != cfg.RescueDelay || got.MinSafetyDeposit != cfg.MinSafetyDeposit {
		t.Fatalf("round-tripped config mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestListActiveObjectIDs(t *testing.T) {
	db := openTestDB(t)

	active := escrow.NewWallet(
		escrow.NewObjectID(), escrow.Hash32{1}, escrow.AssetID{2}, escrow.AccountID{3},
		escrow.Hash32{4}, 0, escrow.DutchAuction{}, 100, time.Unix(1_700_000_000, 0).UTC(),
	)
	if err := db.PutWallet(active); err != nil {
		t.Fatalf("PutWallet: %v", err)
	}

	drained := escrow.NewWallet(
		escrow.NewObjectID(), escrow.Hash32{1}, escrow.AssetID{2}, escrow.AccountID{3},
		escrow.Hash32{4}, 0, escrow.DutchAuction{}, 100, time.Unix(1_700_000_000, 0).UTC(),
	)
	if err := drained.Drain(100, 0); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if err := db.PutWallet(drained); err != nil {
		t.Fatalf("PutWallet: %v", err)
	}

	ids, err := db.ListActiveObjectIDs()
	if err != nil {
		t.Fatalf("ListActiveObjectIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != active.ID {
		t.Fatalf("expected exactly the active wallet, got %v", ids)
	}
}
