package escrow

import (
	"testing"
	"time"
)

func newTestLedger() (*Ledger, *fakeClock, *recordingSink) {
	clk := newFakeClock(time.Unix(1_700_000_000, 0))
	sink := &recordingSink{}
	store := newMemStore()
	// Tests exercise safety-deposit amounts far below the production
	// default floor; pin it to zero so those scenarios aren't coupled to
	// DefaultMinSafetyDeposit's value.
	if err := store.PutAdminConfig(&AdminConfig{RescueDelay: DefaultRescueDelay, MinSafetyDeposit: 0}); err != nil {
		panic(err)
	}
	return NewLedger(store, clk, sink), clk, sink
}

func mustCreateWallet(t *testing.T, l *Ledger, funding Balance, parts PartsAmount, root Hash32) *Wallet {
	t.Helper()
	w, err := l.CreateWallet(
		AccountID{1}, Hash32{2}, AssetID{3}, root, parts,
		DutchAuction{Start: time.Unix(1_700_000_000, 0), Duration: time.Minute, TakingAmountStart: 100, TakingAmountEnd: 100},
		funding,
	)
	if err != nil {
		t.Fatalf("CreateWallet: %v", err)
	}
	return w
}

// TestFullFillHappyPath exercises the canonical scenario: a resolver
// drains a single-fill wallet into a source escrow, a mirrored destination
// escrow is separately funded, and both sides are withdrawn with the same
// secret.
func TestFullFillHappyPath(t *testing.T) {
	l, clk, sink := newTestLedger()

	hashlock := testHashlock()
	wallet := mustCreateWallet(t, l, 1_000, 0, hashlock)

	resolver := AccountID{9}
	taker := AccountID{8}

	src, err := l.CreateEscrowSrc(wallet.ID, 1_000, 100, EscrowParams{
		Taker:         taker,
		Resolver:      resolver,
		SafetyDeposit: 10,
		Timelocks:     testTimelocks(),
	})
	if err != nil {
		t.Fatalf("CreateEscrowSrc: %v", err)
	}

	srcCancellationTS := time.Unix(1_700_000_000, 0).Add(testTimelocks().SrcCancellation)
	dst, err := l.CreateEscrowDst(Hash32{2}, AssetID{3}, hashlock, 1_000, AccountID{1}, srcCancellationTS, EscrowParams{
		Taker:         taker,
		Resolver:      resolver,
		SafetyDeposit: 10,
		Timelocks:     testTimelocks(),
	})
	if err != nil {
		t.Fatalf("CreateEscrowDst: %v", err)
	}

	// Move into each side's resolver-exclusive withdraw window.
	clk.Advance(90 * time.Second) // past DstWithdrawal(1m), before DstPublicWithdrawal(2m)

	if _, err := l.WithdrawDst(dst.ID, resolver, testSecret); err != nil {
		t.Fatalf("WithdrawDst: %v", err)
	}

	clk.Advance(3 * time.Minute) // elapsed 4m30s total

	clk.Advance(20 * time.Second) // elapsed 4m50s, within SrcResolverExclusiveWithdraw [4m,5m)

	if _, err := l.WithdrawSrc(src.ID, resolver, testSecret); err != nil {
		t.Fatalf("WithdrawSrc: %v", err)
	}

	if last, ok := sink.last().(EscrowWithdrawn); !ok || last.Side != SideSrc {
		t.Fatalf("expected last event to be an EscrowWithdrawn on the src side, got %#v", sink.last())
	}
}

// TestWithdrawWrongSecretRejected confirms a mismatched secret never
// settles an escrow, regardless of authorization.
func TestWithdrawWrongSecretRejected(t *testing.T) {
	l, clk, _ := newTestLedger()

	hashlock := testHashlock()
	wallet := mustCreateWallet(t, l, 500, 0, hashlock)

	resolver := AccountID{9}
	src, err := l.CreateEscrowSrc(wallet.ID, 500, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 5, Timelocks: testTimelocks(),
	})
	if err != nil {
		t.Fatalf("CreateEscrowSrc: %v", err)
	}

	clk.Advance(4*time.Minute + time.Second)

	_, err = l.WithdrawSrc(src.ID, resolver, []byte("not-the-right-secret-at-all-3210"))
	if code, ok := CodeOf(err); !ok || code != ErrInvalidSecret {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
}

// TestCreateEscrowDstRejectsLateCancellation confirms a destination escrow
// whose dst_cancellation would land after the caller's src_cancellation_ts
// is rejected outright, per the cross-chain safety bound.
func TestCreateEscrowDstRejectsLateCancellation(t *testing.T) {
	l, _, _ := newTestLedger()

	hashlock := testHashlock()

	// dst_cancellation is start+3m; giving a src_cancellation_ts only
	// one minute out must be rejected.
	srcCancellationTS := time.Unix(1_700_000_000, 0).Add(time.Minute)

	_, err := l.CreateEscrowDst(Hash32{2}, AssetID{3}, hashlock, 1_000, AccountID{1}, srcCancellationTS, EscrowParams{
		Taker:         AccountID{8},
		Resolver:      AccountID{9},
		SafetyDeposit: 10,
		Timelocks:     testTimelocks(),
	})
	if code, ok := CodeOf(err); !ok || code != ErrInvalidTimelock {
		t.Fatalf("expected ErrInvalidTimelock, got %v", err)
	}
}

// TestPrematureWithdrawRejected confirms the finality lock is enforced
// even when the secret is correct.
func TestPrematureWithdrawRejected(t *testing.T) {
	l, _, _ := newTestLedger()

	hashlock := testHashlock()
	wallet := mustCreateWallet(t, l, 500, 0, hashlock)

	resolver := AccountID{9}
	src, err := l.CreateEscrowSrc(wallet.ID, 500, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 5, Timelocks: testTimelocks(),
	})
	if err != nil {
		t.Fatalf("CreateEscrowSrc: %v", err)
	}

	// No time has elapsed: still in FinalityLock.
	_, err = l.WithdrawSrc(src.ID, resolver, testSecret)
	if code, ok := CodeOf(err); !ok || code != ErrNotWithdrawable {
		t.Fatalf("expected ErrNotWithdrawable, got %v", err)
	}
}

// TestCancelAfterPublicCancelByAnyCaller confirms a source escrow can be
// cancelled by a third party once SrcPublicCancellation has elapsed, and
// that the same escrow cannot then be withdrawn or cancelled again.
func TestCancelAfterPublicCancelByAnyCaller(t *testing.T) {
	l, clk, _ := newTestLedger()

	hashlock := testHashlock()
	wallet := mustCreateWallet(t, l, 500, 0, hashlock)

	resolver := AccountID{9}
	src, err := l.CreateEscrowSrc(wallet.ID, 500, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 5, Timelocks: testTimelocks(),
	})
	if err != nil {
		t.Fatalf("CreateEscrowSrc: %v", err)
	}

	clk.Advance(7*time.Minute + time.Second)

	stranger := AccountID{42}
	if _, err := l.CancelSrc(src.ID, stranger); err != nil {
		t.Fatalf("CancelSrc: %v", err)
	}

	if _, err := l.CancelSrc(src.ID, stranger); err == nil {
		t.Fatalf("expected second cancel to fail")
	} else if code, _ := CodeOf(err); code != ErrAlreadyCancelled {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}

	if _, err := l.WithdrawSrc(src.ID, resolver, testSecret); err == nil {
		t.Fatalf("expected withdraw after cancel to fail")
	}
}

// TestPartialFillAndReplay exercises a Merkle-mode wallet: two sequential
// partial fills succeed against increasing indices, and replaying an
// already-used index is rejected.
func TestPartialFillAndReplay(t *testing.T) {
	l, _, _ := newTestLedger()

	const parts = PartsAmount(4)
	secrets := make([][]byte, parts+1)
	hashes := make([]Hash32, parts+1)
	for i := range secrets {
		s := make([]byte, 32)
		for j := range s {
			s[j] = byte(i + 1)
		}
		secrets[i] = s
		hashes[i] = Keccak256(s)
	}

	leaves := make([]Hash32, len(hashes))
	for i, h := range hashes {
		leaves[i] = MerkleLeaf(uint64(i), h)
	}
	root := buildMerkleRoot(leaves)

	wallet := mustCreateWallet(t, l, 1_000, parts, root)

	proofFor := func(i int) []Hash32 {
		return buildMerkleProof(leaves, i)
	}

	resolver := AccountID{9}

	// First fill: 1/4 of the wallet. ceil((0+250)*4/1000) = 1.
	_, err := l.CreateEscrowSrc(wallet.ID, 250, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 4,
		Timelocks:   testTimelocks(),
		SecretHash:  hashes[1],
		SecretIndex: 1,
		Proof:       proofFor(1),
	})
	if err != nil {
		t.Fatalf("first partial fill: %v", err)
	}

	// Second fill: remaining 750, which must present the dust index N=4.
	_, err = l.CreateEscrowSrc(wallet.ID, 750, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 12,
		Timelocks:   testTimelocks(),
		SecretHash:  hashes[4],
		SecretIndex: 4,
		Proof:       proofFor(4),
	})
	if err != nil {
		t.Fatalf("second partial fill: %v", err)
	}

	// Replaying index 1 with additional funds must fail: the wallet has
	// no balance left to drain at all.
	_, err = l.CreateEscrowSrc(wallet.ID, 1, 100, EscrowParams{
		Taker: AccountID{8}, Resolver: resolver, SafetyDeposit: 1,
		Timelocks:   testTimelocks(),
		SecretHash:  hashes[1],
		SecretIndex: 1,
		Proof:       proofFor(1),
	})
	if err == nil {
		t.Fatalf("expected replay/overdraw to fail")
	}
}

// TestExpectedPartialIndexScenarioFive reproduces spec.md's own worked
// example verbatim (N=4, total=1,000,000,000): two successive 250M fills
// must land on indices 1 and 2, and draining the rest must land on the
// dust-absorbing index 4.
func TestExpectedPartialIndexScenarioFive(t *testing.T) {
	const (
		total = Balance(1_000_000_000)
		n     = PartsAmount(4)
	)

	got := ExpectedPartialIndex(total, 0, 250_000_000, n)
	if got != 1 {
		t.Fatalf("first fill: expected index 1, got %d", got)
	}

	got = ExpectedPartialIndex(total, 250_000_000, 250_000_000, n)
	if got != 2 {
		t.Fatalf("second fill: expected index 2, got %d", got)
	}

	got = ExpectedPartialIndex(total, 500_000_000, 500_000_000, n)
	if got != 4 {
		t.Fatalf("final fill: expected dust index 4, got %d", got)
	}
}

// buildMerkleRoot and buildMerkleProof are tiny test-only helpers that
// compute the sorted-pair Merkle tree over leaves the same way the
// protocol's own verifier does (see merkle.go), used only to construct
// fixtures -- they are not part of the package's public API.
func buildMerkleRoot(leaves []Hash32) Hash32 {
	level := append([]Hash32(nil), leaves...)
	for len(level) > 1 {
		var next []Hash32
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, merkleParent(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

func buildMerkleProof(leaves []Hash32, index int) []Hash32 {
	var proof []Hash32
	level := append([]Hash32(nil), leaves...)
	idx := index
	for len(level) > 1 {
		var next []Hash32
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				if idx == i {
					idx = len(next) - 1
				}
				continue
			}
			if idx == i {
				proof = append(proof, level[i+1])
				idx = len(next)
			} else if idx == i+1 {
				proof = append(proof, level[i])
				idx = len(next)
			}
			next = append(next, merkleParent(level[i], level[i+1]))
		}
		level = next
	}
	return proof
}

// TestRescueAfterDelay confirms a wallet left untouched past the admin
// rescue delay can be drained by any caller, and not before.
func TestRescueAfterDelay(t *testing.T) {
	l, clk, _ := newTestLedger()

	hashlock := testHashlock()
	wallet := mustCreateWallet(t, l, 777, 0, hashlock)

	_, err := l.Rescue(wallet.ID, AccountID{99})
	if code, ok := CodeOf(err); !ok || code != ErrTimelockNotExpired {
		t.Fatalf("expected ErrTimelockNotExpired before delay, got %v", err)
	}

	clk.Advance(DefaultRescueDelay + time.Second)

	ev, err := l.Rescue(wallet.ID, AccountID{99})
	if err != nil {
		t.Fatalf("Rescue: %v", err)
	}
	if ev.PrincipalAmount != 777 {
		t.Fatalf("expected rescued principal 777, got %d", ev.PrincipalAmount)
	}

	if w, err := l.store.GetWallet(wallet.ID); err != nil {
		t.Fatalf("GetWallet: %v", err)
	} else if w != nil {
		t.Fatalf("expected wallet to be deleted after rescue, got %+v", w)
	}
}
