package escrow

import "time"

// CreateWallet publishes a new maker-funded Wallet object. hashlockOrRoot
// is a plain hashlock when parts is 0, or a Merkle root over parts+1 leaves
// otherwise. Like CreateEscrowDst, it locks only the id of the object it
// creates, since that object cannot yet be contended.
func (l *Ledger) CreateWallet(
	maker AccountID,
	orderHash Hash32,
	asset AssetID,
	hashlockOrRoot Hash32,
	parts PartsAmount,
	auction DutchAuction,
	funding Balance,
) (*Wallet, error) {

	if orderHash.IsZero() {
		return nil, newErr(ErrInvalidOrderHash, "order hash must not be zero")
	}
	if hashlockOrRoot.IsZero() {
		return nil, newErr(ErrInvalidHashlock, "hashlock/root must not be zero")
	}
	if funding <= 0 {
		return nil, newErr(ErrInvalidAmount, "funding must be positive")
	}

	id := NewObjectID()
	now := l.now()

	wallet := NewWallet(id, orderHash, asset, maker, hashlockOrRoot, parts, auction, funding, now)

	var result *Wallet
	err := l.withObject(id, func() error {
		if err := l.store.PutWallet(wallet); err != nil {
			return err
		}
		result = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(WalletCreated{
		eventBase: eventBase{At: now},
		Wallet:    id,
		OrderHash: orderHash,
		Maker:     maker,
		Asset:     asset,
		Amount:    funding,
	})

	return result, nil
}

// EscrowParams bundles CreateEscrowSrc/CreateEscrowDst's common inputs so
// neither signature grows an unreadable wall of positional arguments.
type EscrowParams struct {
	Taker         AccountID
	Resolver      AccountID
	SafetyDeposit Balance
	Timelocks     Timelocks

	// SecretHash and Proof are only consulted when the parent wallet is
	// in Merkle mode; SecretIndex must then be the leaf index SecretHash
	// occupies.
	SecretHash  Hash32
	SecretIndex uint64
	Proof       []Hash32
}

// CreateEscrowSrc drains fillAmount from walletID and publishes a new
// source-side escrow funding it, after checking the Dutch-auction floor,
// the admin-configured safety-deposit minimum, and (in Merkle mode) the
// partial-fill index and proof. offeredTakingAmount is what the resolver
// is paying the maker on the destination chain, checked against the
// wallet's auction curve at the current time.
func (l *Ledger) CreateEscrowSrc(
	walletID ObjectID,
	fillAmount Balance,
	offeredTakingAmount Balance,
	p EscrowParams,
) (*Escrow, error) {

	if err := p.Timelocks.CheckTimelocks(); err != nil {
		return nil, err
	}

	cfg, err := l.AdminConfigSnapshot()
	if err != nil {
		return nil, err
	}
	if p.SafetyDeposit < cfg.MinSafetyDeposit {
		return nil, newErr(ErrInvalidSafetyDeposit,
			"safety deposit %d below minimum %d", p.SafetyDeposit, cfg.MinSafetyDeposit)
	}

	var escrow *Escrow
	now := l.now()

	err = l.withObject(walletID, func() error {
		wallet, err := l.store.GetWallet(walletID)
		if err != nil {
			return err
		}
		if wallet == nil {
			return newErr(ErrUnknownObject, "wallet %s not found", walletID)
		}

		if err := wallet.Auction.CheckOffer(offeredTakingAmount, now); err != nil {
			return err
		}

		var hashlock Hash32
		var merkle *MerkleState

		if wallet.AllowsPartialFills() {
			if err := CheckMerkleProof(p.SecretIndex, p.SecretHash, p.Proof, wallet.HashlockOrRoot); err != nil {
				return err
			}
			if err := CheckPartialFill(
				wallet.TotalAmount, wallet.Filled(), fillAmount,
				wallet.PartsAmount, p.SecretIndex,
			); err != nil {
				return err
			}
			hashlock = p.SecretHash
			merkle = &MerkleState{
				Root:        wallet.HashlockOrRoot,
				PartsAmount: wallet.PartsAmount,
				Index:       p.SecretIndex,
			}
		} else {
			if fillAmount != wallet.Balance {
				return newErr(ErrInvalidAmount, "single-fill wallet must be drained in full")
			}
			hashlock = wallet.HashlockOrRoot
		}

		if err := wallet.Drain(fillAmount, p.SecretIndex); err != nil {
			return err
		}
		if err := l.store.PutWallet(wallet); err != nil {
			return err
		}

		deposit := p.SafetyDeposit
		if wallet.AllowsPartialFills() {
			deposit = ProportionalSafetyDeposit(p.SafetyDeposit, fillAmount, wallet.TotalAmount)
		}

		escrow = &Escrow{
			ID:   NewObjectID(),
			Side: SideSrc,
			Params: Params{
				OrderHash:     wallet.OrderHash,
				Asset:         wallet.Asset,
				Maker:         wallet.Maker,
				Taker:         p.Taker,
				Resolver:      p.Resolver,
				Amount:        fillAmount,
				SafetyDeposit: deposit,
				Timelocks:     p.Timelocks,
				DeployedAt:    now,
			},
			Principal:     fillAmount,
			SafetyDeposit: deposit,
			Status:        StatusActive,
			Hashlock:      hashlock,
			Merkle:        merkle,
		}

		return l.store.PutEscrow(escrow)
	})
	if err != nil {
		return nil, err
	}

	var partsAmount PartsAmount
	if escrow.IsMerkle() {
		partsAmount = escrow.Merkle.PartsAmount
	}

	l.publish(EscrowCreated{
		eventBase:     eventBase{At: now},
		Escrow:        escrow.ID,
		Side:          SideSrc,
		OrderHash:     escrow.Params.OrderHash,
		Hashlock:      escrow.Hashlock,
		Maker:         escrow.Params.Maker,
		Taker:         p.Taker,
		Resolver:      p.Resolver,
		Amount:        fillAmount,
		SafetyDeposit: escrow.SafetyDeposit,
		IsMerkle:      escrow.IsMerkle(),
		PartsAmount:   partsAmount,
		Index:         p.SecretIndex,
	})

	return escrow, nil
}

// CreateEscrowDst publishes a destination-side escrow, funded directly by
// the resolver's own inventory rather than drained from a Wallet -- the
// destination side has no shared funding object, matching spec.md §3's
// EscrowDst definition. srcCancellationTS is the absolute wall-clock time
// the matching source-side escrow's src_cancellation stage begins (already
// known to the caller, who deployed or is about to deploy that escrow);
// this destination escrow's own dst_cancellation must land no later than
// that instant, or a resolver could be left with no safe window left to
// cancel the source side after this one expires.
func (l *Ledger) CreateEscrowDst(
	orderHash Hash32,
	asset AssetID,
	hashlock Hash32,
	amount Balance,
	maker AccountID,
	srcCancellationTS time.Time,
	p EscrowParams,
) (*Escrow, error) {

	if orderHash.IsZero() {
		return nil, newErr(ErrInvalidOrderHash, "order hash must not be zero")
	}
	if hashlock.IsZero() {
		return nil, newErr(ErrInvalidHashlock, "hashlock must not be zero")
	}
	if amount <= 0 {
		return nil, newErr(ErrInvalidAmount, "amount must be positive")
	}
	if err := p.Timelocks.CheckTimelocks(); err != nil {
		return nil, err
	}

	cfg, err := l.AdminConfigSnapshot()
	if err != nil {
		return nil, err
	}
	if p.SafetyDeposit < cfg.MinSafetyDeposit {
		return nil, newErr(ErrInvalidSafetyDeposit,
			"safety deposit %d below minimum %d", p.SafetyDeposit, cfg.MinSafetyDeposit)
	}

	now := l.now()

	dstCancellationAt := now.Add(p.Timelocks.DstCancellation)
	if dstCancellationAt.After(srcCancellationTS) {
		return nil, newErr(ErrInvalidTimelock,
			"dst_cancellation %s exceeds src_cancellation_ts %s", dstCancellationAt, srcCancellationTS)
	}

	id := NewObjectID()

	escrow := &Escrow{
		ID:   id,
		Side: SideDst,
		Params: Params{
			OrderHash:     orderHash,
			Asset:         asset,
			Maker:         maker,
			Taker:         p.Taker,
			Resolver:      p.Resolver,
			Amount:        amount,
			SafetyDeposit: p.SafetyDeposit,
			Timelocks:     p.Timelocks,
			DeployedAt:    now,
		},
		Principal:     amount,
		SafetyDeposit: p.SafetyDeposit,
		Status:        StatusActive,
		Hashlock:      hashlock,
	}

	err = l.withObject(id, func() error {
		return l.store.PutEscrow(escrow)
	})
	if err != nil {
		return nil, err
	}

	l.publish(EscrowCreated{
		eventBase:     eventBase{At: now},
		Escrow:        id,
		Side:          SideDst,
		OrderHash:     orderHash,
		Hashlock:      hashlock,
		Maker:         maker,
		Taker:         p.Taker,
		Resolver:      p.Resolver,
		Amount:        amount,
		SafetyDeposit: p.SafetyDeposit,
	})

	return escrow, nil
}
