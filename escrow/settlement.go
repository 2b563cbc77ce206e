package escrow

// WithdrawSrc pays a source escrow's principal to its taker and its safety
// deposit to caller, after checking secret against the escrow's hashlock
// and caller against the current stage's authorization rule:
//
//   - ResolverExclusiveWithdraw: only the escrow's resolver may call.
//   - PublicWithdraw: any caller may call, collecting the safety deposit
//     as their reward for finishing a resolver's stalled swap.
//
// Outside those two stages the escrow is not withdrawable.
func (l *Ledger) WithdrawSrc(escrowID ObjectID, caller AccountID, secret []byte) (*EscrowWithdrawn, error) {
	var ev *EscrowWithdrawn

	err := l.withObject(escrowID, func() error {
		e, err := l.store.GetEscrow(escrowID)
		if err != nil {
			return err
		}
		if e == nil {
			return newErr(ErrUnknownObject, "escrow %s not found", escrowID)
		}
		if e.Side != SideSrc {
			return newErr(ErrNotWithdrawable, "escrow %s is not a source escrow", escrowID)
		}
		if err := checkActive(e); err != nil {
			return err
		}
		if err := CheckHashlock(secret, e.Hashlock); err != nil {
			return err
		}

		now := l.now()
		stage := SrcStageAt(e.Params.Timelocks, e.Params.DeployedAt, now)

		switch stage {
		case SrcResolverExclusiveWithdraw:
			if caller != e.Params.Resolver {
				return newErr(ErrUnauthorised, "only the resolver may withdraw during %s", stage)
			}
		case SrcPublicWithdraw:
			// any caller
		default:
			return newErr(ErrNotWithdrawable, "escrow %s is not withdrawable in stage %s", escrowID, stage)
		}

		amount := e.Principal
		isMerkle := e.IsMerkle()
		var merkleIndex uint64
		if isMerkle {
			merkleIndex = e.Merkle.Index
		}

		e.Status = StatusWithdrawn
		e.Principal = 0
		e.SafetyDeposit = 0
		if err := l.store.PutEscrow(e); err != nil {
			return err
		}

		ev = &EscrowWithdrawn{
			eventBase:   eventBase{At: now},
			Escrow:      escrowID,
			Side:        SideSrc,
			OrderHash:   e.Params.OrderHash,
			Maker:       e.Params.Maker,
			Taker:       e.Params.Taker,
			WithdrawnBy: caller,
			Recipient:   e.Params.Taker,
			Amount:      amount,
			Secret:      secret,
			IsMerkle:    isMerkle,
			MerkleIndex: merkleIndex,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(*ev)
	return ev, nil
}

// WithdrawDst pays a destination escrow's principal to its maker and its
// safety deposit to caller, under the mirror-image authorization rule of
// WithdrawSrc.
func (l *Ledger) WithdrawDst(escrowID ObjectID, caller AccountID, secret []byte) (*EscrowWithdrawn, error) {
	var ev *EscrowWithdrawn

	err := l.withObject(escrowID, func() error {
		e, err := l.store.GetEscrow(escrowID)
		if err != nil {
			return err
		}
		if e == nil {
			return newErr(ErrUnknownObject, "escrow %s not found", escrowID)
		}
		if e.Side != SideDst {
			return newErr(ErrNotWithdrawable, "escrow %s is not a destination escrow", escrowID)
		}
		if err := checkActive(e); err != nil {
			return err
		}
		if err := CheckHashlock(secret, e.Hashlock); err != nil {
			return err
		}

		now := l.now()
		stage := DstStageAt(e.Params.Timelocks, e.Params.DeployedAt, now)

		switch stage {
		case DstResolverExclusiveWithdraw:
			if caller != e.Params.Resolver {
				return newErr(ErrUnauthorised, "only the resolver may withdraw during %s", stage)
			}
		case DstPublicWithdraw:
			// any caller
		default:
			return newErr(ErrNotWithdrawable, "escrow %s is not withdrawable in stage %s", escrowID, stage)
		}

		amount := e.Principal
		isMerkle := e.IsMerkle()
		var merkleIndex uint64
		if isMerkle {
			merkleIndex = e.Merkle.Index
		}

		e.Status = StatusWithdrawn
		e.Principal = 0
		e.SafetyDeposit = 0
		if err := l.store.PutEscrow(e); err != nil {
			return err
		}

		ev = &EscrowWithdrawn{
			eventBase:   eventBase{At: now},
			Escrow:      escrowID,
			Side:        SideDst,
			OrderHash:   e.Params.OrderHash,
			Maker:       e.Params.Maker,
			Taker:       e.Params.Taker,
			WithdrawnBy: caller,
			Recipient:   e.Params.Maker,
			Amount:      amount,
			Secret:      secret,
			IsMerkle:    isMerkle,
			MerkleIndex: merkleIndex,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(*ev)
	return ev, nil
}

// CancelSrc returns a source escrow's principal to its maker once the
// withdrawal window has lapsed. ResolverExclusiveCancel restricts the
// caller to the escrow's own resolver; PublicCancel opens it to anyone,
// who collects the safety deposit as their reward.
func (l *Ledger) CancelSrc(escrowID ObjectID, caller AccountID) (*EscrowCancelled, error) {
	var ev *EscrowCancelled

	err := l.withObject(escrowID, func() error {
		e, err := l.store.GetEscrow(escrowID)
		if err != nil {
			return err
		}
		if e == nil {
			return newErr(ErrUnknownObject, "escrow %s not found", escrowID)
		}
		if e.Side != SideSrc {
			return newErr(ErrNotCancellable, "escrow %s is not a source escrow", escrowID)
		}
		if err := checkActive(e); err != nil {
			return err
		}

		now := l.now()
		stage := SrcStageAt(e.Params.Timelocks, e.Params.DeployedAt, now)

		switch stage {
		case SrcResolverExclusiveCancel:
			if caller != e.Params.Resolver {
				return newErr(ErrUnauthorised, "only the resolver may cancel during %s", stage)
			}
		case SrcPublicCancel:
			// any caller
		default:
			return newErr(ErrNotCancellable, "escrow %s is not cancellable in stage %s", escrowID, stage)
		}

		amount := e.Principal

		e.Status = StatusCancelled
		e.Principal = 0
		e.SafetyDeposit = 0
		if err := l.store.PutEscrow(e); err != nil {
			return err
		}

		ev = &EscrowCancelled{
			eventBase: eventBase{At: now},
			Escrow:    escrowID,
			Side:      SideSrc,
			OrderHash: e.Params.OrderHash,
			Maker:     e.Params.Maker,
			Taker:     e.Params.Taker,
			Canceller: caller,
			Amount:    amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(*ev)
	return ev, nil
}

// CancelDst returns a destination escrow's principal to its taker and its
// safety deposit to caller once the withdrawal window has lapsed. Unlike
// the source side, only the resolver may ever cancel: it was the resolver's own
// inventory that funded the escrow, so there is no public-cancel stage to
// open up.
func (l *Ledger) CancelDst(escrowID ObjectID, caller AccountID) (*EscrowCancelled, error) {
	var ev *EscrowCancelled

	err := l.withObject(escrowID, func() error {
		e, err := l.store.GetEscrow(escrowID)
		if err != nil {
			return err
		}
		if e == nil {
			return newErr(ErrUnknownObject, "escrow %s not found", escrowID)
		}
		if e.Side != SideDst {
			return newErr(ErrNotCancellable, "escrow %s is not a destination escrow", escrowID)
		}
		if err := checkActive(e); err != nil {
			return err
		}

		now := l.now()
		stage := DstStageAt(e.Params.Timelocks, e.Params.DeployedAt, now)

		if stage != DstResolverExclusiveCancel {
			return newErr(ErrNotCancellable, "escrow %s is not cancellable in stage %s", escrowID, stage)
		}
		if caller != e.Params.Resolver {
			return newErr(ErrUnauthorised, "only the resolver may cancel a destination escrow")
		}

		amount := e.Principal

		e.Status = StatusCancelled
		e.Principal = 0
		e.SafetyDeposit = 0
		if err := l.store.PutEscrow(e); err != nil {
			return err
		}

		ev = &EscrowCancelled{
			eventBase: eventBase{At: now},
			Escrow:    escrowID,
			Side:      SideDst,
			OrderHash: e.Params.OrderHash,
			Maker:     e.Params.Maker,
			Taker:     e.Params.Taker,
			Canceller: caller,
			Amount:    amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(*ev)
	return ev, nil
}

// checkActive rejects any mutation on an escrow that has already left the
// Active state, distinguishing which terminal state it landed in so
// callers get ErrAlreadyWithdrawn/ErrAlreadyCancelled rather than a vague
// "not active" error.
func checkActive(e *Escrow) error {
	switch e.Status {
	case StatusActive:
		return nil
	case StatusWithdrawn:
		return newErr(ErrAlreadyWithdrawn, "escrow %s already withdrawn", e.ID)
	case StatusCancelled:
		return newErr(ErrAlreadyCancelled, "escrow %s already cancelled", e.ID)
	default:
		return newErr(ErrNotWithdrawable, "escrow %s in unexpected status", e.ID)
	}
}
