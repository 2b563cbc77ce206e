package escrow

import "time"

// Rescue force-drains an object that has sat Active for at least the
// admin-configured rescue delay since its deployedAt, crediting the full
// remaining balance to rescuer and deleting the object outright -- the
// rescued object never lingers in a terminal Cancelled-like state the way
// an ordinary cancellation does, since nothing further can ever happen to
// it. It is the caller-invoked fallback for an object nobody finishes
// settling -- spec.md §4.5 is explicit that rescue is never triggered
// automatically; the background RescueScanner (see the rescuescan
// package) only surfaces candidates, it never calls this.
//
// Rescue accepts either a Wallet or an Escrow id; it is the one entry
// point that operates across both object kinds, since an operator driving
// it from escrowctl has no reason to know which kind a stuck object is.
func (l *Ledger) Rescue(id ObjectID, rescuer AccountID) (*FundsRescued, error) {
	cfg, err := l.AdminConfigSnapshot()
	if err != nil {
		return nil, err
	}

	var ev *FundsRescued

	err = l.withObject(id, func() error {
		now := l.now()

		if e, err := l.store.GetEscrow(id); err != nil {
			return err
		} else if e != nil {
			if e.Status != StatusActive {
				return newErr(ErrNotCancellable, "escrow %s is not active", id)
			}
			if now.Sub(e.Params.DeployedAt) < cfg.RescueDelay {
				return newErr(ErrTimelockNotExpired, "escrow %s has not reached its rescue delay", id)
			}

			principal, deposit := e.Principal, e.SafetyDeposit
			if err := l.store.DeleteEscrow(id); err != nil {
				return err
			}

			ev = &FundsRescued{
				eventBase:       eventBase{At: now},
				Object:          id,
				Rescuer:         rescuer,
				PrincipalAmount: principal,
				DepositAmount:   deposit,
			}
			return nil
		}

		w, err := l.store.GetWallet(id)
		if err != nil {
			return err
		}
		if w == nil {
			return newErr(ErrUnknownObject, "object %s not found", id)
		}
		if !w.IsActive {
			return newErr(ErrWalletInactive, "wallet %s is not active", id)
		}
		if now.Sub(w.DeployedAt) < cfg.RescueDelay {
			return newErr(ErrTimelockNotExpired, "wallet %s has not reached its rescue delay", id)
		}

		principal := w.Balance
		if err := l.store.DeleteWallet(id); err != nil {
			return err
		}

		ev = &FundsRescued{
			eventBase:       eventBase{At: now},
			Object:          id,
			Rescuer:         rescuer,
			PrincipalAmount: principal,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.publish(*ev)
	return ev, nil
}

// DeployedAt reports when id was created and whether it still exists, for
// the rescuescan package's periodic sweep. It only reads: the returned
// time reflects the object's state at the instant of the call, with no
// lock held across the return.
func (l *Ledger) DeployedAt(id ObjectID) (deployedAt time.Time, found bool, err error) {
	if e, err := l.store.GetEscrow(id); err != nil {
		return time.Time{}, false, err
	} else if e != nil {
		return e.Params.DeployedAt, true, nil
	}

	w, err := l.store.GetWallet(id)
	if err != nil {
		return time.Time{}, false, err
	}
	if w == nil {
		return time.Time{}, false, nil
	}
	return w.DeployedAt, true, nil
}
