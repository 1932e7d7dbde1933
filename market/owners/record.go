// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owners

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
)

// Record is the accounting state of one owner account.
//
// Deposited/Withdrawn/Earned/Used are the cumulative ledger legs. NetworkFee
// plus NetworkFeeIndex are the owner's personal snapshot of the global
// network-fee index: the owed fee is settled lazily against the index so a
// network fee change never iterates over owners.
type Record struct {
	Deposited *big.Int
	Withdrawn *big.Int
	Earned    *big.Int
	Used      *big.Int

	NetworkFee      *big.Int
	NetworkFeeIndex *big.Int

	ActiveValidators uint64
	Disabled         bool
}

func (r *Record) normalize() *Record {
	for _, f := range []**big.Int{&r.Deposited, &r.Withdrawn, &r.Earned, &r.Used, &r.NetworkFee, &r.NetworkFeeIndex} {
		if *f == nil {
			*f = new(big.Int)
		}
	}
	return r
}

// PendingNetworkFee returns the network fee owed on top of the settled
// snapshot, given the current global fee index. A disabled owner accrues
// nothing further.
func (r *Record) PendingNetworkFee(currentIndex *big.Int) (*big.Int, error) {
	if r.Disabled {
		return new(big.Int), nil
	}
	if currentIndex.Cmp(r.NetworkFeeIndex) < 0 {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "network fee index went backwards")
	}
	pending := new(big.Int).Sub(currentIndex, r.NetworkFeeIndex)
	return pending.Mul(pending, new(big.Int).SetUint64(r.ActiveValidators)), nil
}

// SettleNetworkFee folds the pending network fee into the snapshot. Must run
// before ActiveValidators changes and before total expenses are read.
func (r *Record) SettleNetworkFee(currentIndex *big.Int) error {
	pending, err := r.PendingNetworkFee(currentIndex)
	if err != nil {
		return err
	}
	r.NetworkFee.Add(r.NetworkFee, pending)
	if !r.Disabled {
		r.NetworkFeeIndex.Set(currentIndex)
	}
	return nil
}
