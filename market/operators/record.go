// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operators

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/accrual"
	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

// Record is the accounting state of one operator.
//
// Two accruals run against it: the fee index (rate = Fee), which prices one
// validator-tick of this operator's service for usage relationships, and the
// earnings accrual (rate = Fee * ActiveValidators), which is what the
// operator's owner is owed. Both must be settled before Fee or
// ActiveValidators change.
//
// ActiveValidators is the billing count only: disabling an owner takes its
// validators out of it while their frozen usage relationships still snapshot
// the fee index. LinkedValidators counts every assigned validator regardless
// of owner state and keeps the record alive until the last one unlinks.
type Record struct {
	Fee              *big.Int
	FeeIndex         accrual.Index
	Earnings         accrual.Index
	ActiveValidators uint64
	LinkedValidators uint64 // all assigned validators, disabled owners included
	LastFeeUpdate    uint64 // wall clock, guards the fee-change cooldown
}

func newRecord(fee *big.Int, now, timestamp uint64) *Record {
	return &Record{
		Fee:              new(big.Int).Set(fee),
		FeeIndex:         accrual.Index{Base: new(big.Int), BaseTick: now},
		Earnings:         accrual.Index{Base: new(big.Int), BaseTick: now},
		LastFeeUpdate:    timestamp,
		ActiveValidators: 0,
		LinkedValidators: 0,
	}
}

// EarnRate returns the operator's instantaneous earning rate per tick.
func (r *Record) EarnRate() *big.Int {
	return new(big.Int).Mul(r.Fee, new(big.Int).SetUint64(r.ActiveValidators))
}

// CurrentEarnings returns settled plus pending earnings at the given tick.
func (r *Record) CurrentEarnings(now uint64) (*big.Int, error) {
	return r.Earnings.ValueAt(r.EarnRate(), now)
}

// CurrentFeeIndex returns the per-validator fee index at the given tick.
func (r *Record) CurrentFeeIndex(now uint64) (*big.Int, error) {
	return r.FeeIndex.ValueAt(r.Fee, now)
}

// Settle brings both accruals current. Callers must settle before mutating
// Fee or ActiveValidators.
func (r *Record) Settle(now uint64) error {
	if err := r.FeeIndex.Settle(r.Fee, now); err != nil {
		return err
	}
	return r.Earnings.Settle(r.EarnRate(), now)
}

// SetFee applies a fee change at the given tick and wall-clock timestamp.
// Changes are rejected while the cooldown is active, and increases are capped
// at maxIncreasePercent of the current fee. Decreases pass the cap trivially.
func (r *Record) SetFee(newFee *big.Int, now, timestamp uint64, maxIncreasePercent *big.Int) error {
	if timestamp-r.LastFeeUpdate <= mesh.FeeUpdateCooldown {
		return reverts.ErrCooldownActive
	}

	cap_ := new(big.Int).Add(big.NewInt(100), maxIncreasePercent)
	cap_.Mul(cap_, r.Fee)
	cap_.Div(cap_, big.NewInt(100))
	if newFee.Cmp(cap_) > 0 {
		return reverts.ErrFeeIncreaseTooLarge
	}
	if newFee.Sign() < 0 {
		return errors.Wrap(reverts.ErrInvariantViolation, "negative operator fee")
	}

	// accrue with the old fee up to now, then switch
	if err := r.Settle(now); err != nil {
		return err
	}
	r.Fee = new(big.Int).Set(newFee)
	r.LastFeeUpdate = timestamp
	return nil
}
