// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

//
// Read-only queries. None of these mutate state; accruals are evaluated
// against the supplied tick without settling.
//

// OperatorFee returns the operator's current per-validator-per-tick fee.
func (m *Market) OperatorFee(id mesh.Bytes32) (*big.Int, error) {
	rec, err := m.operators.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.Fee, nil
}

// OperatorEarnings returns the operator's cumulative earnings at the tick.
func (m *Market) OperatorEarnings(id mesh.Bytes32, now uint64) (*big.Int, error) {
	rec, err := m.operators.Get(id)
	if err != nil {
		return nil, err
	}
	return rec.CurrentEarnings(now)
}

// NetworkFee returns the current network fee rate.
func (m *Market) NetworkFee() (*big.Int, error) {
	return m.treasury.Fee()
}

// TreasuryBalance returns network revenue net of withdrawals at the tick.
func (m *Market) TreasuryBalance(now uint64) (*big.Int, error) {
	total, err := m.registry.TotalActiveValidators()
	if err != nil {
		return nil, err
	}
	return m.treasury.Balance(now, total)
}

// TotalEarnings returns the owner's earned leg plus the live earnings of
// every operator the owner itself runs.
func (m *Market) TotalEarnings(owner mesh.Address, now uint64) (*big.Int, error) {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(rec.Earned)

	ids, err := m.registry.OperatorsByOwner(owner)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		op, err := m.operators.Get(id)
		if err != nil {
			return nil, err
		}
		earnings, err := op.CurrentEarnings(now)
		if err != nil {
			return nil, err
		}
		total.Add(total, earnings)
	}
	return total, nil
}

// TotalExpenses returns the owner's used leg, owed network fees, and live
// usage across all relationships at the tick.
func (m *Market) TotalExpenses(owner mesh.Address, now uint64) (*big.Int, error) {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(rec.Used)
	total.Add(total, rec.NetworkFee)

	networkIndex, err := m.treasury.CurrentFeeIndex(now)
	if err != nil {
		return nil, err
	}
	pendingFee, err := rec.PendingNetworkFee(networkIndex)
	if err != nil {
		return nil, err
	}
	total.Add(total, pendingFee)

	err = m.usage.ForEach(owner, func(rel *usageRel) error {
		op, err := m.operators.Get(rel.Operator)
		if err != nil {
			return err
		}
		feeIndex, err := op.CurrentFeeIndex(now)
		if err != nil {
			return err
		}
		used, err := rel.CurrentUsage(feeIndex, rec.Disabled)
		if err != nil {
			return err
		}
		total.Add(total, used)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return total, nil
}

// TotalBalance returns deposits plus earnings net of withdrawals and
// expenses. A negative result is a bug in the gating logic, not user error.
func (m *Market) TotalBalance(owner mesh.Address, now uint64) (*big.Int, error) {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return nil, err
	}
	earnings, err := m.TotalEarnings(owner, now)
	if err != nil {
		return nil, err
	}
	expenses, err := m.TotalExpenses(owner, now)
	if err != nil {
		return nil, err
	}

	balance := new(big.Int).Add(rec.Deposited, earnings)
	balance.Sub(balance, rec.Withdrawn)
	balance.Sub(balance, expenses)
	if balance.Sign() < 0 {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "negative owner balance")
	}
	return balance, nil
}

// BurnRate returns the owner's instantaneous net outflow per tick: usage
// cost plus network fees across all relationships, less the earn rate of the
// owner's own operators. The subtraction clamps at zero, an owner whose
// operator income outpaces its usage cost reports no burn at all. Disabled
// owners burn nothing.
func (m *Market) BurnRate(owner mesh.Address, now uint64) (*big.Int, error) {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return nil, err
	}
	if rec.Disabled {
		return new(big.Int), nil
	}

	networkFee, err := m.treasury.Fee()
	if err != nil {
		return nil, err
	}

	burn := new(big.Int)
	err = m.usage.ForEach(owner, func(rel *usageRel) error {
		op, err := m.operators.Get(rel.Operator)
		if err != nil {
			return err
		}
		cost := new(big.Int).Add(op.Fee, networkFee)
		cost.Mul(cost, new(big.Int).SetUint64(rel.Validators))
		burn.Add(burn, cost)
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids, err := m.registry.OperatorsByOwner(owner)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		op, err := m.operators.Get(id)
		if err != nil {
			return nil, err
		}
		burn.Sub(burn, op.EarnRate())
		if burn.Sign() < 0 {
			return new(big.Int), nil
		}
	}
	return burn, nil
}

// Liquidatable reports whether the owner's balance no longer covers the
// configured runway of burn. An already disabled owner is not liquidatable.
func (m *Market) Liquidatable(owner mesh.Address, now uint64) (bool, error) {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return false, err
	}
	if rec.Disabled {
		return false, nil
	}

	burn, err := m.BurnRate(owner, now)
	if err != nil {
		return false, err
	}
	balance, err := m.TotalBalance(owner, now)
	if err != nil {
		return false, err
	}
	runway, err := m.liquidationRunway()
	if err != nil {
		return false, err
	}
	return balance.Cmp(new(big.Int).Mul(runway, burn)) < 0, nil
}
