// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

// disableAccount freezes all accrual against the owner: every usage
// relationship is settled and taken off its operator's billing count, the
// owner's validators stop counting toward network revenue, and the record is
// flagged disabled.
func (m *Market) disableAccount(owner mesh.Address, now uint64) error {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return err
	}
	if rec.Disabled {
		return reverts.ErrAlreadyDisabled
	}

	if err := m.settleNetworkEarnings(now); err != nil {
		return err
	}
	if err := m.settleOwnerNetworkFee(rec, now); err != nil {
		return err
	}
	err = m.usage.ForEach(owner, func(rel *usageRel) error {
		op, err := m.operators.Get(rel.Operator)
		if err != nil {
			return err
		}
		if err := op.Settle(now); err != nil {
			return err
		}
		if err := rel.Settle(op.FeeIndex.Base, false); err != nil {
			return err
		}
		if op.ActiveValidators < rel.Validators {
			return errors.Wrap(reverts.ErrInvariantViolation, "operator validator count underflow")
		}
		op.ActiveValidators -= rel.Validators
		if err := m.operators.Save(rel.Operator, op); err != nil {
			return err
		}
		return m.usage.Save(owner, rel)
	})
	if err != nil {
		return err
	}
	if _, err := m.registry.SetOwnerValidatorsActive(owner, false); err != nil {
		return err
	}

	rec.Disabled = true
	if err := m.owners.Save(owner, rec); err != nil {
		return err
	}
	logger.Debug("account disabled", "owner", owner)
	return nil
}

// enableAccount reverses disableAccount. Index snapshots are rebased to the
// enable tick so the disabled span is never billed retroactively.
func (m *Market) enableAccount(owner mesh.Address, now uint64) error {
	rec, err := m.owners.Get(owner)
	if err != nil {
		return err
	}
	if !rec.Disabled {
		return reverts.ErrAlreadyEnabled
	}

	if err := m.settleNetworkEarnings(now); err != nil {
		return err
	}
	err = m.usage.ForEach(owner, func(rel *usageRel) error {
		op, err := m.operators.Get(rel.Operator)
		if err != nil {
			return err
		}
		if err := op.Settle(now); err != nil {
			return err
		}
		op.ActiveValidators += rel.Validators
		if err := m.operators.Save(rel.Operator, op); err != nil {
			return err
		}
		rel.Rebase(op.FeeIndex.Base)
		return m.usage.Save(owner, rel)
	})
	if err != nil {
		return err
	}
	if _, err := m.registry.SetOwnerValidatorsActive(owner, true); err != nil {
		return err
	}

	idx, err := m.treasury.CurrentFeeIndex(now)
	if err != nil {
		return err
	}
	rec.Disabled = false
	rec.NetworkFeeIndex.Set(idx)
	if err := m.owners.Save(owner, rec); err != nil {
		return err
	}
	logger.Debug("account enabled", "owner", owner)
	return nil
}

// EnableAccount re-enables the caller's validators after a liquidation or a
// WithdrawAll. The account must hold enough balance to clear the liquidation
// runway at the resumed burn rate.
func (m *Market) EnableAccount(env Env) error {
	return m.run(func() error {
		if err := m.enableAccount(env.Caller, env.Tick); err != nil {
			return err
		}
		return m.ensureSolvent(env.Caller, env.Tick)
	})
}
