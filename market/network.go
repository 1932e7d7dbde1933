// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"math/big"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

// UpdateNetworkFee sets the per-validator-per-tick network fee. The treasury
// settles both of its accruals with the old rate before the switch.
func (m *Market) UpdateNetworkFee(env Env, newFee *big.Int) error {
	return m.run(func() error {
		if err := m.requireContractOwner(env.Caller); err != nil {
			return err
		}
		if newFee == nil || newFee.Sign() < 0 {
			return reverts.New("negative network fee")
		}
		total, err := m.registry.TotalActiveValidators()
		if err != nil {
			return err
		}
		if err := m.treasury.SetFee(newFee, env.Tick, total); err != nil {
			return err
		}
		m.params.Set(mesh.KeyNetworkFee, newFee)
		logger.Info("network fee updated", "fee", newFee)
		return nil
	})
}

// WithdrawNetworkFees pays accrued network revenue out of the treasury to
// the given recipient.
func (m *Market) WithdrawNetworkFees(env Env, to mesh.Address, amount *big.Int) error {
	return m.run(func() error {
		if err := m.requireContractOwner(env.Caller); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return reverts.New("non-positive amount")
		}
		total, err := m.registry.TotalActiveValidators()
		if err != nil {
			return err
		}
		if err := m.treasury.Withdraw(amount, env.Tick, total); err != nil {
			return err
		}
		if err := m.token.Push(to, amount); err != nil {
			return err
		}
		logger.Info("network fees withdrawn", "to", to, "amount", amount)
		return nil
	})
}

// UpdateLiquidationRunway sets the minimum number of ticks of burn an account
// must always be able to cover.
func (m *Market) UpdateLiquidationRunway(env Env, runway *big.Int) error {
	return m.run(func() error {
		if err := m.requireContractOwner(env.Caller); err != nil {
			return err
		}
		if runway == nil || runway.Sign() < 0 {
			return reverts.New("negative liquidation runway")
		}
		m.params.Set(mesh.KeyLiquidationRunway, runway)
		return nil
	})
}

// UpdateMaxFeeIncreasePercent sets the cap on a single operator fee raise.
func (m *Market) UpdateMaxFeeIncreasePercent(env Env, percent *big.Int) error {
	return m.run(func() error {
		if err := m.requireContractOwner(env.Caller); err != nil {
			return err
		}
		if percent == nil || percent.Sign() < 0 {
			return reverts.New("negative fee increase percent")
		}
		m.params.Set(mesh.KeyMaxFeeIncreasePercent, percent)
		return nil
	})
}
