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

// Liquidate disables an underfunded account and sweeps its remaining balance
// to the caller as the liquidation reward. Anyone may call it; eligibility is
// purely the runway check.
func (m *Market) Liquidate(env Env, owner mesh.Address) (*big.Int, error) {
	var reward *big.Int
	err := m.run(func() error {
		liquidatable, err := m.Liquidatable(owner, env.Tick)
		if err != nil {
			return err
		}
		if !liquidatable {
			return reverts.ErrNotLiquidatable
		}

		if err := m.disableAccount(owner, env.Tick); err != nil {
			return err
		}
		balance, err := m.TotalBalance(owner, env.Tick)
		if err != nil {
			return err
		}
		reward = balance

		rec, err := m.owners.Get(owner)
		if err != nil {
			return err
		}
		rec.Used.Add(rec.Used, balance)
		if env.Caller == owner {
			rec.Earned.Add(rec.Earned, balance)
		} else {
			caller, err := m.owners.Get(env.Caller)
			if err != nil {
				return err
			}
			caller.Earned.Add(caller.Earned, balance)
			if err := m.owners.Save(env.Caller, caller); err != nil {
				return err
			}
		}
		if err := m.owners.Save(owner, rec); err != nil {
			return err
		}

		logger.Info("account liquidated", "owner", owner, "reward", balance)
		metricLiquidations().Add(1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// LiquidateAll liquidates every eligible account of the given set, skipping
// the rest. It returns the total reward swept to the caller.
func (m *Market) LiquidateAll(env Env, addrs []mesh.Address) (*big.Int, error) {
	total := new(big.Int)
	for _, owner := range addrs {
		reward, err := m.Liquidate(env, owner)
		if err != nil {
			if errors.Is(err, reverts.ErrNotLiquidatable) {
				continue
			}
			return nil, err
		}
		total.Add(total, reward)
	}
	return total, nil
}
