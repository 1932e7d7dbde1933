// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"math/big"

	"github.com/stakemesh/mesh/market/reverts"
)

// Deposit credits the caller's ledger and pulls the amount into custody.
func (m *Market) Deposit(env Env, amount *big.Int) error {
	return m.run(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.New("non-positive amount")
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		rec.Deposited.Add(rec.Deposited, amount)
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		if err := m.token.Pull(env.Caller, amount); err != nil {
			return err
		}
		metricDeposits().Add(1)
		return nil
	})
}

// Withdraw debits the caller's ledger and pushes the amount out of custody.
// The withdrawal must not leave the account liquidatable.
func (m *Market) Withdraw(env Env, amount *big.Int) error {
	return m.run(func() error {
		if amount == nil || amount.Sign() <= 0 {
			return reverts.New("non-positive amount")
		}
		balance, err := m.TotalBalance(env.Caller, env.Tick)
		if err != nil {
			return err
		}
		if balance.Cmp(amount) < 0 {
			return reverts.ErrInsufficientBalance
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		rec.Withdrawn.Add(rec.Withdrawn, amount)
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		if err := m.ensureSolvent(env.Caller, env.Tick); err != nil {
			return err
		}
		if err := m.token.Push(env.Caller, amount); err != nil {
			return err
		}
		metricWithdrawals().Add(1)
		return nil
	})
}

// WithdrawAll withdraws the caller's entire balance. When the account still
// burns, its validators are disabled first so the balance stops draining the
// moment it leaves.
func (m *Market) WithdrawAll(env Env) (*big.Int, error) {
	var amount *big.Int
	err := m.run(func() error {
		burn, err := m.BurnRate(env.Caller, env.Tick)
		if err != nil {
			return err
		}
		if burn.Sign() > 0 {
			if err := m.disableAccount(env.Caller, env.Tick); err != nil {
				return err
			}
		}
		balance, err := m.TotalBalance(env.Caller, env.Tick)
		if err != nil {
			return err
		}
		amount = balance
		if balance.Sign() == 0 {
			return nil
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		rec.Withdrawn.Add(rec.Withdrawn, balance)
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		if err := m.token.Push(env.Caller, balance); err != nil {
			return err
		}
		metricWithdrawals().Add(1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}
