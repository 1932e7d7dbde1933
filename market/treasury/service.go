// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package treasury implements the network-wide fee ledger.
//
// Two accruals run here: the network fee index (rate = network fee), which
// owners snapshot individually, and network earnings (rate = network fee *
// total active validators). The total-active-validator count is owned by the
// registry and passed in, which is why earnings must settle before that
// count or the fee changes.
package treasury

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/accrual"
	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/slot"
)

var (
	slotFee       = slot.KeyOf("treasury-fee")
	slotFeeIndex  = slot.KeyOf("treasury-fee-index")
	slotEarnings  = slot.KeyOf("treasury-earnings")
	slotWithdrawn = slot.KeyOf("treasury-withdrawn")
)

// Service manages the treasury singleton.
type Service struct {
	fee       *slot.Uint256
	feeIndex  *slot.Raw[accrual.Index]
	earnings  *slot.Raw[accrual.Index]
	withdrawn *slot.Uint256
}

func New(sctx *slot.Context) *Service {
	return &Service{
		fee:       slot.NewUint256(sctx, slotFee),
		feeIndex:  slot.NewRaw[accrual.Index](sctx, slotFeeIndex),
		earnings:  slot.NewRaw[accrual.Index](sctx, slotEarnings),
		withdrawn: slot.NewUint256(sctx, slotWithdrawn),
	}
}

// Fee returns the current per-validator-per-tick network fee.
func (s *Service) Fee() (*big.Int, error) {
	return s.fee.Get()
}

// CurrentFeeIndex returns the global network-fee index at the given tick.
func (s *Service) CurrentFeeIndex(now uint64) (*big.Int, error) {
	fee, err := s.fee.Get()
	if err != nil {
		return nil, err
	}
	idx, err := s.feeIndex.Get()
	if err != nil {
		return nil, err
	}
	return idx.ValueAt(fee, now)
}

// CurrentEarnings returns cumulative network revenue at the given tick.
func (s *Service) CurrentEarnings(now, totalValidators uint64) (*big.Int, error) {
	rate, err := s.earnRate(totalValidators)
	if err != nil {
		return nil, err
	}
	earnings, err := s.earnings.Get()
	if err != nil {
		return nil, err
	}
	return earnings.ValueAt(rate, now)
}

func (s *Service) earnRate(totalValidators uint64) (*big.Int, error) {
	fee, err := s.fee.Get()
	if err != nil {
		return nil, err
	}
	return fee.Mul(fee, new(big.Int).SetUint64(totalValidators)), nil
}

// SettleEarnings brings the revenue accrual current. Must be called before
// the total active validator count or the network fee changes.
func (s *Service) SettleEarnings(now, totalValidators uint64) error {
	rate, err := s.earnRate(totalValidators)
	if err != nil {
		return err
	}
	earnings, err := s.earnings.Get()
	if err != nil {
		return err
	}
	if err := earnings.Settle(rate, now); err != nil {
		return err
	}
	return s.earnings.Set(earnings)
}

// SetFee settles both accruals with the old fee, then applies the new rate.
func (s *Service) SetFee(newFee *big.Int, now, totalValidators uint64) error {
	if newFee.Sign() < 0 {
		return errors.Wrap(reverts.ErrInvariantViolation, "negative network fee")
	}
	if err := s.SettleEarnings(now, totalValidators); err != nil {
		return err
	}

	fee, err := s.fee.Get()
	if err != nil {
		return err
	}
	idx, err := s.feeIndex.Get()
	if err != nil {
		return err
	}
	if err := idx.Settle(fee, now); err != nil {
		return err
	}
	if err := s.feeIndex.Set(idx); err != nil {
		return err
	}

	s.fee.Set(newFee)
	return nil
}

// Balance returns accrued revenue net of withdrawals at the given tick.
func (s *Service) Balance(now, totalValidators uint64) (*big.Int, error) {
	earnings, err := s.CurrentEarnings(now, totalValidators)
	if err != nil {
		return nil, err
	}
	withdrawn, err := s.withdrawn.Get()
	if err != nil {
		return nil, err
	}
	if earnings.Cmp(withdrawn) < 0 {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "treasury withdrawn exceeds earnings")
	}
	return earnings.Sub(earnings, withdrawn), nil
}

// Withdraw records a treasury withdrawal, gated on the available balance.
func (s *Service) Withdraw(amount *big.Int, now, totalValidators uint64) error {
	balance, err := s.Balance(now, totalValidators)
	if err != nil {
		return err
	}
	if amount.Cmp(balance) > 0 {
		return reverts.ErrInsufficientTreasury
	}
	return s.withdrawn.Add(amount)
}
