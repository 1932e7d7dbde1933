// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accrual implements the running-total formula every lazy ledger
// quantity in the engine is built on:
//
//	value(now) = base + rate * (now - baseTick)
//
// Settling replaces (base, baseTick) with (value(now), now), so any number
// of ticks elapse between settlements without per-tick bookkeeping.
package accrual

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
)

// Index is a stored accrual snapshot. The rate is not part of the snapshot;
// it is owned by the caller and may change between settlements, which is
// exactly why callers must settle before changing it.
type Index struct {
	Base     *big.Int
	BaseTick uint64
}

// ValueAt returns base + rate*(now - baseTick) without mutating the index.
// When now precedes the snapshot tick the base is returned untouched.
func (i *Index) ValueAt(rate *big.Int, now uint64) (*big.Int, error) {
	base := i.Base
	if base == nil {
		base = new(big.Int)
	}
	if now <= i.BaseTick {
		return new(big.Int).Set(base), nil
	}

	elapsed := uint256.NewInt(now - i.BaseTick)
	r, overflow := uint256.FromBig(rate)
	if overflow {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "accrual rate out of range")
	}
	b, overflow := uint256.FromBig(base)
	if overflow {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "accrual base out of range")
	}

	grown := new(uint256.Int)
	if _, overflow = grown.MulOverflow(elapsed, r); overflow {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "accrual mul overflow")
	}
	if _, overflow = grown.AddOverflow(grown, b); overflow {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "accrual add overflow")
	}
	return grown.ToBig(), nil
}

// Settle folds the accrued value into the base and advances the snapshot
// tick. Settling twice at the same tick is a no-op the second time.
func (i *Index) Settle(rate *big.Int, now uint64) error {
	value, err := i.ValueAt(rate, now)
	if err != nil {
		return err
	}
	i.Base = value
	if now > i.BaseTick {
		i.BaseTick = now
	}
	return nil
}
