// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package usage

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

// Relationship is the billing link between one owner and one operator.
// Usage accrues as (operator fee index delta) * Validators; the operator's
// fee index is owned by the operator ledger and passed in by the caller.
type Relationship struct {
	Operator   mesh.Bytes32
	Index      *big.Int // operator fee index snapshot at last settle
	Validators uint64
	Used       *big.Int
	Position   uint64 // index into the owner's relationship list
}

func (r *Relationship) normalize() *Relationship {
	if r.Index == nil {
		r.Index = new(big.Int)
	}
	if r.Used == nil {
		r.Used = new(big.Int)
	}
	return r
}

// CurrentUsage returns settled plus pending usage against the given operator
// fee index. While the owner is disabled the value is frozen.
func (r *Relationship) CurrentUsage(feeIndex *big.Int, disabled bool) (*big.Int, error) {
	if disabled {
		return new(big.Int).Set(r.Used), nil
	}
	if feeIndex.Cmp(r.Index) < 0 {
		return nil, errors.Wrap(reverts.ErrInvariantViolation, "operator fee index went backwards")
	}
	pending := new(big.Int).Sub(feeIndex, r.Index)
	pending.Mul(pending, new(big.Int).SetUint64(r.Validators))
	return pending.Add(pending, r.Used), nil
}

// Settle folds pending usage into Used and advances the index snapshot.
// A disabled owner's relationship is frozen and settles to itself.
func (r *Relationship) Settle(feeIndex *big.Int, disabled bool) error {
	used, err := r.CurrentUsage(feeIndex, disabled)
	if err != nil {
		return err
	}
	r.Used = used
	if !disabled {
		r.Index = new(big.Int).Set(feeIndex)
	}
	return nil
}

// Rebase advances the index snapshot without accruing, skipping the span the
// owner spent disabled. There is deliberately no retroactive billing.
func (r *Relationship) Rebase(feeIndex *big.Int) {
	r.Index = new(big.Int).Set(feeIndex)
}
