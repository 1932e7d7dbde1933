// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token moves the fee token between accounts and the engine's
// custody. The engine only depends on the Transferer interface; the Ledger
// here is the default in-state implementation.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

// Transferer is the asset-transfer collaborator. Both directions can fail,
// failing the caller's whole transaction.
type Transferer interface {
	// Pull moves amount from the account into custody.
	Pull(from mesh.Address, amount *big.Int) error
	// Push moves amount out of custody to the account.
	Push(to mesh.Address, amount *big.Int) error
}

var (
	slotBalances = slot.KeyOf("token-balances")
	slotCustody  = slot.KeyOf("token-custody")
)

// Ledger is a state-backed token ledger.
type Ledger struct {
	balances *slot.Mapping[mesh.Address, *big.Int]
	custody  *slot.Uint256
}

var _ Transferer = (*Ledger)(nil)

func New(sctx *slot.Context) *Ledger {
	return &Ledger{
		balances: slot.NewMapping[mesh.Address, *big.Int](sctx, slotBalances),
		custody:  slot.NewUint256(sctx, slotCustody),
	}
}

// Balance returns the free (non-custody) token balance of the account.
func (l *Ledger) Balance(addr mesh.Address) (*big.Int, error) {
	b, err := l.balances.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token balance")
	}
	if b == nil {
		return new(big.Int), nil
	}
	return b, nil
}

// Custody returns the total amount held by the engine.
func (l *Ledger) Custody() (*big.Int, error) {
	return l.custody.Get()
}

// Mint credits freshly issued tokens to the account. Genesis and tests only.
func (l *Ledger) Mint(addr mesh.Address, amount *big.Int) error {
	b, err := l.Balance(addr)
	if err != nil {
		return err
	}
	return l.balances.Set(addr, b.Add(b, amount))
}

// Pull implements Transferer.
func (l *Ledger) Pull(from mesh.Address, amount *big.Int) error {
	b, err := l.Balance(from)
	if err != nil {
		return err
	}
	if b.Cmp(amount) < 0 {
		return errors.Wrap(reverts.ErrInsufficientBalance, "token pull")
	}
	if err := l.balances.Set(from, b.Sub(b, amount)); err != nil {
		return errors.Wrap(err, "failed to set token balance")
	}
	return l.custody.Add(amount)
}

// Push implements Transferer.
func (l *Ledger) Push(to mesh.Address, amount *big.Int) error {
	if err := l.custody.Sub(amount); err != nil {
		return errors.Wrap(reverts.ErrInvariantViolation, "token custody underflow")
	}
	b, err := l.Balance(to)
	if err != nil {
		return err
	}
	return l.balances.Set(to, b.Add(b, amount))
}
