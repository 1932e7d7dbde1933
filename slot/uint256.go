// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/mesh"
)

// Uint256 is a wrapper for storage and retrieval of an unsigned 256-bit
// quantity at a fixed slot, similar to storing an uint256 in a smart contract.
type Uint256 struct {
	context *Context
	pos     mesh.Bytes32
}

func NewUint256(context *Context, pos mesh.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.address, u.pos, mesh.BytesToBytes32(value.Bytes()))
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

// Sub subtracts value in place. It is an error to drive the stored
// quantity negative; the quantities here are unsigned by construction.
func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	if storage.Cmp(value) < 0 {
		return errors.New("uint256 underflow")
	}
	storage.Sub(storage, value)
	u.Set(storage)
	return nil
}
