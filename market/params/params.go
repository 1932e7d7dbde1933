// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package params provides access to governance parameters of the marketplace.
package params

import (
	"math/big"

	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

var slotContractOwner = slot.KeyOf("params-contract-owner")

// Params binder of the governance parameter store.
type Params struct {
	sctx  *slot.Context
	owner *slot.Raw[mesh.Address]
}

func New(sctx *slot.Context) *Params {
	return &Params{
		sctx:  sctx,
		owner: slot.NewRaw[mesh.Address](sctx, slotContractOwner),
	}
}

// Get native way to get param.
func (p *Params) Get(key mesh.Bytes32) (*big.Int, error) {
	return slot.NewUint256(p.sctx, key).Get()
}

// Set native way to set param.
func (p *Params) Set(key mesh.Bytes32, value *big.Int) {
	slot.NewUint256(p.sctx, key).Set(value)
}

// ContractOwner returns the address allowed to run privileged operations.
func (p *Params) ContractOwner() (mesh.Address, error) {
	return p.owner.Get()
}

// SetContractOwner records the privileged address.
func (p *Params) SetContractOwner(addr mesh.Address) error {
	return p.owner.Set(addr)
}
