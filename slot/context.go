// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package slot provides contract-style storage primitives on top of state.
// Each ledger reserves an address and lays its records out in named slots,
// the way a Solidity contract lays out its storage.
package slot

import (
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/state"
)

// Context binds a ledger address to the world state.
type Context struct {
	address mesh.Address
	state   *state.State
}

func NewContext(address mesh.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() mesh.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// KeyOf derives the root slot for a named storage field.
func KeyOf(name string) mesh.Bytes32 {
	return mesh.BytesToBytes32([]byte(name))
}
