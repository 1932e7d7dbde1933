// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package market composes the marketplace ledgers into the public
// transaction surface: operator and validator lifecycle, deposits and
// withdrawals, network fees and liquidation.
//
// Every public operation runs against a state checkpoint and reverts wholly
// on error. Within an operation the settlement discipline is fixed: network
// earnings first, then operator ledgers, then the owner's network-fee
// snapshot, then usage relationships, always before counts or rates change
// and before any post-condition is evaluated. Internal ledger writes complete
// before the token transferer is invoked.
package market

import (
	"math/big"

	"github.com/stakemesh/mesh/log"
	"github.com/stakemesh/mesh/market/operators"
	"github.com/stakemesh/mesh/market/owners"
	"github.com/stakemesh/mesh/market/params"
	"github.com/stakemesh/mesh/market/registry"
	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/market/token"
	"github.com/stakemesh/mesh/market/treasury"
	"github.com/stakemesh/mesh/market/usage"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
	"github.com/stakemesh/mesh/state"
)

var logger = log.WithContext("pkg", "market")

type usageRel = usage.Relationship

// Ledger addresses. Each service lays out its storage under its own address.
var (
	ParamsAddress    = mesh.BytesToAddress([]byte("mesh-params"))
	RegistryAddress  = mesh.BytesToAddress([]byte("mesh-registry"))
	OperatorsAddress = mesh.BytesToAddress([]byte("mesh-operators"))
	OwnersAddress    = mesh.BytesToAddress([]byte("mesh-owners"))
	UsageAddress     = mesh.BytesToAddress([]byte("mesh-usage"))
	TreasuryAddress  = mesh.BytesToAddress([]byte("mesh-treasury"))
	TokenAddress     = mesh.BytesToAddress([]byte("mesh-token"))
)

// Env is the transaction context every public operation runs in. Tick is the
// logical clock all accrual is computed against; Time is wall clock and only
// gates the operator fee-update cooldown.
type Env struct {
	Tick   uint64
	Time   uint64
	Caller mesh.Address
}

// Market implements the marketplace engine over a world state.
type Market struct {
	state     *state.State
	params    *params.Params
	registry  *registry.Registry
	operators *operators.Service
	owners    *owners.Service
	usage     *usage.Service
	treasury  *treasury.Service
	token     token.Transferer
}

// New creates the engine bound to the given state and asset transferer.
func New(st *state.State, transferer token.Transferer) *Market {
	return &Market{
		state:     st,
		params:    params.New(slot.NewContext(ParamsAddress, st)),
		registry:  registry.New(slot.NewContext(RegistryAddress, st)),
		operators: operators.New(slot.NewContext(OperatorsAddress, st)),
		owners:    owners.New(slot.NewContext(OwnersAddress, st)),
		usage:     usage.New(slot.NewContext(UsageAddress, st)),
		treasury:  treasury.New(slot.NewContext(TreasuryAddress, st)),
		token:     transferer,
	}
}

// NewWithLedger creates the engine with the default in-state token ledger.
func NewWithLedger(st *state.State) (*Market, *token.Ledger) {
	ledger := token.New(slot.NewContext(TokenAddress, st))
	return New(st, ledger), ledger
}

// Initialize seeds governance parameters and records the contract owner.
// It is a one-shot genesis operation.
func (m *Market) Initialize(contractOwner mesh.Address) error {
	return m.run(func() error {
		existing, err := m.params.ContractOwner()
		if err != nil {
			return err
		}
		if !existing.IsZero() {
			return reverts.New("already initialized")
		}
		if err := m.params.SetContractOwner(contractOwner); err != nil {
			return err
		}
		m.params.Set(mesh.KeyNetworkFee, mesh.InitialNetworkFee)
		m.params.Set(mesh.KeyLiquidationRunway, mesh.InitialLiquidationRunway)
		m.params.Set(mesh.KeyMaxFeeIncreasePercent, mesh.InitialMaxFeeIncreasePercent)
		return m.treasury.SetFee(mesh.InitialNetworkFee, 0, 0)
	})
}

// Params returns the governance parameter store.
func (m *Market) Params() *params.Params {
	return m.params
}

// Registry returns the directory.
func (m *Market) Registry() *registry.Registry {
	return m.registry
}

// Owners returns the owner ledger.
func (m *Market) Owners() *owners.Service {
	return m.owners
}

// Operators returns the operator ledger.
func (m *Market) Operators() *operators.Service {
	return m.operators
}

// Usage returns the usage-relationship ledger.
func (m *Market) Usage() *usage.Service {
	return m.usage
}

// Treasury returns the network treasury ledger.
func (m *Market) Treasury() *treasury.Service {
	return m.treasury
}

// run executes fn with all-or-nothing semantics against the state journal.
func (m *Market) run(fn func() error) error {
	checkpoint := m.state.NewCheckpoint()
	if err := fn(); err != nil {
		m.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// requireContractOwner gates privileged operations.
func (m *Market) requireContractOwner(caller mesh.Address) error {
	owner, err := m.params.ContractOwner()
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.ErrUnauthorized
	}
	return nil
}

// requireOperatorOwner gates operator mutations to the operator's owner.
func (m *Market) requireOperatorOwner(id mesh.Bytes32, caller mesh.Address) error {
	owner, err := m.registry.OperatorOwner(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.ErrUnauthorized
	}
	return nil
}

// requireValidatorOwner gates validator mutations to the validator's owner.
func (m *Market) requireValidatorOwner(id mesh.Bytes32, caller mesh.Address) error {
	owner, err := m.registry.ValidatorOwner(id)
	if err != nil {
		return err
	}
	if owner != caller {
		return reverts.ErrUnauthorized
	}
	return nil
}

// liquidationRunway reads the configured minimum runway in ticks.
func (m *Market) liquidationRunway() (*big.Int, error) {
	return m.params.Get(mesh.KeyLiquidationRunway)
}

// ensureSolvent fails with InsufficientBalance when the owner would be
// liquidatable right after the current operation.
func (m *Market) ensureSolvent(owner mesh.Address, now uint64) error {
	liquidatable, err := m.Liquidatable(owner, now)
	if err != nil {
		return err
	}
	if liquidatable {
		return reverts.ErrInsufficientBalance
	}
	return nil
}
