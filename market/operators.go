// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"math/big"

	"github.com/stakemesh/mesh/market/registry"
	"github.com/stakemesh/mesh/mesh"
)

// RegisterOperator registers a new operator selling capacity at the given
// fee, owned by the caller. Returns the operator's directory ID.
func (m *Market) RegisterOperator(env Env, pubKey []byte, fee *big.Int) (mesh.Bytes32, error) {
	id := registry.IDOf(pubKey)
	err := m.run(func() error {
		if err := m.registry.AddOperator(id, pubKey, env.Caller); err != nil {
			return err
		}
		if err := m.operators.Create(id, fee, env.Tick, env.Time); err != nil {
			return err
		}
		logger.Debug("operator registered", "id", id.AbbrevString(), "fee", fee)
		metricOperators().Add(1)
		return nil
	})
	if err != nil {
		return mesh.Bytes32{}, err
	}
	return id, nil
}

// UpdateOperatorFee changes the operator's fee, subject to the cooldown and
// the configured maximum increase.
func (m *Market) UpdateOperatorFee(env Env, id mesh.Bytes32, newFee *big.Int) error {
	return m.run(func() error {
		if err := m.requireOperatorOwner(id, env.Caller); err != nil {
			return err
		}
		maxIncrease, err := m.params.Get(mesh.KeyMaxFeeIncreasePercent)
		if err != nil {
			return err
		}
		rec, err := m.operators.Get(id)
		if err != nil {
			return err
		}
		if err := rec.SetFee(newFee, env.Tick, env.Time, maxIncrease); err != nil {
			return err
		}
		return m.operators.Save(id, rec)
	})
}

// UpdateOperatorScore updates directory score metadata. Privileged.
func (m *Market) UpdateOperatorScore(env Env, id mesh.Bytes32, score uint64) error {
	return m.run(func() error {
		if err := m.requireContractOwner(env.Caller); err != nil {
			return err
		}
		return m.registry.SetOperatorScore(id, score)
	})
}

// ActivateOperator reopens the operator to new validator assignments.
func (m *Market) ActivateOperator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireOperatorOwner(id, env.Caller); err != nil {
			return err
		}
		return m.registry.SetOperatorActive(id, true)
	})
}

// DeactivateOperator stops new validator assignments to the operator.
// Existing relationships keep accruing.
func (m *Market) DeactivateOperator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireOperatorOwner(id, env.Caller); err != nil {
			return err
		}
		return m.registry.SetOperatorActive(id, false)
	})
}

// RemoveOperator deletes an operator with no remaining validators, folding
// its settled earnings into the owner's earned leg.
func (m *Market) RemoveOperator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireOperatorOwner(id, env.Caller); err != nil {
			return err
		}
		earnings, err := m.operators.Remove(id, env.Tick)
		if err != nil {
			return err
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		rec.Earned.Add(rec.Earned, earnings)
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		return m.registry.RemoveOperator(id)
	})
}
