// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package market

import (
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/owners"
	"github.com/stakemesh/mesh/market/registry"
	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
)

// settleNetworkEarnings brings the treasury revenue accrual current. Must
// precede any change to the network-wide active validator count.
func (m *Market) settleNetworkEarnings(now uint64) error {
	total, err := m.registry.TotalActiveValidators()
	if err != nil {
		return err
	}
	return m.treasury.SettleEarnings(now, total)
}

// settleOwnerNetworkFee folds the owner's pending network fee into its
// snapshot. Must precede any change to the owner's active validator count.
func (m *Market) settleOwnerNetworkFee(rec *owners.Record, now uint64) error {
	idx, err := m.treasury.CurrentFeeIndex(now)
	if err != nil {
		return err
	}
	return rec.SettleNetworkFee(idx)
}

// startUsing settles the operator, bumps its billing validator count and
// adds one validator to the (owner, operator) usage relationship.
func (m *Market) startUsing(owner mesh.Address, rec *owners.Record, opID mesh.Bytes32, now uint64) error {
	op, err := m.operators.Get(opID)
	if err != nil {
		return err
	}
	if err := op.Settle(now); err != nil {
		return err
	}
	op.ActiveValidators++
	op.LinkedValidators++
	if err := m.operators.Save(opID, op); err != nil {
		return err
	}
	return m.usage.Use(owner, opID, op.FeeIndex.Base, rec.Disabled)
}

// stopUsing reverses startUsing, folding a fully removed relationship's
// usage into the owner's used leg.
func (m *Market) stopUsing(owner mesh.Address, rec *owners.Record, opID mesh.Bytes32, now uint64) error {
	op, err := m.operators.Get(opID)
	if err != nil {
		return err
	}
	if err := op.Settle(now); err != nil {
		return err
	}
	if op.ActiveValidators == 0 || op.LinkedValidators == 0 {
		return errors.Wrap(reverts.ErrInvariantViolation, "operator validator count underflow")
	}
	op.ActiveValidators--
	op.LinkedValidators--
	if err := m.operators.Save(opID, op); err != nil {
		return err
	}
	folded, err := m.usage.StopUsing(owner, opID, op.FeeIndex.Base, rec.Disabled)
	if err != nil {
		return err
	}
	if folded != nil {
		rec.Used.Add(rec.Used, folded)
	}
	return nil
}

// checkOperatorSet validates a validator's operator assignment.
func (m *Market) checkOperatorSet(ids []mesh.Bytes32) error {
	if len(ids) == 0 || len(ids) > mesh.MaxValidatorOperators {
		return reverts.New("invalid operator count")
	}
	for i, id := range ids {
		for _, prev := range ids[:i] {
			if prev == id {
				return reverts.New("duplicate operator in set")
			}
		}
		meta, err := m.registry.Operator(id)
		if err != nil {
			return err
		}
		if !meta.Active {
			return reverts.New("operator is not active")
		}
	}
	return nil
}

// RegisterValidator registers a validator owned by the caller and starts
// billing against the assigned operators immediately.
func (m *Market) RegisterValidator(env Env, pubKey []byte, operatorIDs []mesh.Bytes32) (mesh.Bytes32, error) {
	id := registry.IDOf(pubKey)
	err := m.run(func() error {
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		if rec.Disabled {
			return reverts.New("account validators are disabled")
		}
		if err := m.checkOperatorSet(operatorIDs); err != nil {
			return err
		}

		if err := m.settleNetworkEarnings(env.Tick); err != nil {
			return err
		}
		if err := m.settleOwnerNetworkFee(rec, env.Tick); err != nil {
			return err
		}
		for _, opID := range operatorIDs {
			if err := m.startUsing(env.Caller, rec, opID, env.Tick); err != nil {
				return err
			}
		}
		rec.ActiveValidators++
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		if err := m.registry.AddValidator(id, pubKey, env.Caller, operatorIDs); err != nil {
			return err
		}

		if err := m.ensureSolvent(env.Caller, env.Tick); err != nil {
			return err
		}
		logger.Debug("validator registered", "id", id.AbbrevString(), "operators", len(operatorIDs))
		metricValidators().Add(1)
		return nil
	})
	if err != nil {
		return mesh.Bytes32{}, err
	}
	return id, nil
}

// UpdateValidator reassigns a validator to a new operator set in one
// transaction, settling the old relationships before the switch.
func (m *Market) UpdateValidator(env Env, id mesh.Bytes32, operatorIDs []mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireValidatorOwner(id, env.Caller); err != nil {
			return err
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		if rec.Disabled {
			return reverts.New("account validators are disabled")
		}
		if err := m.checkOperatorSet(operatorIDs); err != nil {
			return err
		}

		v, err := m.registry.Validator(id)
		if err != nil {
			return err
		}
		if v.Active {
			for _, opID := range v.Operators {
				if err := m.stopUsing(env.Caller, rec, opID, env.Tick); err != nil {
					return err
				}
			}
			for _, opID := range operatorIDs {
				if err := m.startUsing(env.Caller, rec, opID, env.Tick); err != nil {
					return err
				}
			}
			if err := m.owners.Save(env.Caller, rec); err != nil {
				return err
			}
		}
		if err := m.registry.SetValidatorOperators(id, operatorIDs); err != nil {
			return err
		}
		return m.ensureSolvent(env.Caller, env.Tick)
	})
}

// RemoveValidator deletes a validator and stops all billing for it.
func (m *Market) RemoveValidator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireValidatorOwner(id, env.Caller); err != nil {
			return err
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		if rec.Disabled {
			return reverts.New("account validators are disabled")
		}

		v, err := m.registry.Validator(id)
		if err != nil {
			return err
		}
		if v.Active {
			if err := m.settleNetworkEarnings(env.Tick); err != nil {
				return err
			}
			if err := m.settleOwnerNetworkFee(rec, env.Tick); err != nil {
				return err
			}
			for _, opID := range v.Operators {
				if err := m.stopUsing(env.Caller, rec, opID, env.Tick); err != nil {
					return err
				}
			}
			if rec.ActiveValidators == 0 {
				return errors.Wrap(reverts.ErrInvariantViolation, "owner validator count underflow")
			}
			rec.ActiveValidators--
			if err := m.owners.Save(env.Caller, rec); err != nil {
				return err
			}
		}
		return m.registry.RemoveValidator(id)
	})
}

// ActivateValidator resumes billing for a deactivated validator.
func (m *Market) ActivateValidator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireValidatorOwner(id, env.Caller); err != nil {
			return err
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		if rec.Disabled {
			return reverts.New("account validators are disabled")
		}
		v, err := m.registry.Validator(id)
		if err != nil {
			return err
		}
		if v.Active {
			return reverts.ErrAlreadyEnabled
		}

		if err := m.settleNetworkEarnings(env.Tick); err != nil {
			return err
		}
		if err := m.settleOwnerNetworkFee(rec, env.Tick); err != nil {
			return err
		}
		for _, opID := range v.Operators {
			if err := m.startUsing(env.Caller, rec, opID, env.Tick); err != nil {
				return err
			}
		}
		rec.ActiveValidators++
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		if err := m.registry.SetValidatorActive(id, true); err != nil {
			return err
		}
		return m.ensureSolvent(env.Caller, env.Tick)
	})
}

// DeactivateValidator suspends billing for an active validator.
func (m *Market) DeactivateValidator(env Env, id mesh.Bytes32) error {
	return m.run(func() error {
		if err := m.requireValidatorOwner(id, env.Caller); err != nil {
			return err
		}
		rec, err := m.owners.Get(env.Caller)
		if err != nil {
			return err
		}
		if rec.Disabled {
			return reverts.New("account validators are disabled")
		}
		v, err := m.registry.Validator(id)
		if err != nil {
			return err
		}
		if !v.Active {
			return reverts.ErrAlreadyDisabled
		}

		if err := m.settleNetworkEarnings(env.Tick); err != nil {
			return err
		}
		if err := m.settleOwnerNetworkFee(rec, env.Tick); err != nil {
			return err
		}
		for _, opID := range v.Operators {
			if err := m.stopUsing(env.Caller, rec, opID, env.Tick); err != nil {
				return err
			}
		}
		if rec.ActiveValidators == 0 {
			return errors.Wrap(reverts.ErrInvariantViolation, "owner validator count underflow")
		}
		rec.ActiveValidators--
		if err := m.owners.Save(env.Caller, rec); err != nil {
			return err
		}
		return m.registry.SetValidatorActive(id, false)
	})
}
