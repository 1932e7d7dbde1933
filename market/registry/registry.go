// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry implements the operator/validator directory. It stores
// registration metadata and ownership indexes; all money accounting lives in
// the ledger packages.
package registry

import (
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

var (
	slotOperators       = slot.KeyOf("registry-operators")
	slotValidators      = slot.KeyOf("registry-validators")
	slotOwnerOperators  = slot.KeyOf("registry-owner-operators")
	slotOwnerValidators = slot.KeyOf("registry-owner-validators")
	slotActiveCount     = slot.KeyOf("registry-active-count")
)

// Operator is directory metadata of one operator.
type Operator struct {
	PubKey []byte
	Owner  mesh.Address
	Score  uint64
	Active bool
}

// Validator is directory metadata of one validator.
type Validator struct {
	PubKey    []byte
	Owner     mesh.Address
	Operators []mesh.Bytes32
	Active    bool
}

// IDOf derives the directory ID of a public key.
func IDOf(pubKey []byte) mesh.Bytes32 {
	return mesh.Blake2b(pubKey)
}

// Registry is the state-backed directory.
type Registry struct {
	operators       *slot.Mapping[mesh.Bytes32, *Operator]
	validators      *slot.Mapping[mesh.Bytes32, *Validator]
	ownerOperators  *slot.Mapping[mesh.Address, []mesh.Bytes32]
	ownerValidators *slot.Mapping[mesh.Address, []mesh.Bytes32]
	activeCount     *slot.Raw[uint64]
}

func New(sctx *slot.Context) *Registry {
	return &Registry{
		operators:       slot.NewMapping[mesh.Bytes32, *Operator](sctx, slotOperators),
		validators:      slot.NewMapping[mesh.Bytes32, *Validator](sctx, slotValidators),
		ownerOperators:  slot.NewMapping[mesh.Address, []mesh.Bytes32](sctx, slotOwnerOperators),
		ownerValidators: slot.NewMapping[mesh.Address, []mesh.Bytes32](sctx, slotOwnerValidators),
		activeCount:     slot.NewRaw[uint64](sctx, slotActiveCount),
	}
}

//
// Operators
//

// AddOperator registers operator metadata and indexes it under its owner.
func (r *Registry) AddOperator(id mesh.Bytes32, pubKey []byte, owner mesh.Address) error {
	has, err := r.operators.Has(id)
	if err != nil {
		return errors.Wrap(err, "failed to check operator")
	}
	if has {
		return reverts.New("operator already registered")
	}
	if err := r.operators.Set(id, &Operator{PubKey: pubKey, Owner: owner, Active: true}); err != nil {
		return errors.Wrap(err, "failed to set operator")
	}
	return r.appendID(r.ownerOperators, owner, id)
}

// Operator returns directory metadata for id, or ErrNotFound.
func (r *Registry) Operator(id mesh.Bytes32) (*Operator, error) {
	has, err := r.operators.Has(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check operator")
	}
	if !has {
		return nil, reverts.ErrNotFound
	}
	op, err := r.operators.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get operator")
	}
	return op, nil
}

// OperatorOwner returns the owner address of the operator.
func (r *Registry) OperatorOwner(id mesh.Bytes32) (mesh.Address, error) {
	op, err := r.Operator(id)
	if err != nil {
		return mesh.Address{}, err
	}
	return op.Owner, nil
}

// SetOperatorActive toggles whether the operator accepts new validators.
func (r *Registry) SetOperatorActive(id mesh.Bytes32, active bool) error {
	op, err := r.Operator(id)
	if err != nil {
		return err
	}
	if op.Active == active {
		if active {
			return reverts.ErrAlreadyEnabled
		}
		return reverts.ErrAlreadyDisabled
	}
	op.Active = active
	return r.operators.Set(id, op)
}

// SetOperatorScore updates the operator's score metadata.
func (r *Registry) SetOperatorScore(id mesh.Bytes32, score uint64) error {
	op, err := r.Operator(id)
	if err != nil {
		return err
	}
	op.Score = score
	return r.operators.Set(id, op)
}

// RemoveOperator drops the operator from the directory.
func (r *Registry) RemoveOperator(id mesh.Bytes32) error {
	op, err := r.Operator(id)
	if err != nil {
		return err
	}
	if err := r.removeID(r.ownerOperators, op.Owner, id); err != nil {
		return err
	}
	r.operators.Delete(id)
	return nil
}

// OperatorsByOwner lists IDs of operators owned by the address.
func (r *Registry) OperatorsByOwner(owner mesh.Address) ([]mesh.Bytes32, error) {
	ids, err := r.ownerOperators.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get owner operators")
	}
	return ids, nil
}

//
// Validators
//

// AddValidator registers validator metadata. A fresh validator starts active.
func (r *Registry) AddValidator(id mesh.Bytes32, pubKey []byte, owner mesh.Address, operators []mesh.Bytes32) error {
	has, err := r.validators.Has(id)
	if err != nil {
		return errors.Wrap(err, "failed to check validator")
	}
	if has {
		return reverts.New("validator already registered")
	}
	v := &Validator{PubKey: pubKey, Owner: owner, Operators: operators, Active: true}
	if err := r.validators.Set(id, v); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}
	if err := r.appendID(r.ownerValidators, owner, id); err != nil {
		return err
	}
	return r.addActive(1)
}

// Validator returns directory metadata for id, or ErrNotFound.
func (r *Registry) Validator(id mesh.Bytes32) (*Validator, error) {
	has, err := r.validators.Has(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check validator")
	}
	if !has {
		return nil, reverts.ErrNotFound
	}
	v, err := r.validators.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get validator")
	}
	return v, nil
}

// ValidatorOwner returns the owner address of the validator.
func (r *Registry) ValidatorOwner(id mesh.Bytes32) (mesh.Address, error) {
	v, err := r.Validator(id)
	if err != nil {
		return mesh.Address{}, err
	}
	return v.Owner, nil
}

// OperatorsByValidator lists the operator IDs the validator is assigned to.
func (r *Registry) OperatorsByValidator(id mesh.Bytes32) ([]mesh.Bytes32, error) {
	v, err := r.Validator(id)
	if err != nil {
		return nil, err
	}
	return v.Operators, nil
}

// SetValidatorOperators replaces the validator's operator assignment.
func (r *Registry) SetValidatorOperators(id mesh.Bytes32, operators []mesh.Bytes32) error {
	v, err := r.Validator(id)
	if err != nil {
		return err
	}
	v.Operators = operators
	return r.validators.Set(id, v)
}

// SetValidatorActive toggles the validator's active flag, maintaining the
// network-wide active count. Toggling to the current value is an error the
// orchestrator maps to AlreadyEnabled/AlreadyDisabled semantics.
func (r *Registry) SetValidatorActive(id mesh.Bytes32, active bool) error {
	v, err := r.Validator(id)
	if err != nil {
		return err
	}
	if v.Active == active {
		if active {
			return reverts.ErrAlreadyEnabled
		}
		return reverts.ErrAlreadyDisabled
	}
	v.Active = active
	if err := r.validators.Set(id, v); err != nil {
		return errors.Wrap(err, "failed to set validator")
	}
	if active {
		return r.addActive(1)
	}
	return r.subActive(1)
}

// RemoveValidator drops the validator from the directory.
func (r *Registry) RemoveValidator(id mesh.Bytes32) error {
	v, err := r.Validator(id)
	if err != nil {
		return err
	}
	if err := r.removeID(r.ownerValidators, v.Owner, id); err != nil {
		return err
	}
	r.validators.Delete(id)
	if v.Active {
		return r.subActive(1)
	}
	return nil
}

// ValidatorsByOwner lists IDs of validators owned by the address.
func (r *Registry) ValidatorsByOwner(owner mesh.Address) ([]mesh.Bytes32, error) {
	ids, err := r.ownerValidators.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get owner validators")
	}
	return ids, nil
}

// TotalActiveValidators returns the network-wide active validator count.
func (r *Registry) TotalActiveValidators() (uint64, error) {
	return r.activeCount.Get()
}

// SetOwnerValidatorsActive flips every active-flagged validator of the owner
// in or out of the network-wide count. Per-validator flags are untouched so
// re-enabling restores the exact same set. Returns how many were flipped.
func (r *Registry) SetOwnerValidatorsActive(owner mesh.Address, active bool) (uint64, error) {
	ids, err := r.ValidatorsByOwner(owner)
	if err != nil {
		return 0, err
	}
	var flipped uint64
	for _, id := range ids {
		v, err := r.Validator(id)
		if err != nil {
			return 0, err
		}
		if v.Active {
			flipped++
		}
	}
	if flipped == 0 {
		return 0, nil
	}
	if active {
		return flipped, r.addActive(flipped)
	}
	return flipped, r.subActive(flipped)
}

//
// internals
//

func (r *Registry) addActive(n uint64) error {
	count, err := r.activeCount.Get()
	if err != nil {
		return err
	}
	return r.activeCount.Set(count + n)
}

func (r *Registry) subActive(n uint64) error {
	count, err := r.activeCount.Get()
	if err != nil {
		return err
	}
	if count < n {
		return errors.Wrap(reverts.ErrInvariantViolation, "active validator count underflow")
	}
	return r.activeCount.Set(count - n)
}

func (r *Registry) appendID(m *slot.Mapping[mesh.Address, []mesh.Bytes32], owner mesh.Address, id mesh.Bytes32) error {
	ids, err := m.Get(owner)
	if err != nil {
		return errors.Wrap(err, "failed to get owner index")
	}
	return m.Set(owner, append(ids, id))
}

func (r *Registry) removeID(m *slot.Mapping[mesh.Address, []mesh.Bytes32], owner mesh.Address, id mesh.Bytes32) error {
	ids, err := m.Get(owner)
	if err != nil {
		return errors.Wrap(err, "failed to get owner index")
	}
	for i, existing := range ids {
		if existing == id {
			ids[i] = ids[len(ids)-1]
			ids = ids[:len(ids)-1]
			if len(ids) == 0 {
				m.Delete(owner)
				return nil
			}
			return m.Set(owner, ids)
		}
	}
	return errors.Wrap(reverts.ErrInvariantViolation, "owner index entry missing")
}
