// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package operators implements the per-operator earnings ledger.
package operators

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

var slotRecords = slot.KeyOf("operator-records")

// Service manages operator accounting records keyed by operator ID.
type Service struct {
	records *slot.Mapping[mesh.Bytes32, *Record]
}

func New(sctx *slot.Context) *Service {
	return &Service{
		records: slot.NewMapping[mesh.Bytes32, *Record](sctx, slotRecords),
	}
}

// Create opens a fresh ledger record for a newly registered operator.
func (s *Service) Create(id mesh.Bytes32, fee *big.Int, now, timestamp uint64) error {
	if err := s.records.Set(id, newRecord(fee, now, timestamp)); err != nil {
		return errors.Wrap(err, "failed to create operator record")
	}
	return nil
}

// Get loads the record for id, or ErrNotFound.
func (s *Service) Get(id mesh.Bytes32) (*Record, error) {
	has, err := s.records.Has(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check operator record")
	}
	if !has {
		return nil, reverts.ErrNotFound
	}
	r, err := s.records.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get operator record")
	}
	return r, nil
}

// Save writes back a mutated record.
func (s *Service) Save(id mesh.Bytes32, r *Record) error {
	if err := s.records.Set(id, r); err != nil {
		return errors.Wrap(err, "failed to save operator record")
	}
	return nil
}

// Remove deletes the record and returns its settled earnings, which the
// caller folds into the operator owner's earned leg. Removal is only legal
// once no validator references the operator; a disabled owner's validators
// stop billing but still count, their relationships need this fee index.
func (s *Service) Remove(id mesh.Bytes32, now uint64) (*big.Int, error) {
	r, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if r.ActiveValidators != 0 || r.LinkedValidators != 0 {
		return nil, reverts.ErrOperatorHasValidators
	}
	if err := r.Settle(now); err != nil {
		return nil, err
	}
	s.records.Delete(id)
	return r.Earnings.Base, nil
}
