// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package owners implements the per-owner deposit/expense ledger.
package owners

import (
	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

var slotRecords = slot.KeyOf("owner-records")

// Service manages owner accounting records keyed by owner address.
type Service struct {
	records *slot.Mapping[mesh.Address, *Record]
}

func New(sctx *slot.Context) *Service {
	return &Service{
		records: slot.NewMapping[mesh.Address, *Record](sctx, slotRecords),
	}
}

// Get loads the record for the owner. Unknown owners get a zeroed record,
// an owner account exists implicitly from its first touch.
func (s *Service) Get(owner mesh.Address) (*Record, error) {
	r, err := s.records.Get(owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get owner record")
	}
	return r.normalize(), nil
}

// Save writes back a mutated record.
func (s *Service) Save(owner mesh.Address, r *Record) error {
	if err := s.records.Set(owner, r); err != nil {
		return errors.Wrap(err, "failed to save owner record")
	}
	return nil
}
