// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package usage implements the (owner, operator) usage-relationship ledger.
//
// Relationships are kept in an owner-scoped dense array with back-pointers so
// removal is an O(1) swap-and-pop, and enumeration never scans anything but
// the owner's own relationships.
package usage

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
)

var (
	slotRelationships = slot.KeyOf("usage-relationships")
	slotOwnerLists    = slot.KeyOf("usage-owner-lists")
	slotOwnerCounts   = slot.KeyOf("usage-owner-counts")
)

// listKey addresses one element of an owner's relationship list.
type listKey struct {
	owner mesh.Address
	index uint64
}

func (k listKey) Bytes() []byte {
	b := make([]byte, mesh.AddressLength+8)
	copy(b, k.owner.Bytes())
	binary.BigEndian.PutUint64(b[mesh.AddressLength:], k.index)
	return b
}

func relKey(owner mesh.Address, operator mesh.Bytes32) mesh.Bytes32 {
	return mesh.Blake2b(owner.Bytes(), operator.Bytes())
}

// Service manages usage relationships.
type Service struct {
	rels   *slot.Mapping[mesh.Bytes32, *Relationship]
	lists  *slot.Mapping[listKey, mesh.Bytes32]
	counts *slot.Mapping[mesh.Address, uint64]
}

func New(sctx *slot.Context) *Service {
	return &Service{
		rels:   slot.NewMapping[mesh.Bytes32, *Relationship](sctx, slotRelationships),
		lists:  slot.NewMapping[listKey, mesh.Bytes32](sctx, slotOwnerLists),
		counts: slot.NewMapping[mesh.Address, uint64](sctx, slotOwnerCounts),
	}
}

// Count returns the number of relationships of the owner.
func (s *Service) Count(owner mesh.Address) (uint64, error) {
	n, err := s.counts.Get(owner)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get relationship count")
	}
	return n, nil
}

// Get loads the relationship for (owner, operator) if present.
func (s *Service) Get(owner mesh.Address, operator mesh.Bytes32) (*Relationship, bool, error) {
	key := relKey(owner, operator)
	has, err := s.rels.Has(key)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to check relationship")
	}
	if !has {
		return nil, false, nil
	}
	r, err := s.rels.Get(key)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get relationship")
	}
	return r.normalize(), true, nil
}

// Save writes back a mutated relationship.
func (s *Service) Save(owner mesh.Address, r *Relationship) error {
	if err := s.rels.Set(relKey(owner, r.Operator), r); err != nil {
		return errors.Wrap(err, "failed to save relationship")
	}
	return nil
}

// Use marks one more validator of the owner as billing the operator,
// creating the relationship at the given fee index on first use. An existing
// relationship is settled before the multiplier changes.
func (s *Service) Use(owner mesh.Address, operator mesh.Bytes32, feeIndex *big.Int, disabled bool) error {
	rel, ok, err := s.Get(owner, operator)
	if err != nil {
		return err
	}
	if ok {
		if err := rel.Settle(feeIndex, disabled); err != nil {
			return err
		}
		rel.Validators++
		return s.Save(owner, rel)
	}

	n, err := s.Count(owner)
	if err != nil {
		return err
	}
	rel = &Relationship{
		Operator:   operator,
		Index:      new(big.Int).Set(feeIndex),
		Validators: 1,
		Used:       new(big.Int),
		Position:   n,
	}
	if err := s.lists.Set(listKey{owner, n}, operator); err != nil {
		return errors.Wrap(err, "failed to append relationship list")
	}
	if err := s.counts.Set(owner, n+1); err != nil {
		return errors.Wrap(err, "failed to bump relationship count")
	}
	return s.Save(owner, rel)
}

// StopUsing reverses Use. When the validator multiplier reaches zero the
// relationship is removed via swap-and-pop and its settled usage returned,
// for the caller to fold into the owner's used leg. Otherwise folded is nil.
func (s *Service) StopUsing(owner mesh.Address, operator mesh.Bytes32, feeIndex *big.Int, disabled bool) (folded *big.Int, err error) {
	rel, ok, err := s.Get(owner, operator)
	if err != nil {
		return nil, err
	}
	if !ok || rel.Validators == 0 {
		return nil, errors.Wrap(reverts.ErrNotFound, "no usage relationship")
	}
	if err := rel.Settle(feeIndex, disabled); err != nil {
		return nil, err
	}
	rel.Validators--
	if rel.Validators > 0 {
		return nil, s.Save(owner, rel)
	}

	if err := s.remove(owner, rel); err != nil {
		return nil, err
	}
	return rel.Used, nil
}

// remove swaps the last list element into the freed slot and pops the tail.
func (s *Service) remove(owner mesh.Address, rel *Relationship) error {
	n, err := s.Count(owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrap(reverts.ErrInvariantViolation, "relationship list empty on remove")
	}
	last := n - 1

	if rel.Position != last {
		movedID, err := s.lists.Get(listKey{owner, last})
		if err != nil {
			return errors.Wrap(err, "failed to get list tail")
		}
		moved, ok, err := s.Get(owner, movedID)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrap(reverts.ErrInvariantViolation, "dangling relationship list entry")
		}
		moved.Position = rel.Position
		if err := s.lists.Set(listKey{owner, rel.Position}, movedID); err != nil {
			return errors.Wrap(err, "failed to move list entry")
		}
		if err := s.Save(owner, moved); err != nil {
			return err
		}
	}

	s.lists.Delete(listKey{owner, last})
	if err := s.counts.Set(owner, last); err != nil {
		return errors.Wrap(err, "failed to shrink relationship count")
	}
	s.rels.Delete(relKey(owner, rel.Operator))
	return nil
}

// ForEach visits every relationship of the owner in list order.
func (s *Service) ForEach(owner mesh.Address, cb func(*Relationship) error) error {
	n, err := s.Count(owner)
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		id, err := s.lists.Get(listKey{owner, i})
		if err != nil {
			return errors.Wrap(err, "failed to get list entry")
		}
		rel, ok, err := s.Get(owner, id)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrap(reverts.ErrInvariantViolation, "dangling relationship list entry")
		}
		if err := cb(rel); err != nil {
			return err
		}
	}
	return nil
}
