// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakemesh/mesh/cache"
	"github.com/stakemesh/mesh/kv"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/stackedmap"
)

const readCacheSize = 4096

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// storageKey locates one storage slot of one ledger address.
type storageKey struct {
	addr mesh.Address
	key  mesh.Bytes32
}

func (k *storageKey) persistent() []byte {
	return append(append(make([]byte, 0, mesh.AddressLength+32), k.addr[:]...), k.key[:]...)
}

// State manages the world state of the marketplace ledgers.
// All mutations are journaled; NewCheckpoint/RevertTo give transactions
// all-or-nothing semantics, Commit flushes the journal to the backing kv store.
type State struct {
	store kv.GetPutter
	cache *cache.LRU
	sm    *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object.
func New(store kv.GetPutter) *State {
	st := &State{store: store}
	st.cache, _ = cache.NewLRU(readCacheSize)
	st.sm = stackedmap.New(st.load)
	// base level, never popped
	st.sm.Push()
	return st
}

// load reads a raw storage value through the read cache.
// A missing key decodes as an empty value.
func (s *State) load(key storageKey) (rlp.RawValue, bool, error) {
	pk := key.persistent()
	v, err := s.cache.GetOrLoad(string(pk), func(interface{}) (interface{}, error) {
		data, err := s.store.Get(pk)
		if err != nil {
			if s.store.IsNotFound(err) {
				return rlp.RawValue(nil), nil
			}
			return nil, &Error{err}
		}
		return rlp.RawValue(data), nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(rlp.RawValue), true, nil
}

// GetRawStorage returns the rlp encoded storage value for the given address and key.
func (s *State) GetRawStorage(addr mesh.Address, key mesh.Bytes32) (rlp.RawValue, error) {
	raw, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// SetRawStorage sets the raw storage value for the given address and key.
// An empty value deletes the slot on commit.
func (s *State) SetRawStorage(addr mesh.Address, key mesh.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage sets storage value encoded by given enc method.
// An empty encoded value deletes the slot.
func (s *State) EncodeStorage(addr mesh.Address, key mesh.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage gets and decodes storage value.
func (s *State) DecodeStorage(addr mesh.Address, key mesh.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr mesh.Address, key mesh.Bytes32) (mesh.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return mesh.Bytes32{}, err
	}
	if len(raw) == 0 {
		return mesh.Bytes32{}, nil
	}
	_, content, _, err := rlp.Split(raw)
	if err != nil {
		return mesh.Bytes32{}, &Error{err}
	}
	return mesh.BytesToBytes32(content), nil
}

// SetStorage sets storage value for the given address and key.
func (s *State) SetStorage(addr mesh.Address, key mesh.Bytes32, value mesh.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	trimmed, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, trimmed)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit flushes all journaled changes into the backing store atomically,
// then resets the journal.
func (s *State) Commit() error {
	batch := s.store.NewBatch()

	// later entries of the journal win
	final := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(key storageKey, value rlp.RawValue) bool {
		final[key] = value
		return true
	})

	for key, value := range final {
		pk := key.persistent()
		if len(value) == 0 {
			if err := batch.Delete(pk); err != nil {
				return &Error{err}
			}
		} else if err := batch.Put(pk, value); err != nil {
			return &Error{err}
		}
		s.cache.Add(string(pk), value)
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}

	s.sm = stackedmap.New(s.load)
	s.sm.Push()
	return nil
}
