// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/stakemesh/mesh/mesh"
)

// Raw stores a single rlp encoded value at a fixed slot.
type Raw[T any] struct {
	context *Context
	pos     mesh.Bytes32
}

func NewRaw[T any](context *Context, pos mesh.Bytes32) *Raw[T] {
	return &Raw[T]{context: context, pos: pos}
}

// Get loads the stored value. A missing slot decodes as the zero value.
func (r *Raw[T]) Get() (value T, err error) {
	err = r.context.state.DecodeStorage(r.context.address, r.pos, func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(T)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set stores the value.
func (r *Raw[T]) Set(value T) error {
	return r.context.state.EncodeStorage(r.context.address, r.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Clear removes the stored value.
func (r *Raw[T]) Clear() {
	r.context.state.SetRawStorage(r.context.address, r.pos, nil)
}
