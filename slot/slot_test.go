// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slot_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
	"github.com/stakemesh/mesh/state"
)

func newContext(t *testing.T) *slot.Context {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	return slot.NewContext(mesh.BytesToAddress([]byte("ledger")), st)
}

func TestUint256(t *testing.T) {
	ctx := newContext(t)
	u := slot.NewUint256(ctx, slot.KeyOf("counter"))

	v, err := u.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), v)

	u.Set(big.NewInt(100))
	require.NoError(t, u.Add(big.NewInt(50)))
	require.NoError(t, u.Sub(big.NewInt(30)))

	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(120), v)

	err = u.Sub(big.NewInt(121))
	assert.Error(t, err)

	// failed sub left the value alone
	v, err = u.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(120), v)
}

func TestRaw(t *testing.T) {
	ctx := newContext(t)

	type record struct {
		Count uint64
		Tag   []byte
	}
	r := slot.NewRaw[*record](ctx, slot.KeyOf("record"))

	// missing slot decodes as the zero value
	v, err := r.Get()
	require.NoError(t, err)
	assert.Equal(t, &record{}, v)

	require.NoError(t, r.Set(&record{Count: 9, Tag: []byte("t")}))
	v, err = r.Get()
	require.NoError(t, err)
	assert.Equal(t, &record{Count: 9, Tag: []byte("t")}, v)

	r.Clear()
	v, err = r.Get()
	require.NoError(t, err)
	assert.Equal(t, &record{}, v)
}

func TestMapping(t *testing.T) {
	ctx := newContext(t)
	m := slot.NewMapping[mesh.Bytes32, uint64](ctx, slot.KeyOf("counts"))

	k1 := mesh.BytesToBytes32([]byte("k1"))
	k2 := mesh.BytesToBytes32([]byte("k2"))

	has, err := m.Has(k1)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, m.Set(k1, 7))
	require.NoError(t, m.Set(k2, 8))

	v, err := m.Get(k1)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	has, err = m.Has(k1)
	require.NoError(t, err)
	assert.True(t, has)

	m.Delete(k1)
	has, err = m.Has(k1)
	require.NoError(t, err)
	assert.False(t, has)

	// distinct keys land in distinct slots
	v, err = m.Get(k2)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), v)
}
