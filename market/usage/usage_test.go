// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package usage

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/market/reverts"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/slot"
	"github.com/stakemesh/mesh/state"
)

func newService(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	return New(slot.NewContext(mesh.BytesToAddress([]byte("usage")), st))
}

func TestUseAndStopUsing(t *testing.T) {
	svc := newService(t)
	owner := mesh.BytesToAddress([]byte("a1"))
	op := mesh.Blake2b([]byte("op1"))

	require.NoError(t, svc.Use(owner, op, big.NewInt(0), false))

	rel, ok, err := svc.Get(owner, op)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(1), rel.Validators)
	assert.Equal(t, uint64(0), rel.Position)

	n, err := svc.Count(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	// second validator on the same operator settles first
	require.NoError(t, svc.Use(owner, op, big.NewInt(10), false))
	rel, _, err = svc.Get(owner, op)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), rel.Validators)
	assert.Equal(t, big.NewInt(10), rel.Used)

	// index 10 -> 20 with 2 validators adds 20
	folded, err := svc.StopUsing(owner, op, big.NewInt(20), false)
	require.NoError(t, err)
	assert.Nil(t, folded)

	folded, err = svc.StopUsing(owner, op, big.NewInt(20), false)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), folded)

	n, err = svc.Count(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n)

	_, ok, err = svc.Get(owner, op)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopUsingUnknown(t *testing.T) {
	svc := newService(t)
	owner := mesh.BytesToAddress([]byte("a1"))

	_, err := svc.StopUsing(owner, mesh.Blake2b([]byte("nope")), big.NewInt(0), false)
	assert.ErrorIs(t, err, reverts.ErrNotFound)
}

func TestSwapAndPop(t *testing.T) {
	svc := newService(t)
	owner := mesh.BytesToAddress([]byte("a1"))
	ops := []mesh.Bytes32{
		mesh.Blake2b([]byte("op1")),
		mesh.Blake2b([]byte("op2")),
		mesh.Blake2b([]byte("op3")),
	}

	for _, op := range ops {
		require.NoError(t, svc.Use(owner, op, big.NewInt(0), false))
	}

	// removing the first entry swaps the last into its slot
	_, err := svc.StopUsing(owner, ops[0], big.NewInt(0), false)
	require.NoError(t, err)

	moved, ok, err := svc.Get(owner, ops[2])
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0), moved.Position)

	var order []mesh.Bytes32
	require.NoError(t, svc.ForEach(owner, func(rel *Relationship) error {
		order = append(order, rel.Operator)
		return nil
	}))
	assert.Equal(t, []mesh.Bytes32{ops[2], ops[1]}, order)
}

func TestDisabledFreezesUsage(t *testing.T) {
	rel := &Relationship{
		Index:      big.NewInt(10),
		Validators: 2,
		Used:       big.NewInt(5),
	}

	used, err := rel.CurrentUsage(big.NewInt(100), true)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), used)

	require.NoError(t, rel.Settle(big.NewInt(100), true))
	assert.Equal(t, big.NewInt(5), rel.Used)
	assert.Equal(t, big.NewInt(10), rel.Index)

	// after rebase accrual resumes from the new index
	rel.Rebase(big.NewInt(100))
	used, err = rel.CurrentUsage(big.NewInt(110), false)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(25), used)
}

func TestIndexBackwards(t *testing.T) {
	rel := &Relationship{
		Index:      big.NewInt(10),
		Validators: 1,
		Used:       new(big.Int),
	}
	_, err := rel.CurrentUsage(big.NewInt(9), false)
	assert.True(t, reverts.IsRevert(err))
}
