// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package operators

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
	return New(slot.NewContext(mesh.BytesToAddress([]byte("operators")), st))
}

func TestCreateGetRemove(t *testing.T) {
	svc := newService(t)
	id := mesh.Blake2b([]byte("op1"))

	_, err := svc.Get(id)
	assert.ErrorIs(t, err, reverts.ErrNotFound)

	require.NoError(t, svc.Create(id, big.NewInt(4), 0, 0))

	rec, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(4), rec.Fee)
	assert.Equal(t, uint64(0), rec.ActiveValidators)

	earned, err := svc.Remove(id, 10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), earned)

	_, err = svc.Get(id)
	assert.ErrorIs(t, err, reverts.ErrNotFound)
}

func TestRemoveWithValidators(t *testing.T) {
	svc := newService(t)
	id := mesh.Blake2b([]byte("op1"))

	require.NoError(t, svc.Create(id, big.NewInt(4), 0, 0))
	rec, err := svc.Get(id)
	require.NoError(t, err)
	rec.ActiveValidators = 2
	require.NoError(t, svc.Save(id, rec))

	_, err = svc.Remove(id, 10)
	assert.ErrorIs(t, err, reverts.ErrOperatorHasValidators)
}

func TestRemoveWithLinkedValidators(t *testing.T) {
	svc := newService(t)
	id := mesh.Blake2b([]byte("op1"))

	// a disabled owner's validators drop off the billing count but stay linked
	require.NoError(t, svc.Create(id, big.NewInt(4), 0, 0))
	rec, err := svc.Get(id)
	require.NoError(t, err)
	rec.LinkedValidators = 1
	require.NoError(t, svc.Save(id, rec))

	_, err = svc.Remove(id, 10)
	assert.ErrorIs(t, err, reverts.ErrOperatorHasValidators)
}

func TestEarnings(t *testing.T) {
	svc := newService(t)
	id := mesh.Blake2b([]byte("op1"))

	require.NoError(t, svc.Create(id, big.NewInt(4), 0, 0))
	rec, err := svc.Get(id)
	require.NoError(t, err)

	// no validators, nothing accrues
	earnings, err := rec.CurrentEarnings(10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), earnings)

	require.NoError(t, rec.Settle(10))
	rec.ActiveValidators = 3

	earnings, err = rec.CurrentEarnings(20)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(120), earnings)

	// fee index accrues per validator regardless of count
	feeIndex, err := rec.CurrentFeeIndex(20)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(80), feeIndex)
}

func TestSetFeeCooldown(t *testing.T) {
	rec := newRecord(big.NewInt(100), 0, 0)

	err := rec.SetFee(big.NewInt(90), 5, mesh.FeeUpdateCooldown, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrCooldownActive)

	err = rec.SetFee(big.NewInt(90), 5, mesh.FeeUpdateCooldown+1, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(90), rec.Fee)
}

func TestSetFeeIncreaseCap(t *testing.T) {
	rec := newRecord(big.NewInt(100), 0, 0)
	ts := mesh.FeeUpdateCooldown + 1

	err := rec.SetFee(big.NewInt(111), 5, ts, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrFeeIncreaseTooLarge)

	err = rec.SetFee(big.NewInt(110), 5, ts, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(110), rec.Fee)
}

func TestSetFeeSettlesFirst(t *testing.T) {
	rec := newRecord(big.NewInt(4), 0, 0)
	rec.ActiveValidators = 1

	require.NoError(t, rec.SetFee(big.NewInt(2), 10, mesh.FeeUpdateCooldown+1, big.NewInt(10)))

	// first 10 ticks accrued at the old fee
	earnings, err := rec.CurrentEarnings(20)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), earnings)
}
