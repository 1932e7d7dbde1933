// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package owners

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
	return New(slot.NewContext(mesh.BytesToAddress([]byte("owners")), st))
}

func TestGetAutoVivifies(t *testing.T) {
	svc := newService(t)
	owner := mesh.BytesToAddress([]byte("a1"))

	rec, err := svc.Get(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), rec.Deposited)
	assert.Equal(t, big.NewInt(0), rec.NetworkFee)
	assert.False(t, rec.Disabled)
}

func TestSaveRoundTrip(t *testing.T) {
	svc := newService(t)
	owner := mesh.BytesToAddress([]byte("a1"))

	rec, err := svc.Get(owner)
	require.NoError(t, err)
	rec.Deposited.SetInt64(1000)
	rec.ActiveValidators = 2
	rec.Disabled = true
	require.NoError(t, svc.Save(owner, rec))

	loaded, err := svc.Get(owner)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), loaded.Deposited)
	assert.Equal(t, uint64(2), loaded.ActiveValidators)
	assert.True(t, loaded.Disabled)
}

func TestPendingNetworkFee(t *testing.T) {
	rec := (&Record{}).normalize()
	rec.ActiveValidators = 3
	rec.NetworkFeeIndex.SetInt64(10)

	pending, err := rec.PendingNetworkFee(big.NewInt(25))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(45), pending)

	// index cannot move backwards
	_, err = rec.PendingNetworkFee(big.NewInt(5))
	assert.True(t, reverts.IsRevert(err))
}

func TestSettleNetworkFee(t *testing.T) {
	rec := (&Record{}).normalize()
	rec.ActiveValidators = 2

	require.NoError(t, rec.SettleNetworkFee(big.NewInt(10)))
	assert.Equal(t, big.NewInt(20), rec.NetworkFee)
	assert.Equal(t, big.NewInt(10), rec.NetworkFeeIndex)

	// idempotent at the same index
	require.NoError(t, rec.SettleNetworkFee(big.NewInt(10)))
	assert.Equal(t, big.NewInt(20), rec.NetworkFee)
}

func TestDisabledFreezesNetworkFee(t *testing.T) {
	rec := (&Record{}).normalize()
	rec.ActiveValidators = 2
	rec.Disabled = true

	pending, err := rec.PendingNetworkFee(big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), pending)

	// settling advances nothing while disabled
	require.NoError(t, rec.SettleNetworkFee(big.NewInt(100)))
	assert.Equal(t, big.NewInt(0), rec.NetworkFee)
	assert.Equal(t, big.NewInt(0), rec.NetworkFeeIndex)
}
