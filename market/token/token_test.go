// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

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

func newLedger(t *testing.T) *Ledger {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	return New(slot.NewContext(mesh.BytesToAddress([]byte("token")), st))
}

func TestPullPush(t *testing.T) {
	l := newLedger(t)
	acc := mesh.BytesToAddress([]byte("a1"))

	require.NoError(t, l.Mint(acc, big.NewInt(100)))

	balance, err := l.Balance(acc)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), balance)

	err = l.Pull(acc, big.NewInt(101))
	assert.ErrorIs(t, err, reverts.ErrInsufficientBalance)

	require.NoError(t, l.Pull(acc, big.NewInt(60)))

	balance, _ = l.Balance(acc)
	assert.Equal(t, big.NewInt(40), balance)
	custody, _ := l.Custody()
	assert.Equal(t, big.NewInt(60), custody)

	require.NoError(t, l.Push(acc, big.NewInt(50)))
	balance, _ = l.Balance(acc)
	assert.Equal(t, big.NewInt(90), balance)
	custody, _ = l.Custody()
	assert.Equal(t, big.NewInt(10), custody)

	// pushing more than custody holds is a bug upstream
	err = l.Push(acc, big.NewInt(11))
	assert.True(t, reverts.IsRevert(err))
}
