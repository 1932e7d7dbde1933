// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/cmd/mesh/node"
	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/state"
)

var govAddr = mesh.BytesToAddress([]byte("gov"))

func TestCommitPersists(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	mkt, ledger := market.NewWithLedger(st)
	require.NoError(t, mkt.Initialize(govAddr))
	require.NoError(t, ledger.Mint(govAddr, big.NewInt(100)))

	n := node.New(st, mkt, time.Second)
	require.NoError(t, n.Commit())

	// a fresh state over the same store sees the committed world
	mkt2, ledger2 := market.NewWithLedger(state.New(db))
	owner, err := mkt2.Params().ContractOwner()
	require.NoError(t, err)
	assert.Equal(t, govAddr, owner)

	balance, err := ledger2.Balance(govAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), balance)
}

func TestEnv(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	mkt, _ := market.NewWithLedger(st)
	n := node.New(st, mkt, 0)

	env := n.Env(govAddr)
	assert.Equal(t, govAddr, env.Caller)
	assert.Equal(t, env.Tick, env.Time)
	assert.NotZero(t, env.Tick)
}
