// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api_test

import (
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/api"
	"github.com/stakemesh/mesh/api/network"
	"github.com/stakemesh/mesh/api/operators"
	"github.com/stakemesh/mesh/api/owners"
	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/market"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/state"
)

var (
	govAddr   = mesh.BytesToAddress([]byte("gov"))
	opOwner   = mesh.BytesToAddress([]byte("bob"))
	accOwner  = mesh.BytesToAddress([]byte("alice"))
	ts        *httptest.Server
	operator1 mesh.Bytes32
)

func initAPIServer(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(db)
	mkt, ledger := market.NewWithLedger(st)
	require.NoError(t, mkt.Initialize(govAddr))
	require.NoError(t, ledger.Mint(accOwner, big.NewInt(1_000_000)))

	env := func(caller mesh.Address) market.Env {
		return market.Env{Tick: 0, Time: 0, Caller: caller}
	}
	operator1, err = mkt.RegisterOperator(env(opOwner), []byte("op1"), big.NewInt(4))
	require.NoError(t, err)
	require.NoError(t, mkt.UpdateNetworkFee(env(govAddr), big.NewInt(2)))
	require.NoError(t, mkt.Deposit(env(accOwner), big.NewInt(500_000)))
	_, err = mkt.RegisterValidator(env(accOwner), []byte("v1"), []mesh.Bytes32{operator1})
	require.NoError(t, err)

	router := api.New(mkt, func() uint64 { return 0 }, api.Options{AllowedOrigins: "*"})
	ts = httptest.NewServer(router)
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url)
	require.NoError(t, err)
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	return r, res.StatusCode
}

func TestAPI(t *testing.T) {
	initAPIServer(t)
	defer ts.Close()

	t.Run("owner account", func(t *testing.T) {
		body, code := httpGet(t, ts.URL+"/owners/"+accOwner.String()+"?tick=10")
		require.Equal(t, http.StatusOK, code)

		var acc owners.Account
		require.NoError(t, json.Unmarshal(body, &acc))
		assert.Equal(t, big.NewInt(500_000), (*big.Int)(&acc.Deposited))
		// 10 ticks of operator fee 4 plus network fee 2
		assert.Equal(t, big.NewInt(500_000-60), (*big.Int)(&acc.Balance))
		assert.Equal(t, big.NewInt(6), (*big.Int)(&acc.BurnRate))
		assert.Equal(t, uint64(1), acc.ActiveValidators)
		assert.False(t, acc.Disabled)
		assert.False(t, acc.Liquidatable)
	})

	t.Run("owner relationships", func(t *testing.T) {
		body, code := httpGet(t, ts.URL+"/owners/"+accOwner.String()+"/relationships?tick=10")
		require.Equal(t, http.StatusOK, code)

		var rels []*owners.Relationship
		require.NoError(t, json.Unmarshal(body, &rels))
		require.Len(t, rels, 1)
		assert.Equal(t, operator1, rels[0].Operator)
		assert.Equal(t, uint64(1), rels[0].Validators)
		assert.Equal(t, big.NewInt(40), (*big.Int)(&rels[0].Used))
	})

	t.Run("operator", func(t *testing.T) {
		body, code := httpGet(t, ts.URL+"/operators/"+operator1.String()+"?tick=10")
		require.Equal(t, http.StatusOK, code)

		var op operators.Operator
		require.NoError(t, json.Unmarshal(body, &op))
		assert.Equal(t, operator1, op.ID)
		assert.Equal(t, opOwner, op.Owner)
		assert.Equal(t, big.NewInt(4), (*big.Int)(&op.Fee))
		assert.Equal(t, big.NewInt(40), (*big.Int)(&op.Earnings))
		assert.Equal(t, uint64(1), op.ActiveValidators)
		assert.True(t, op.Active)
	})

	t.Run("operators by owner", func(t *testing.T) {
		body, code := httpGet(t, ts.URL+"/operators/owner/"+opOwner.String())
		require.Equal(t, http.StatusOK, code)

		var ops []*operators.Operator
		require.NoError(t, json.Unmarshal(body, &ops))
		require.Len(t, ops, 1)
		assert.Equal(t, operator1, ops[0].ID)
	})

	t.Run("network status", func(t *testing.T) {
		body, code := httpGet(t, ts.URL+"/network?tick=10")
		require.Equal(t, http.StatusOK, code)

		var status network.Status
		require.NoError(t, json.Unmarshal(body, &status))
		assert.Equal(t, big.NewInt(2), (*big.Int)(&status.NetworkFee))
		assert.Equal(t, big.NewInt(20), (*big.Int)(&status.TreasuryBalance))
		assert.Equal(t, uint64(1), status.TotalActiveValidators)
	})

	t.Run("bad address", func(t *testing.T) {
		_, code := httpGet(t, ts.URL+"/owners/not-an-address")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("bad tick", func(t *testing.T) {
		_, code := httpGet(t, ts.URL+"/owners/"+accOwner.String()+"?tick=abc")
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unknown operator", func(t *testing.T) {
		_, code := httpGet(t, ts.URL+"/operators/"+mesh.Bytes32{}.String())
		assert.Equal(t, http.StatusInternalServerError, code)
	})
}
