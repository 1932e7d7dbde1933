// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accrual

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/market/reverts"
)

func TestValueAt(t *testing.T) {
	idx := Index{Base: big.NewInt(100), BaseTick: 10}

	tests := []struct {
		rate     *big.Int
		now      uint64
		expected *big.Int
	}{
		{big.NewInt(4), 10, big.NewInt(100)},
		{big.NewInt(4), 5, big.NewInt(100)},
		{big.NewInt(4), 11, big.NewInt(104)},
		{big.NewInt(4), 20, big.NewInt(140)},
		{big.NewInt(0), 20, big.NewInt(100)},
	}

	for _, tt := range tests {
		v, err := idx.ValueAt(tt.rate, tt.now)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, v)
	}
}

func TestValueAtNilBase(t *testing.T) {
	var idx Index

	v, err := idx.ValueAt(big.NewInt(7), 3)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(21), v)
}

func TestMonotonicity(t *testing.T) {
	idx := Index{Base: big.NewInt(5), BaseTick: 0}
	rate := big.NewInt(3)

	prev := new(big.Int)
	for now := uint64(0); now < 50; now += 7 {
		v, err := idx.ValueAt(rate, now)
		require.NoError(t, err)
		assert.True(t, v.Cmp(prev) >= 0, "value must not decrease")
		prev = v
	}
}

func TestSettleIdempotence(t *testing.T) {
	idx := Index{Base: big.NewInt(0), BaseTick: 0}
	rate := big.NewInt(4)

	require.NoError(t, idx.Settle(rate, 10))
	assert.Equal(t, big.NewInt(40), idx.Base)
	assert.Equal(t, uint64(10), idx.BaseTick)

	require.NoError(t, idx.Settle(rate, 10))
	assert.Equal(t, big.NewInt(40), idx.Base)
	assert.Equal(t, uint64(10), idx.BaseTick)
}

func TestSettleRateChange(t *testing.T) {
	idx := Index{Base: big.NewInt(0), BaseTick: 0}

	require.NoError(t, idx.Settle(big.NewInt(4), 10))
	require.NoError(t, idx.Settle(big.NewInt(9), 20))
	assert.Equal(t, big.NewInt(130), idx.Base)
}

func TestOverflow(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 255)
	idx := Index{Base: huge, BaseTick: 0}

	_, err := idx.ValueAt(huge, 1000)
	assert.True(t, reverts.IsRevert(err))
}
