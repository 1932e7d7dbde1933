// Copyright (c) 2025 The Stakemesh developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakemesh/mesh/lvldb"
	"github.com/stakemesh/mesh/mesh"
	"github.com/stakemesh/mesh/state"
)

var (
	testAddr = mesh.BytesToAddress([]byte("addr"))
	testKey  = mesh.BytesToBytes32([]byte("key"))
)

func newState(t *testing.T) (*state.State, *lvldb.LevelDB) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	return state.New(db), db
}

func TestStorage(t *testing.T) {
	st, _ := newState(t)

	v, err := st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, mesh.Bytes32{}, v)

	value := mesh.BytesToBytes32([]byte("value"))
	st.SetStorage(testAddr, testKey, value)

	v, err = st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, value, v)

	// zero value clears the slot
	st.SetStorage(testAddr, testKey, mesh.Bytes32{})
	v, err = st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, mesh.Bytes32{}, v)
}

func TestCheckpointRevert(t *testing.T) {
	st, _ := newState(t)

	v1 := mesh.BytesToBytes32([]byte("v1"))
	v2 := mesh.BytesToBytes32([]byte("v2"))

	st.SetStorage(testAddr, testKey, v1)

	rev := st.NewCheckpoint()
	st.SetStorage(testAddr, testKey, v2)

	v, err := st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, v2, v)

	st.RevertTo(rev)
	v, err = st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, v1, v)
}

func TestNestedCheckpoints(t *testing.T) {
	st, _ := newState(t)

	v1 := mesh.BytesToBytes32([]byte("v1"))
	v2 := mesh.BytesToBytes32([]byte("v2"))
	v3 := mesh.BytesToBytes32([]byte("v3"))

	rev1 := st.NewCheckpoint()
	st.SetStorage(testAddr, testKey, v1)
	st.NewCheckpoint()
	st.SetStorage(testAddr, testKey, v2)
	rev3 := st.NewCheckpoint()
	st.SetStorage(testAddr, testKey, v3)

	st.RevertTo(rev3)
	v, err := st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, v2, v)

	st.RevertTo(rev1)
	v, err = st.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, mesh.Bytes32{}, v)
}

func TestCommitRoundTrip(t *testing.T) {
	st, db := newState(t)

	value := mesh.BytesToBytes32([]byte("value"))
	st.SetStorage(testAddr, testKey, value)
	require.NoError(t, st.Commit())

	// a fresh state over the same store sees the committed value
	st2 := state.New(db)
	v, err := st2.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, value, v)
}

func TestCommitDeletes(t *testing.T) {
	st, db := newState(t)

	value := mesh.BytesToBytes32([]byte("value"))
	st.SetStorage(testAddr, testKey, value)
	require.NoError(t, st.Commit())

	st.SetStorage(testAddr, testKey, mesh.Bytes32{})
	require.NoError(t, st.Commit())

	st2 := state.New(db)
	v, err := st2.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, mesh.Bytes32{}, v)
}

func TestRevertedChangesNotCommitted(t *testing.T) {
	st, db := newState(t)

	v1 := mesh.BytesToBytes32([]byte("v1"))
	v2 := mesh.BytesToBytes32([]byte("v2"))

	st.SetStorage(testAddr, testKey, v1)
	rev := st.NewCheckpoint()
	st.SetStorage(testAddr, testKey, v2)
	st.RevertTo(rev)
	require.NoError(t, st.Commit())

	st2 := state.New(db)
	v, err := st2.GetStorage(testAddr, testKey)
	require.NoError(t, err)
	assert.Equal(t, v1, v)
}

func TestEncodeDecodeStorage(t *testing.T) {
	st, _ := newState(t)

	type payload struct {
		A uint64
		B []byte
	}

	require.NoError(t, st.EncodeStorage(testAddr, testKey, func() ([]byte, error) {
		return rlp.EncodeToBytes(&payload{7, []byte("x")})
	}))

	var decoded payload
	require.NoError(t, st.DecodeStorage(testAddr, testKey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &decoded)
	}))
	assert.Equal(t, payload{7, []byte("x")}, decoded)
}
