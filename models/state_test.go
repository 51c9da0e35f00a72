package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func asset(id models.AssetID, price uint64) models.Asset {
	return models.Asset{
		ID:              id,
		Owner:           alice,
		Price:           fixedpoint.MustWhole(price),
		Tax:             1000,
		LastPaymentDate: time.Unix(1_700_000_000, 0).UTC(),
		Balance:         fixedpoint.MustWhole(10),
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	s := models.NewState()
	require.NoError(t, s.Insert(asset(1, 100)))
	err := s.Insert(asset(1, 200))
	assert.ErrorIs(t, err, models.ErrAssetExists)
	assert.Equal(t, 1, s.Len())

	got, _ := s.Get(1)
	assert.True(t, got.Price.Eq(fixedpoint.MustWhole(100)))
}

func TestReplacePreservesOrderAndNeverInserts(t *testing.T) {
	s := models.NewState()
	require.NoError(t, s.Insert(asset(3, 1)))
	require.NoError(t, s.Insert(asset(1, 1)))
	require.NoError(t, s.Insert(asset(2, 1)))

	require.NoError(t, s.Replace(asset(1, 999)))
	ids := []models.AssetID{}
	for _, a := range s.Assets() {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []models.AssetID{3, 1, 2}, ids)

	err := s.Replace(asset(9, 1))
	assert.ErrorIs(t, err, models.ErrAssetNotFound)
	assert.False(t, s.Has(9))
}

func TestOwnedByExcludesTerminal(t *testing.T) {
	s := models.NewState()
	burned := asset(2, 1)
	burned.Terminal = true
	require.NoError(t, s.Insert(asset(1, 1)))
	require.NoError(t, s.Insert(burned))

	owned := s.OwnedBy(alice)
	require.Len(t, owned, 1)
	assert.Equal(t, models.AssetID(1), owned[0].ID)
}

func TestCloneIsIndependent(t *testing.T) {
	s := models.NewState()
	require.NoError(t, s.Insert(asset(1, 1)))
	c := s.Clone()
	require.NoError(t, c.Replace(asset(1, 5)))
	require.NoError(t, c.Insert(asset(2, 1)))

	assert.Equal(t, 1, s.Len())
	got, _ := s.Get(1)
	assert.True(t, got.Price.Eq(fixedpoint.MustWhole(1)))
	assert.False(t, s.Equal(c))
}

func TestStateJSONRoundTrip(t *testing.T) {
	s := models.NewState()
	require.NoError(t, s.Insert(asset(5, 10)))
	require.NoError(t, s.Insert(asset(4, 20)))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"assets":[`)

	back := models.NewState()
	require.NoError(t, json.Unmarshal(data, back))
	assert.True(t, s.Equal(back))

	dup := []byte(`{"assets":[{"id":1},{"id":1}]}`)
	assert.ErrorIs(t, json.Unmarshal(dup, models.NewState()), models.ErrAssetExists)
}

func TestPositionOrdering(t *testing.T) {
	a := models.Position{BlockNumber: 10, LogIndex: 5}
	b := models.Position{BlockNumber: 10, LogIndex: 6}
	c := models.Position{BlockNumber: 11, LogIndex: 0}
	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.False(t, a.Less(a))
}
