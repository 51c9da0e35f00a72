package events_test

import (
	"testing"
	"time"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nullAddress = "0x0000000000000000000000000000000000000000"

func TestParseMintTransfer(t *testing.T) {
	ev, err := events.Parse(events.Raw{
		Kind: "Transfer",
		ReturnValues: map[string]string{
			"_from":    nullAddress,
			"_to":      "0x00000000000000000000000000000000000a11ce",
			"_tokenId": "7",
		},
		BlockNumber: 12,
		LogIndex:    3,
	})
	require.NoError(t, err)

	tr, ok := ev.(*events.Transfer)
	require.True(t, ok)
	assert.Equal(t, models.AssetID(7), tr.AssetID)
	assert.True(t, tr.IsMint())
	assert.False(t, tr.IsBurn())
	assert.Equal(t, models.Position{BlockNumber: 12, LogIndex: 3}, ev.Pos())

	id, ok := events.AssetOf(ev)
	assert.True(t, ok)
	assert.Equal(t, models.AssetID(7), id)
}

func TestParseBurnWithoutUnderscoreKeys(t *testing.T) {
	ev, err := events.Parse(events.Raw{
		Kind: "Transfer",
		ReturnValues: map[string]string{
			"from":    "0x00000000000000000000000000000000000a11ce",
			"to":      nullAddress,
			"tokenId": "9",
		},
	})
	require.NoError(t, err)
	assert.True(t, ev.(*events.Transfer).IsBurn())
}

func TestParseBalanceCarriesExpiration(t *testing.T) {
	ev, err := events.Parse(events.Raw{
		Kind:         "Balance",
		ReturnValues: map[string]string{"_tokenId": "1", "_expiration": "1700000000"},
	})
	require.NoError(t, err)
	b := ev.(*events.BalanceUpdate)
	assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), b.Expiration)
}

func TestParseFieldUpdates(t *testing.T) {
	kinds := map[string]events.Kind{
		"Price":    events.KindPrice,
		"OwnerURI": events.KindOwnerURI,
		"Tax":      events.KindTax,
		"MetaURI":  events.KindMetaURI,
	}
	for name, kind := range kinds {
		ev, err := events.Parse(events.Raw{Kind: name, ReturnValues: map[string]string{"_tokenId": "4"}})
		require.NoError(t, err, name)
		assert.Equal(t, kind, ev.Kind())
		id, ok := events.AssetOf(ev)
		assert.True(t, ok)
		assert.Equal(t, models.AssetID(4), id)
	}
}

func TestParseAccountContext(t *testing.T) {
	ev, err := events.Parse(events.Raw{
		Kind:         "ACCOUNTS_TRIGGER",
		ReturnValues: map[string]string{"account": "0x00000000000000000000000000000000000a11ce"},
	})
	require.NoError(t, err)
	acc := ev.(*events.AccountContext)
	assert.Equal(t, common.HexToAddress("0xa11ce"), acc.Account)
	assert.False(t, events.FromLedger(ev))
	_, ok := events.AssetOf(ev)
	assert.False(t, ok)
}

func TestParseUnknownIsNotAnError(t *testing.T) {
	ev, err := events.Parse(events.Raw{Kind: "Approval", ReturnValues: map[string]string{"x": "y"}})
	require.NoError(t, err)
	assert.Equal(t, events.Kind("Approval"), ev.Kind())
	assert.True(t, events.FromLedger(ev))
}

func TestParseMalformed(t *testing.T) {
	cases := []events.Raw{
		{Kind: "Transfer", ReturnValues: map[string]string{"_from": nullAddress, "_to": "nope", "_tokenId": "1"}},
		{Kind: "Transfer", ReturnValues: map[string]string{"_from": nullAddress, "_to": nullAddress}},
		{Kind: "Price", ReturnValues: map[string]string{"_tokenId": "-1"}},
		{Kind: "Price", ReturnValues: map[string]string{"_tokenId": "18446744073709551616"}},
		{Kind: "Balance", ReturnValues: map[string]string{"_tokenId": "1"}},
		{Kind: "ACCOUNTS_TRIGGER", ReturnValues: map[string]string{}},
	}
	for _, raw := range cases {
		_, err := events.Parse(raw)
		assert.ErrorIs(t, err, events.ErrMalformedEvent, "%+v", raw)
	}
}
