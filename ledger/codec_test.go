package ledger_test

import (
	"math/big"
	"testing"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

func TestUnpackAsset(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)

	price, _ := new(big.Int).SetString("1000000000000000000000", 10)
	out, err := codec.ABI().Methods["assets"].Outputs.Pack(
		true, alice, big.NewInt(1000), big.NewInt(1_700_000_000), price, big.NewInt(5), "ipfs:owner", "ipfs:meta",
	)
	require.NoError(t, err)

	f, err := codec.UnpackAsset(out)
	require.NoError(t, err)
	require.NotNil(t, f.Active)
	assert.True(t, *f.Active)
	assert.Equal(t, alice, *f.Owner)
	assert.Equal(t, int64(1000), f.Tax.Int64())
	assert.Equal(t, price.String(), f.Price.String())
	assert.Equal(t, "ipfs:meta", *f.MetaURI)

	_, err = codec.UnpackAsset(nil)
	assert.ErrorIs(t, err, ledger.ErrEmptyResponse)
}

func TestPackAssetSelector(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)
	data, err := codec.PackAsset(7)
	require.NoError(t, err)
	assert.Len(t, data, 4+32)
	assert.Equal(t, codec.ABI().Methods["assets"].ID, data[:4])
}

func TestDecodeTransferLog(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)
	ev := codec.ABI().Events["Transfer"]

	raw, err := codec.DecodeLog(types.Log{
		Topics: []common.Hash{
			ev.ID,
			common.Hash{},
			common.BytesToHash(alice.Bytes()),
			common.BigToHash(big.NewInt(7)),
		},
		BlockNumber: 100,
		Index:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Transfer", raw.Kind)
	assert.Equal(t, "7", raw.ReturnValues["_tokenId"])

	parsed, err := events.Parse(raw)
	require.NoError(t, err)
	tr := parsed.(*events.Transfer)
	assert.True(t, tr.IsMint())
	assert.Equal(t, alice, tr.To)
	assert.Equal(t, models.Position{BlockNumber: 100, LogIndex: 2}, parsed.Pos())
}

func TestDecodeBalanceLog(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)
	ev := codec.ABI().Events["Balance"]

	data, err := ev.Inputs.NonIndexed().Pack(big.NewInt(42), uint64(1_700_000_000))
	require.NoError(t, err)

	raw, err := codec.DecodeLog(types.Log{
		Topics: []common.Hash{ev.ID, common.BigToHash(big.NewInt(3))},
		Data:   data,
	})
	require.NoError(t, err)

	parsed, err := events.Parse(raw)
	require.NoError(t, err)
	b := parsed.(*events.BalanceUpdate)
	assert.Equal(t, models.AssetID(3), b.AssetID)
	assert.Equal(t, int64(1_700_000_000), b.Expiration.Unix())
}

func TestDecodeUnknownLog(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)

	raw, err := codec.DecodeLog(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	require.NoError(t, err)
	parsed, err := events.Parse(raw)
	require.NoError(t, err)
	_, isUnknown := parsed.(*events.Unknown)
	assert.True(t, isUnknown)
}

func TestBalanceExpiration(t *testing.T) {
	codec, err := ledger.NewCodec()
	require.NoError(t, err)

	data, err := codec.PackBalanceExpiration(7)
	require.NoError(t, err)
	assert.Equal(t, codec.ABI().Methods["balanceExpiration"].ID, data[:4])

	out, err := codec.ABI().Methods["balanceExpiration"].Outputs.Pack(big.NewInt(1_700_500_000))
	require.NoError(t, err)
	exp, err := codec.UnpackBalanceExpiration(out)
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_500_000), exp.Int64())

	_, err = codec.UnpackBalanceExpiration(nil)
	assert.ErrorIs(t, err, ledger.ErrEmptyResponse)
}
