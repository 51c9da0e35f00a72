package services_test

import (
	"context"
	"math/big"
	"time"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	null  = common.Address{}
)

// MockFetcher é uma implementação mock de services.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchAsset(ctx context.Context, id models.AssetID, block uint64) (models.Asset, error) {
	args := m.Called(id, block)
	return args.Get(0).(models.Asset), args.Error(1)
}

// MockReader é uma implementação mock de ledger.Reader
type MockReader struct {
	mock.Mock
}

func (m *MockReader) Asset(ctx context.Context, id models.AssetID, block *big.Int) (ledger.AssetFields, error) {
	args := m.Called(id, block)
	return args.Get(0).(ledger.AssetFields), args.Error(1)
}

func (m *MockReader) BalanceExpiration(ctx context.Context, id models.AssetID, block *big.Int) (*big.Int, error) {
	args := m.Called(id, block)
	exp, _ := args.Get(0).(*big.Int)
	return exp, args.Error(1)
}

func (m *MockReader) Currency(ctx context.Context) (common.Address, error) {
	args := m.Called()
	return args.Get(0).(common.Address), args.Error(1)
}

// MockWriter é uma implementação mock de ledger.Writer
type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) Send(ctx context.Context, t models.Transfer) (common.Hash, error) {
	args := m.Called(t)
	return args.Get(0).(common.Hash), args.Error(1)
}

// fakeLedger responde leituras a partir de uma tabela (id, bloco) -> ativo,
// devolvendo o registro mais recente até a altura pedida.
type fakeLedger struct {
	history map[models.AssetID][]models.Asset
	heights map[models.AssetID][]uint64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		history: map[models.AssetID][]models.Asset{},
		heights: map[models.AssetID][]uint64{},
	}
}

// set registra o ativo a partir do bloco (chamadas em ordem crescente de bloco).
func (f *fakeLedger) set(block uint64, a models.Asset) {
	f.history[a.ID] = append(f.history[a.ID], a)
	f.heights[a.ID] = append(f.heights[a.ID], block)
}

func (f *fakeLedger) FetchAsset(_ context.Context, id models.AssetID, block uint64) (models.Asset, error) {
	var found *models.Asset
	for i, h := range f.heights[id] {
		if h <= block {
			a := f.history[id][i]
			found = &a
		}
	}
	if found == nil {
		return models.Asset{}, ledger.ErrEmptyResponse
	}
	return *found, nil
}

// latest é a leitura direta da tabela de ativos no bloco dado.
func (f *fakeLedger) latest(block uint64, order []models.AssetID) *models.State {
	st := models.NewState()
	for _, id := range order {
		a, err := f.FetchAsset(context.Background(), id, block)
		if err == nil {
			_ = st.Insert(a)
		}
	}
	return st
}

func asset(id models.AssetID, owner common.Address, price uint64) models.Asset {
	return models.Asset{
		ID:              id,
		Owner:           owner,
		Price:           fixedpoint.MustWhole(price),
		Tax:             1000,
		LastPaymentDate: time.Unix(1_700_000_000, 0).UTC(),
		Balance:         fixedpoint.MustWhole(10),
		OwnerURI:        "ipfs:owner",
		MetaURI:         "ipfs:meta",
	}
}

func at(block uint64, idx uint) events.Header {
	return events.Header{Position: models.Position{BlockNumber: block, LogIndex: idx}}
}

func mintEv(block uint64, idx uint, id models.AssetID, to common.Address) *events.Transfer {
	return &events.Transfer{Header: at(block, idx), AssetID: id, From: null, To: to}
}

func priceEv(block uint64, idx uint, id models.AssetID) *events.PriceUpdate {
	return &events.PriceUpdate{Header: at(block, idx), AssetID: id}
}
