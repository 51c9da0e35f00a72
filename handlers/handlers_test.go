package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ferreirogomes/harberger/calldata"
	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/handlers"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")

// MockReplica é uma implementação mock da réplica vista pelos handlers
type MockReplica struct {
	mock.Mock
}

func (m *MockReplica) Assets() []models.Asset {
	args := m.Called()
	return args.Get(0).([]models.Asset)
}

func (m *MockReplica) Asset(id models.AssetID) (models.Asset, bool) {
	args := m.Called(id)
	return args.Get(0).(models.Asset), args.Bool(1)
}

func (m *MockReplica) OwnedBy(addr common.Address) []models.Asset {
	args := m.Called(addr)
	return args.Get(0).([]models.Asset)
}

func (m *MockReplica) Session() models.Session {
	args := m.Called()
	return args.Get(0).(models.Session)
}

func (m *MockReplica) Cursor() *models.Position {
	args := m.Called()
	return args.Get(0).(*models.Position)
}

func (m *MockReplica) SyncedBlock() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

func (m *MockReplica) Len() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockReplica) Halted() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockReplica) Apply(ctx context.Context, batch []events.Event) (int, error) {
	args := m.Called(batch)
	return args.Int(0), args.Error(1)
}

// MockTransactor é uma implementação mock de handlers.Transactor
type MockTransactor struct {
	mock.Mock
}

func (m *MockTransactor) PrepareBuy(id models.AssetID, newPrice, credit fixedpoint.Amount, ownerURI string) (models.Transfer, error) {
	args := m.Called(id, newPrice, credit, ownerURI)
	return args.Get(0).(models.Transfer), args.Error(1)
}

func (m *MockTransactor) PrepareCredit(id models.AssetID, amount fixedpoint.Amount) (models.Transfer, error) {
	args := m.Called(id, amount)
	return args.Get(0).(models.Transfer), args.Error(1)
}

func (m *MockTransactor) Submit(ctx context.Context, t models.Transfer) (common.Hash, error) {
	args := m.Called(t)
	return args.Get(0).(common.Hash), args.Error(1)
}

func testAsset(id models.AssetID) models.Asset {
	return models.Asset{
		ID:              id,
		Owner:           alice,
		Price:           fixedpoint.MustWhole(1000),
		Tax:             1000,
		LastPaymentDate: time.Unix(1_700_000_000, 0).UTC(),
		Balance:         fixedpoint.MustWhole(10),
	}
}

func router(replica *MockReplica, tx *MockTransactor) http.Handler {
	return handlers.NewRouter(
		handlers.NewAssetHandler(replica),
		handlers.NewTransactionHandler(tx),
		handlers.NewAccountHandler(replica),
		nil,
	)
}

// TestListAssets testa a listagem dos ativos
func TestListAssets(t *testing.T) {
	replica := new(MockReplica)
	replica.On("Assets").Return([]models.Asset{testAsset(1), testAsset(2)}).Once()

	req := httptest.NewRequest("GET", "/assets", nil)
	rr := httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []models.Asset
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)
	assert.True(t, got[0].Equal(testAsset(1)))
	replica.AssertExpectations(t)
}

// TestGetAssetByID testa a obtenção de um ativo por ID
func TestGetAssetByID(t *testing.T) {
	replica := new(MockReplica)
	replica.On("Asset", models.AssetID(7)).Return(testAsset(7), true).Once()
	replica.On("Asset", models.AssetID(8)).Return(models.Asset{}, false).Once()

	rr := httptest.NewRecorder()
	r := chi.NewRouter()
	r.Get("/assets/{id}", handlers.NewAssetHandler(replica).GetAssetByID)
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/assets/7", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"price":"1000000000000000000000"`)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/assets/8", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/assets/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	replica.AssertExpectations(t)
}

// TestGetTax testa o cálculo do imposto por 14 dias
func TestGetTax(t *testing.T) {
	replica := new(MockReplica)
	replica.On("Asset", models.AssetID(1)).Return(testAsset(1), true)

	rr := httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("GET", "/assets/1/tax?days=14", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got handlers.TaxResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "140", got.Due.Text())
	assert.Equal(t, "10", got.Daily.Text())
	assert.Equal(t, uint64(14), got.Days)
	require.Len(t, got.Presets, 3)
	assert.Equal(t, "280", got.Presets[2].Amount.Text())

	rr = httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("GET", "/assets/1/tax?days=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// TestBuy testa a preparação de uma compra
func TestBuy(t *testing.T) {
	tx := new(MockTransactor)
	prepared := models.Transfer{Action: "buy", AssetID: 3, Amount: fixedpoint.MustWhole(1140)}
	tx.On("PrepareBuy", models.AssetID(3), fixedpoint.MustWhole(1000), fixedpoint.MustWhole(140), "peaches").Return(prepared, nil).Once()

	body, _ := json.Marshal(handlers.BuyRequest{Price: "1000", Credit: "140", OwnerURI: "peaches"})
	req := httptest.NewRequest("POST", "/assets/3/buy", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router(new(MockReplica), tx).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got handlers.TransactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "buy", got.Transfer.Action)
	assert.Nil(t, got.TxHash)
	tx.AssertExpectations(t)
}

func TestBuyErrors(t *testing.T) {
	tx := new(MockTransactor)
	tx.On("PrepareBuy", models.AssetID(3), mock.Anything, mock.Anything, "").Return(models.Transfer{}, services.ErrCreditTooLow).Once()
	tx.On("PrepareBuy", models.AssetID(4), mock.Anything, mock.Anything, "").Return(models.Transfer{}, models.ErrAssetNotFound).Once()

	cases := []struct {
		path, body string
		status     int
	}{
		{"/assets/3/buy", `{"price":"1","credit":"0.1"}`, http.StatusBadRequest},
		{"/assets/4/buy", `{"price":"1","credit":"1"}`, http.StatusNotFound},
		{"/assets/3/buy", `{"price":"-1","credit":"1"}`, http.StatusBadRequest},
		{"/assets/3/buy", `{"price":"x","credit":"1"}`, http.StatusBadRequest},
		{"/assets/3/buy", `not json`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		router(new(MockReplica), tx).ServeHTTP(rr, httptest.NewRequest("POST", c.path, strings.NewReader(c.body)))
		assert.Equal(t, c.status, rr.Code, c.body)
	}
	tx.AssertExpectations(t)
}

// TestCreditSubmit testa a recarga com envio ao ledger
func TestCreditSubmit(t *testing.T) {
	tx := new(MockTransactor)
	prepared := models.Transfer{Action: "credit", AssetID: 3, Amount: fixedpoint.MustWhole(70)}
	hash := common.HexToHash("0x1234")
	tx.On("PrepareCredit", models.AssetID(3), fixedpoint.MustWhole(70)).Return(prepared, nil).Once()
	tx.On("Submit", prepared).Return(hash, nil).Once()

	rr := httptest.NewRecorder()
	router(new(MockReplica), tx).ServeHTTP(rr, httptest.NewRequest("POST", "/assets/3/credit", strings.NewReader(`{"amount":"70","submit":true}`)))

	assert.Equal(t, http.StatusAccepted, rr.Code)
	var got handlers.TransactionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.NotNil(t, got.TxHash)
	assert.Equal(t, hash, *got.TxHash)
	tx.AssertExpectations(t)
}

func TestCreditSubmitWithoutSigner(t *testing.T) {
	tx := new(MockTransactor)
	tx.On("PrepareCredit", models.AssetID(3), mock.Anything).Return(models.Transfer{}, nil).Once()
	tx.On("Submit", mock.Anything).Return(common.Hash{}, ledger.ErrNoSigner).Once()

	rr := httptest.NewRecorder()
	router(new(MockReplica), tx).ServeHTTP(rr, httptest.NewRequest("POST", "/assets/3/credit", strings.NewReader(`{"amount":"1","submit":true}`)))

	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

// TestDecodeCalldata testa a decodificação de payloads
func TestDecodeCalldata(t *testing.T) {
	data := calldata.EncodeHex(calldata.EncodeCredit(calldata.Credit{AssetID: 9}))

	rr := httptest.NewRecorder()
	router(new(MockReplica), new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("POST", "/calldata/decode", strings.NewReader(`{"data":"`+data+`"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"action":"credit"`)
	assert.Contains(t, rr.Body.String(), `"asset_id":9`)

	rr = httptest.NewRecorder()
	router(new(MockReplica), new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("POST", "/calldata/decode", strings.NewReader(`{"data":"0x03"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

// TestGetAccountAssets testa a listagem dos ativos de um endereço
func TestGetAccountAssets(t *testing.T) {
	replica := new(MockReplica)
	replica.On("OwnedBy", alice).Return([]models.Asset(nil)).Once()

	rr := httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("GET", "/accounts/"+alice.Hex()+"/assets", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("GET", "/accounts/xyz/assets", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	replica.AssertExpectations(t)
}

func TestGetStatus(t *testing.T) {
	replica := new(MockReplica)
	replica.On("Session").Return(models.Session{Account: alice})
	replica.On("Cursor").Return(&models.Position{BlockNumber: 12, LogIndex: 3})
	replica.On("SyncedBlock").Return(uint64(15))
	replica.On("Len").Return(4)
	replica.On("Halted").Return(nil)

	rr := httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, alice, got.Account)
	assert.Equal(t, uint64(15), got.SyncedBlock)
	assert.Equal(t, 4, got.AssetCount)
	assert.Equal(t, uint(3), got.Cursor.LogIndex)
	assert.False(t, got.Halted)
	assert.Empty(t, got.Fault)
}

// TestGetStatusAfterHalt verifica que a API segue respondendo com a réplica parada
func TestGetStatusAfterHalt(t *testing.T) {
	replica := services.NewReplica(staticFetcher{}, nil, 1)
	mint := &events.Transfer{
		Header:  events.Header{Position: models.Position{BlockNumber: 2}},
		AssetID: 1,
		To:      alice,
	}
	_, err := replica.Apply(context.Background(), []events.Event{mint})
	require.NoError(t, err)
	replica.MarkHalted(&services.ConsistencyError{AssetID: 8, Kind: events.KindPrice})

	r := handlers.NewRouter(
		handlers.NewAssetHandler(replica),
		handlers.NewTransactionHandler(new(MockTransactor)),
		handlers.NewAccountHandler(replica),
		nil,
	)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Halted)
	assert.NotEmpty(t, got.Fault)
	assert.Equal(t, 1, got.AssetCount)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/assets/1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

// TestSetSession testa a troca da conta conectada por um evento de conta
func TestSetSession(t *testing.T) {
	replica := new(MockReplica)
	replica.On("Apply", []events.Event{&events.AccountContext{Account: alice}}).Return(1, nil).Once()
	replica.On("Session").Return(models.Session{Account: alice}).Once()

	rr := httptest.NewRecorder()
	router(replica, new(MockTransactor)).ServeHTTP(rr, httptest.NewRequest("PUT", "/session", strings.NewReader(`{"account":"`+alice.Hex()+`"}`)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, strings.ToLower(rr.Body.String()), strings.ToLower(alice.Hex()))
	replica.AssertExpectations(t)
}
