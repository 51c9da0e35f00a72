package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// ReplicaStatus expõe o progresso da réplica e a sessão conectada.
type ReplicaStatus interface {
	OwnedBy(addr common.Address) []models.Asset
	Session() models.Session
	Cursor() *models.Position
	SyncedBlock() uint64
	Len() int
	Halted() error
	Apply(ctx context.Context, batch []events.Event) (int, error)
}

// AccountHandler lida com a conta conectada e os ativos de cada endereço.
type AccountHandler struct {
	Replica ReplicaStatus
}

func NewAccountHandler(r ReplicaStatus) *AccountHandler {
	return &AccountHandler{Replica: r}
}

// GetAccountAssets lista os ativos controlados por um endereço.
// GET /accounts/{address}/assets
func (h *AccountHandler) GetAccountAssets(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "address")
	if !common.IsHexAddress(raw) {
		http.Error(w, "Endereço inválido", http.StatusBadRequest)
		return
	}
	assets := h.Replica.OwnedBy(common.HexToAddress(raw))
	if assets == nil {
		assets = []models.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

// StatusResponse resume o estado da sincronização.
type StatusResponse struct {
	Account     common.Address   `json:"account"`
	Cursor      *models.Position `json:"cursor"`
	SyncedBlock uint64           `json:"synced_block"`
	AssetCount  int              `json:"asset_count"`
	Halted      bool             `json:"halted"`
	Fault       string           `json:"fault,omitempty"`
}

// GetStatus retorna o progresso da réplica e, se a sincronização parou, a falha.
// GET /status
func (h *AccountHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Account:     h.Replica.Session().Account,
		Cursor:      h.Replica.Cursor(),
		SyncedBlock: h.Replica.SyncedBlock(),
		AssetCount:  h.Replica.Len(),
	}
	if err := h.Replica.Halted(); err != nil {
		resp.Halted = true
		resp.Fault = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetSession troca a conta conectada.
// PUT /session
func (h *AccountHandler) SetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.Account) {
		http.Error(w, "Endereço inválido", http.StatusBadRequest)
		return
	}

	ev := &events.AccountContext{Account: common.HexToAddress(req.Account)}
	if _, err := h.Replica.Apply(r.Context(), []events.Event{ev}); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Replica.Session())
}
