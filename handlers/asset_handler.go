package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ferreirogomes/harberger/calldata"
	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/services"
	"github.com/ferreirogomes/harberger/tax"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

// AssetReader é a leitura da réplica exposta pela API.
type AssetReader interface {
	Assets() []models.Asset
	Asset(id models.AssetID) (models.Asset, bool)
	OwnedBy(addr common.Address) []models.Asset
}

// AssetHandler lida com requisições HTTP relacionadas a ativos.
type AssetHandler struct {
	Replica AssetReader
}

// NewAssetHandler cria uma nova instância do handler de ativos.
func NewAssetHandler(r AssetReader) *AssetHandler {
	return &AssetHandler{Replica: r}
}

// ListAssets lista todos os ativos na ordem de inserção.
// GET /assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Replica.Assets())
}

// GetAssetByID obtém um ativo pelo ID.
// GET /assets/{id}
func (h *AssetHandler) GetAssetByID(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// TaxResponse traz o imposto devido por um período e as recargas sugeridas.
type TaxResponse struct {
	AssetID models.AssetID    `json:"asset_id"`
	Rate    string            `json:"rate"`
	Daily   fixedpoint.Amount `json:"daily"`
	Days    uint64            `json:"days"`
	Due     fixedpoint.Amount `json:"due"`
	Presets []tax.Preset      `json:"presets"`
}

// GetTax calcula o imposto do ativo ao preço atual.
// GET /assets/{id}/tax?days=N
func (h *AssetHandler) GetTax(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookup(w, r)
	if !ok {
		return
	}

	days := uint64(1)
	if q := r.URL.Query().Get("days"); q != "" {
		n, err := strconv.ParseUint(q, 10, 64)
		if err != nil || n == 0 {
			http.Error(w, "days deve ser um inteiro positivo", http.StatusBadRequest)
			return
		}
		days = n
	}

	daily, err := tax.Daily(asset.Price, asset.Tax)
	if err != nil {
		writeError(w, err)
		return
	}
	due, err := tax.Due(asset.Price, asset.Tax, days)
	if err != nil {
		writeError(w, err)
		return
	}
	presets, err := tax.Presets(asset.Price, asset.Tax)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TaxResponse{
		AssetID: asset.ID,
		Rate:    asset.Tax.String(),
		Daily:   daily,
		Days:    days,
		Due:     due,
		Presets: presets,
	})
}

func (h *AssetHandler) lookup(w http.ResponseWriter, r *http.Request) (models.Asset, bool) {
	id, err := assetIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.Asset{}, false
	}
	asset, found := h.Replica.Asset(id)
	if !found {
		http.Error(w, "Ativo não encontrado", http.StatusNotFound)
		return models.Asset{}, false
	}
	return asset, true
}

func assetIDParam(r *http.Request) (models.AssetID, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, errors.New("ID do ativo é obrigatório")
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("ID do ativo inválido")
	}
	return models.AssetID(n), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError traduz as falhas do domínio em códigos HTTP.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, calldata.ErrUnrecognizedAction), errors.Is(err, calldata.ErrMalformed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrTerminalAsset),
		errors.Is(err, services.ErrCreditTooLow),
		errors.Is(err, services.ErrZeroPrice),
		errors.Is(err, services.ErrZeroAmount),
		errors.Is(err, fixedpoint.ErrSyntax),
		errors.Is(err, fixedpoint.ErrNegative),
		errors.Is(err, fixedpoint.ErrOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNoSigner):
		status = http.StatusNotImplemented
	}
	http.Error(w, err.Error(), status)
}
