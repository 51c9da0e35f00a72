package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ferreirogomes/harberger/calldata"
	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
)

// Transactor prepara e submete as transferências de compra e recarga.
type Transactor interface {
	PrepareBuy(id models.AssetID, newPrice, credit fixedpoint.Amount, ownerURI string) (models.Transfer, error)
	PrepareCredit(id models.AssetID, amount fixedpoint.Amount) (models.Transfer, error)
	Submit(ctx context.Context, t models.Transfer) (common.Hash, error)
}

type TransactionHandler struct {
	Service Transactor
}

func NewTransactionHandler(s Transactor) *TransactionHandler {
	return &TransactionHandler{Service: s}
}

// BuyRequest usa valores decimais legíveis ("12.5").
type BuyRequest struct {
	Price    string `json:"price"`
	Credit   string `json:"credit"`
	OwnerURI string `json:"owner_uri"`
	Submit   bool   `json:"submit"`
}

type CreditRequest struct {
	Amount string `json:"amount"`
	Submit bool   `json:"submit"`
}

// TransactionResponse traz a transferência preparada e, se submetida, o hash.
type TransactionResponse struct {
	Transfer models.Transfer `json:"transfer"`
	TxHash   *common.Hash    `json:"tx_hash,omitempty"`
}

// Buy prepara (e opcionalmente submete) a compra de um ativo.
// POST /assets/{id}/buy
func (h *TransactionHandler) Buy(w http.ResponseWriter, r *http.Request) {
	id, err := assetIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	price, err := fixedpoint.Parse(req.Price)
	if err != nil {
		http.Error(w, fmt.Sprintf("Preço inválido: %v", err), http.StatusBadRequest)
		return
	}
	credit, err := fixedpoint.Parse(req.Credit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Saldo inválido: %v", err), http.StatusBadRequest)
		return
	}

	t, err := h.Service.PrepareBuy(id, price, credit, req.OwnerURI)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, t, req.Submit)
}

// Credit prepara (e opcionalmente submete) a recarga de saldo de um ativo.
// POST /assets/{id}/credit
func (h *TransactionHandler) Credit(w http.ResponseWriter, r *http.Request) {
	id, err := assetIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	amount, err := fixedpoint.Parse(req.Amount)
	if err != nil {
		http.Error(w, fmt.Sprintf("Valor inválido: %v", err), http.StatusBadRequest)
		return
	}

	t, err := h.Service.PrepareCredit(id, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, r, t, req.Submit)
}

func (h *TransactionHandler) respond(w http.ResponseWriter, r *http.Request, t models.Transfer, submit bool) {
	if !submit {
		writeJSON(w, http.StatusOK, TransactionResponse{Transfer: t})
		return
	}
	hash, err := h.Service.Submit(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, TransactionResponse{Transfer: t, TxHash: &hash})
}

// DecodeResponse descreve um payload decodificado.
type DecodeResponse struct {
	Action  string           `json:"action"`
	Payload calldata.Payload `json:"payload"`
}

// DecodeCalldata decodifica um payload "0x..." de compra ou recarga.
// POST /calldata/decode
func (h *TransactionHandler) DecodeCalldata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Data string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := calldata.DecodeHex(req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DecodeResponse{Action: payload.Action().String(), Payload: payload})
}
