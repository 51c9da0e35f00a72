package models

import (
	"github.com/ferreirogomes/harberger/fixedpoint"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Transfer é uma transferência de token com payload, pronta para assinatura.
// O contrato do ledger interpreta Data ao receber Amount do token.
type Transfer struct {
	Action  string            `json:"action"` // "buy" ou "credit"
	AssetID AssetID           `json:"asset_id"`
	Token   common.Address    `json:"token"` // token de pagamento aceito pelo ledger
	To      common.Address    `json:"to"`    // contrato do ledger
	Amount  fixedpoint.Amount `json:"amount"`
	Data    hexutil.Bytes     `json:"data"`
}
