package models

import (
	"time"

	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/tax"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID é o identificador atribuído pelo ledger no mint; imutável.
type AssetID uint64

// Asset é a réplica local de um ativo sob imposto Harberger.
type Asset struct {
	ID              AssetID           `json:"id"`
	Owner           common.Address    `json:"owner"`
	Price           fixedpoint.Amount `json:"price"`
	Tax             tax.Rate          `json:"tax"` // milésimos de % ao dia
	LastPaymentDate time.Time         `json:"last_payment_date"`
	Balance         fixedpoint.Amount `json:"balance"`
	Expiration      time.Time         `json:"expiration"` // zero: ainda não reportada pelo ledger
	OwnerURI        string            `json:"owner_uri"`
	MetaURI         string            `json:"meta_uri"`
	Terminal        bool              `json:"terminal"` // queimado; não aceita mais compra nem crédito
}

// Equal compara campo a campo.
func (a Asset) Equal(b Asset) bool {
	return a.ID == b.ID &&
		a.Owner == b.Owner &&
		a.Price.Eq(b.Price) &&
		a.Tax == b.Tax &&
		a.LastPaymentDate.Equal(b.LastPaymentDate) &&
		a.Balance.Eq(b.Balance) &&
		a.Expiration.Equal(b.Expiration) &&
		a.OwnerURI == b.OwnerURI &&
		a.MetaURI == b.MetaURI &&
		a.Terminal == b.Terminal
}

// OwnedBy indica se o endereço controla o ativo.
func (a Asset) OwnedBy(addr common.Address) bool {
	return !a.Terminal && a.Owner == addr
}
