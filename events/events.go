// Package events converte os registros crus emitidos pelo ledger (nome +
// returnValues em texto) num conjunto fechado de eventos tipados. A conversão
// acontece uma vez, na borda do fluxo; o redutor só vê tipos concretos.
package events

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind é o nome do evento no fluxo.
type Kind string

const (
	KindAccounts Kind = "ACCOUNTS_TRIGGER"
	KindTransfer Kind = "Transfer"
	KindBalance  Kind = "Balance"
	KindPrice    Kind = "Price"
	KindOwnerURI Kind = "OwnerURI"
	KindTax      Kind = "Tax"
	KindMetaURI  Kind = "MetaURI"
	KindDebug    Kind = "DEBUG"
)

var ErrMalformedEvent = errors.New("evento malformado")

// Raw é o registro como chega do fluxo: nome e campos nomeados em texto.
type Raw struct {
	Kind         string            `json:"event"`
	ReturnValues map[string]string `json:"returnValues"`
	BlockNumber  uint64            `json:"blockNumber"`
	LogIndex     uint              `json:"logIndex"`
	TxHash       string            `json:"transactionHash,omitempty"`
}

// Event é um dos tipos deste pacote.
type Event interface {
	Kind() Kind
	Pos() models.Position
}

// Header carrega a posição do evento no ledger.
type Header struct {
	Position models.Position
}

func (h Header) Pos() models.Position { return h.Position }

// AccountContext troca a identidade conectada. Não vem do ledger e não move o cursor.
type AccountContext struct {
	Header
	Account common.Address
}

// Transfer muda o dono; de/para o endereço nulo significa mint/burn.
type Transfer struct {
	Header
	AssetID  models.AssetID
	From, To common.Address
}

func (e *Transfer) IsMint() bool { return e.From == (common.Address{}) }
func (e *Transfer) IsBurn() bool { return !e.IsMint() && e.To == (common.Address{}) }

// BalanceUpdate carrega a expiração projetada reportada pelo ledger.
type BalanceUpdate struct {
	Header
	AssetID    models.AssetID
	Expiration time.Time
}

type PriceUpdate struct {
	Header
	AssetID models.AssetID
}

type OwnerURIUpdate struct {
	Header
	AssetID models.AssetID
}

type TaxUpdate struct {
	Header
	AssetID models.AssetID
}

type MetaURIUpdate struct {
	Header
	AssetID models.AssetID
}

// Debug é registrado em log e não altera o estado.
type Debug struct {
	Header
	Values map[string]string
}

// Unknown é qualquer evento não reconhecido; aplicá-lo não altera nada.
type Unknown struct {
	Header
	Name string
}

func (*AccountContext) Kind() Kind { return KindAccounts }
func (*Transfer) Kind() Kind       { return KindTransfer }
func (*BalanceUpdate) Kind() Kind  { return KindBalance }
func (*PriceUpdate) Kind() Kind    { return KindPrice }
func (*OwnerURIUpdate) Kind() Kind { return KindOwnerURI }
func (*TaxUpdate) Kind() Kind      { return KindTax }
func (*MetaURIUpdate) Kind() Kind  { return KindMetaURI }
func (*Debug) Kind() Kind          { return KindDebug }
func (e *Unknown) Kind() Kind      { return Kind(e.Name) }

// AssetOf retorna o ativo afetado, se houver.
func AssetOf(ev Event) (models.AssetID, bool) {
	switch e := ev.(type) {
	case *Transfer:
		return e.AssetID, true
	case *BalanceUpdate:
		return e.AssetID, true
	case *PriceUpdate:
		return e.AssetID, true
	case *OwnerURIUpdate:
		return e.AssetID, true
	case *TaxUpdate:
		return e.AssetID, true
	case *MetaURIUpdate:
		return e.AssetID, true
	}
	return 0, false
}

// FromLedger indica se o evento foi emitido pelo ledger e portanto tem posição.
func FromLedger(ev Event) bool {
	_, local := ev.(*AccountContext)
	return !local
}

// Parse converte um registro cru. Nomes desconhecidos viram *Unknown, nunca erro;
// campos ausentes ou inválidos num evento conhecido são ErrMalformedEvent.
func Parse(raw Raw) (Event, error) {
	h := Header{Position: models.Position{BlockNumber: raw.BlockNumber, LogIndex: raw.LogIndex}}
	v := values(raw.ReturnValues)

	switch Kind(raw.Kind) {
	case KindAccounts:
		account, err := v.address("account")
		if err != nil {
			return nil, wrap(raw, err)
		}
		return &AccountContext{Header: h, Account: account}, nil
	case KindTransfer:
		from, err := v.address("from")
		if err != nil {
			return nil, wrap(raw, err)
		}
		to, err := v.address("to")
		if err != nil {
			return nil, wrap(raw, err)
		}
		id, err := v.assetID()
		if err != nil {
			return nil, wrap(raw, err)
		}
		return &Transfer{Header: h, AssetID: id, From: from, To: to}, nil
	case KindBalance:
		id, err := v.assetID()
		if err != nil {
			return nil, wrap(raw, err)
		}
		exp, err := v.unixTime("expiration")
		if err != nil {
			return nil, wrap(raw, err)
		}
		return &BalanceUpdate{Header: h, AssetID: id, Expiration: exp}, nil
	case KindPrice, KindOwnerURI, KindTax, KindMetaURI:
		id, err := v.assetID()
		if err != nil {
			return nil, wrap(raw, err)
		}
		switch Kind(raw.Kind) {
		case KindPrice:
			return &PriceUpdate{Header: h, AssetID: id}, nil
		case KindOwnerURI:
			return &OwnerURIUpdate{Header: h, AssetID: id}, nil
		case KindTax:
			return &TaxUpdate{Header: h, AssetID: id}, nil
		default:
			return &MetaURIUpdate{Header: h, AssetID: id}, nil
		}
	case KindDebug:
		return &Debug{Header: h, Values: raw.ReturnValues}, nil
	default:
		return &Unknown{Header: h, Name: raw.Kind}, nil
	}
}

func wrap(raw Raw, err error) error {
	return fmt.Errorf("%w: %s (bloco %d, log %d): %v", ErrMalformedEvent, raw.Kind, raw.BlockNumber, raw.LogIndex, err)
}

// values aceita as chaves com ou sem o prefixo "_" usado pelo contrato.
type values map[string]string

func (v values) get(key string) (string, bool) {
	if s, ok := v["_"+key]; ok {
		return strings.TrimSpace(s), true
	}
	s, ok := v[key]
	return strings.TrimSpace(s), ok
}

func (v values) address(key string) (common.Address, error) {
	s, ok := v.get(key)
	if !ok {
		return common.Address{}, fmt.Errorf("campo %q ausente", key)
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("campo %q não é um endereço: %q", key, s)
	}
	return common.HexToAddress(s), nil
}

func (v values) assetID() (models.AssetID, error) {
	s, ok := v.get("tokenId")
	if !ok {
		return 0, errors.New(`campo "tokenId" ausente`)
	}
	n, err := uint256.FromDecimal(s)
	if err != nil || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("tokenId inválido %q: %v", s, err)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("tokenId %s excede 64 bits", s)
	}
	return models.AssetID(n.Uint64()), nil
}

func (v values) unixTime(key string) (time.Time, error) {
	s, ok := v.get(key)
	if !ok {
		return time.Time{}, fmt.Errorf("campo %q ausente", key)
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil || secs < 0 {
		return time.Time{}, fmt.Errorf("campo %q não é um instante unix: %q", key, s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
