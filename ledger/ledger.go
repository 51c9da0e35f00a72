// Package ledger define o que a réplica consome do ledger: leituras de
// ativos, o fluxo de logs do contrato e o envio de transferências com payload.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrFieldUnset indica um campo omitido pelo ledger; nunca é tratado como zero.
	ErrFieldUnset = errors.New("ledger: campo não informado")
	// ErrEmptyResponse indica uma leitura sem retorno (contrato ausente na altura pedida).
	ErrEmptyResponse = errors.New("ledger: resposta vazia")
	// ErrNoSigner indica envio sem chave configurada.
	ErrNoSigner = errors.New("ledger: nenhuma chave de assinatura configurada")
)

// AssetFields são os campos canônicos de assets(id). Ponteiro nil = omitido.
type AssetFields struct {
	Active          *bool
	Owner           *common.Address
	Tax             *big.Int
	LastPaymentDate *big.Int
	Price           *big.Int
	Balance         *big.Int
	OwnerURI        *string
	MetaURI         *string
}

// Reader faz leituras somente-consulta. block nil = bloco mais recente.
type Reader interface {
	Asset(ctx context.Context, id models.AssetID, block *big.Int) (AssetFields, error)
	// BalanceExpiration lê quando o saldo do ativo se esgota (unix, segundos).
	BalanceExpiration(ctx context.Context, id models.AssetID, block *big.Int) (*big.Int, error)
	Currency(ctx context.Context) (common.Address, error)
}

// LogSource entrega os eventos do contrato em janelas de blocos.
type LogSource interface {
	Head(ctx context.Context) (uint64, error)
	Events(ctx context.Context, from, to uint64) ([]events.Raw, error)
}

// Writer submete uma transferência de token com payload.
type Writer interface {
	Send(ctx context.Context, t models.Transfer) (common.Hash, error)
}
