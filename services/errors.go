package services

import (
	"errors"
	"fmt"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"
)

var (
	// ErrConsistency indica uma lacuna no fluxo de eventos (mint perdido).
	// A recuperação exige ressincronizar a partir do gênesis ou de um snapshot confiável.
	ErrConsistency = errors.New("falha de consistência da réplica")
	// ErrLedgerRead indica que a leitura do ativo no ledger falhou.
	ErrLedgerRead = errors.New("falha de leitura no ledger")
	// ErrDuplicateMint indica um mint para um id já presente e ativo.
	ErrDuplicateMint = errors.New("mint de ativo já existente")

	ErrTerminalAsset = errors.New("ativo queimado não aceita transações")
	ErrZeroPrice     = errors.New("o preço deve ser maior que zero")
	ErrZeroAmount    = errors.New("o valor deve ser maior que zero")
	ErrCreditTooLow  = errors.New("saldo inicial abaixo de um dia de imposto")
)

// ConsistencyError é o ErrConsistency com o evento que o revelou.
type ConsistencyError struct {
	AssetID  models.AssetID
	Kind     events.Kind
	Position models.Position
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%v: evento %s para o ativo %d ausente da réplica (bloco %d, log %d)",
		ErrConsistency, e.Kind, e.AssetID, e.Position.BlockNumber, e.Position.LogIndex)
}

func (e *ConsistencyError) Unwrap() error { return ErrConsistency }

// LedgerReadError é o ErrLedgerRead de um ativo, com a causa original.
type LedgerReadError struct {
	AssetID models.AssetID
	Block   uint64
	Err     error
}

func (e *LedgerReadError) Error() string {
	return fmt.Sprintf("%v: ativo %d no bloco %d: %v", ErrLedgerRead, e.AssetID, e.Block, e.Err)
}

// Unwrap expõe tanto ErrLedgerRead quanto a causa para errors.Is.
func (e *LedgerReadError) Unwrap() []error { return []error{ErrLedgerRead, e.Err} }
