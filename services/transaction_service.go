package services

import (
	"context"
	"fmt"
	"log"

	"github.com/ferreirogomes/harberger/calldata"
	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/tax"

	"github.com/ethereum/go-ethereum/common"
)

// AssetSource é a leitura da réplica usada para preparar transações.
type AssetSource interface {
	Asset(id models.AssetID) (models.Asset, bool)
}

// TransactionService prepara as transferências de compra e recarga e,
// quando há uma chave configurada, as submete ao ledger.
type TransactionService struct {
	assets   AssetSource
	writer   ledger.Writer
	contract common.Address
	token    common.Address
}

// NewTransactionService cria o serviço. writer pode ser nil: nesse caso só
// a preparação está disponível.
func NewTransactionService(assets AssetSource, writer ledger.Writer, contract, token common.Address) *TransactionService {
	return &TransactionService{assets: assets, writer: writer, contract: contract, token: token}
}

// PrepareBuy monta a compra do ativo: transfere o preço atual mais o novo
// saldo, com o novo preço e o ownerURI no payload.
func (s *TransactionService) PrepareBuy(id models.AssetID, newPrice, credit fixedpoint.Amount, ownerURI string) (models.Transfer, error) {
	asset, err := s.transactable(id)
	if err != nil {
		return models.Transfer{}, err
	}
	if newPrice.IsZero() {
		return models.Transfer{}, ErrZeroPrice
	}
	minimum, err := tax.MinimumCredit(newPrice, asset.Tax)
	if err != nil {
		return models.Transfer{}, fmt.Errorf("falha ao calcular o saldo mínimo: %w", err)
	}
	if credit.Lt(minimum) || credit.IsZero() {
		return models.Transfer{}, fmt.Errorf("%w: mínimo %s, informado %s", ErrCreditTooLow, minimum.Text(), credit.Text())
	}
	amount, err := tax.BuyValue(asset.Price, credit)
	if err != nil {
		return models.Transfer{}, fmt.Errorf("falha ao calcular o valor da compra: %w", err)
	}

	data := calldata.EncodeBuy(calldata.Buy{
		AssetID:  uint64(id),
		Price:    newPrice,
		Credit:   credit,
		OwnerURI: ownerURI,
	})
	return s.transfer(calldata.ActionBuy, id, amount, data), nil
}

// PrepareCredit monta a recarga de saldo do ativo.
func (s *TransactionService) PrepareCredit(id models.AssetID, amount fixedpoint.Amount) (models.Transfer, error) {
	if _, err := s.transactable(id); err != nil {
		return models.Transfer{}, err
	}
	if amount.IsZero() {
		return models.Transfer{}, ErrZeroAmount
	}
	data := calldata.EncodeCredit(calldata.Credit{AssetID: uint64(id)})
	return s.transfer(calldata.ActionCredit, id, amount, data), nil
}

// Submit envia a transferência preparada e retorna o hash da transação.
func (s *TransactionService) Submit(ctx context.Context, t models.Transfer) (common.Hash, error) {
	if s.writer == nil {
		return common.Hash{}, ledger.ErrNoSigner
	}
	hash, err := s.writer.Send(ctx, t)
	if err != nil {
		return common.Hash{}, fmt.Errorf("falha ao submeter %s do ativo %d: %w", t.Action, t.AssetID, err)
	}
	log.Printf("Transação %s do ativo %d submetida: %s", t.Action, t.AssetID, hash.Hex())
	return hash, nil
}

// CanSubmit indica se há um Writer configurado.
func (s *TransactionService) CanSubmit() bool { return s.writer != nil }

func (s *TransactionService) transactable(id models.AssetID) (models.Asset, error) {
	asset, ok := s.assets.Asset(id)
	if !ok {
		return models.Asset{}, fmt.Errorf("%w: %d", models.ErrAssetNotFound, id)
	}
	if asset.Terminal {
		return models.Asset{}, fmt.Errorf("%w: %d", ErrTerminalAsset, id)
	}
	return asset, nil
}

func (s *TransactionService) transfer(action calldata.Action, id models.AssetID, amount fixedpoint.Amount, data []byte) models.Transfer {
	return models.Transfer{
		Action:  action.String(),
		AssetID: id,
		Token:   s.token,
		To:      s.contract,
		Amount:  amount,
		Data:    data,
	}
}
