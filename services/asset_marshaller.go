package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ferreirogomes/harberger/fixedpoint"
	"github.com/ferreirogomes/harberger/ledger"
	"github.com/ferreirogomes/harberger/models"
	"github.com/ferreirogomes/harberger/tax"

	lru "github.com/hashicorp/golang-lru/v2"
)

type readKey struct {
	id    models.AssetID
	block uint64
}

// AssetMarshaller lê o registro canônico de um ativo no ledger e o normaliza.
//
// Leituras fixadas numa altura (block > 0) são imutáveis e ficam em cache;
// block == 0 lê o bloco mais recente e nunca é cacheado.
type AssetMarshaller struct {
	reader ledger.Reader
	cache  *lru.Cache[readKey, models.Asset]
}

// NewAssetMarshaller cria o marshaller. cacheSize <= 0 desliga o cache.
func NewAssetMarshaller(reader ledger.Reader, cacheSize int) (*AssetMarshaller, error) {
	m := &AssetMarshaller{reader: reader}
	if cacheSize > 0 {
		cache, err := lru.New[readKey, models.Asset](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("falha ao criar cache de leituras: %w", err)
		}
		m.cache = cache
	}
	return m, nil
}

// FetchAsset retorna o ativo como o ledger o vê na altura block, com a
// expiração lida de balanceExpiration na mesma altura. Qualquer falha,
// inclusive um campo omitido, vira *LedgerReadError.
func (m *AssetMarshaller) FetchAsset(ctx context.Context, id models.AssetID, block uint64) (models.Asset, error) {
	key := readKey{id: id, block: block}
	if m.cache != nil && block > 0 {
		if a, ok := m.cache.Get(key); ok {
			return a, nil
		}
	}

	var height *big.Int
	if block > 0 {
		height = new(big.Int).SetUint64(block)
	}
	fields, err := m.reader.Asset(ctx, id, height)
	if err != nil {
		return models.Asset{}, &LedgerReadError{AssetID: id, Block: block, Err: err}
	}
	a, err := normalize(id, fields)
	if err != nil {
		return models.Asset{}, &LedgerReadError{AssetID: id, Block: block, Err: err}
	}
	// sem imposto ou já queimado, o saldo não se esgota
	if !a.Terminal && a.Tax > 0 {
		exp, err := m.reader.BalanceExpiration(ctx, id, height)
		if err != nil {
			return models.Asset{}, &LedgerReadError{AssetID: id, Block: block, Err: err}
		}
		if exp == nil {
			return models.Asset{}, &LedgerReadError{AssetID: id, Block: block, Err: unset("balanceExpiration")}
		}
		if !exp.IsInt64() || exp.Sign() < 0 {
			return models.Asset{}, &LedgerReadError{AssetID: id, Block: block, Err: fmt.Errorf("balanceExpiration fora do intervalo: %s", exp)}
		}
		a.Expiration = time.Unix(exp.Int64(), 0).UTC()
	}

	if m.cache != nil && block > 0 {
		m.cache.Add(key, a)
	}
	return a, nil
}

func normalize(id models.AssetID, f ledger.AssetFields) (models.Asset, error) {
	switch {
	case f.Active == nil:
		return models.Asset{}, unset("active")
	case f.Owner == nil:
		return models.Asset{}, unset("owner")
	case f.Tax == nil:
		return models.Asset{}, unset("tax")
	case f.LastPaymentDate == nil:
		return models.Asset{}, unset("lastPaymentDate")
	case f.Price == nil:
		return models.Asset{}, unset("price")
	case f.Balance == nil:
		return models.Asset{}, unset("balance")
	case f.OwnerURI == nil:
		return models.Asset{}, unset("ownerURI")
	case f.MetaURI == nil:
		return models.Asset{}, unset("metaURI")
	}

	if !f.Tax.IsUint64() {
		return models.Asset{}, fmt.Errorf("tax fora do intervalo: %s", f.Tax)
	}
	if !f.LastPaymentDate.IsInt64() || f.LastPaymentDate.Sign() < 0 {
		return models.Asset{}, fmt.Errorf("lastPaymentDate fora do intervalo: %s", f.LastPaymentDate)
	}
	price, err := fixedpoint.FromBig(f.Price)
	if err != nil {
		return models.Asset{}, fmt.Errorf("price: %w", err)
	}
	balance, err := fixedpoint.FromBig(f.Balance)
	if err != nil {
		return models.Asset{}, fmt.Errorf("balance: %w", err)
	}

	a := models.Asset{
		ID:              id,
		Owner:           *f.Owner,
		Price:           price,
		Tax:             tax.Rate(f.Tax.Uint64()),
		LastPaymentDate: time.Unix(f.LastPaymentDate.Int64(), 0).UTC(),
		Balance:         balance,
		OwnerURI:        *f.OwnerURI,
		MetaURI:         *f.MetaURI,
		Terminal:        !*f.Active,
	}
	return a, nil
}

func unset(field string) error {
	return fmt.Errorf("%w: %s", ledger.ErrFieldUnset, field)
}
