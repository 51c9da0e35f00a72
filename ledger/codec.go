package ledger

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ferreirogomes/harberger/events"
	"github.com/ferreirogomes/harberger/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Codec converte entre a ABI do contrato e os tipos da réplica.
type Codec struct {
	abi abi.ABI
}

// NewCodec carrega a ABI do contrato.
func NewCodec() (*Codec, error) {
	parsed, err := abi.JSON(strings.NewReader(HarbergerABI))
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar ABI do contrato: %w", err)
	}
	return &Codec{abi: parsed}, nil
}

// ABI expõe a ABI carregada.
func (c *Codec) ABI() abi.ABI { return c.abi }

// PackAsset monta a chamada assets(id).
func (c *Codec) PackAsset(id models.AssetID) ([]byte, error) {
	return c.abi.Pack("assets", new(big.Int).SetUint64(uint64(id)))
}

// UnpackAsset lê o retorno de assets(id). Saídas ausentes ou de tipo
// inesperado ficam nil em AssetFields.
func (c *Codec) UnpackAsset(out []byte) (AssetFields, error) {
	if len(out) == 0 {
		return AssetFields{}, ErrEmptyResponse
	}
	vals, err := c.abi.Unpack("assets", out)
	if err != nil {
		return AssetFields{}, fmt.Errorf("falha ao decodificar assets: %w", err)
	}
	var f AssetFields
	for i, arg := range c.abi.Methods["assets"].Outputs {
		if i >= len(vals) {
			break
		}
		switch arg.Name {
		case "active":
			if v, ok := vals[i].(bool); ok {
				f.Active = &v
			}
		case "owner":
			if v, ok := vals[i].(common.Address); ok {
				f.Owner = &v
			}
		case "tax":
			f.Tax = toBig(vals[i])
		case "lastPaymentDate":
			f.LastPaymentDate = toBig(vals[i])
		case "price":
			f.Price = toBig(vals[i])
		case "balance":
			f.Balance = toBig(vals[i])
		case "ownerURI":
			if v, ok := vals[i].(string); ok {
				f.OwnerURI = &v
			}
		case "metaURI":
			if v, ok := vals[i].(string); ok {
				f.MetaURI = &v
			}
		}
	}
	return f, nil
}

// PackBalanceExpiration monta a chamada balanceExpiration(id).
func (c *Codec) PackBalanceExpiration(id models.AssetID) ([]byte, error) {
	return c.abi.Pack("balanceExpiration", new(big.Int).SetUint64(uint64(id)))
}

// UnpackBalanceExpiration lê o instante de esgotamento do saldo.
func (c *Codec) UnpackBalanceExpiration(out []byte) (*big.Int, error) {
	if len(out) == 0 {
		return nil, ErrEmptyResponse
	}
	vals, err := c.abi.Unpack("balanceExpiration", out)
	if err != nil {
		return nil, fmt.Errorf("falha ao decodificar balanceExpiration: %w", err)
	}
	if len(vals) != 1 {
		return nil, ErrFieldUnset
	}
	exp := toBig(vals[0])
	if exp == nil {
		return nil, fmt.Errorf("balanceExpiration retornou %T", vals[0])
	}
	return exp, nil
}

// PackCurrency monta a chamada currency().
func (c *Codec) PackCurrency() ([]byte, error) {
	return c.abi.Pack("currency")
}

// UnpackCurrency lê o endereço do token de pagamento.
func (c *Codec) UnpackCurrency(out []byte) (common.Address, error) {
	if len(out) == 0 {
		return common.Address{}, ErrEmptyResponse
	}
	vals, err := c.abi.Unpack("currency", out)
	if err != nil {
		return common.Address{}, fmt.Errorf("falha ao decodificar currency: %w", err)
	}
	if len(vals) != 1 {
		return common.Address{}, ErrFieldUnset
	}
	addr, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("currency retornou %T", vals[0])
	}
	return addr, nil
}

// DecodeLog converte um log do contrato no registro cru do fluxo de eventos.
// Logs de eventos fora da ABI viram registros com o tópico como nome, que o
// parser trata como desconhecidos.
func (c *Codec) DecodeLog(l types.Log) (events.Raw, error) {
	raw := events.Raw{
		ReturnValues: map[string]string{},
		BlockNumber:  l.BlockNumber,
		LogIndex:     l.Index,
		TxHash:       l.TxHash.Hex(),
	}
	if len(l.Topics) == 0 {
		raw.Kind = "anonymous"
		return raw, nil
	}
	ev, err := c.abi.EventByID(l.Topics[0])
	if err != nil {
		raw.Kind = l.Topics[0].Hex()
		return raw, nil
	}
	raw.Kind = ev.Name

	fields := map[string]interface{}{}
	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return events.Raw{}, fmt.Errorf("falha ao decodificar tópicos de %s: %w", ev.Name, err)
	}
	if nonIndexed := ev.Inputs.NonIndexed(); len(nonIndexed) > 0 {
		if err := nonIndexed.UnpackIntoMap(fields, l.Data); err != nil {
			return events.Raw{}, fmt.Errorf("falha ao decodificar dados de %s: %w", ev.Name, err)
		}
	}
	for k, v := range fields {
		raw.ReturnValues[k] = stringify(v)
	}
	return raw, nil
}

func toBig(v interface{}) *big.Int {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil
		}
		return new(big.Int).Set(n)
	case uint64:
		return new(big.Int).SetUint64(n)
	case uint32:
		return new(big.Int).SetUint64(uint64(n))
	case uint8:
		return new(big.Int).SetUint64(uint64(n))
	}
	return nil
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case *big.Int:
		return x.String()
	case common.Address:
		return x.Hex()
	case common.Hash:
		return x.Hex()
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case uint64:
		return strconv.FormatUint(x, 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case []byte:
		return common.Bytes2Hex(x)
	default:
		return fmt.Sprint(x)
	}
}
