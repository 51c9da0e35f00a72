// Package calldata codifica e decodifica as instruções anexadas às
// transferências de token recebidas pelo contrato do ledger.
//
// Formato (compatível byte a byte com o contrato):
//
//	buy:    0x01 | id (32) | novo preço (32) | novo saldo (32) | ownerURI (bytes crus, opcional)
//	credit: 0x02 | id (32)
//
// Cada campo fixo é um inteiro big-endian preenchido à esquerda com zeros.
package calldata

import (
	"errors"
	"fmt"

	"github.com/ferreirogomes/harberger/fixedpoint"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// WordSize é o tamanho de cada campo fixo.
const WordSize = 32

const (
	tagSize    = 1
	buyFixed   = tagSize + 3*WordSize
	creditSize = tagSize + WordSize
)

var (
	ErrUnrecognizedAction = errors.New("calldata: ação não reconhecida")
	ErrMalformed          = errors.New("calldata: payload malformado")
)

// Action identifica a instrução no primeiro byte do payload.
type Action uint8

const (
	ActionBuy    Action = 1
	ActionCredit Action = 2
)

func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionCredit:
		return "credit"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Payload é o resultado de Decode: *Buy ou *Credit.
type Payload interface {
	Action() Action
}

// Buy compra o ativo, declarando novo preço e saldo inicial.
type Buy struct {
	AssetID  uint64            `json:"asset_id"`
	Price    fixedpoint.Amount `json:"price"`
	Credit   fixedpoint.Amount `json:"credit"`
	OwnerURI string            `json:"owner_uri"`
}

func (*Buy) Action() Action { return ActionBuy }

// Credit adiciona saldo a um ativo.
type Credit struct {
	AssetID uint64 `json:"asset_id"`
}

func (*Credit) Action() Action { return ActionCredit }

// EncodeBuy monta o payload de compra.
func EncodeBuy(b Buy) []byte {
	out := make([]byte, 0, buyFixed+len(b.OwnerURI))
	out = append(out, byte(ActionBuy))
	out = append(out, idWord(b.AssetID)...)
	price := b.Price.Bytes32()
	credit := b.Credit.Bytes32()
	out = append(out, price[:]...)
	out = append(out, credit[:]...)
	return append(out, b.OwnerURI...)
}

// EncodeCredit monta o payload de crédito.
func EncodeCredit(c Credit) []byte {
	out := make([]byte, 0, creditSize)
	out = append(out, byte(ActionCredit))
	return append(out, idWord(c.AssetID)...)
}

// Decode lê o byte de ação e os campos fixos. Em "buy", tudo após os campos
// fixos é a ownerURI; a ausência desse trecho equivale a uma URI vazia.
func Decode(data []byte) (Payload, error) {
	if len(data) < tagSize {
		return nil, fmt.Errorf("%w: vazio", ErrMalformed)
	}
	switch Action(data[0]) {
	case ActionBuy:
		if len(data) < buyFixed {
			return nil, fmt.Errorf("%w: buy com %d bytes, mínimo %d", ErrMalformed, len(data), buyFixed)
		}
		id, err := wordToID(data[tagSize : tagSize+WordSize])
		if err != nil {
			return nil, err
		}
		price, _ := fixedpoint.FromBytes32(data[tagSize+WordSize : tagSize+2*WordSize])
		credit, _ := fixedpoint.FromBytes32(data[tagSize+2*WordSize : buyFixed])
		return &Buy{
			AssetID:  id,
			Price:    price,
			Credit:   credit,
			OwnerURI: string(data[buyFixed:]),
		}, nil
	case ActionCredit:
		if len(data) != creditSize {
			return nil, fmt.Errorf("%w: credit com %d bytes, esperado %d", ErrMalformed, len(data), creditSize)
		}
		id, err := wordToID(data[tagSize:])
		if err != nil {
			return nil, err
		}
		return &Credit{AssetID: id}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedAction, data[0])
	}
}

// EncodeHex retorna a representação textual com prefixo 0x.
func EncodeHex(data []byte) string {
	return hexutil.Encode(data)
}

// DecodeHex aceita o texto com prefixo 0x e decodifica o payload.
func DecodeHex(s string) (Payload, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(data)
}

func idWord(id uint64) []byte {
	w := uint256.NewInt(id).Bytes32()
	return w[:]
}

func wordToID(word []byte) (uint64, error) {
	v := new(uint256.Int).SetBytes(word)
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: id do ativo excede 64 bits", ErrMalformed)
	}
	return v.Uint64(), nil
}
