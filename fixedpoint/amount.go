// Package fixedpoint implementa valores monetários em ponto fixo com 18 casas
// decimais sobre inteiros de 256 bits, os mesmos usados pelo contrato do ledger.
//
// Nenhuma operação arredonda para cima: toda divisão trunca em direção a zero,
// e qualquer resultado fora de [0, 2^256) é devolvido como erro.
package fixedpoint

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals é a escala de todos os valores monetários (10^18 unidades base = 1).
const Decimals = 18

var (
	ErrOverflow       = errors.New("fixedpoint: estouro de 256 bits")
	ErrUnderflow      = errors.New("fixedpoint: resultado negativo")
	ErrNegative       = errors.New("fixedpoint: valor negativo")
	ErrSyntax         = errors.New("fixedpoint: valor inválido")
	ErrDivisionByZero = errors.New("fixedpoint: divisão por zero")
)

var one = uint256.NewInt(1_000_000_000_000_000_000)

// Amount é um valor monetário não negativo, em unidades base (10^-18).
// O valor zero é utilizável diretamente.
type Amount struct {
	v uint256.Int
}

// Zero retorna o valor zero.
func Zero() Amount { return Amount{} }

// FromBaseUnits cria um Amount a partir de unidades base (sem escala).
func FromBaseUnits(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Whole cria um Amount de n unidades inteiras (n × 10^18).
func Whole(n uint64) (Amount, error) {
	var a Amount
	if _, overflow := a.v.MulOverflow(uint256.NewInt(n), one); overflow {
		return Amount{}, ErrOverflow
	}
	return a, nil
}

// MustWhole é como Whole, mas entra em pânico em caso de estouro.
// Útil apenas para constantes e testes.
func MustWhole(n uint64) Amount {
	a, err := Whole(n)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBig converte um inteiro em unidades base.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, ErrSyntax
	}
	if b.Sign() < 0 {
		return Amount{}, ErrNegative
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, ErrOverflow
	}
	return Amount{v: *v}, nil
}

// FromBytes32 interpreta até 32 bytes big-endian como unidades base.
func FromBytes32(b []byte) (Amount, error) {
	if len(b) > 32 {
		return Amount{}, ErrOverflow
	}
	var a Amount
	a.v.SetBytes(b)
	return a, nil
}

// ParseBaseUnits lê um inteiro em unidades base, em decimal ou em hexadecimal
// com prefixo 0x, como aparece nos eventos e nas leituras do ledger.
func ParseBaseUnits(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: vazio", ErrSyntax)
	}
	if strings.HasPrefix(s, "-") {
		return Amount{}, ErrNegative
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return Amount{}, fmt.Errorf("%w: %q", ErrSyntax, s)
		}
		return FromBig(b)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrSyntax, s, err)
	}
	return Amount{v: *v}, nil
}

// Parse lê um valor legível ("12.5") e o converte para ponto fixo.
// Casas além da 18ª são truncadas em direção a zero.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrSyntax, s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converte um decimal legível para ponto fixo, truncando em direção a zero.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.Sign() < 0 {
		return Amount{}, ErrNegative
	}
	return FromBig(d.Shift(Decimals).Truncate(0).BigInt())
}

// Add retorna a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, ErrOverflow
	}
	return z, nil
}

// Sub retorna a - b; falha se b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var z Amount
	if _, underflow := z.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, ErrUnderflow
	}
	return z, nil
}

// MulUint64 retorna a × n.
func (a Amount) MulUint64(n uint64) (Amount, error) {
	var z Amount
	if _, overflow := z.v.MulOverflow(&a.v, uint256.NewInt(n)); overflow {
		return Amount{}, ErrOverflow
	}
	return z, nil
}

// MulDiv retorna a × num / den com produto intermediário de 512 bits.
// O quociente é truncado em direção a zero.
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, ErrDivisionByZero
	}
	var z Amount
	if _, overflow := z.v.MulDivOverflow(&a.v, uint256.NewInt(num), uint256.NewInt(den)); overflow {
		return Amount{}, ErrOverflow
	}
	return z, nil
}

// Quo retorna floor(a / b) como inteiro de 64 bits, e false se b for zero ou
// o quociente não couber.
func (a Amount) Quo(b Amount) (uint64, bool) {
	if b.v.IsZero() {
		return 0, false
	}
	var q uint256.Int
	q.Div(&a.v, &b.v)
	if !q.IsUint64() {
		return 0, false
	}
	return q.Uint64(), true
}

func (a Amount) Cmp(b Amount) int  { return a.v.Cmp(&b.v) }
func (a Amount) Lt(b Amount) bool  { return a.v.Lt(&b.v) }
func (a Amount) Eq(b Amount) bool  { return a.v.Eq(&b.v) }
func (a Amount) IsZero() bool      { return a.v.IsZero() }
func (a Amount) Big() *big.Int     { return a.v.ToBig() }
func (a Amount) Bytes32() [32]byte { return a.v.Bytes32() }

// String retorna o valor em unidades base, em decimal.
func (a Amount) String() string { return a.v.Dec() }

// Decimal retorna o valor em unidades inteiras (escala removida), sem perda.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.v.ToBig(), -Decimals)
}

// Text retorna o valor legível exato, sem zeros à direita ("12.5").
func (a Amount) Text() string { return a.Decimal().String() }

// MarshalJSON codifica o valor como string em unidades base, para não perder
// precisão em clientes que usam float64.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseBaseUnits(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value grava o valor como texto decimal; NUMERIC/TEXT preservam os 256 bits.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src interface{}) error {
	switch s := src.(type) {
	case string:
		v, err := ParseBaseUnits(s)
		if err != nil {
			return err
		}
		*a = v
	case []byte:
		v, err := ParseBaseUnits(string(s))
		if err != nil {
			return err
		}
		*a = v
	case int64:
		if s < 0 {
			return ErrNegative
		}
		*a = FromBaseUnits(uint64(s))
	case nil:
		*a = Amount{}
	default:
		return fmt.Errorf("fixedpoint: tipo não suportado em Scan: %T", src)
	}
	return nil
}
