// Package tax calcula o imposto Harberger devido sobre o preço autodeclarado
// de um ativo. Todas as funções são puras e usam aritmética inteira exata.
package tax

import (
	"errors"
	"fmt"

	"github.com/ferreirogomes/harberger/fixedpoint"

	"github.com/shopspring/decimal"
)

// ScalingFactor converte a taxa armazenada (milésimos de percentual ao dia)
// em fração: 1000 = 1% ao dia = 1000/100000.
const ScalingFactor = 100000

// PresetDays são os prazos oferecidos como recarga rápida de saldo.
var PresetDays = []uint64{7, 14, 28}

var ErrInvalidRate = errors.New("tax: taxa inválida")

// Rate é a taxa diária em milésimos de percentual.
type Rate uint64

// Percent retorna a taxa em percentual ao dia (tax/1000).
func (r Rate) Percent() decimal.Decimal {
	return decimal.New(int64(r), -3)
}

func (r Rate) String() string {
	return r.Percent().String() + "% ao dia"
}

// ParseRate converte um percentual diário legível ("1.5") para Rate,
// arredondando para o milésimo mais próximo.
func ParseRate(percent string) (Rate, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, percent)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("%w: negativa", ErrInvalidRate)
	}
	return Rate(d.Shift(3).Round(0).IntPart()), nil
}

// Daily retorna o imposto de um dia: price × rate / ScalingFactor, truncado.
func Daily(price fixedpoint.Amount, rate Rate) (fixedpoint.Amount, error) {
	return price.MulDiv(uint64(rate), ScalingFactor)
}

// Due retorna o imposto de `days` dias ao preço e taxa dados.
//
// O imposto diário é truncado antes da multiplicação pelos dias, de modo que
// Due(p, r, 2d) == 2 × Due(p, r, d) exatamente.
func Due(price fixedpoint.Amount, rate Rate, days uint64) (fixedpoint.Amount, error) {
	daily, err := Daily(price, rate)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return daily.MulUint64(days)
}

// MinimumCredit é o saldo inicial mínimo exigido numa compra: um dia de imposto
// ao novo preço.
func MinimumCredit(price fixedpoint.Amount, rate Rate) (fixedpoint.Amount, error) {
	return Due(price, rate, 1)
}

// Preset é uma recarga sugerida de saldo.
type Preset struct {
	Days   uint64            `json:"days"`
	Amount fixedpoint.Amount `json:"amount"`
}

// Presets calcula as recargas de PresetDays ao preço atual.
func Presets(price fixedpoint.Amount, rate Rate) ([]Preset, error) {
	out := make([]Preset, 0, len(PresetDays))
	for _, d := range PresetDays {
		amount, err := Due(price, rate, d)
		if err != nil {
			return nil, err
		}
		out = append(out, Preset{Days: d, Amount: amount})
	}
	return out, nil
}

// BuyValue é o valor transferido numa compra: o preço atual mais o novo saldo.
func BuyValue(price, credit fixedpoint.Amount) (fixedpoint.Amount, error) {
	return price.Add(credit)
}
