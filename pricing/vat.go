package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ticketing/entity"
)

const pricePlaces = 2

var minorUnitsMultiplier = decimal.NewFromInt(100)

type Breakdown struct {
	BasePrice  decimal.Decimal `json:"base_price"`
	VatRate    decimal.Decimal `json:"vat_rate"`
	VatAmount  decimal.Decimal `json:"vat_amount"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ComputeVatBreakdown splits a gross price into its net part and VAT.
// VatAmount is derived by subtraction, so BasePrice+VatAmount is always exactly gross.
func ComputeVatBreakdown(gross decimal.Decimal, vatRate decimal.Decimal) (Breakdown, error) {
	if gross.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: gross price must not be negative, got %s", entity.ErrValidation, gross)
	}
	if vatRate.IsNegative() {
		return Breakdown{}, fmt.Errorf("%w: vat rate must not be negative, got %s", entity.ErrValidation, vatRate)
	}

	base := gross.Div(decimal.NewFromInt(1).Add(vatRate)).Round(pricePlaces)

	return Breakdown{
		BasePrice:  base,
		VatRate:    vatRate,
		VatAmount:  gross.Sub(base),
		TotalPrice: gross,
	}, nil
}

// ToMinorUnits converts an amount to the processor's smallest currency unit (cents, øre).
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitsMultiplier).IntPart()
}
