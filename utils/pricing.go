package utils

import (
	"github.com/shopspring/decimal"
)

// Pricing is the computed money breakdown for one sale line:
// sale = unit price * qty, cost = unit cost * qty, profit = sale - cost.
// The identity sale = cost + profit holds exactly at currency precision.
type Pricing struct {
	Sale          decimal.Decimal `json:"sale"`
	Cost          decimal.Decimal `json:"cost"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profit_percent"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
}

var decimalOneHundred = decimal.NewFromInt(100)

// ComputePricing is pure: no I/O, deterministic given inputs.
// Tax amounts are computed per rate at 4dp and rounded to currency
// precision (2dp) on the summed result.
func ComputePricing(unitCost, unitPrice, qty decimal.Decimal, taxRates []decimal.Decimal) (*Pricing, error) {
	if qty.IsNegative() {
		return nil, NewValidationError("quantity must not be negative")
	}
	if unitCost.IsNegative() || unitPrice.IsNegative() {
		return nil, NewValidationError("unit cost and unit price must not be negative")
	}
	for _, rate := range taxRates {
		if rate.IsNegative() {
			return nil, NewValidationError("tax rate must not be negative")
		}
	}

	sale := unitPrice.Mul(qty).Round(2)
	cost := unitCost.Mul(qty).Round(2)
	profit := sale.Sub(cost)

	// Guard divide-by-zero: zero-cost lines report 0, not NaN/Infinity.
	profitPercent := decimal.Zero
	if cost.IsPositive() {
		profitPercent = profit.DivRound(cost, 4).Mul(decimalOneHundred).Round(2)
	}

	var taxAmount decimal.Decimal
	for _, rate := range taxRates {
		taxAmount = taxAmount.Add(sale.DivRound(decimalOneHundred, 4).Mul(rate))
	}
	taxAmount = taxAmount.Round(2)

	return &Pricing{
		Sale:          sale,
		Cost:          cost,
		Profit:        profit,
		ProfitPercent: profitPercent,
		TaxAmount:     taxAmount,
		GrandTotal:    sale.Add(taxAmount),
	}, nil
}
