package utils_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/shopledger_backend/utils"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputePricing_BasicSaleWithTax(t *testing.T) {
	pricing, err := utils.ComputePricing(d("5"), d("8"), d("3"), []decimal.Decimal{d("10")})
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}

	if !pricing.Sale.Equal(d("24")) {
		t.Errorf("sale = %s, want 24", pricing.Sale)
	}
	if !pricing.Cost.Equal(d("15")) {
		t.Errorf("cost = %s, want 15", pricing.Cost)
	}
	if !pricing.Profit.Equal(d("9")) {
		t.Errorf("profit = %s, want 9", pricing.Profit)
	}
	if !pricing.ProfitPercent.Equal(d("60")) {
		t.Errorf("profitPercent = %s, want 60", pricing.ProfitPercent)
	}
	if !pricing.TaxAmount.Equal(d("2.4")) {
		t.Errorf("taxAmount = %s, want 2.4", pricing.TaxAmount)
	}
	if !pricing.GrandTotal.Equal(d("26.4")) {
		t.Errorf("grandTotal = %s, want 26.4", pricing.GrandTotal)
	}
}

func TestComputePricing_ZeroCostDoesNotDivide(t *testing.T) {
	pricing, err := utils.ComputePricing(d("0"), d("10"), d("2"), nil)
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	if !pricing.Profit.Equal(d("20")) {
		t.Errorf("profit = %s, want 20", pricing.Profit)
	}
	if !pricing.ProfitPercent.IsZero() {
		t.Errorf("profitPercent = %s, want 0 when cost is zero", pricing.ProfitPercent)
	}
}

func TestComputePricing_MultipleTaxRatesSum(t *testing.T) {
	// 5% + 10% on a 100.00 sale.
	pricing, err := utils.ComputePricing(d("50"), d("100"), d("1"), []decimal.Decimal{d("5"), d("10")})
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	if !pricing.TaxAmount.Equal(d("15")) {
		t.Errorf("taxAmount = %s, want 15", pricing.TaxAmount)
	}
	if !pricing.GrandTotal.Equal(d("115")) {
		t.Errorf("grandTotal = %s, want 115", pricing.GrandTotal)
	}
}

func TestComputePricing_RoundsToTwoPlaces(t *testing.T) {
	// 3 x 3.333 = 9.999 -> 10.00
	pricing, err := utils.ComputePricing(d("1"), d("3.333"), d("3"), nil)
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	if !pricing.Sale.Equal(d("10")) {
		t.Errorf("sale = %s, want 10", pricing.Sale)
	}
}

func TestComputePricing_RejectsNegativeInputs(t *testing.T) {
	cases := []struct {
		name             string
		cost, price, qty string
	}{
		{"negative qty", "5", "8", "-1"},
		{"negative price", "5", "-8", "1"},
		{"negative cost", "-5", "8", "1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := utils.ComputePricing(d(tc.cost), d(tc.price), d(tc.qty), nil)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if utils.KindOf(err) != utils.ErrorKindValidation {
				t.Errorf("kind = %s, want validation", utils.KindOf(err))
			}
		})
	}
}

func TestComputePricing_ZeroQtyYieldsZeroes(t *testing.T) {
	pricing, err := utils.ComputePricing(d("5"), d("8"), d("0"), []decimal.Decimal{d("10")})
	if err != nil {
		t.Fatalf("ComputePricing: %v", err)
	}
	if !pricing.Sale.IsZero() || !pricing.Cost.IsZero() || !pricing.TaxAmount.IsZero() {
		t.Errorf("expected all-zero pricing, got %+v", pricing)
	}
}
