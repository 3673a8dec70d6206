package models

import (
	"fmt"
	"math"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is an amount tagged with its ISO currency code.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewMoney tags amount with currency.
func NewMoney(amount float64, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// IsKnownCurrency reports whether code is an ISO currency known to go-money.
func IsKnownCurrency(code string) bool {
	return code != "" && money.GetCurrency(code) != nil
}

// String formats the amount with the currency's own symbol and precision,
// e.g. "4,521.30 zł" or "€123.45". Unknown codes fall back to "123.45 XYZ".
// Amounts beyond int64 minor units, and non-finite amounts, use the plain form.
func (m Money) String() string {
	plain := fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
	cur := money.GetCurrency(m.Currency)
	if cur == nil || math.IsNaN(m.Amount) || math.IsInf(m.Amount, 0) {
		return plain
	}
	minor := decimal.NewFromFloat(m.Amount).Shift(int32(cur.Fraction)).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		return plain
	}
	return money.New(minor.IntPart(), cur.Code).Display()
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
