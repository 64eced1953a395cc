// Package quote computes derived purchase values from the current
// snapshot. Everything here is pure: no I/O, recomputed on demand.
package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Display precision at the edges. Rounding happens only at the point a
// value is handed to the caller, never inside arithmetic chains, so
// repeated conversions don't compound rounding error.
const (
	PayPrecision     int32 = 6
	ReceivePrecision int32 = 4
)

var hundred = decimal.NewFromInt(100)

// ConvertFromPay converts a pay-token amount into the sale-token amount
// it buys. Returns ok=false when the price is missing or exactly zero;
// the receive side is then left unset rather than dividing by zero.
func ConvertFromPay(amount decimal.Decimal, symbol string, prices map[string]decimal.Decimal) (decimal.Decimal, bool) {
	price, ok := prices[symbol]
	if !ok || price.IsZero() {
		return decimal.Decimal{}, false
	}
	return amount.Div(price).Round(ReceivePrecision), true
}

// ConvertFromReceive converts a desired sale-token amount into the
// pay-token amount it costs.
func ConvertFromReceive(amount decimal.Decimal, symbol string, prices map[string]decimal.Decimal) (decimal.Decimal, bool) {
	price, ok := prices[symbol]
	if !ok || price.IsZero() {
		return decimal.Decimal{}, false
	}
	return amount.Mul(price).Round(PayPrecision), true
}

// SoldPercentage returns sold/forSale*100, defined as 0 when forSale is
// zero. The value is not clamped; the chain is authoritative even if
// sold exceeds the allocation.
func SoldPercentage(sold, forSale decimal.Decimal) decimal.Decimal {
	if forSale.IsZero() {
		return decimal.Zero
	}
	return sold.Div(forSale).Mul(hundred)
}

// InsufficientBalance reports whether the entered pay amount exceeds the
// wallet balance. An empty or unparseable input never flags
// insufficiency; a symbol with no synced balance blocks the purchase.
func InsufficientBalance(payAmount string, symbol string, balances map[string]decimal.Decimal) bool {
	payAmount = strings.TrimSpace(payAmount)
	if payAmount == "" {
		return false
	}
	amount, err := decimal.NewFromString(payAmount)
	if err != nil {
		return false
	}
	balance, ok := balances[symbol]
	if !ok {
		return amount.IsPositive()
	}
	return amount.GreaterThan(balance)
}

// FixedNumber rounds a value to the given display precision.
func FixedNumber(v decimal.Decimal, places int32) decimal.Decimal {
	return v.Round(places)
}
