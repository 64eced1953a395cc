package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// FromRaw converts a raw on-chain integer into human units using the
// token's declared decimals. Using the wrong decimals silently corrupts
// every derived amount, so callers always pass the owning token's value.
func FromRaw(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// ToRaw converts a human-unit amount into raw on-chain integer units.
// Any fraction below the token's precision is truncated.
func ToRaw(v decimal.Decimal, decimals int32) *big.Int {
	return v.Shift(decimals).BigInt()
}
