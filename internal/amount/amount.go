// Package amount converts raw on-chain token magnitudes to fixed-point
// decimal values at a token's declared precision.
package amount

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PoolTokenDecimals is the precision of every pool's LP share token
const PoolTokenDecimals int32 = 18

// ToDecimal divides a raw integer amount by 10^decimals.
// A decimals of zero is a no-op conversion.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	d := decimal.NewFromBigInt(raw, 0)
	if decimals == 0 {
		return d
	}
	return d.Shift(-decimals)
}

// ToRaw is the inverse of ToDecimal: it scales a decimal value back to raw
// integer units, truncating anything below the smallest representable unit.
func ToRaw(d decimal.Decimal, decimals int32) *big.Int {
	scaled := d.Shift(decimals)
	// drop sub-unit dust rather than rounding it up
	return scaled.Truncate(0).BigInt()
}

// FromBigInt converts a raw integer to a decimal with no scaling
func FromBigInt(raw *big.Int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, 0)
}
