// Package cove accounts the single-asset satellite positions layered on
// parent pools.
package cove

import (
	"math/big"
)

var lowMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// DecodePackedBalances splits a cove's packed per-asset state word into its
// two halves: the high 128 bits are the LP-share amount, the low 128 bits
// the raw asset balance.
func DecodePackedBalances(packed *big.Int) (shares, assetRaw *big.Int) {
	if packed == nil {
		return new(big.Int), new(big.Int)
	}
	shares = new(big.Int).Rsh(packed, 128)
	assetRaw = new(big.Int).And(packed, lowMask)
	return shares, assetRaw
}

// EncodePackedBalances is the inverse of DecodePackedBalances
func EncodePackedBalances(shares, assetRaw *big.Int) *big.Int {
	packed := new(big.Int).Lsh(shares, 128)
	return packed.Or(packed, new(big.Int).And(assetRaw, lowMask))
}
