package cove

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDecodePackedBalances(t *testing.T) {
	packed := new(big.Int).Lsh(big.NewInt(5), 128)
	packed.Or(packed, big.NewInt(7))

	shares, assetRaw := DecodePackedBalances(packed)
	assert.Equal(t, int64(5), shares.Int64())
	assert.Equal(t, int64(7), assetRaw.Int64())
}

func TestDecodePackedBalancesNil(t *testing.T) {
	shares, assetRaw := DecodePackedBalances(nil)
	assert.Equal(t, 0, shares.Sign())
	assert.Equal(t, 0, assetRaw.Sign())
}

func TestDecodePackedBalancesLowHalfOnly(t *testing.T) {
	shares, assetRaw := DecodePackedBalances(big.NewInt(42))
	assert.Equal(t, 0, shares.Sign())
	assert.Equal(t, int64(42), assetRaw.Int64())
}

func TestPackedBalancesRoundTripProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property test in short mode")
	}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("encode then decode is identity", prop.ForAll(
		func(shares, assetRaw uint64) bool {
			s := new(big.Int).SetUint64(shares)
			a := new(big.Int).SetUint64(assetRaw)
			gotShares, gotAsset := DecodePackedBalances(EncodePackedBalances(s, a))
			return gotShares.Cmp(s) == 0 && gotAsset.Cmp(a) == 0
		},
		gen.UInt64(),
		gen.UInt64(),
	))
	properties.TestingRun(t)
}
