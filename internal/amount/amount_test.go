package amount

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	raw := new(big.Int).Mul(big.NewInt(1500), big.NewInt(1e6))
	assert.Equal(t, "1.5", ToDecimal(raw, 9).String())
	assert.Equal(t, "1500000000", ToDecimal(raw, 0).String())
	assert.Equal(t, "0", ToDecimal(nil, 18).String())
}

func TestToRawTruncatesDust(t *testing.T) {
	d := decimal.RequireFromString("1.2345")
	assert.Equal(t, int64(123), ToRaw(d, 2).Int64())
}

func TestFromBigInt(t *testing.T) {
	assert.Equal(t, "42", FromBigInt(big.NewInt(42)).String())
	assert.Equal(t, "0", FromBigInt(nil).String())
}

func TestRawRoundTripProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property test in short mode")
	}
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("raw to decimal and back is identity", prop.ForAll(
		func(raw uint64, decimals uint8) bool {
			d := int32(decimals % 19)
			in := new(big.Int).SetUint64(raw)
			return ToRaw(ToDecimal(in, d), d).Cmp(in) == 0
		},
		gen.UInt64(),
		gen.UInt8(),
	))
	properties.TestingRun(t)
}
