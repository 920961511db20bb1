package testing

import (
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
)

// Units converts whole tokens to base units at the given precision.
// For example, Units(50, 18) returns 50e18.
func Units(whole uint64, decimals uint8) *uint256.Int {
	return amount.Units(whole, decimals)
}

// Ether converts whole tokens of an 18-decimal token to base units.
func Ether(whole uint64) *uint256.Int {
	return amount.Units(whole, 18)
}

// Raw returns v base units.
func Raw(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// MustParse parses a decimal string such as "49.7" at the given precision.
// It panics on malformed input, which is a bug in the test.
func MustParse(s string, decimals uint8) *uint256.Int {
	v, err := amount.Parse(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

func addAmounts(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Add(x, y)
}
