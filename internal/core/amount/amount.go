// Package amount provides fixed-point helpers over 256-bit unsigned token
// amounts: mul-div with explicit rounding, basis-point fees and decimal
// formatting.
package amount

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const (
	// FeePrecision is the denominator of fee parameters. A fee of 6000 is 0.6%.
	FeePrecision uint32 = 10000

	// MaxFee caps any configurable fee at 10%.
	MaxFee uint32 = 10 * FeePrecision

	// MaxDecimals is the largest token precision accepted.
	MaxDecimals uint8 = 38
)

var (
	ErrOverflow       = errors.New("amount overflow")
	ErrUnderflow      = errors.New("amount underflow")
	ErrDivisionByZero = errors.New("division by zero")
	ErrInvalidFormat  = errors.New("invalid amount format")
)

// feeDenominator is FeePrecision * 100.
var feeDenominator = uint256.NewInt(uint64(FeePrecision) * 100)

// Zero returns a new zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New returns v as an amount.
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// OrZero returns v, or a fresh zero when v is nil.
func OrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return Zero()
	}
	return v
}

// Magnitude returns 10^decimals, the number of base units in one whole token.
func Magnitude(decimals uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
}

// Units returns whole * 10^decimals.
func Units(whole uint64, decimals uint8) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(whole), Magnitude(decimals))
}

// Add returns x + y.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// SubFloor returns x - y, or zero when y > x.
func SubFloor(x, y *uint256.Int) *uint256.Int {
	if y.Gt(x) {
		return Zero()
	}
	return new(uint256.Int).Sub(x, y)
}

// Mul returns x * y.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDiv returns x * y / d rounded down. The intermediate product is kept at
// 512 bits so only the final quotient must fit.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivUp returns x * y / d rounded up.
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	var rem uint256.Int
	rem.MulMod(x, y, d)
	if !rem.IsZero() {
		return Add(z, uint256.NewInt(1))
	}
	return z, nil
}

// Fee returns amount * fee / FeePrecision / 100 rounded down.
func Fee(v *uint256.Int, fee uint32) *uint256.Int {
	z, _ := MulDiv(v, uint256.NewInt(uint64(fee)), feeDenominator)
	return z
}

// FeeUp returns the same fee rounded up.
func FeeUp(v *uint256.Int, fee uint32) *uint256.Int {
	z, _ := MulDivUp(v, uint256.NewInt(uint64(fee)), feeDenominator)
	return z
}

// ApplyFee returns amount minus its fee, rounded in the protocol's favour.
func ApplyFee(v *uint256.Int, fee uint32) *uint256.Int {
	return SubFloor(v, FeeUp(v, fee))
}

// Min returns the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}

// Format renders v as a decimal string with the given token precision.
func Format(v *uint256.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}

// Parse reads a decimal string such as "12.5" into base units. Digits beyond
// the token precision are rejected rather than truncated.
func Parse(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidFormat, s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q exceeds %d decimals", ErrInvalidFormat, s, decimals)
	}
	z, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// FromDecimal converts a base-unit decimal string (no fraction) to an amount.
func FromDecimal(s string) (*uint256.Int, error) {
	if s == "" {
		return Zero(), nil
	}
	z, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return z, nil
}
