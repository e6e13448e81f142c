package amount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Bounds for a single lock-in, inclusive. Below Min the exchange refuses
// the deposit; above Max is outside what the bot is willing to custody.
var (
	Min = decimal.RequireFromString("0.0001")
	Max = decimal.RequireFromString("1")
)

// MaxScale is the number of fractional digits BTC amounts carry on the wire.
const MaxScale = 8

var (
	ErrMalformed  = errors.New("amount is not a valid decimal number")
	ErrOutOfRange = errors.New("amount is outside the allowed range")
)

// Parse validates free-form user input as a BTC quantity. The returned
// value preserves the literal decimal scale the user typed; no rounding
// happens here or later.
func Parse(text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, ErrMalformed
	}
	if d.Exponent() < -MaxScale {
		return decimal.Decimal{}, ErrMalformed
	}
	if d.LessThan(Min) || d.GreaterThan(Max) {
		return decimal.Decimal{}, ErrOutOfRange
	}
	return d, nil
}
