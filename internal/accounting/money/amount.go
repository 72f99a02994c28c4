// Package money holds the fixed-point amounts used by the ledger core.
//
// Amounts are stored as int64 minor units (paise/cents) so that the
// debit == credit check is exact. Decimal strings are only used at the
// boundary for parsing and formatting.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places held in minor units.
const Scale = 2

// MaxAmount bounds every amount and running balance, in minor units.
const MaxAmount Amount = 1_000_000_000_000_000

var (
	// ErrInvalidAmount indicates an amount that cannot be represented exactly.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrOutOfRange indicates an amount or sum beyond MaxAmount.
	ErrOutOfRange = fmt.Errorf("%w: out of range", ErrInvalidAmount)
)

var maxMinor = decimal.NewFromInt(int64(MaxAmount))

// Amount is a currency value in minor units.
type Amount int64

// ParseAmount converts a decimal string such as "300.01" into an Amount.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is ParseAmount for constants and tests.
func MustParse(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromDecimal converts d into minor units, rejecting sub-minor precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(Scale)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, Scale)
	}
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrOutOfRange
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -Scale)
}

// String renders the amount with exactly two decimals.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Scale)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// Abs returns the magnitude.
func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

// Add returns a+b, or ErrOutOfRange when the result leaves [-MaxAmount, MaxAmount].
func Add(a, b Amount) (Amount, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) || sum > MaxAmount || sum < -MaxAmount {
		return 0, fmt.Errorf("%w: %s + %s", ErrOutOfRange, a, b)
	}
	return sum, nil
}

// MarshalJSON encodes the amount as a two-decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

// UnmarshalJSON accepts "500.00" or 500.00.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Decode lets envconfig populate Amount fields.
func (a *Amount) Decode(value string) error {
	parsed, err := ParseAmount(value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
