// Package money centralizes amount parsing and validation so every surface
// (shell, HTTP, engine) applies the same rules. All arithmetic uses
// shopspring decimals; binary floating point never touches a balance.
package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// MinOpeningDeposit is the policy minimum for a new account, in major
// currency units.
var MinOpeningDeposit = decimal.NewFromInt(2000)

var (
	// ErrNotANumber means the input could not be parsed as a decimal amount.
	ErrNotANumber = errors.New("amount is not a number")
	// ErrNotPositive means the amount parsed but is zero or negative.
	ErrNotPositive = errors.New("amount must be greater than zero")
	// ErrTooPrecise means the amount carries more than two decimal places.
	ErrTooPrecise = errors.New("amount has more than two decimal places")
	// ErrBelowMinimum means an opening deposit is under MinOpeningDeposit.
	ErrBelowMinimum = errors.New("opening deposit below minimum")
)

// Parse converts raw user input into a validated positive amount.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}
	amt, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	return Validate(amt)
}

// Validate re-asserts the invariants on an already-parsed amount. The engine
// calls this defensively even when the shell validated first.
func Validate(amt decimal.Decimal) (decimal.Decimal, error) {
	if amt.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrNotPositive
	}
	if !amt.Equal(amt.Round(2)) {
		return decimal.Zero, ErrTooPrecise
	}
	return amt, nil
}
