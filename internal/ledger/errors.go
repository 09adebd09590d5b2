package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Molayo2025/capstone-project/internal/money"
	"github.com/Molayo2025/capstone-project/internal/repo"
)

var (
	// ErrInvalidAmount indicates a non-positive or malformed amount reached
	// the engine.
	ErrInvalidAmount = errors.New("amount must be a positive number")
	// ErrInsufficientFunds indicates a withdrawal or transfer exceeds the
	// balance at commit time.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotFound indicates the account id or number does not resolve.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSelfTransfer indicates sender and recipient are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to your own account")
	// ErrBusy indicates the account locks could not be acquired in time.
	ErrBusy = errors.New("account busy, try again")
	// ErrStorage wraps unexpected failures from the durable store.
	ErrStorage = errors.New("storage failure")
)

// wrap maps lower-layer failures onto the engine taxonomy. Business errors
// pass through untouched; anything unexpected is surfaced as a storage
// failure rather than swallowed.
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrBusy):
		return err
	case errors.Is(err, money.ErrNotANumber),
		errors.Is(err, money.ErrNotPositive),
		errors.Is(err, money.ErrTooPrecise),
		errors.Is(err, money.ErrBelowMinimum):
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repo.ErrVersionConflict),
		errors.Is(err, context.DeadlineExceeded):
		return ErrBusy
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}
