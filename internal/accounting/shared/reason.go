package shared

import (
	"context"
	"errors"
)

// Reason maps an error to a short label for metrics and batch results.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnbalancedVoucher):
		return "unbalanced"
	case errors.Is(err, ErrTooFewEntries), errors.Is(err, ErrInvalidEntry):
		return "invalid_entry"
	case errors.Is(err, ErrSameLedger):
		return "same_ledger"
	case errors.Is(err, ErrInactiveLedger):
		return "inactive_ledger"
	case errors.Is(err, ErrMissingCashLedger):
		return "missing_cash_ledger"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
