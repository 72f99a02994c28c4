// Package httpx provides HTTP response utilities.
package httpx

import (
	"context"
	"errors"
	"net/http"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// ErrBadRequest marks request bodies or parameters that could not be decoded.
var ErrBadRequest = errors.New("malformed request")

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrUnbalancedVoucher),
		errors.Is(err, shared.ErrSameLedger),
		errors.Is(err, shared.ErrInactiveLedger),
		errors.Is(err, shared.ErrMissingCashLedger),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Internal errors are reported without detail.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusInternalServerError, http.StatusGatewayTimeout:
		Problem(w, status, http.StatusText(status), "")
	default:
		Problem(w, status, titleFor(err, status), err.Error())
	}
}

func titleFor(err error, status int) string {
	switch {
	case errors.Is(err, shared.ErrUnbalancedVoucher):
		return "Unbalanced Voucher"
	case errors.Is(err, shared.ErrSameLedger):
		return "Same Ledger"
	case errors.Is(err, shared.ErrInactiveLedger):
		return "Inactive Ledger"
	case errors.Is(err, shared.ErrMissingCashLedger):
		return "Missing Cash Ledger"
	case errors.Is(err, shared.ErrValidation), errors.Is(err, money.ErrInvalidAmount):
		return "Validation Failed"
	}
	return http.StatusText(status)
}
