package shared

import "errors"

var (
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("accounting: validation failed")
	// ErrNotFound indicates an unknown ledger or voucher id.
	ErrNotFound = errors.New("accounting: not found")
	// ErrInactiveLedger indicates a posting against a retired ledger.
	ErrInactiveLedger = errors.New("accounting: ledger is inactive")
	// ErrUnbalancedVoucher indicates debit != credit.
	ErrUnbalancedVoucher = errors.New("accounting: voucher debits and credits must balance")
	// ErrSameLedger indicates a two-leg voucher debiting and crediting one ledger.
	ErrSameLedger = errors.New("accounting: debit and credit ledger must differ")
	// ErrMissingCashLedger indicates no cash ledger is available for a receipt or payment.
	ErrMissingCashLedger = errors.New("accounting: no cash ledger configured")
	// ErrConflict indicates a business rule prevents the state transition.
	ErrConflict = errors.New("accounting: conflict")
)

var (
	// ErrLedgerNotFound indicates missing ledger.
	ErrLedgerNotFound = wrap(ErrNotFound, "ledger not found")
	// ErrVoucherNotFound indicates missing voucher.
	ErrVoucherNotFound = wrap(ErrNotFound, "voucher not found")
	// ErrTooFewEntries indicates a voucher with fewer than two entries.
	ErrTooFewEntries = wrap(ErrValidation, "voucher requires at least two entries")
	// ErrInvalidEntry indicates an entry that is not exactly one of debit or credit.
	ErrInvalidEntry = wrap(ErrValidation, "entry must carry exactly one of debit or credit")
	// ErrDuplicateLedgerName indicates the name is taken by an active ledger.
	ErrDuplicateLedgerName = wrap(ErrValidation, "ledger name already in use")
	// ErrOutstandingBalance indicates deactivation of a ledger that still carries a balance.
	ErrOutstandingBalance = wrap(ErrConflict, "ledger has an outstanding balance")
	// ErrAlreadyVoid indicates the voucher has been voided before.
	ErrAlreadyVoid = wrap(ErrConflict, "voucher already void")
	// ErrConcurrentUpdate indicates the ledger version moved under the posting transaction.
	ErrConcurrentUpdate = wrap(ErrConflict, "ledger modified concurrently")
	// ErrDuplicateRequest indicates a replayed idempotency key.
	ErrDuplicateRequest = wrap(ErrConflict, "request already processed")
)

type wrappedError struct {
	parent error
	msg    string
}

func wrap(parent error, msg string) error {
	return &wrappedError{parent: parent, msg: msg}
}

func (e *wrappedError) Error() string { return "accounting: " + e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }
