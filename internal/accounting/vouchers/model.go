package vouchers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// VoucherType enumerates voucher kinds; each has its own number sequence.
type VoucherType string

const (
	TypeJournal VoucherType = "JOURNAL"
	TypePayment VoucherType = "PAYMENT"
	TypeReceipt VoucherType = "RECEIPT"
)

var typePrefixes = map[VoucherType]string{
	TypeJournal: "JV",
	TypePayment: "PV",
	TypeReceipt: "RV",
}

// ParseVoucherType accepts "Journal", "payment", "RECEIPT".
func ParseVoucherType(raw string) (VoucherType, error) {
	t := VoucherType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown voucher type %q", shared.ErrValidation, raw)
	}
	return t, nil
}

// Valid reports whether t is a known voucher type.
func (t VoucherType) Valid() bool {
	_, ok := typePrefixes[t]
	return ok
}

// Prefix returns the short code used in voucher numbers.
func (t VoucherType) Prefix() string {
	return typePrefixes[t]
}

// ReferenceType names the business event a voucher originates from.
type ReferenceType string

const (
	ReferenceManual   ReferenceType = "MANUAL"
	ReferencePurchase ReferenceType = "PURCHASE"
	ReferenceSale     ReferenceType = "SALE"
	ReferenceOpening  ReferenceType = "OPENING"
	ReferenceLoan     ReferenceType = "LOAN"
)

// Valid reports whether r is a known reference type.
func (r ReferenceType) Valid() bool {
	switch r {
	case ReferenceManual, ReferencePurchase, ReferenceSale, ReferenceOpening, ReferenceLoan:
		return true
	}
	return false
}

// Status enumerates voucher lifecycle values.
type Status string

const (
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Voucher is an immutable double-entry transaction.
type Voucher struct {
	ID            int64         `json:"id"`
	Number        int64         `json:"voucherNumber"`
	Type          VoucherType   `json:"voucherType"`
	Date          time.Time     `json:"voucherDate"`
	ReferenceType ReferenceType `json:"referenceType"`
	ReferenceID   *uuid.UUID    `json:"referenceId,omitempty"`
	Narration     string        `json:"narration"`
	TotalDebit    money.Amount  `json:"totalDebit"`
	TotalCredit   money.Amount  `json:"totalCredit"`
	Status        Status        `json:"status"`
	CreatedBy     int64         `json:"createdBy,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	VoidedAt      *time.Time    `json:"voidedAt,omitempty"`
	VoidReason    string        `json:"voidReason,omitempty"`
	Entries       []Entry       `json:"entries"`
}

// Code renders the display number, e.g. RV-000012.
func (v Voucher) Code() string {
	return fmt.Sprintf("%s-%06d", v.Type.Prefix(), v.Number)
}

// MarshalJSON adds the display code and a date-only voucher date.
func (v Voucher) MarshalJSON() ([]byte, error) {
	type plain Voucher
	return json.Marshal(struct {
		plain
		Code string `json:"code"`
		Date string `json:"voucherDate"`
	}{plain: plain(v), Code: v.Code(), Date: v.Date.Format(time.DateOnly)})
}

// Entry is one debit or credit line of a voucher.
type Entry struct {
	ID         int64        `json:"id"`
	VoucherID  int64        `json:"voucherId"`
	LineNo     int          `json:"lineNo"`
	LedgerID   int64        `json:"ledgerId"`
	LedgerName string       `json:"ledgerName"`
	Debit      money.Amount `json:"debitAmount"`
	Credit     money.Amount `json:"creditAmount"`
	Narration  string       `json:"narration,omitempty"`
}
