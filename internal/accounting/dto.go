package accounting

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/reports"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
)

// MaxBatchRows bounds a single voucher import.
const MaxBatchRows = 500

type createLedgerRequest struct {
	Name           string       `json:"name" validate:"required,max=150"`
	AccountType    string       `json:"accountType" validate:"required"`
	OpeningBalance money.Amount `json:"openingBalance" validate:"gte=0"`
	OpeningSide    money.Side   `json:"openingSide" validate:"omitempty,oneof=Dr Cr"`
	ParentGroup    string       `json:"parentGroup" validate:"max=150"`
}

func (req createLedgerRequest) toInput(actorID int64) (ledgers.CreateInput, error) {
	t, err := ledgers.ParseAccountType(req.AccountType)
	if err != nil {
		return ledgers.CreateInput{}, err
	}
	return ledgers.CreateInput{
		Name:           req.Name,
		Type:           t,
		OpeningBalance: req.OpeningBalance,
		OpeningSide:    req.OpeningSide,
		ParentGroup:    req.ParentGroup,
		ActorID:        actorID,
	}, nil
}

type renameLedgerRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}

type deactivateLedgerRequest struct {
	Force  bool   `json:"force"`
	Reason string `json:"reason" validate:"max=500"`
}

type entryRequest struct {
	LedgerID  int64        `json:"ledgerId"`
	Debit     money.Amount `json:"debit"`
	Credit    money.Amount `json:"credit"`
	Narration string       `json:"narration" validate:"max=500"`
}

// voucherRequest accepts either explicit entries or the two-leg shortcut
// fields for its voucher type.
type voucherRequest struct {
	VoucherType   string         `json:"voucherType" validate:"required"`
	VoucherDate   string         `json:"voucherDate" validate:"required,datetime=2006-01-02"`
	ReferenceType string         `json:"referenceType"`
	ReferenceID   *uuid.UUID     `json:"referenceId"`
	Narration     string         `json:"narration" validate:"max=500"`
	Entries       []entryRequest `json:"entries" validate:"omitempty,dive"`

	Amount         money.Amount `json:"amount"`
	CashLedgerID   int64        `json:"cashLedgerId" validate:"gte=0"`
	PartyLedgerID  int64        `json:"partyLedgerId" validate:"gte=0"`
	DebitLedgerID  int64        `json:"debitLedgerId" validate:"gte=0"`
	CreditLedgerID int64        `json:"creditLedgerId" validate:"gte=0"`
}

func (req voucherRequest) toRequest(actorID int64) (vouchers.Request, error) {
	t, err := vouchers.ParseVoucherType(req.VoucherType)
	if err != nil {
		return nil, err
	}
	date, err := time.Parse(time.DateOnly, req.VoucherDate)
	if err != nil {
		return nil, fmt.Errorf("%w: voucherDate must be YYYY-MM-DD", shared.ErrValidation)
	}
	ref := vouchers.ReferenceType(strings.ToUpper(strings.TrimSpace(req.ReferenceType)))
	if len(req.Entries) > 0 {
		entries := make([]vouchers.EntryInput, 0, len(req.Entries))
		for _, e := range req.Entries {
			entries = append(entries, vouchers.EntryInput{
				LedgerID:  e.LedgerID,
				Debit:     e.Debit,
				Credit:    e.Credit,
				Narration: e.Narration,
			})
		}
		return vouchers.CreateInput{
			Type:          t,
			Date:          date,
			Entries:       entries,
			ReferenceType: ref,
			ReferenceID:   req.ReferenceID,
			Narration:     req.Narration,
			ActorID:       actorID,
		}, nil
	}
	switch t {
	case vouchers.TypeReceipt:
		return vouchers.ReceiptInput{
			Date:          date,
			CashLedgerID:  req.CashLedgerID,
			PayerLedgerID: req.PartyLedgerID,
			Amount:        req.Amount,
			Narration:     req.Narration,
			ReferenceType: ref,
			ReferenceID:   req.ReferenceID,
			ActorID:       actorID,
		}, nil
	case vouchers.TypePayment:
		return vouchers.PaymentInput{
			Date:          date,
			CashLedgerID:  req.CashLedgerID,
			PayeeLedgerID: req.PartyLedgerID,
			Amount:        req.Amount,
			Narration:     req.Narration,
			ReferenceType: ref,
			ReferenceID:   req.ReferenceID,
			ActorID:       actorID,
		}, nil
	default:
		return vouchers.JournalInput{
			Date:           date,
			DebitLedgerID:  req.DebitLedgerID,
			CreditLedgerID: req.CreditLedgerID,
			Amount:         req.Amount,
			Narration:      req.Narration,
			ReferenceType:  ref,
			ReferenceID:    req.ReferenceID,
			ActorID:        actorID,
		}, nil
	}
}

type batchRequest struct {
	Vouchers []voucherRequest `json:"vouchers"`
}

type balanceSheetRequest struct {
	AsOnDate string         `json:"asOnDate" validate:"omitempty,datetime=2006-01-02"`
	Rules    *reports.Rules `json:"rules"`
}

type listResponse[T any] struct {
	Data       []T `json:"data"`
	Pagination any `json:"pagination,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs tag validation and folds field errors into one ErrValidation.
func checkStruct(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(msgs, "; "))
}
