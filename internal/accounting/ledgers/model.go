package ledgers

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

// AccountType enumerates chart of accounts classifications.
type AccountType string

const (
	AccountTypeCash       AccountType = "CASH"
	AccountTypeBank       AccountType = "BANK"
	AccountTypeDebtor     AccountType = "DEBTOR"
	AccountTypeCreditor   AccountType = "CREDITOR"
	AccountTypeSales      AccountType = "SALES"
	AccountTypePurchase   AccountType = "PURCHASE"
	AccountTypeIncome     AccountType = "INCOME"
	AccountTypeExpense    AccountType = "EXPENSE"
	AccountTypeAsset      AccountType = "ASSET"
	AccountTypeLiability  AccountType = "LIABILITY"
	AccountTypeCapital    AccountType = "CAPITAL"
	AccountTypeProfitLoss AccountType = "PROFIT_LOSS"
)

// Statement names the financial statement a ledger reports on.
type Statement string

const (
	StatementBalanceSheet  Statement = "BALANCE_SHEET"
	StatementProfitAndLoss Statement = "PROFIT_AND_LOSS"
)

// ReportingSide is the balance sheet column a ledger belongs to.
type ReportingSide string

const (
	SideAssets      ReportingSide = "ASSETS"
	SideLiabilities ReportingSide = "LIABILITIES"
)

type typeTraits struct {
	natural   money.Side
	statement Statement
	side      ReportingSide
}

var accountTypes = map[AccountType]typeTraits{
	AccountTypeCash:       {money.Debit, StatementBalanceSheet, SideAssets},
	AccountTypeBank:       {money.Debit, StatementBalanceSheet, SideAssets},
	AccountTypeDebtor:     {money.Debit, StatementBalanceSheet, SideAssets},
	AccountTypeAsset:      {money.Debit, StatementBalanceSheet, SideAssets},
	AccountTypeCreditor:   {money.Credit, StatementBalanceSheet, SideLiabilities},
	AccountTypeLiability:  {money.Credit, StatementBalanceSheet, SideLiabilities},
	AccountTypeCapital:    {money.Credit, StatementBalanceSheet, SideLiabilities},
	AccountTypeProfitLoss: {money.Credit, StatementBalanceSheet, SideLiabilities},
	AccountTypeSales:      {money.Credit, StatementProfitAndLoss, SideLiabilities},
	AccountTypeIncome:     {money.Credit, StatementProfitAndLoss, SideLiabilities},
	AccountTypePurchase:   {money.Debit, StatementProfitAndLoss, SideAssets},
	AccountTypeExpense:    {money.Debit, StatementProfitAndLoss, SideAssets},
}

var typeOrder = []AccountType{
	AccountTypeCapital, AccountTypeProfitLoss, AccountTypeLiability, AccountTypeCreditor,
	AccountTypeAsset, AccountTypeDebtor, AccountTypeBank, AccountTypeCash,
	AccountTypeSales, AccountTypeIncome, AccountTypePurchase, AccountTypeExpense,
}

// AccountTypes lists the enumeration in reporting order.
func AccountTypes() []AccountType {
	return append([]AccountType(nil), typeOrder...)
}

var typeAliases = map[AccountType]AccountType{
	"PARTY_DEBTOR":    AccountTypeDebtor,
	"PARTY_CREDITOR":  AccountTypeCreditor,
	"PROFIT_AND_LOSS": AccountTypeProfitLoss,
}

// ParseAccountType normalises user input such as "bank" or "profit loss".
func ParseAccountType(raw string) (AccountType, error) {
	words := strings.FieldsFunc(strings.ToUpper(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	t := AccountType(strings.Join(words, "_"))
	if alias, ok := typeAliases[t]; ok {
		t = alias
	}
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, raw)
	}
	return t, nil
}

// Valid reports whether t is part of the enumeration.
func (t AccountType) Valid() bool {
	_, ok := accountTypes[t]
	return ok
}

// NaturalSide returns the side on which the account normally carries a positive balance.
func (t AccountType) NaturalSide() money.Side {
	return accountTypes[t].natural
}

// Statement returns the statement the account reports on.
func (t AccountType) Statement() Statement {
	return accountTypes[t].statement
}

// ReportingSide returns the balance sheet column for balance sheet accounts.
func (t AccountType) ReportingSide() ReportingSide {
	return accountTypes[t].side
}

// IsCashOrBank reports whether receipts and payments may settle through the account.
func (t AccountType) IsCashOrBank() bool {
	return t == AccountTypeCash || t == AccountTypeBank
}

// Status enumerates ledger lifecycle values.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Ledger models a chart of accounts entry with its running balance.
type Ledger struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Type           AccountType   `json:"accountType"`
	OpeningBalance money.Balance `json:"openingBalance"`
	CurrentBalance money.Balance `json:"currentBalance"`
	ParentGroup    string        `json:"parentGroup,omitempty"`
	Status         Status        `json:"status"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// IsActive reports whether new vouchers may post to the ledger.
func (l Ledger) IsActive() bool {
	return l.Status == StatusActive
}

// ApplyEntry posts a single debit or credit against the running balance.
// The ledger is left untouched when the entry is rejected.
func (l *Ledger) ApplyEntry(debit, credit money.Amount) error {
	if debit < 0 || credit < 0 {
		return fmt.Errorf("%w: negative amount on ledger %d", shared.ErrInvalidEntry, l.ID)
	}
	if (debit > 0) == (credit > 0) {
		return fmt.Errorf("%w: ledger %d", shared.ErrInvalidEntry, l.ID)
	}
	next, err := l.CurrentBalance.Apply(debit, credit, l.Type.NaturalSide())
	if err != nil {
		return fmt.Errorf("%w: ledger %d: %w", shared.ErrValidation, l.ID, err)
	}
	l.CurrentBalance = next
	l.Version++
	return nil
}

// CreateInput carries the fields needed to open a ledger.
type CreateInput struct {
	Name           string
	Type           AccountType
	OpeningBalance money.Amount
	OpeningSide    money.Side
	ParentGroup    string
	ActorID        int64
}

// Validate normalises and checks the input.
func (in *CreateInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.ParentGroup = strings.TrimSpace(in.ParentGroup)
	if in.Name == "" {
		return fmt.Errorf("%w: ledger name required", shared.ErrValidation)
	}
	if len(in.Name) > 150 {
		return fmt.Errorf("%w: ledger name too long", shared.ErrValidation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown account type %q", shared.ErrValidation, in.Type)
	}
	if in.OpeningBalance < 0 {
		return fmt.Errorf("%w: opening balance cannot be negative", shared.ErrValidation)
	}
	if in.OpeningBalance > money.MaxAmount {
		return fmt.Errorf("%w: opening balance: %w", shared.ErrValidation, money.ErrOutOfRange)
	}
	if in.OpeningSide == "" {
		in.OpeningSide = in.Type.NaturalSide()
	}
	if !in.OpeningSide.Valid() {
		return fmt.Errorf("%w: opening side must be Dr or Cr", shared.ErrValidation)
	}
	return nil
}

// DeactivateInput wraps parameters for retiring a ledger.
type DeactivateInput struct {
	LedgerID int64
	Force    bool
	ActorID  int64
	Reason   string
}

// RenameInput wraps parameters for renaming a ledger.
type RenameInput struct {
	LedgerID int64
	Name     string
	ActorID  int64
}

// ListFilter narrows ledger listings.
type ListFilter struct {
	Status Status
	Type   AccountType
	Search string
	Limit  int
	Offset int
}
