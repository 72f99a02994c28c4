package vouchers

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
)

func TestCreateInputValidateDefaults(t *testing.T) {
	in := CreateInput{
		Type: TypeJournal,
		Date: time.Date(2024, 4, 1, 18, 30, 0, 0, time.FixedZone("IST", 19800)),
		Entries: []EntryInput{
			{LedgerID: 3, Debit: 700},
			{LedgerID: 1, Credit: 500},
			{LedgerID: 2, Credit: 200},
		},
		Narration: "  split  ",
	}
	totals, err := in.Validate()
	require.NoError(t, err)
	assert.Equal(t, Totals{Debit: 700, Credit: 700}, totals)
	assert.Equal(t, ReferenceManual, in.ReferenceType)
	assert.Equal(t, "split", in.Narration)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), in.Date)
	assert.Equal(t, []int64{1, 2, 3}, in.LedgerIDs())
}

func TestCreateInputValidateRejects(t *testing.T) {
	base := func() CreateInput {
		return CreateInput{
			Type:    TypeReceipt,
			Date:    time.Now(),
			Entries: []EntryInput{{LedgerID: 1, Debit: 10}, {LedgerID: 2, Credit: 10}},
		}
	}
	bad := base()
	bad.Type = "CONTRA"
	_, err := bad.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad = base()
	bad.Date = time.Time{}
	_, err = bad.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad = base()
	bad.ReferenceType = "GIFT"
	_, err = bad.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad = base()
	bad.Entries[1].LedgerID = 0
	_, err = bad.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)

	bad = base()
	bad.Entries = []EntryInput{
		{LedgerID: 1, Debit: math.MaxInt64},
		{LedgerID: 1, Debit: math.MaxInt64},
		{LedgerID: 1, Debit: math.MaxInt64},
		{LedgerID: 2, Credit: math.MaxInt64 - 2},
	}
	_, err = bad.Validate()
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.ErrorIs(t, err, money.ErrOutOfRange)
}

func TestTwoLeg(t *testing.T) {
	in, err := TwoLeg(TypePayment, time.Now(), 4, 9, 1500)
	require.NoError(t, err)
	assert.Equal(t, []EntryInput{{LedgerID: 4, Debit: 1500}, {LedgerID: 9, Credit: 1500}}, in.Entries)

	_, err = TwoLeg(TypePayment, time.Now(), 4, 4, 1500)
	assert.ErrorIs(t, err, shared.ErrSameLedger)
	_, err = TwoLeg(TypePayment, time.Now(), 4, 9, 0)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestParseVoucherType(t *testing.T) {
	got, err := ParseVoucherType(" receipt ")
	require.NoError(t, err)
	assert.Equal(t, TypeReceipt, got)
	_, err = ParseVoucherType("contra")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoucherJSON(t *testing.T) {
	v := Voucher{ID: 7, Number: 12, Type: TypeReceipt, Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), TotalDebit: 50000}
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "RV-000012", out["code"])
	assert.Equal(t, "2024-04-01", out["voucherDate"])
	assert.Equal(t, "500.00", out["totalDebit"])
}
