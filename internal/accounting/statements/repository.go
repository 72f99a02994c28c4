package statements

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/vouchers"
	"github.com/dairy-erp/ledger/internal/platform/db"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const postingsQuery = `SELECT v.id, v.number, v.voucher_type, v.voucher_date, e.line_no, e.debit, e.credit,
       COALESCE(NULLIF(e.narration, ''), v.narration),
       COALESCE((SELECT string_agg(DISTINCT o.ledger_name, ', ' ORDER BY o.ledger_name)
                 FROM voucher_entries o
                 WHERE o.voucher_id = v.id AND o.ledger_id <> e.ledger_id), '')
FROM voucher_entries e
JOIN vouchers v ON v.id = e.voucher_id
WHERE e.ledger_id = $1 AND v.status = 'POSTED' AND ($2::date IS NULL OR v.voucher_date <= $2::date)
ORDER BY v.voucher_date, v.id, e.line_no`

func (r *repository) Load(ctx context.Context, ledgerID int64, to *time.Time) (ledgers.Ledger, []Posting, error) {
	var (
		l        ledgers.Ledger
		postings []Posting
	)
	err := db.WithReadTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		l, err = ledgers.Scan(tx.QueryRow(ctx, `SELECT `+ledgers.Columns+` FROM ledgers WHERE id=$1`, ledgerID))
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, postingsQuery, ledgerID, to)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				p             Posting
				vType         string
				debit, credit int64
			)
			if err := rows.Scan(&p.VoucherID, &p.VoucherNumber, &vType, &p.Date, &p.LineNo, &debit, &credit, &p.Narration, &p.Particulars); err != nil {
				return err
			}
			p.VoucherType = vouchers.VoucherType(vType)
			p.Debit, p.Credit = money.Amount(debit), money.Amount(credit)
			postings = append(postings, p)
		}
		return rows.Err()
	})
	if err != nil {
		return ledgers.Ledger{}, nil, err
	}
	return l, postings, nil
}

func (r *repository) LedgerIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM ledgers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
