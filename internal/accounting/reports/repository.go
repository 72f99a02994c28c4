package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const balancesQuery = `SELECT l.id, l.name, l.account_type, l.parent_group, l.status,
       l.opening_amount, l.opening_side,
       COALESCE(SUM(e.debit) FILTER (WHERE v.id IS NOT NULL), 0)::bigint,
       COALESCE(SUM(e.credit) FILTER (WHERE v.id IS NOT NULL), 0)::bigint
FROM ledgers l
LEFT JOIN voucher_entries e ON e.ledger_id = l.id
LEFT JOIN vouchers v ON v.id = e.voucher_id
      AND v.status = 'POSTED'
      AND v.voucher_date <= $2::date
      AND ($1::date IS NULL OR v.voucher_date >= $1::date)
GROUP BY l.id
ORDER BY l.name, l.id`

func (r *repository) Balances(ctx context.Context, from *time.Time, to time.Time) ([]AccountBalance, error) {
	rows, err := r.db.Query(ctx, balancesQuery, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var (
			a                         AccountBalance
			accountType, status, side string
			opening, debit, credit    int64
		)
		if err := rows.Scan(&a.LedgerID, &a.Name, &accountType, &a.ParentGroup, &status, &opening, &side, &debit, &credit); err != nil {
			return nil, err
		}
		a.Type, a.Status = ledgers.AccountType(accountType), ledgers.Status(status)
		a.Opening = money.Balance{Amount: money.Amount(opening), Side: money.Side(side)}
		if from != nil {
			a.Opening = money.Balance{Side: a.Type.NaturalSide()}
		}
		a.Debit, a.Credit = money.Amount(debit), money.Amount(credit)
		out = append(out, a)
	}
	return out, rows.Err()
}
