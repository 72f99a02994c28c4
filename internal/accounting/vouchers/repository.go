package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairy-erp/ledger/internal/accounting/ledgers"
	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/platform/db"
)

// Repository encapsulates voucher reads and the posting transaction.
type Repository interface {
	Get(ctx context.Context, id int64) (Voucher, error)
	List(ctx context.Context, filter ListFilter) ([]Voucher, int, error)
	GetLedger(ctx context.Context, id int64) (ledgers.Ledger, error)
	// DefaultCashLedger returns the lowest-id active CASH ledger.
	DefaultCashLedger(ctx context.Context) (ledgers.Ledger, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction.
type TxRepository interface {
	// LockLedgers row-locks the ledgers in ascending id order. Unknown ids are absent from the result.
	LockLedgers(ctx context.Context, ids []int64) (map[int64]ledgers.Ledger, error)
	// UpdateLedgerBalance stores the new balance if the version is still expectedVersion.
	UpdateLedgerBalance(ctx context.Context, l ledgers.Ledger, expectedVersion int64) error
	NextVoucherNumber(ctx context.Context, t VoucherType) (int64, error)
	InsertVoucher(ctx context.Context, v Voucher) (Voucher, error)
	InsertEntries(ctx context.Context, voucherID int64, entries []Entry) error
	GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error)
	MarkVoid(ctx context.Context, id int64, at time.Time, reason string) error
}

const voucherColumns = `id, number, voucher_type, voucher_date, reference_type, reference_id, narration, total_debit, total_credit, status, created_by, created_at, voided_at, void_reason`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.db.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1`, id))
	if err != nil {
		return Voucher{}, err
	}
	v.Entries, err = loadEntries(ctx, r.db, id)
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Voucher, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		where = append(where, fmt.Sprintf("voucher_type=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.LedgerID > 0 {
		args = append(args, filter.LedgerID)
		where = append(where, fmt.Sprintf("id IN (SELECT voucher_id FROM voucher_entries WHERE ledger_id=$%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("voucher_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("voucher_date <= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = ` WHERE ` + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	query := `SELECT ` + voucherColumns + ` FROM vouchers` + clause +
		fmt.Sprintf(` ORDER BY voucher_date DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func (r *repository) GetLedger(ctx context.Context, id int64) (ledgers.Ledger, error) {
	return ledgers.Scan(r.db.QueryRow(ctx, `SELECT `+ledgers.Columns+` FROM ledgers WHERE id=$1`, id))
}

func (r *repository) DefaultCashLedger(ctx context.Context) (ledgers.Ledger, error) {
	return ledgers.Scan(r.db.QueryRow(ctx, `SELECT `+ledgers.Columns+` FROM ledgers WHERE account_type='CASH' AND status='ACTIVE' ORDER BY id LIMIT 1`))
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) LockLedgers(ctx context.Context, ids []int64) (map[int64]ledgers.Ledger, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+ledgers.Columns+` FROM ledgers WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]ledgers.Ledger, len(ids))
	for rows.Next() {
		l, err := ledgers.Scan(rows)
		if err != nil {
			return nil, err
		}
		out[l.ID] = l
	}
	return out, rows.Err()
}

func (r *txRepository) UpdateLedgerBalance(ctx context.Context, l ledgers.Ledger, expectedVersion int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledgers SET current_amount=$2, current_side=$3, version=$4, updated_at=NOW() WHERE id=$1 AND version=$5`,
		l.ID, int64(l.CurrentBalance.Amount), string(l.CurrentBalance.Side), l.Version, expectedVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", shared.ErrConcurrentUpdate, l.Name)
	}
	return nil
}

func (r *txRepository) NextVoucherNumber(ctx context.Context, t VoucherType) (int64, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO voucher_sequences (voucher_type, last_number) VALUES ($1, 1)
ON CONFLICT (voucher_type) DO UPDATE SET last_number = voucher_sequences.last_number + 1
RETURNING last_number`, string(t)).Scan(&next)
	return next, err
}

func (r *txRepository) InsertVoucher(ctx context.Context, v Voucher) (Voucher, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO vouchers (voucher_type, number, voucher_date, reference_type, reference_id, narration, total_debit, total_credit, status, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		string(v.Type), v.Number, v.Date, string(v.ReferenceType), v.ReferenceID, v.Narration,
		int64(v.TotalDebit), int64(v.TotalCredit), string(v.Status), nullInt(v.CreatedBy), v.CreatedAt).Scan(&v.ID)
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, voucherID int64, entries []Entry) error {
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`INSERT INTO voucher_entries (voucher_id, line_no, ledger_id, ledger_name, debit, credit, narration)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, voucherID, e.LineNo, e.LedgerID, e.LedgerName, int64(e.Debit), int64(e.Credit), e.Narration)
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) GetVoucherForUpdate(ctx context.Context, id int64) (Voucher, error) {
	v, err := scanVoucher(r.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return Voucher{}, err
	}
	v.Entries, err = loadEntries(ctx, r.tx, id)
	if err != nil {
		return Voucher{}, err
	}
	return v, nil
}

func (r *txRepository) MarkVoid(ctx context.Context, id int64, at time.Time, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vouchers SET status='VOID', voided_at=$2, void_reason=$3 WHERE id=$1 AND status='POSTED'`, id, at, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAlreadyVoid
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadEntries(ctx context.Context, q querier, voucherID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, `SELECT id, voucher_id, line_no, ledger_id, ledger_name, debit, credit, narration
FROM voucher_entries WHERE voucher_id=$1 ORDER BY line_no`, voucherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var (
			e             Entry
			debit, credit int64
		)
		if err := rows.Scan(&e.ID, &e.VoucherID, &e.LineNo, &e.LedgerID, &e.LedgerName, &debit, &credit, &e.Narration); err != nil {
			return nil, err
		}
		e.Debit, e.Credit = money.Amount(debit), money.Amount(credit)
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v                    Voucher
		vType, refType, stat string
		debit, credit        int64
		createdBy            *int64
	)
	err := row.Scan(&v.ID, &v.Number, &vType, &v.Date, &refType, &v.ReferenceID, &v.Narration,
		&debit, &credit, &stat, &createdBy, &v.CreatedAt, &v.VoidedAt, &v.VoidReason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrVoucherNotFound
		}
		return Voucher{}, err
	}
	v.Type, v.ReferenceType, v.Status = VoucherType(vType), ReferenceType(refType), Status(stat)
	v.TotalDebit, v.TotalCredit = money.Amount(debit), money.Amount(credit)
	if createdBy != nil {
		v.CreatedBy = *createdBy
	}
	return v, nil
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}
