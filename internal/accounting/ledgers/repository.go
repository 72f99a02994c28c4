package ledgers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dairy-erp/ledger/internal/accounting/money"
	"github.com/dairy-erp/ledger/internal/accounting/shared"
	"github.com/dairy-erp/ledger/internal/platform/db"
)

// Repository exposes ledger reads and transactional writes.
type Repository interface {
	Get(ctx context.Context, id int64) (Ledger, error)
	List(ctx context.Context, filter ListFilter) ([]Ledger, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Ledger, error)
	ActiveNameExists(ctx context.Context, name string, excludeID int64) (bool, error)
	InsertLedger(ctx context.Context, l Ledger) (Ledger, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	UpdateName(ctx context.Context, id int64, name string) error
}

// Columns selected for every ledger read.
const Columns = `id, name, account_type, opening_amount, opening_side, current_amount, current_side, parent_group, status, version, created_at, updated_at`

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// Scan reads a ledger row selected with Columns.
func Scan(row pgx.Row) (Ledger, error) {
	var (
		l                   Ledger
		accountType, status string
		openAmt, curAmt     int64
		openSide, curSide   string
	)
	err := row.Scan(&l.ID, &l.Name, &accountType, &openAmt, &openSide,
		&curAmt, &curSide, &l.ParentGroup, &status, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ledger{}, shared.ErrLedgerNotFound
		}
		return Ledger{}, err
	}
	l.Type, l.Status = AccountType(accountType), Status(status)
	l.OpeningBalance = money.Balance{Amount: money.Amount(openAmt), Side: money.Side(openSide)}
	l.CurrentBalance = money.Balance{Amount: money.Amount(curAmt), Side: money.Side(curSide)}
	return l, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Ledger, error) {
	return Scan(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM ledgers WHERE id=$1`, id))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Ledger, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("account_type=$%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("lower(name) LIKE $%d", len(args)))
	}
	query := `SELECT ` + Columns + ` FROM ledgers`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Ledger
	for rows.Next() {
		l, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Ledger, error) {
	return Scan(r.tx.QueryRow(ctx, `SELECT `+Columns+` FROM ledgers WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) ActiveNameExists(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ledgers WHERE lower(name)=lower($1) AND status='ACTIVE' AND id<>$2)`, name, excludeID).Scan(&exists)
	return exists, err
}

func (r *txRepository) InsertLedger(ctx context.Context, l Ledger) (Ledger, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledgers (name, account_type, opening_amount, opening_side, current_amount, current_side, parent_group, status, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9,$10) RETURNING id`, l.Name, string(l.Type), int64(l.OpeningBalance.Amount), string(l.OpeningBalance.Side),
		int64(l.CurrentBalance.Amount), string(l.CurrentBalance.Side), l.ParentGroup, string(l.Status), l.CreatedAt, l.UpdatedAt)
	if err := row.Scan(&l.ID); err != nil {
		if isUniqueViolation(err) {
			return Ledger{}, fmt.Errorf("%w: %q", shared.ErrDuplicateLedgerName, l.Name)
		}
		return Ledger{}, err
	}
	return l, nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledgers SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrLedgerNotFound
	}
	return nil
}

func (r *txRepository) UpdateName(ctx context.Context, id int64, name string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE ledgers SET name=$2, updated_at=NOW() WHERE id=$1`, id, name)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateLedgerName, name)
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrLedgerNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
