package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer runs a statement; *pgxpool.Pool and pgx.Tx both satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLog is one row of the ledger audit trail.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) check() error {
	switch {
	case l.Action == "":
		return errors.New("audit: action required")
	case l.Entity == "":
		return errors.New("audit: entity required")
	case l.EntityID == "":
		return errors.New("audit: entity id required")
	}
	return nil
}

const insertAudit = `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`

// AuditLogger appends ledger and voucher changes to audit_logs.
type AuditLogger struct {
	db Execer
}

// NewAuditLogger returns an AuditLogger writing through db.
func NewAuditLogger(db Execer) *AuditLogger {
	return &AuditLogger{db: db}
}

// Record persists the entry. A zero At defers to the database clock and a
// non-positive ActorID is stored as NULL.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.db == nil {
		return fmt.Errorf("audit: %w", ErrNotInitialised)
	}
	if err := entry.check(); err != nil {
		return err
	}
	meta := entry.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	var at *time.Time
	if !entry.At.IsZero() {
		at = &entry.At
	}
	var actor *int64
	if entry.ActorID > 0 {
		actor = &entry.ActorID
	}
	if _, err := l.db.Exec(ctx, insertAudit, actor, entry.Action, entry.Entity, entry.EntityID, payload, at); err != nil {
		return fmt.Errorf("audit: insert %s %s: %w", entry.Entity, entry.Action, err)
	}
	return nil
}
