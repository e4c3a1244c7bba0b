package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger stores entries in the checkout_ledger table.
type PostgresLedger struct {
	db ledgerDB
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &PostgresLedger{db: pool}
}

func newPostgresLedgerWithDB(db ledgerDB) *PostgresLedger {
	if db == nil {
		panic("payments: db required")
	}
	return &PostgresLedger{db: db}
}

// Record upserts the entry by lookup key.
func (l *PostgresLedger) Record(ctx context.Context, entry LedgerEntry) error {
	parts, err := json.Marshal(entry.Descriptor.SelectedBodyParts)
	if err != nil {
		return fmt.Errorf("payments: encode parts: %w", err)
	}
	query := `
		INSERT INTO checkout_ledger (
			lookup_key, id, order_id, amount, order_amount, currency,
			purchase_type, selected_parts, contact_name, contact_email,
			contact_phone, status, error, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (lookup_key) DO UPDATE SET
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			order_amount = EXCLUDED.order_amount
	`
	_, err = l.db.Exec(ctx, query,
		entry.LookupKey(), entry.ID, entry.OrderID, entry.Amount, entry.OrderAmount, entry.Currency,
		entry.Descriptor.PurchaseType, string(parts), entry.ContactName, entry.ContactEmail,
		entry.ContactPhone, entry.Status, entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("payments: insert ledger entry: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Get(ctx context.Context, key string) (*LedgerEntry, error) {
	query := `
		SELECT id, order_id, amount, order_amount, currency, purchase_type,
			selected_parts, contact_name, contact_email, contact_phone,
			status, error, created_at
		FROM checkout_ledger
		WHERE lookup_key = $1
	`
	var (
		entry LedgerEntry
		parts string
	)
	err := l.db.QueryRow(ctx, query, key).Scan(
		&entry.ID, &entry.OrderID, &entry.Amount, &entry.OrderAmount, &entry.Currency,
		&entry.Descriptor.PurchaseType, &parts, &entry.ContactName, &entry.ContactEmail,
		&entry.ContactPhone, &entry.Status, &entry.Error, &entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLedgerNotFound
		}
		return nil, fmt.Errorf("payments: load ledger entry: %w", err)
	}
	if parts != "" {
		if err := json.Unmarshal([]byte(parts), &entry.Descriptor.SelectedBodyParts); err != nil {
			return nil, fmt.Errorf("payments: decode parts: %w", err)
		}
	}
	return &entry, nil
}
