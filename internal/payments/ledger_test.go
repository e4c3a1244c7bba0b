package payments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry() LedgerEntry {
	return LedgerEntry{
		ID:          "7f1c9a4e-2d8b-4c55-9f0a-1b2c3d4e5f60",
		OrderID:     "order_123",
		Amount:      3000,
		OrderAmount: 300000,
		Currency:    "INR",
		Descriptor: OrderDescriptor{
			PurchaseType:      "package",
			SelectedBodyParts: []string{"face", "arms"},
		},
		ContactName:  "Asha Rao",
		ContactEmail: "asha@example.com",
		ContactPhone: "9876543210",
		Status:       StatusOrderCreated,
		CreatedAt:    time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestLedgerEntryLookupKey(t *testing.T) {
	entry := sampleEntry()
	assert.Equal(t, "order_123", entry.LookupKey())
	entry.OrderID = ""
	assert.Equal(t, entry.ID, entry.LookupKey())
}

func TestMemoryLedger(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	_, err := ledger.Get(ctx, "order_123")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	entry := sampleEntry()
	require.NoError(t, ledger.Record(ctx, entry))
	entry.Descriptor.SelectedBodyParts[0] = "mutated"

	got, err := ledger.Get(ctx, "order_123")
	require.NoError(t, err)
	assert.Equal(t, []string{"face", "arms"}, got.Descriptor.SelectedBodyParts)
}

func TestRedisLedger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ledger := NewRedisLedger(client, time.Hour)
	ctx := context.Background()

	_, err := ledger.Get(ctx, "order_123")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	require.NoError(t, ledger.Record(ctx, sampleEntry()))
	assert.True(t, mr.Exists("checkout:order:order_123"))
	assert.Equal(t, time.Hour, mr.TTL("checkout:order:order_123"))

	got, err := ledger.Get(ctx, "order_123")
	require.NoError(t, err)
	assert.Equal(t, sampleEntry(), *got)

	mr.FastForward(2 * time.Hour)
	_, err = ledger.Get(ctx, "order_123")
	assert.ErrorIs(t, err, ErrLedgerNotFound)
}

func TestRedisLedgerCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("checkout:order:bad", "not-json"))
	_, err := NewRedisLedger(client, 0).Get(context.Background(), "bad")
	assert.ErrorContains(t, err, "decode ledger entry")
}

func TestPostgresLedger(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ledger := newPostgresLedgerWithDB(mock)
	ctx := context.Background()
	entry := sampleEntry()

	mock.ExpectExec("INSERT INTO checkout_ledger").
		WithArgs("order_123", entry.ID, "order_123", 3000, int64(300000), "INR",
			"package", `["face","arms"]`, "Asha Rao", "asha@example.com",
			"9876543210", StatusOrderCreated, "", entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, ledger.Record(ctx, entry))

	columns := []string{
		"id", "order_id", "amount", "order_amount", "currency", "purchase_type",
		"selected_parts", "contact_name", "contact_email", "contact_phone",
		"status", "error", "created_at",
	}
	mock.ExpectQuery("SELECT id, order_id").WithArgs("order_123").WillReturnRows(
		pgxmock.NewRows(columns).AddRow(
			entry.ID, "order_123", 3000, int64(300000), "INR", "package",
			`["face","arms"]`, "Asha Rao", "asha@example.com", "9876543210",
			StatusOrderCreated, "", entry.CreatedAt,
		),
	)
	got, err := ledger.Get(ctx, "order_123")
	require.NoError(t, err)
	assert.Equal(t, entry, *got)

	mock.ExpectQuery("SELECT id, order_id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	_, err = ledger.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrLedgerNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
