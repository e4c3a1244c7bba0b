package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultLedgerTTL = 30 * 24 * time.Hour

// RedisLedger stores entries as JSON under checkout:order:<key>.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger creates a ledger that expires entries after ttl.
func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if client == nil {
		panic("payments: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Record(ctx context.Context, entry LedgerEntry) error {
	ctx, span := tracer.Start(ctx, "payments.ledger.record")
	defer span.End()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("payments: encode ledger entry: %w", err)
	}
	if err := l.client.Set(ctx, ledgerKey(entry.LookupKey()), data, l.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("payments: persist ledger entry: %w", err)
	}
	return nil
}

func (l *RedisLedger) Get(ctx context.Context, key string) (*LedgerEntry, error) {
	ctx, span := tracer.Start(ctx, "payments.ledger.get")
	defer span.End()

	data, err := l.client.Get(ctx, ledgerKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrLedgerNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("payments: load ledger entry: %w", err)
	}
	var entry LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("payments: decode ledger entry: %w", err)
	}
	return &entry, nil
}

func ledgerKey(key string) string {
	return fmt.Sprintf("checkout:order:%s", key)
}
