package payments

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLedgerNotFound is returned when no hand-off is recorded under a key.
var ErrLedgerNotFound = errors.New("payments: ledger entry not found")

// Ledger statuses.
const (
	StatusOrderCreated  = "order_created"
	StatusHandoffFailed = "handoff_failed"
)

// OrderDescriptor is the order note attached to the overlay.
type OrderDescriptor struct {
	PurchaseType      string   `json:"purchaseType"`
	SelectedBodyParts []string `json:"selectedBodyParts"`
}

// LedgerEntry records one checkout hand-off attempt.
type LedgerEntry struct {
	ID           string          `json:"id"`
	OrderID      string          `json:"orderId,omitempty"`
	Amount       int             `json:"amount"`
	OrderAmount  int64           `json:"orderAmount,omitempty"`
	Currency     string          `json:"currency"`
	Descriptor   OrderDescriptor `json:"descriptor"`
	ContactName  string          `json:"contactName,omitempty"`
	ContactEmail string          `json:"contactEmail,omitempty"`
	ContactPhone string          `json:"contactPhone,omitempty"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// LookupKey is the key an entry is stored under: the provider order id, or
// the entry id when no order was created.
func (e LedgerEntry) LookupKey() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.ID
}

// Ledger stores hand-off attempts for reconciliation against the payment
// backend.
type Ledger interface {
	Record(ctx context.Context, entry LedgerEntry) error
	Get(ctx context.Context, key string) (*LedgerEntry, error)
}

// MemoryLedger keeps entries in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]LedgerEntry
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]LedgerEntry)}
}

func (l *MemoryLedger) Record(ctx context.Context, entry LedgerEntry) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.LookupKey()] = cloneEntry(entry)
	return nil
}

func (l *MemoryLedger) Get(ctx context.Context, key string) (*LedgerEntry, error) {
	_ = ctx
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[key]
	if !ok {
		return nil, ErrLedgerNotFound
	}
	out := cloneEntry(entry)
	return &out, nil
}

func cloneEntry(e LedgerEntry) LedgerEntry {
	e.Descriptor.SelectedBodyParts = append([]string(nil), e.Descriptor.SelectedBodyParts...)
	return e
}
