package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// ErrEmptyOrder is returned when the draft prices to zero.
var ErrEmptyOrder = errors.New("payments: nothing selected to pay for")

// Display holds the overlay's merchant metadata.
type Display struct {
	Currency    string
	Name        string
	Description string
	ImageURL    string
	ThemeColor  string
	AddressNote string
	CallbackURL string
	Prefill     Prefill
}

// Prefill is the customer contact pre-filled in the overlay.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Notes are free-form values shown on the provider dashboard.
type Notes struct {
	Address string `json:"address"`
	Order   string `json:"order"`
}

// Theme colours the overlay.
type Theme struct {
	Color string `json:"color"`
}

// CheckoutOptions is passed unchanged to the Razorpay overlay constructor.
type CheckoutOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       string  `json:"image,omitempty"`
	OrderID     string  `json:"order_id"`
	CallbackURL string  `json:"callback_url"`
	Prefill     Prefill `json:"prefill"`
	Notes       Notes   `json:"notes"`
	Theme       Theme   `json:"theme"`
}

// Recorder observes hand-off results.
type Recorder interface {
	ObserveCheckout(status string)
}

// HandoffConfig wires a Handoff.
type HandoffConfig struct {
	Catalog  *catalog.Catalog
	Provider Provider
	Ledger   Ledger
	Display  Display
	Recorder Recorder
	Logger   *logging.Logger
}

// Handoff prices a draft, opens a provider order and builds overlay options.
// It does not depend on the booking having been stored.
type Handoff struct {
	catalog  *catalog.Catalog
	provider Provider
	ledger   Ledger
	display  Display
	recorder Recorder
	logger   *logging.Logger
	now      func() time.Time
}

func NewHandoff(cfg HandoffConfig) *Handoff {
	if cfg.Catalog == nil {
		panic("payments: catalog required")
	}
	if cfg.Provider == nil {
		panic("payments: provider required")
	}
	if cfg.Ledger == nil {
		cfg.Ledger = NewMemoryLedger()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Display.Currency == "" {
		cfg.Display.Currency = "INR"
	}
	return &Handoff{
		catalog:  cfg.Catalog,
		provider: cfg.Provider,
		ledger:   cfg.Ledger,
		display:  cfg.Display,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Checkout fetches the key, then creates an order, strictly in that order.
// A failure of either call aborts the hand-off and is recorded in the ledger.
func (h *Handoff) Checkout(ctx context.Context, draft booking.Draft) (*CheckoutOptions, error) {
	amount := h.catalog.TotalPrice(draft.Tier, draft.Parts, draft.Coupon)
	if amount <= 0 || len(draft.Parts) == 0 {
		return nil, ErrEmptyOrder
	}

	ctx, span := tracer.Start(ctx, "payments.checkout")
	defer span.End()
	span.SetAttributes(attribute.Int("payments.amount", amount))

	descriptor := OrderDescriptor{
		PurchaseType:      draft.Tier.StoreValue(),
		SelectedBodyParts: draft.PartNames(),
	}
	prefill := h.prefill(draft)
	entry := LedgerEntry{
		ID:           uuid.NewString(),
		Amount:       amount,
		Currency:     h.display.Currency,
		Descriptor:   descriptor,
		ContactName:  prefill.Name,
		ContactEmail: prefill.Email,
		ContactPhone: prefill.Contact,
		CreatedAt:    h.now().UTC(),
	}

	key, err := h.provider.GetKey(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, h.fail(ctx, entry, "get key", err)
	}
	order, err := h.provider.CreateOrder(ctx, amount)
	if err != nil {
		span.RecordError(err)
		return nil, h.fail(ctx, entry, "create order", err)
	}

	noteOrder, err := json.Marshal(descriptor)
	if err != nil {
		return nil, fmt.Errorf("payments: encode order note: %w", err)
	}

	entry.OrderID = order.ID
	entry.OrderAmount = order.Amount
	entry.Status = StatusOrderCreated
	h.recordLedger(ctx, entry)
	h.observe(StatusOrderCreated)
	h.logger.Info("checkout order created", "order_id", order.ID, "amount", amount, "purchase_type", descriptor.PurchaseType)

	return &CheckoutOptions{
		Key:         key,
		Amount:      order.Amount,
		Currency:    h.display.Currency,
		Name:        h.display.Name,
		Description: h.display.Description,
		Image:       h.display.ImageURL,
		OrderID:     order.ID,
		CallbackURL: h.display.CallbackURL,
		Prefill:     prefill,
		Notes: Notes{
			Address: h.display.AddressNote,
			Order:   string(noteOrder),
		},
		Theme: Theme{Color: h.display.ThemeColor},
	}, nil
}

// Lookup returns the ledger entry for an order id.
func (h *Handoff) Lookup(ctx context.Context, orderID string) (*LedgerEntry, error) {
	return h.ledger.Get(ctx, strings.TrimSpace(orderID))
}

func (h *Handoff) prefill(draft booking.Draft) Prefill {
	p := h.display.Prefill
	if v := strings.TrimSpace(draft.Name); v != "" {
		p.Name = v
	}
	if v := strings.TrimSpace(draft.Email); v != "" {
		p.Email = v
	}
	if v := strings.TrimSpace(draft.Phone); v != "" {
		p.Contact = v
	}
	return p
}

func (h *Handoff) fail(ctx context.Context, entry LedgerEntry, step string, err error) error {
	entry.Status = StatusHandoffFailed
	entry.Error = err.Error()
	h.recordLedger(ctx, entry)
	h.observe(StatusHandoffFailed)
	h.logger.Error("checkout hand-off failed", "step", step, "error", err, "ledger_id", entry.ID)
	return fmt.Errorf("payments: %s: %w", step, err)
}

// recordLedger never fails the hand-off; a lost ledger write is logged.
func (h *Handoff) recordLedger(ctx context.Context, entry LedgerEntry) {
	if err := h.ledger.Record(ctx, entry); err != nil {
		h.logger.Warn("checkout ledger write failed", "error", err, "ledger_key", entry.LookupKey())
	}
}

func (h *Handoff) observe(status string) {
	if h.recorder != nil {
		h.recorder.ObserveCheckout(status)
	}
}
