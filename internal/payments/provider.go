// Package payments hands a priced booking off to the Razorpay checkout overlay
// and keeps a ledger of every hand-off attempt.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/estetica-booking/pkg/logging"
)

var tracer = otel.Tracer("estetica.internal.payments")

// Order is the provider order returned by the order endpoint. Amount is in
// the smallest currency unit.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Provider fetches the publishable key and creates orders.
type Provider interface {
	GetKey(ctx context.Context) (string, error)
	CreateOrder(ctx context.Context, amount int) (*Order, error)
}

// LatencyObserver receives the duration of each upstream call.
type LatencyObserver interface {
	ObserveUpstream(endpoint, status string, seconds float64)
}

// ProviderError is a non-2xx answer from a payment endpoint.
type ProviderError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("payments: %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("payments: %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// ProviderClient calls the key and order endpoints of the payment backend.
type ProviderClient struct {
	baseURL    string
	keyPath    string
	orderPath  string
	httpClient *http.Client
	logger     *logging.Logger
	observer   LatencyObserver
}

// NewProviderClient creates a client rooted at baseURL.
func NewProviderClient(baseURL, keyPath, orderPath string, timeout time.Duration, logger *logging.Logger) *ProviderClient {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if keyPath == "" {
		keyPath = "/api/getkey"
	}
	if orderPath == "" {
		orderPath = "/api/checkout"
	}
	return &ProviderClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		keyPath:    "/" + strings.TrimLeft(keyPath, "/"),
		orderPath:  "/" + strings.TrimLeft(orderPath, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithHTTPClient swaps the transport (for testing).
func (c *ProviderClient) WithHTTPClient(hc *http.Client) *ProviderClient {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithObserver attaches a latency observer.
func (c *ProviderClient) WithObserver(o LatencyObserver) *ProviderClient {
	c.observer = o
	return c
}

// GetKey fetches the publishable checkout key.
func (c *ProviderClient) GetKey(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "payments.get_key")
	defer span.End()

	var payload struct {
		Key string `json:"key"`
	}
	if err := c.do(ctx, "payment_key", http.MethodGet, c.keyPath, nil, &payload); err != nil {
		span.RecordError(err)
		return "", err
	}
	if strings.TrimSpace(payload.Key) == "" {
		return "", fmt.Errorf("payments: payment_key: empty key in response")
	}
	return payload.Key, nil
}

// CreateOrder asks the backend to open an order for amount.
func (c *ProviderClient) CreateOrder(ctx context.Context, amount int) (*Order, error) {
	ctx, span := tracer.Start(ctx, "payments.create_order")
	defer span.End()
	span.SetAttributes(attribute.Int("payments.amount", amount))

	body, err := json.Marshal(map[string]int{"amount": amount})
	if err != nil {
		return nil, fmt.Errorf("payments: encode order: %w", err)
	}
	var payload struct {
		Order *Order `json:"order"`
	}
	if err := c.do(ctx, "payment_order", http.MethodPost, c.orderPath, body, &payload); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if payload.Order == nil || payload.Order.ID == "" {
		return nil, fmt.Errorf("payments: payment_order: missing order id in response")
	}
	span.SetAttributes(attribute.String("payments.order_id", payload.Order.ID))
	return payload.Order, nil
}

func (c *ProviderClient) do(ctx context.Context, endpoint, method, path string, body []byte, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("payments: %s: base url not configured", endpoint)
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("payments: %s: request build: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		return fmt.Errorf("payments: %s: http: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return &ProviderError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: %s: decode: %w", endpoint, err)
	}
	return nil
}

func (c *ProviderClient) observe(endpoint, status string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(endpoint, status, time.Since(start).Seconds())
}

// DryRunProvider answers without calling any backend. It must stay gated
// behind PAYMENT_DRY_RUN.
type DryRunProvider struct {
	Currency string
}

// GetKey returns a placeholder test key.
func (DryRunProvider) GetKey(ctx context.Context) (string, error) {
	_ = ctx
	return "rzp_test_dryrun", nil
}

// CreateOrder fabricates an order in the smallest currency unit.
func (p DryRunProvider) CreateOrder(ctx context.Context, amount int) (*Order, error) {
	_ = ctx
	currency := p.Currency
	if currency == "" {
		currency = "INR"
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	return &Order{
		ID:       "order_dry" + id,
		Amount:   int64(amount) * 100,
		Currency: currency,
		Status:   "created",
	}, nil
}
