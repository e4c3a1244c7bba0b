// Package bookingapi talks to the remote booking-storage endpoint.
package bookingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/estetica-booking/pkg/logging"
)

var tracer = otel.Tracer("estetica.internal.bookingapi")

// duplicateMarkers are substrings the storage backend puts in its error text
// when a unique index on phone or email rejects the insert.
var duplicateMarkers = []string{"duplicate key error", "duplicate key email"}

// Record is the body posted to the storage endpoint. Field names follow the
// backend's schema; SelectedBodyParts is a JSON-encoded array.
type Record struct {
	Name              string `json:"name"`
	PhoneNumber       string `json:"phoneNumber"`
	Email             string `json:"email"`
	Gender            string `json:"gender"`
	PurchaseType      string `json:"purchaseType"`
	SelectedBodyParts string `json:"selectedBodyParts"`
	SelectedDate      string `json:"selectedDate"`
	Coupon            string `json:"coupon"`
	TotalPrice        int    `json:"totalPrice"`
}

// APIError is a non-2xx answer from the storage endpoint. Message holds the
// "error" field of a JSON body; Body holds the raw text otherwise.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.Body
	}
	if detail == "" {
		return fmt.Sprintf("bookingapi: status %d", e.StatusCode)
	}
	return fmt.Sprintf("bookingapi: status %d: %s", e.StatusCode, detail)
}

// IsDuplicate reports whether the backend rejected the record because the
// phone number or email already exists.
func (e *APIError) IsDuplicate() bool {
	for _, marker := range duplicateMarkers {
		if strings.Contains(e.Message, marker) {
			return true
		}
	}
	return false
}

// IsDuplicate unwraps err and reports whether it is a uniqueness conflict.
func IsDuplicate(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsDuplicate()
}

// LatencyObserver receives the duration of each upstream call.
type LatencyObserver interface {
	ObserveUpstream(endpoint, status string, seconds float64)
}

// Client posts booking records.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
	observer   LatencyObserver
}

// NewClient creates a client for the storage endpoint at url.
func NewClient(url string, timeout time.Duration, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// WithHTTPClient swaps the transport (for testing).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithObserver attaches a latency observer.
func (c *Client) WithObserver(o LatencyObserver) *Client {
	c.observer = o
	return c
}

// Save sends one record. A non-2xx status is returned as *APIError.
func (c *Client) Save(ctx context.Context, rec Record) error {
	ctx, span := tracer.Start(ctx, "bookingapi.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.purchase_type", rec.PurchaseType),
		attribute.Int("booking.total_price", rec.TotalPrice),
	)

	if c.url == "" {
		return fmt.Errorf("bookingapi: storage url not configured")
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("bookingapi: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bookingapi: request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("transport_error", start)
		span.RecordError(err)
		return fmt.Errorf("bookingapi: http: %w", err)
	}
	defer resp.Body.Close()
	c.observe(fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := readAPIError(resp)
		span.RecordError(apiErr)
		return apiErr
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream("booking_store", status, time.Since(start).Seconds())
}

func readAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		return apiErr
	}
	apiErr.Body = strings.TrimSpace(string(data))
	return apiErr
}
