package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/internal/payments"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

type scriptedStore struct {
	mu      sync.Mutex
	err     error
	records []bookingapi.Record
}

func (s *scriptedStore) Save(ctx context.Context, rec bookingapi.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

type stubCheckout struct {
	drafts []booking.Draft
	err    error
	ledger map[string]*payments.LedgerEntry
}

func (s *stubCheckout) Checkout(ctx context.Context, draft booking.Draft) (*payments.CheckoutOptions, error) {
	s.drafts = append(s.drafts, draft)
	if s.err != nil {
		return nil, s.err
	}
	return &payments.CheckoutOptions{Key: "rzp_test", OrderID: "order_1", Amount: 300000, Currency: "INR"}, nil
}

func (s *stubCheckout) Lookup(ctx context.Context, orderID string) (*payments.LedgerEntry, error) {
	if entry, ok := s.ledger[orderID]; ok {
		return entry, nil
	}
	return nil, payments.ErrLedgerNotFound
}

type harness struct {
	t        *testing.T
	server   http.Handler
	store    *scriptedStore
	checkout *stubCheckout
	registry *Registry
	cookie   *http.Cookie
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := &scriptedStore{}
	checkout := &stubCheckout{ledger: map[string]*payments.LedgerEntry{}}
	reg := NewRegistry(testFormFactory(store), 0, nil)
	t.Cleanup(reg.Close)
	h := NewHandler(reg, catalog.Default(catalog.DefaultCoupons()), checkout, logging.New("error"))
	return &harness{t: t, server: h.Routes(), store: store, checkout: checkout, registry: reg}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) set(field, value string) StateResponse {
	h.t.Helper()
	body, _ := json.Marshal(draftUpdateRequest{Field: field, Value: value})
	rec := h.do(http.MethodPost, "/booking/draft", string(body))
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	var state StateResponse
	require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}

func (h *harness) fill() {
	h.t.Helper()
	h.set("name", "Asha Rao")
	h.set("phoneNumber", "9876543210")
	h.set("email", "asha@example.com")
	h.set("selectedDate", "2026-11-02")
	rec := h.do(http.MethodPost, "/booking/parts/chin/toggle", "")
	require.Equal(h.t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, "/booking/parts/underarms/toggle", "")
	require.Equal(h.t, http.StatusOK, rec.Code)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestBookingPageSetsSessionCookie(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.NotNil(t, h.cookie)
	assert.True(t, h.cookie.HttpOnly)
	body := rec.Body.String()
	assert.Contains(t, body, "Book Your Appointment")
	assert.Contains(t, body, "checkout.razorpay.com")
	assert.Contains(t, body, `value="chin"`)
	assert.NotContains(t, body, `value="full"`)

	first := h.cookie.Value
	h.do(http.MethodGet, "/", "")
	assert.Equal(t, first, h.cookie.Value, "existing session is reused")
}

func TestStaleCookieGetsNewSession(t *testing.T) {
	h := newHarness(t)
	h.cookie = &http.Cookie{Name: SessionCookie, Value: "expired"}
	rec := h.do(http.MethodGet, "/booking/state", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "expired", h.cookie.Value)
}

func TestDraftUpdatesLiveTotal(t *testing.T) {
	h := newHarness(t)
	h.fill()

	price := decode[map[string]int](t, h.do(http.MethodGet, "/booking/price", ""))
	assert.Equal(t, 4000, price["total"])

	state := h.set("coupon", "SNYLLO25")
	assert.Equal(t, 3000, state.Total)

	state = h.set("purchaseType", "permanent")
	assert.Equal(t, catalog.TierPackage, state.Draft.Tier)
	assert.Empty(t, state.Draft.Parts)
	assert.Zero(t, state.Total)
	require.Len(t, state.Parts, 6)
	assert.Equal(t, PartOption{ID: "full", Label: "Full Body", Price: 11000}, state.Parts[0])
}

func TestPartLabelsMatchRenderedPage(t *testing.T) {
	h := newHarness(t)
	page := h.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, page.Code)

	state := decode[StateResponse](t, h.do(http.MethodGet, "/booking/state", ""))
	require.NotEmpty(t, state.Parts)
	for _, p := range state.Parts {
		assert.NotEqual(t, string(p.ID), p.Label)
		assert.Contains(t, page.Body.String(), p.Label)
	}
	assert.Equal(t, "Upper Lip", state.Parts[1].Label)
}

func TestDraftRejectsUnknownField(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/booking/draft", `{"field":"nickname","value":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/booking/draft", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToggleRejectsUnofferedPart(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodPost, "/booking/parts/legs/toggle", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitSuccess(t *testing.T) {
	h := newHarness(t)
	h.fill()

	rec := h.do(http.MethodPost, "/booking/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SubmitResponse](t, rec)
	assert.Equal(t, booking.OutcomeSuccess, resp.Outcome)
	assert.Equal(t, booking.MessageSuccess, resp.Message)

	require.Len(t, h.store.records, 1)
	assert.Equal(t, 4000, h.store.records[0].TotalPrice)

	state := decode[StateResponse](t, h.do(http.MethodGet, "/booking/state", ""))
	assert.True(t, state.Draft.IsEmpty())
	assert.Equal(t, booking.OutcomeSuccess, state.Outcome)
}

func TestSubmitValidationFailure(t *testing.T) {
	h := newHarness(t)
	h.fill()
	h.set("email", "asha@example")

	rec := h.do(http.MethodPost, "/booking/submit", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[SubmitResponse](t, rec)
	assert.Equal(t, string(booking.InvalidEmail), resp.Kind)
	assert.Equal(t, "email", resp.Field)
	assert.Equal(t, "Please enter a valid email address", resp.Message)
	assert.Empty(t, h.store.records)
}

func TestSubmitDuplicateConflict(t *testing.T) {
	h := newHarness(t)
	h.store.err = &bookingapi.APIError{StatusCode: 500, Message: "E11000 duplicate key error collection"}
	h.fill()

	rec := h.do(http.MethodPost, "/booking/submit", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[SubmitResponse](t, rec)
	assert.Equal(t, booking.OutcomeError, resp.Outcome)
	assert.Equal(t, booking.MessageDuplicate, resp.Message)

	state := decode[StateResponse](t, h.do(http.MethodGet, "/booking/state", ""))
	assert.Equal(t, "Asha Rao", state.Draft.Name)
}

func TestSubmitTransportFailure(t *testing.T) {
	h := newHarness(t)
	h.store.err = errors.New("dial tcp: connection refused")
	h.fill()

	rec := h.do(http.MethodPost, "/booking/submit", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, booking.MessageRetry, decode[SubmitResponse](t, rec).Message)
}

func TestCheckoutUsesCurrentDraft(t *testing.T) {
	h := newHarness(t)
	h.fill()

	rec := h.do(http.MethodPost, "/booking/checkout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	opts := decode[payments.CheckoutOptions](t, rec)
	assert.Equal(t, "order_1", opts.OrderID)

	require.Len(t, h.checkout.drafts, 1)
	assert.Equal(t, []catalog.PartID{"chin", "underarms"}, h.checkout.drafts[0].Parts)
}

func TestCheckoutErrors(t *testing.T) {
	h := newHarness(t)
	h.checkout.err = payments.ErrEmptyOrder
	assert.Equal(t, http.StatusUnprocessableEntity, h.do(http.MethodPost, "/booking/checkout", "").Code)

	h.checkout.err = errors.New("payments: get key: boom")
	assert.Equal(t, http.StatusBadGateway, h.do(http.MethodPost, "/booking/checkout", "").Code)
}

// hangingCheckout blocks until its context ends.
type hangingCheckout struct {
	stubCheckout
	started chan struct{}
	ctxErr  chan error
}

func (s *hangingCheckout) Checkout(ctx context.Context, draft booking.Draft) (*payments.CheckoutOptions, error) {
	close(s.started)
	<-ctx.Done()
	s.ctxErr <- ctx.Err()
	return nil, fmt.Errorf("payments: get key: %w", ctx.Err())
}

func TestCheckoutCancelledWhenFormCloses(t *testing.T) {
	h := newHarness(t)
	hanging := &hangingCheckout{started: make(chan struct{}), ctxErr: make(chan error, 1)}
	handler := NewHandler(h.registry, catalog.Default(catalog.DefaultCoupons()), hanging, logging.New("error"))
	h.server = handler.Routes()
	h.fill()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/booking/checkout", nil)
		req.AddCookie(h.cookie)
		rec := httptest.NewRecorder()
		h.server.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case <-hanging.started:
	case <-time.After(2 * time.Second):
		t.Fatal("checkout never reached the provider")
	}
	h.registry.Close()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("checkout was not cancelled by closing the form")
	}
	assert.ErrorIs(t, <-hanging.ctxErr, context.Canceled)
}

func TestGetOrder(t *testing.T) {
	h := newHarness(t)
	h.checkout.ledger["order_1"] = &payments.LedgerEntry{OrderID: "order_1", Status: payments.StatusOrderCreated, Amount: 3000}

	rec := h.do(http.MethodGet, "/api/checkout/orders/order_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[payments.LedgerEntry](t, rec)
	assert.Equal(t, payments.StatusOrderCreated, entry.Status)

	rec = h.do(http.MethodGet, "/api/checkout/orders/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmationPage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/paymentsuccess?reference=pay_Ab12", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Order Successfull")
	assert.Contains(t, body, "Reference No.pay_Ab12")
	assert.Contains(t, body, "Your payment has been processed successfully.")

	rec = h.do(http.MethodGet, "/paymentsuccess", "")
	assert.Contains(t, rec.Body.String(), "Reference No.</p>")
}

func TestConfirmationPageEscapesReference(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/paymentsuccess?reference=%3Cscript%3E", "")
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}
