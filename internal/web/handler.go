// Package web serves the booking form, its JSON endpoints and the payment
// confirmation page.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/internal/payments"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// SessionCookie carries the booking session id.
const SessionCookie = "booking_session"

// Checkouter opens checkout hand-offs and looks them up.
type Checkouter interface {
	Checkout(ctx context.Context, draft booking.Draft) (*payments.CheckoutOptions, error)
	Lookup(ctx context.Context, orderID string) (*payments.LedgerEntry, error)
}

// Handler serves the booking pages and endpoints.
type Handler struct {
	registry     *Registry
	catalog      *catalog.Catalog
	checkout     Checkouter
	logger       *logging.Logger
	secureCookie bool
}

func NewHandler(registry *Registry, cat *catalog.Catalog, checkout Checkouter, logger *logging.Logger) *Handler {
	if registry == nil || cat == nil || checkout == nil {
		panic("web: registry, catalog and checkout are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		registry: registry,
		catalog:  cat,
		checkout: checkout,
		logger:   logger,
	}
}

// WithSecureCookie marks the session cookie Secure (HTTPS deployments).
func (h *Handler) WithSecureCookie(secure bool) *Handler {
	h.secureCookie = secure
	return h
}

// Routes returns the booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.BookingPage)
	r.Get("/paymentsuccess", h.ConfirmationPage)
	r.Route("/booking", func(r chi.Router) {
		r.Get("/state", h.State)
		r.Get("/price", h.Price)
		r.Post("/draft", h.UpdateDraft)
		r.Post("/parts/{part}/toggle", h.TogglePart)
		r.Post("/submit", h.Submit)
		r.Post("/checkout", h.Checkout)
	})
	r.Get("/api/checkout/orders/{orderID}", h.GetOrder)
	return r
}

// PartOption is one selectable part with its unit price.
type PartOption struct {
	ID       catalog.PartID `json:"id"`
	Label    string         `json:"label"`
	Price    int            `json:"price"`
	Selected bool           `json:"selected"`
}

// StateResponse is the JSON view of a form.
type StateResponse struct {
	Draft   booking.Draft   `json:"draft"`
	State   booking.State   `json:"state"`
	Outcome booking.Outcome `json:"outcome"`
	Message string          `json:"message,omitempty"`
	Total   int             `json:"total"`
	Parts   []PartOption    `json:"parts"`
}

// SubmitResponse is returned by the submit endpoint.
type SubmitResponse struct {
	Outcome booking.Outcome `json:"outcome"`
	Message string          `json:"message"`
	Kind    string          `json:"kind,omitempty"`
	Field   string          `json:"field,omitempty"`
}

type draftUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// State handles GET /booking/state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(form.Snapshot()))
}

// Price handles GET /booking/price.
func (h *Handler) Price(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": form.Snapshot().Total})
}

// UpdateDraft handles POST /booking/draft.
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	var req draftUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	snap, err := form.Set(strings.TrimSpace(req.Field), req.Value)
	if err != nil {
		h.writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(snap))
}

// TogglePart handles POST /booking/parts/{part}/toggle.
func (h *Handler) TogglePart(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	part := catalog.PartID(chi.URLParam(r, "part"))
	snap, err := form.TogglePart(part)
	if err != nil {
		h.writeFormError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.stateOf(snap))
}

// Submit handles POST /booking/submit.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	res, err := form.Submit(r.Context())
	if err != nil {
		var vErr *booking.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeJSON(w, http.StatusUnprocessableEntity, SubmitResponse{
				Outcome: booking.OutcomeError,
				Message: vErr.Message(),
				Kind:    string(vErr.Kind),
				Field:   vErr.Field,
			})
		case errors.Is(err, booking.ErrSubmitInFlight):
			writeJSON(w, http.StatusConflict, SubmitResponse{
				Outcome: booking.OutcomeError,
				Message: "A submission is already in progress.",
				Kind:    "submit_in_flight",
			})
		default:
			h.writeFormError(w, err)
		}
		return
	}

	status := http.StatusOK
	switch res.Failure {
	case booking.FailureDuplicate:
		status = http.StatusConflict
	case booking.FailureTransport:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, SubmitResponse{
		Outcome: res.Outcome,
		Message: res.Message,
		Kind:    string(res.Failure),
	})
}

// Checkout handles POST /booking/checkout. It uses the draft as it stands
// and does not wait for, or depend on, a submission. Closing the form
// cancels the provider calls.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	form, ok := h.form(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(form.Context(), cancel)
	defer stop()

	opts, err := h.checkout.Checkout(ctx, form.Snapshot().Draft)
	if err != nil {
		if errors.Is(err, payments.ErrEmptyOrder) {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "select at least one treatment"})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "payment checkout unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GetOrder handles GET /api/checkout/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	entry, err := h.checkout.Lookup(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, payments.ErrLedgerNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
			return
		}
		h.logger.Error("checkout ledger lookup failed", "error", err, "order_id", orderID)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "ledger unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// form resolves the session's form, creating a session when the cookie is
// missing or stale. It writes the error response itself when it fails.
func (h *Handler) form(w http.ResponseWriter, r *http.Request) (*booking.Form, bool) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if form, ok := h.registry.Get(c.Value); ok {
			return form, true
		}
	}
	id, form, err := h.registry.Create()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service shutting down"})
		return nil, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return form, true
}

func (h *Handler) writeFormError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrUnknownField), errors.Is(err, booking.ErrPartNotOffered):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, booking.ErrClosed):
		writeJSON(w, http.StatusGone, errorResponse{Error: "session expired, reload the page"})
	default:
		h.logger.Error("booking form error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (h *Handler) stateOf(snap booking.Snapshot) StateResponse {
	return StateResponse{
		Draft:   snap.Draft,
		State:   snap.State,
		Outcome: snap.Outcome,
		Message: snap.Message,
		Total:   snap.Total,
		Parts:   h.partOptions(snap.Draft),
	}
}

func (h *Handler) partOptions(d booking.Draft) []PartOption {
	available := h.catalog.AvailableParts(d.Category, d.Tier)
	opts := make([]PartOption, 0, len(available))
	for _, part := range available {
		price, _ := h.catalog.UnitPrice(d.Tier, part)
		opts = append(opts, PartOption{ID: part, Label: partLabel(part), Price: price, Selected: d.HasPart(part)})
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
