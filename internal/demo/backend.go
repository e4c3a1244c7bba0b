// Package demo is a local stand-in for the booking-storage service and the
// payment backend, for development without either.
package demo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// Backend keeps stored bookings in memory and enforces the same unique
// phone and email indexes as the real store.
type Backend struct {
	logger *logging.Logger
	key    string

	mu       sync.Mutex
	bookings []bookingapi.Record
	phones   map[string]struct{}
	emails   map[string]struct{}
}

func NewBackend(logger *logging.Logger) *Backend {
	if logger == nil {
		logger = logging.Default()
	}
	return &Backend{
		logger: logger,
		key:    "rzp_test_demo",
		phones: make(map[string]struct{}),
		emails: make(map[string]struct{}),
	}
}

// Routes serves the storage endpoint and the key/order endpoints.
func (b *Backend) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/user-details-bookform", b.HandleStore)
	r.Get("/api/getkey", b.HandleKey)
	r.Post("/api/checkout", b.HandleOrder)
	return r
}

// Bookings returns a copy of what has been stored.
func (b *Backend) Bookings() []bookingapi.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bookingapi.Record(nil), b.bookings...)
}

func (b *Backend) HandleStore(w http.ResponseWriter, r *http.Request) {
	var rec bookingapi.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	phone := strings.TrimSpace(rec.PhoneNumber)
	email := strings.ToLower(strings.TrimSpace(rec.Email))

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.phones[phone]; dup {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("E11000 duplicate key error collection: bookings index: phoneNumber_1 dup key: { phoneNumber: %q }", phone),
		})
		return
	}
	if _, dup := b.emails[email]; dup {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": fmt.Sprintf("E11000 duplicate key email: %q", email),
		})
		return
	}
	b.phones[phone] = struct{}{}
	b.emails[email] = struct{}{}
	b.bookings = append(b.bookings, rec)
	b.logger.Info("demo booking stored", "purchase_type", rec.PurchaseType, "total_price", rec.TotalPrice)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

func (b *Backend) HandleKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"key": b.key})
}

// HandleOrder opens an order in the smallest currency unit, as the real
// backend does.
func (b *Backend) HandleOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount required"})
		return
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order": map[string]any{
			"id":         "order_demo" + id,
			"entity":     "order",
			"amount":     int64(req.Amount * 100),
			"currency":   "INR",
			"status":     "created",
			"created_at": time.Now().Unix(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
