package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/internal/bookingapi"
	"github.com/wolfman30/estetica-booking/internal/catalog"
	"github.com/wolfman30/estetica-booking/internal/demo"
	httpmiddleware "github.com/wolfman30/estetica-booking/internal/http/middleware"
	"github.com/wolfman30/estetica-booking/internal/observability/metrics"
	"github.com/wolfman30/estetica-booking/internal/payments"
	"github.com/wolfman30/estetica-booking/internal/web"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

type okStore struct{}

func (okStore) Save(ctx context.Context, rec bookingapi.Record) error { return nil }

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) (http.Handler, *metrics.BookingMetrics) {
	t.Helper()

	logger := logging.New("error")
	reg := prometheus.NewRegistry()
	m := metrics.NewBookingMetrics(reg)
	cat := catalog.Default(catalog.DefaultCoupons())

	registry := web.NewRegistry(func() *booking.Form {
		return booking.NewForm(booking.FormConfig{
			Catalog:  cat,
			Store:    okStore{},
			Recorder: m,
			Logger:   logger,
		})
	}, 0, logger)
	t.Cleanup(registry.Close)

	handoff := payments.NewHandoff(payments.HandoffConfig{
		Catalog:  cat,
		Provider: payments.DryRunProvider{},
		Recorder: m,
		Logger:   logger,
	})

	return New(&Config{
		Logger:         logger,
		Booking:        web.NewHandler(registry, cat, handoff, logger),
		RateLimiter:    limiter,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}), m
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestRouterServesBookingPages(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for _, path := range []string{"/", "/paymentsuccess?reference=abc"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestRouterExposesMetrics(t *testing.T) {
	router, m := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/booking/submit", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	m.ObserveSubmission("success")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `estetica_booking_submissions_total{outcome="success"} 1`)
}

func TestRouterRateLimitsPosts(t *testing.T) {
	router, _ := newTestRouter(t, httpmiddleware.NewRateLimiter(0.001, 1))

	send := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "198.51.100.4:4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusUnprocessableEntity, send(http.MethodPost, "/booking/checkout"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/booking/checkout"))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost, "/booking/submit"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/health"))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/booking/price"))
}

func TestRouterDraftSyncDoesNotStarveSubmit(t *testing.T) {
	router, _ := newTestRouter(t, httpmiddleware.NewRateLimiter(5, 10))

	var cookie *http.Cookie
	post := func(path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(http.MethodPost, path, nil)
		} else {
			req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		req.RemoteAddr = "198.51.100.9:4000"
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		for _, c := range rr.Result().Cookies() {
			if c.Name == web.SessionCookie {
				cookie = c
			}
		}
		return rr
	}
	set := func(field, value string) int {
		body, err := json.Marshal(map[string]string{"field": field, "value": value})
		require.NoError(t, err)
		return post("/booking/draft", string(body)).Code
	}

	// one draft sync per keystroke, then the change event on blur
	email := "ayan.khan@example.com"
	for i := 1; i <= len(email); i++ {
		require.Equal(t, http.StatusOK, set("email", email[:i]), "keystroke %d", i)
	}
	require.Equal(t, http.StatusOK, set("email", email))

	for field, value := range map[string]string{
		"name":         "Ayan Khan",
		"phoneNumber":  "9876543210",
		"selectedDate": "2026-11-02",
	} {
		require.Equal(t, http.StatusOK, set(field, value))
	}
	require.Equal(t, http.StatusOK, post("/booking/parts/chin/toggle", "").Code)

	rr := post("/booking/checkout", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = post("/booking/submit", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res web.SubmitResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, booking.OutcomeSuccess, res.Outcome)
}

func TestRouterMountsDemoBackend(t *testing.T) {
	router := New(&Config{DemoBackend: demo.NewBackend(logging.New("error"))})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/demo/api/getkey", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "rzp_test_demo")

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
