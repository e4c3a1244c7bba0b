// Package main runs end-to-end checks of the booking flow against a running
// server.
//
// Scenarios cover:
//   - Happy-path booking with checkout and submission
//   - Coupon pricing
//   - Validation failures
//   - Duplicate submissions
//   - Empty-order checkout rejection
//   - Confirmation page rendering
//
// The server must be started with DEMO_BACKEND=true and the storage and
// payment endpoints pointed at its /demo mount, for example:
//
//	DEMO_BACKEND=true \
//	BOOKING_STORE_URL=http://localhost:8080/demo/user-details-bookform \
//	PAYMENT_API_BASE_URL=http://localhost:8080/demo go run ./cmd/api
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go happy-path   # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

var apiBase string

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Session helpers
// ---------------------------------------------------------------------------

// session is one browser: a cookie jar bound to a single booking form.
type session struct {
	client *http.Client
}

func newSession() *session {
	jar, _ := cookiejar.New(nil)
	return &session{client: &http.Client{Jar: jar, Timeout: 15 * time.Second}}
}

func (s *session) do(method, path string, body interface{}) (int, map[string]interface{}, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			return resp.StatusCode, nil, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, out, nil
}

func (s *session) page(path string) (int, string, error) {
	resp, err := s.client.Get(apiBase + path)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw), err
}

func (s *session) set(field, value string) (int, map[string]interface{}, error) {
	return s.do(http.MethodPost, "/booking/draft", map[string]string{"field": field, "value": value})
}

func (s *session) toggle(part string) (int, map[string]interface{}, error) {
	return s.do(http.MethodPost, "/booking/parts/"+url.PathEscape(part)+"/toggle", nil)
}

// fill populates a complete women/trial draft with a contact unique to this run.
func (s *session) fill(t *T, parts ...string) bool {
	suffix := time.Now().UnixNano() % 10000000
	fields := [][2]string{
		{"name", "Asha Rao"},
		{"phoneNumber", fmt.Sprintf("987%07d", suffix)},
		{"email", fmt.Sprintf("asha+%d@example.com", suffix)},
		{"gender", "women"},
		{"purchaseType", "trial"},
		{"selectedDate", time.Now().AddDate(0, 0, 7).Format("2006-01-02")},
	}
	for _, f := range fields {
		code, _, err := s.set(f[0], f[1])
		if err != nil || code != http.StatusOK {
			t.fatalf("set %s: status=%d err=%v", f[0], code, err)
			return false
		}
	}
	for _, p := range parts {
		code, _, err := s.toggle(p)
		if err != nil || code != http.StatusOK {
			t.fatalf("toggle %s: status=%d err=%v", p, code, err)
			return false
		}
	}
	return true
}

func total(body map[string]interface{}) int {
	v, _ := body["total"].(float64)
	return int(v)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHappyPath(t *T) {
	s := newSession()
	if code, _, err := s.page("/"); err != nil || code != http.StatusOK {
		t.fatalf("booking page: status=%d err=%v", code, err)
		return
	}
	if !s.fill(t, "chin", "underarms") {
		return
	}

	code, opts, err := s.do(http.MethodPost, "/booking/checkout", nil)
	if err != nil {
		t.fatalf("checkout: %v", err)
		return
	}
	t.check("checkout returns 200", code == http.StatusOK)
	orderID, _ := opts["order_id"].(string)
	t.check("checkout carries an order id", orderID != "")
	amount, _ := opts["amount"].(float64)
	t.check("order amount is total in paise", int64(amount) == 4000*100)
	t.check("checkout carries a key", opts["key"] != "")

	code, res, err := s.do(http.MethodPost, "/booking/submit", nil)
	if err != nil {
		t.fatalf("submit: %v", err)
		return
	}
	t.check("submit returns 200", code == http.StatusOK)
	t.check("submit outcome is success", res["outcome"] == "success")

	_, state, _ := s.do(http.MethodGet, "/booking/state", nil)
	t.check("draft is cleared after success", total(state) == 0)

	code, entry, err := s.do(http.MethodGet, "/api/checkout/orders/"+url.PathEscape(orderID), nil)
	t.check("ledger lookup returns 200", err == nil && code == http.StatusOK)
	t.check("ledger entry is order_created", entry["status"] == "order_created")
}

func scenarioCoupon(t *T) {
	s := newSession()
	if !s.fill(t, "chin", "upperlip") {
		return
	}
	_, body, _ := s.set("coupon", "SNYLLO25")
	t.check("25% coupon applied", total(body) == 3000)
	_, body, _ = s.set("coupon", "snyllo25")
	t.check("coupon codes are case-sensitive", total(body) == 4000)
	_, body, _ = s.set("coupon", "SNYLLO40")
	t.check("40% coupon applied", total(body) == 2400)
}

func scenarioValidation(t *T) {
	s := newSession()
	if !s.fill(t, "chin") {
		return
	}
	s.set("phoneNumber", "12345")
	code, res, err := s.do(http.MethodPost, "/booking/submit", nil)
	if err != nil {
		t.fatalf("submit: %v", err)
		return
	}
	t.check("invalid phone returns 422", code == http.StatusUnprocessableEntity)
	t.check("error names the phone field", res["field"] == "phoneNumber")

	s.set("phoneNumber", "")
	_, res, _ = s.do(http.MethodPost, "/booking/submit", nil)
	t.check("missing field reported as missing", res["kind"] == "required_field")
}

func scenarioDuplicate(t *T) {
	first := newSession()
	if !first.fill(t, "chin") {
		return
	}
	_, snap, _ := first.do(http.MethodGet, "/booking/state", nil)
	draft, _ := snap["draft"].(map[string]interface{})
	phone, _ := draft["phoneNumber"].(string)
	email, _ := draft["email"].(string)

	code, _, err := first.do(http.MethodPost, "/booking/submit", nil)
	if err != nil || code != http.StatusOK {
		t.fatalf("first submit: status=%d err=%v", code, err)
		return
	}

	second := newSession()
	if !second.fill(t, "upperlip") {
		return
	}
	second.set("phoneNumber", phone)
	second.set("email", email)
	code, res, err := second.do(http.MethodPost, "/booking/submit", nil)
	if err != nil {
		t.fatalf("second submit: %v", err)
		return
	}
	t.check("duplicate returns 409", code == http.StatusConflict)
	t.check("duplicate kind reported", res["kind"] == "duplicate_record")

	_, state, _ := second.do(http.MethodGet, "/booking/state", nil)
	t.check("draft kept after duplicate", total(state) == 2000)
}

func scenarioEmptyCheckout(t *T) {
	s := newSession()
	if !s.fill(t) {
		return
	}
	code, _, err := s.do(http.MethodPost, "/booking/checkout", nil)
	t.check("empty order checkout returns 422", err == nil && code == http.StatusUnprocessableEntity)
}

func scenarioConfirmation(t *T) {
	s := newSession()
	code, body, err := s.page("/paymentsuccess?reference=" + url.QueryEscape("pay_E2E<1>"))
	if err != nil {
		t.fatalf("confirmation page: %v", err)
		return
	}
	t.check("confirmation returns 200", code == http.StatusOK)
	t.check("reference is shown escaped", strings.Contains(body, "pay_E2E&lt;1&gt;"))
	t.check("success message shown", strings.Contains(body, "Your payment has been processed successfully."))
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"happy-path", scenarioHappyPath},
		{"coupon", scenarioCoupon},
		{"validation", scenarioValidation},
		{"duplicate", scenarioDuplicate},
		{"empty-checkout", scenarioEmptyCheckout},
		{"confirmation", scenarioConfirmation},
	}

	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "✅"
		if t.failed > 0 {
			status = "❌"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\n❌ SOME TESTS FAILED")
		os.Exit(1)
	}
	fmt.Println("\n✅ ALL TESTS PASSED")
}
