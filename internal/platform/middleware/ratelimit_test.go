package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimit_RequestsWithinBurst(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5}

	e := echo.New()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want \"10\"", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsBurst(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2}

	e := echo.New()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i+1, err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))
	if err == nil {
		t.Fatal("third request: expected rate limit error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", httpErr.Code)
	}
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}

	e := echo.New()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err == nil {
		t.Fatal("second request: expected rate limit error")
	}

	retryAfter := rec.Header().Get("Retry-After")
	if retryAfter == "" {
		t.Fatal("Retry-After header not set")
	}
	wait, err := strconv.Atoi(retryAfter)
	if err != nil {
		t.Fatalf("Retry-After %q is not an integer", retryAfter)
	}
	if wait < 1 {
		t.Errorf("Retry-After = %d, want >= 1", wait)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want \"0\"", got)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}

	e := echo.New()
	handler := RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	send := func(ip string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-Ip", ip)
		rec := httptest.NewRecorder()
		return handler(e.NewContext(req, rec))
	}

	if err := send("10.0.0.1"); err != nil {
		t.Fatalf("first client, first request: unexpected error: %v", err)
	}
	if err := send("10.0.0.1"); err == nil {
		t.Fatal("first client, second request: expected rate limit error")
	}
	if err := send("10.0.0.2"); err != nil {
		t.Fatalf("second client: unexpected error: %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 {
		t.Errorf("RequestsPerSecond = %f, want 100", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize != 200 {
		t.Errorf("BurstSize = %d, want 200", cfg.BurstSize)
	}
}

func TestCreditLedger_RefillsOverTime(t *testing.T) {
	ledger := newCreditLedger(RateLimitConfig{RequestsPerSecond: 2, BurstSize: 1})
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return clock }

	if ok, _ := ledger.take("c"); !ok {
		t.Fatal("first take should succeed")
	}
	if ok, wait := ledger.take("c"); ok {
		t.Fatal("second take should fail with no elapsed time")
	} else if wait < 1 {
		t.Errorf("wait = %d, want >= 1", wait)
	}

	// Half a second at 2 req/s refills a full unit of credit.
	clock = clock.Add(500 * time.Millisecond)
	if ok, _ := ledger.take("c"); !ok {
		t.Error("take after refill should succeed")
	}
}

func TestCreditLedger_CreditCapsAtBurst(t *testing.T) {
	ledger := newCreditLedger(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 2})
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return clock }

	if ok, _ := ledger.take("c"); !ok {
		t.Fatal("first take should succeed")
	}

	// A long idle period must not accumulate credit beyond the burst size.
	clock = clock.Add(time.Hour)
	for i := 0; i < 2; i++ {
		if ok, _ := ledger.take("c"); !ok {
			t.Fatalf("take %d after idle: should succeed", i+1)
		}
	}
	if ok, _ := ledger.take("c"); ok {
		t.Error("take beyond burst size should fail")
	}
}

func TestCreditLedger_ZeroRateNeverRefills(t *testing.T) {
	ledger := newCreditLedger(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})

	if ok, _ := ledger.take("c"); !ok {
		t.Fatal("first take should consume the initial burst")
	}
	ok, wait := ledger.take("c")
	if ok {
		t.Fatal("take with zero rate and no credit should fail")
	}
	if wait != 1 {
		t.Errorf("wait = %d, want 1", wait)
	}
}
