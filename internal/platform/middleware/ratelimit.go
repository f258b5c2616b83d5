package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// clientCredit is one client's remaining request allowance. Credit refills
// continuously at the configured rate up to the burst size, and each request
// spends one unit.
type clientCredit struct {
	credit float64
	seen   time.Time
}

// creditLedger tracks allowances per client key. A zero ledger is not usable,
// construct it through newCreditLedger.
type creditLedger struct {
	mu      sync.Mutex
	clients map[string]*clientCredit
	cfg     RateLimitConfig
	now     func() time.Time
}

func newCreditLedger(cfg RateLimitConfig) *creditLedger {
	return &creditLedger{
		clients: make(map[string]*clientCredit),
		cfg:     cfg,
		now:     time.Now,
	}
}

// take spends one unit of the key's credit. When the credit is exhausted it
// returns false along with the whole seconds to wait before a retry can
// succeed, never less than one.
func (l *creditLedger) take(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cl, ok := l.clients[key]
	if !ok {
		cl = &clientCredit{credit: float64(l.cfg.BurstSize), seen: now}
		l.clients[key] = cl
	}

	cl.credit += now.Sub(cl.seen).Seconds() * l.cfg.RequestsPerSecond
	if max := float64(l.cfg.BurstSize); cl.credit > max {
		cl.credit = max
	}
	cl.seen = now

	if cl.credit >= 1 {
		cl.credit--
		return true, 0
	}
	if l.cfg.RequestsPerSecond <= 0 {
		return false, 1
	}
	return false, int((1-cl.credit)/l.cfg.RequestsPerSecond) + 1
}

// RateLimit returns a per-client-IP rate limiting middleware.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	ledger := newCreditLedger(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-RateLimit-Limit", limit)

			ok, wait := ledger.take(c.RealIP())
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(wait))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
