package middleware

import (
	"net/http"
	"sync"
	"time"

	"fastclick/internal/apierror"

	"github.com/gin-gonic/gin"
)

// ── Fixed-window limiter ──────────────────────────────────────────────────────

type window struct {
	count int
	ends  time.Time
}

// Limiter allows limit requests per key per window.
type Limiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
	calls   int
}

func NewLimiter(limit int, period time.Duration, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{limit: limit, period: period, now: now, windows: map[string]*window{}}
}

// Allow records one request for key and reports whether it is within the
// limit. When it is not, the window end is returned.
func (l *Limiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%1024 == 0 {
		for k, w := range l.windows {
			if now.After(w.ends) {
				delete(l.windows, k)
			}
		}
	}

	w, ok := l.windows[key]
	if !ok || now.After(w.ends) {
		w = &window{ends: now.Add(l.period)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, w.ends
}

// Middleware limits by client IP.
func (l *Limiter) Middleware(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, ends := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", ends.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(message))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter allows 20 login attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return NewLimiter(20, time.Minute, nil).Middleware("too many login attempts, retry in a minute")
}

// RateLimiter is the general API limiter.
func RateLimiter(limit int, period time.Duration) gin.HandlerFunc {
	return NewLimiter(limit, period, nil).Middleware("too many requests, retry shortly")
}
