package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procurehub/portal/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window request counter keyed by client IP. The
// portal only throttles the credential endpoints, so the client map
// stays small and is pruned inline instead of by a background goroutine.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateWindow
	limit   int
	window  time.Duration

	now func() time.Time
}

type rateWindow struct {
	tokens  int
	started time.Time
}

// NewRateLimiter allows limit requests per key per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow reports whether a request from key fits in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.prune(now)

	w, ok := rl.clients[key]
	if !ok || now.Sub(w.started) >= rl.window {
		rl.clients[key] = &rateWindow{tokens: rl.limit - 1, started: now}
		return true
	}
	if w.tokens > 0 {
		w.tokens--
		return true
	}
	return false
}

// Remaining returns how many requests key has left in its window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.clients[key]
	if !ok || rl.now().Sub(w.started) >= rl.window {
		return rl.limit
	}
	return w.tokens
}

func (rl *RateLimiter) prune(now time.Time) {
	for key, w := range rl.clients {
		if now.Sub(w.started) >= 2*rl.window {
			delete(rl.clients, key)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429. Meant
// for the login and refresh routes, where it slows credential stuffing.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(dto.GetHTTPStatus(dto.ErrCodeRateLimited), dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many attempts. Please try again later.",
			))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		c.Next()
	}
}
