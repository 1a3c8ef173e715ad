package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jsonstash/jsonstash/pkg/metrics"
	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long an unused per-client limiter is kept.
const idleLimiterTTL = 10 * time.Minute

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// limiterStore holds one token bucket per client key.
type limiterStore struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	entries map[string]*limiterEntry
	lastGC  time.Time
}

func newLimiterStore(rps float64, burst int) *limiterStore {
	return &limiterStore{rps: rps, burst: burst, entries: make(map[string]*limiterEntry), lastGC: time.Now()}
}

// get returns (and lazily creates) the limiter for key, dropping idle ones
// at most once per TTL.
func (s *limiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastGC) > idleLimiterTTL {
		for k, e := range s.entries {
			if now.Sub(e.seen) > idleLimiterTTL {
				delete(s.entries, k)
			}
		}
		s.lastGC = now
	}
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(s.rps), s.burst)}
		s.entries[key] = e
	}
	e.seen = now
	return e.lim
}

// clientKey identifies the caller by IP; the store has no authenticated users.
func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket limit per client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
// Each call owns its own limiter set.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst)
	return func(c *gin.Context) {
		lim := store.get(clientKey(c), time.Now())
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
