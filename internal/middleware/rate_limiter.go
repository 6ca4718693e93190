package middleware

// rate_limiter.go — sliding-window per-IP limits.
// Three bucket classes, sized through internal/config: a tight login bucket
// (credential stuffing), a wide general bucket for the API, and a narrow
// bucket for the bulk endpoints, whose single request can fan out into
// hundreds of row-locked transactions. All pools share one purge goroutine.

import (
	"net/http"
	"sync"
	"time"

	"paylog/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// bucket tracks request counts for one client IP within a window.
type bucket struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

// limiterPool is one rate-limit class: a bucket per client IP.
type limiterPool struct {
	name    string
	limit   int
	window  time.Duration
	mu      sync.Mutex
	buckets map[string]*bucket
}

var (
	allPools   []*limiterPool
	allPoolsMu sync.Mutex
)

func newLimiterPool(name string, limit int, window time.Duration) *limiterPool {
	p := &limiterPool{
		name:    name,
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
	allPoolsMu.Lock()
	allPools = append(allPools, p)
	allPoolsMu.Unlock()
	return p
}

// allow counts one request for ip and reports whether it fits the window.
// The second return is when the current window resets (for Retry-After).
func (p *limiterPool) allow(ip string) (bool, time.Time) {
	p.mu.Lock()
	b, ok := p.buckets[ip]
	if !ok {
		b = &bucket{}
		p.buckets[ip] = b
	}
	p.mu.Unlock()

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.After(b.windowEnd) {
		b.count = 0
		b.windowEnd = now.Add(p.window)
	}
	b.count++
	return b.count <= p.limit, b.windowEnd
}

// purge drops buckets whose window expired; returns how many were removed.
func (p *limiterPool) purge(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	purged := 0
	for ip, b := range p.buckets {
		b.mu.Lock()
		if now.After(b.windowEnd) {
			delete(p.buckets, ip)
			purged++
		}
		b.mu.Unlock()
	}
	return purged
}

// limitWith builds the gin handler for one pool.
func limitWith(p *limiterPool, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := p.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	p := newLimiterPool("login", 20, time.Minute)
	return limitWith(p, "Too many login attempts. Try again in 1 minute.")
}

// RateLimiter returns the general API limiter.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	p := newLimiterPool("api", limit, window)
	return limitWith(p, "Too many requests. Try again in a moment.")
}

// BulkRateLimiter guards the bulk-approve/-reject/export endpoints, which
// multiply into one transaction per invoice id.
func BulkRateLimiter(perMinute int) gin.HandlerFunc {
	p := newLimiterPool("bulk", perMinute, time.Minute)
	return limitWith(p, "Too many bulk operations. Try again in 1 minute.")
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically removes expired buckets from every pool to prevent memory
// growth from IPs that never return.

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredBuckets()
}

func purgeExpiredBuckets() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()

		allPoolsMu.Lock()
		pools := append([]*limiterPool(nil), allPools...)
		allPoolsMu.Unlock()

		for _, p := range pools {
			if purged := p.purge(now); purged > 0 {
				log.Debug().
					Str("pool", p.name).
					Int("buckets_purged", purged).
					Msg("rate limiter buckets purged")
			}
		}
	}
}
