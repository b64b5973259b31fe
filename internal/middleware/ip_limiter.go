package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiterEntry: tracks a rate limiter and its last use time
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimit: manages rate limiters per IP address
type IPRateLimit struct {
	limiters    map[string]*ipLimiterEntry
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration
	mu          sync.Mutex
}

// NewIPRateLimit: perMinute requests per IP with the given burst; perMinute <= 0 disables limiting
func NewIPRateLimit(perMinute float64, burst int) *IPRateLimit {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}
	if burst <= 0 {
		burst = 1
	}
	return &IPRateLimit{
		limiters:    make(map[string]*ipLimiterEntry),
		limit:       limit,
		burst:       burst,
		idleTimeout: time.Hour,
	}
}

// Allow: checks if an IP is allowed to make a request
func (iprl *IPRateLimit) Allow(ip string) bool {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	entry, exists := iprl.limiters[ip]
	if !exists {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(iprl.limit, iprl.burst)}
		iprl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter.Allow()
}

// Cleanup: removes limiters that haven't been used recently
func (iprl *IPRateLimit) Cleanup() {
	iprl.cleanup(time.Now())
}

func (iprl *IPRateLimit) cleanup(now time.Time) {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()

	for ip, entry := range iprl.limiters {
		if now.Sub(entry.lastSeen) > iprl.idleTimeout {
			delete(iprl.limiters, ip)
		}
	}
}

// Len: number of tracked IPs
func (iprl *IPRateLimit) Len() int {
	iprl.mu.Lock()
	defer iprl.mu.Unlock()
	return len(iprl.limiters)
}

// Run: periodic Cleanup until ctx is done
func (iprl *IPRateLimit) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			iprl.Cleanup()
		}
	}
}

// Middleware: rejects requests over the per-IP limit with 429
func (iprl *IPRateLimit) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !iprl.Allow(ClientIP(c.Request)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests"})
			return
		}
		c.Next()
	}
}

// ClientIP: extracts the client IP from RemoteAddr only, which cannot be spoofed by the client
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
