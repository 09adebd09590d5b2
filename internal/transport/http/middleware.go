package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LoggingMiddleware emits one structured line per request.
func LoggingMiddleware(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// limiterIdleTTL is how long a client IP may stay quiet before its bucket
// is dropped from the table.
const limiterIdleTTL = 3 * time.Minute

type ipLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// ipLimiters maps client IPs to token buckets, evicting idle entries so
// the table does not grow with every address ever seen.
type ipLimiters struct {
	mu      sync.Mutex
	clients map[string]*ipLimiter
	mk      func() *rate.Limiter
}

func newIPLimiters(rps, burst int) *ipLimiters {
	return &ipLimiters{
		clients: make(map[string]*ipLimiter),
		mk:      func() *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), burst) },
	}
}

func (t *ipLimiters) get(ip string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, cl := range t.clients {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(t.clients, addr)
		}
	}
	cl, ok := t.clients[ip]
	if !ok {
		cl = &ipLimiter{lim: t.mk()}
		t.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.lim
}

// RateLimitMiddleware applies a token bucket per client IP.
func RateLimitMiddleware(rps, burst int) gin.HandlerFunc {
	table := newIPLimiters(rps, burst)
	return func(c *gin.Context) {
		ip, _, _ := net.SplitHostPort(c.Request.RemoteAddr)
		if !table.get(ip, time.Now()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
