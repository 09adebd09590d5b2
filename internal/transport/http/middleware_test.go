package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Molayo2025/capstone-project/internal/logger"
)

func TestIPLimitersEvictIdleClients(t *testing.T) {
	table := newIPLimiters(10, 10)
	t0 := time.Now()

	table.get("10.0.0.1", t0)
	table.get("10.0.0.2", t0)
	assert.Len(t, table.clients, 2)

	// a request well past the TTL sweeps the idle entries out
	table.get("10.0.0.3", t0.Add(limiterIdleTTL+time.Minute))
	assert.Len(t, table.clients, 1)
	_, ok := table.clients["10.0.0.1"]
	assert.False(t, ok)

	// an active client keeps refreshing its slot
	table.get("10.0.0.3", t0.Add(limiterIdleTTL+2*time.Minute))
	_, ok = table.clients["10.0.0.3"]
	assert.True(t, ok)
}

func TestRateLimitMiddlewareRejectsBursts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.NewLogger("error")
	require.NoError(t, err)

	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(1, 1))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())

	// another IP has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
