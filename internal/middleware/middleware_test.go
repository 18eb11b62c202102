package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter_Window(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, retry := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	rl.evict()
	assert.Equal(t, 0, rl.Clients())
}

func TestRateLimit_Middleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestLoggerAndRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/moods", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/moods?limit=2", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "/moods?limit=2", first["path"])
	assert.Equal(t, int64(http.StatusNoContent), first["status"])
	assert.Equal(t, "req-1", first["request_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}
