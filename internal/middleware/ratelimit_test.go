package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taksrules/choto-api/internal/config"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func rateLimitConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func doLimited(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, mw(okHandler)(c))
	return rec
}

func TestTokenBucketAllowsWithinCapacity(t *testing.T) {
	rdb := newTestRedis(t)
	mw := NewTokenBucket(rateLimitConfig(3), rdb)

	for i := 0; i < 3; i++ {
		rec := doLimited(t, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestTokenBucketBlocksWhenExhausted(t *testing.T) {
	rdb := newTestRedis(t)
	mw := NewTokenBucket(rateLimitConfig(2), rdb)

	doLimited(t, mw)
	doLimited(t, mw)
	rec := doLimited(t, mw)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	cfg := rateLimitConfig(1)
	cfg.Enabled = false
	mw := NewTokenBucket(cfg, newTestRedis(t))

	for i := 0; i < 5; i++ {
		rec := doLimited(t, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestTokenBucketNilRedisFailsOpen(t *testing.T) {
	mw := NewTokenBucket(rateLimitConfig(1), nil)
	for i := 0; i < 5; i++ {
		rec := doLimited(t, mw)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/boreholes", nil)
	req.RemoteAddr = "10.0.0.9:999"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/boreholes")
	c.Set("user_id", uint64(12))

	cfg := rateLimitConfig(1)

	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.9", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:12", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:12:route:GET /v1/boreholes", buildRateKey(cfg, c))
}
