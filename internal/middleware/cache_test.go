package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taksrules/choto-api/internal/config"
)

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func doCached(t *testing.T, mw echo.MiddlewareFunc, method string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/boreholes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/boreholes")
	require.NoError(t, mw(handler)(c))
	return rec
}

func TestRedisCacheMissThenHit(t *testing.T) {
	rdb := newTestRedis(t)
	mw := NewRedisCache(cacheConfig(), rdb)

	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"items": []string{"a", "b"}})
	}

	first := doCached(t, mw, http.MethodGet, handler)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := doCached(t, mw, http.MethodGet, handler)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestRedisCacheSkipsNonConfiguredMethods(t *testing.T) {
	rdb := newTestRedis(t)
	mw := NewRedisCache(cacheConfig(), rdb)

	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, echo.Map{"id": calls})
	}

	doCached(t, mw, http.MethodPost, handler)
	rec := doCached(t, mw, http.MethodPost, handler)
	assert.Equal(t, 2, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRedisCacheSkipsErrorResponses(t *testing.T) {
	rdb := newTestRedis(t)
	mw := NewRedisCache(cacheConfig(), rdb)

	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusNotFound, echo.Map{"error": "nope"})
	}

	doCached(t, mw, http.MethodGet, handler)
	second := doCached(t, mw, http.MethodGet, handler)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "MISS", second.Header().Get("X-Cache"))
}

func TestRedisCacheNilClientPassesThrough(t *testing.T) {
	mw := NewRedisCache(cacheConfig(), nil)

	calls := 0
	handler := func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"n": calls})
	}

	doCached(t, mw, http.MethodGet, handler)
	doCached(t, mw, http.MethodGet, handler)
	assert.Equal(t, 2, calls)
}
