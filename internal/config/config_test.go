package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func setRequiredEnv(t *testing.T) {
    t.Helper()
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8080")
    t.Setenv("DB_USER", "choto")
    t.Setenv("DB_PASS", "")
    t.Setenv("DB_HOST", "localhost")
    t.Setenv("DB_PORT", "3306")
    t.Setenv("DB_NAME", "choto")
    t.Setenv("JWT_SECRET", "unit-test-secret")
    t.Setenv("SESSION_TOKEN_TTL_MIN", "30")
    t.Setenv("BCRYPT_COST", "4")
    t.Setenv("DB_MAX_OPEN_CONNS", "")
    t.Setenv("DB_MAX_IDLE_CONNS", "")
    t.Setenv("DB_CONN_MAX_LIFE_MIN", "")
}

func TestLoadPoolDefaults(t *testing.T) {
    setRequiredEnv(t)

    cfg := Load()
    assert.Equal(t, 20, cfg.DBMaxOpenConns)
    assert.Equal(t, 10, cfg.DBMaxIdleConns)
    assert.Equal(t, 30, cfg.DBConnMaxLifeMin)
}

func TestLoadPoolOverrides(t *testing.T) {
    setRequiredEnv(t)
    t.Setenv("DB_MAX_OPEN_CONNS", "50")
    t.Setenv("DB_MAX_IDLE_CONNS", "25")
    t.Setenv("DB_CONN_MAX_LIFE_MIN", "15")

    cfg := Load()
    assert.Equal(t, 50, cfg.DBMaxOpenConns)
    assert.Equal(t, 25, cfg.DBMaxIdleConns)
    assert.Equal(t, 15, cfg.DBConnMaxLifeMin)
}

func TestLoadCacheConfigDefaults(t *testing.T) {
    t.Setenv("CACHE_ENABLED", "")
    t.Setenv("CACHE_METHODS", "")
    t.Setenv("CACHE_TTL", "")
    t.Setenv("CACHE_KEY_STRATEGY", "")
    t.Setenv("CACHE_PREFIX", "")
    t.Setenv("CACHE_MAX_BODY_BYTES", "")

    cfg := LoadCacheConfig()
    assert.True(t, cfg.Enabled)
    assert.Equal(t, map[string]bool{"GET": true}, cfg.Methods)
    assert.Equal(t, 45*time.Second, cfg.TTL)
    assert.Equal(t, "route_query", cfg.KeyStrategy)
    assert.Equal(t, "choto:cache", cfg.Prefix)
    assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestLoadCacheConfigClampsBodyCap(t *testing.T) {
    t.Setenv("CACHE_MAX_BODY_BYTES", "-1")

    cfg := LoadCacheConfig()
    assert.Equal(t, 1<<20, cfg.MaxBodyBytes)
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
    t.Setenv("RATE_LIMIT_ENABLED", "")
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "10s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    assert.Equal(t, 1, cfg.Capacity)
    assert.Equal(t, 50*time.Second, cfg.TTL)
}
