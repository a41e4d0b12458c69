package config

// Redis backs the token-bucket rate limiter and the response cache on the
// hot catalogue reads.  Both middlewares treat a nil client as "feature
// off", so a missing or unreachable Redis never blocks startup.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient builds a Redis client from the environment:
//
//   REDIS_ADDR       host:port (wins over REDIS_HOST/REDIS_PORT)
//   REDIS_HOST/PORT  hostname and port, default localhost:6379
//   REDIS_PASSWORD   optional password
//   REDIS_DB         database number (default 0)
//   REDIS_POOL_SIZE  connection pool size (default 10)
//   REDIS_TLS        enable TLS when "true" or "1"
//
// It pings once with a short timeout and returns nil when the server is
// unreachable.
func NewRedisClient() *redis.Client {
    addr := os.Getenv("REDIS_ADDR")
    if addr == "" {
        host := os.Getenv("REDIS_HOST")
        port := os.Getenv("REDIS_PORT")
        if host != "" && port != "" {
            addr = host + ":" + port
        }
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if s := os.Getenv("REDIS_DB"); s != "" {
        if n, err := strconv.Atoi(s); err == nil {
            dbNum = n
        }
    }
    poolSize := 10
    if s := os.Getenv("REDIS_POOL_SIZE"); s != "" {
        if n, err := strconv.Atoi(s); err == nil && n > 0 {
            poolSize = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }

    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        PoolSize:  poolSize,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
