// Package redis constructs the client shared by the price cache and the
// pending-guess queue.
package redis

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 5 * time.Second

// NewRedisClient connects using REDIS_HOST/REDIS_PORT/REDIS_PASSWORD (and an
// optional REDIS_DB index) and verifies the connection before returning it.
// Both the price cache and the guess queue live on this connection, so a
// failed ping here means the service cannot run.
func NewRedisClient() (*redis.Client, error) {
	addr := os.Getenv("REDIS_HOST") + ":" + os.Getenv("REDIS_PORT")

	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		} else {
			slog.Warn("ignoring invalid REDIS_DB", "value", v)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis unreachable", "address", addr, "error", err)
		return nil, err
	}

	slog.Info("redis connected", "address", addr, "db", db)
	return rdb, nil
}
