package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDisabled = "disabled"
)

// Health pings each backing store. A nil client is reported as disabled.
func Health(ctx context.Context, db *sqlx.DB, rdb *redis.Client) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := map[string]string{"postgres": StatusDisabled, "redis": StatusDisabled}
	if db != nil {
		out["postgres"] = StatusUp
		if err := db.PingContext(ctx); err != nil {
			out["postgres"] = StatusDown
		}
	}
	if rdb != nil {
		out["redis"] = StatusUp
		if err := rdb.Ping(ctx).Err(); err != nil {
			out["redis"] = StatusDown
		}
	}
	return out
}

// Healthy reports whether no store is down
func Healthy(status map[string]string) bool {
	for _, s := range status {
		if s == StatusDown {
			return false
		}
	}
	return true
}
