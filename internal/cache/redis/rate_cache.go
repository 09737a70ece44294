package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/stickermart/internal/domain"
)

// rateKey is the hash holding the current Stars-per-TON conversion snapshot,
// with fields "rate" and "ts" (Unix nanosecond timestamp).
const rateKey = "rate:stars_per_ton"

// RateCache implements domain.RateCache using a Redis hash.
type RateCache struct {
	rdb *redis.Client
}

// NewRateCache creates a RateCache backed by the given Client.
func NewRateCache(c *Client) *RateCache {
	return &RateCache{rdb: c.Underlying()}
}

// Set stores the conversion rate snapshot.
func (rc *RateCache) Set(ctx context.Context, r domain.Rate) error {
	fields := map[string]interface{}{
		"rate": strconv.FormatFloat(r.StarsPerTon, 'f', -1, 64),
		"ts":   strconv.FormatInt(r.TakenAt.UnixNano(), 10),
	}
	if err := rc.rdb.HSet(ctx, rateKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set rate: %w", err)
	}
	return nil
}

// Get retrieves the conversion rate snapshot. It returns domain.ErrNotFound
// when no rate has been stored yet.
func (rc *RateCache) Get(ctx context.Context) (domain.Rate, error) {
	vals, err := rc.rdb.HGetAll(ctx, rateKey).Result()
	if err != nil {
		return domain.Rate{}, fmt.Errorf("redis: get rate: %w", err)
	}
	if len(vals) == 0 {
		return domain.Rate{}, domain.ErrNotFound
	}

	rateStr, ok := vals["rate"]
	if !ok {
		return domain.Rate{}, domain.ErrNotFound
	}
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return domain.Rate{}, fmt.Errorf("redis: parse rate: %w", err)
	}

	var takenAt time.Time
	if tsStr, ok := vals["ts"]; ok {
		tsNano, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return domain.Rate{}, fmt.Errorf("redis: parse rate ts: %w", err)
		}
		takenAt = time.Unix(0, tsNano)
	}

	return domain.Rate{StarsPerTon: rate, TakenAt: takenAt}, nil
}

var _ domain.RateCache = (*RateCache)(nil)
