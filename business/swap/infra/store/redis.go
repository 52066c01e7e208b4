package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fd1az/swap-router/business/swap/app"
	"github.com/fd1az/swap-router/business/swap/domain"
	"github.com/fd1az/swap-router/internal/apperror"
)

const (
	redisPrefix   = "trade_analytics:"
	redisIndexKey = "trade_analytics:index"
)

var _ app.AnalyticsStore = (*Redis)(nil)

// Redis stores each record as JSON under trade_analytics:<ms>:<hash> with a
// TTL and indexes the keys in a sorted set scored by timestamp.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// RedisConfig holds connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, apperror.New(apperror.CodeAnalyticsStoreFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect to redis at "+cfg.Addr))
	}

	return NewRedisWithClient(client, cfg.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl, now: time.Now}
}

// WithClock replaces the clock used to prune the index.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func redisKey(a *domain.TradeAnalytics) string {
	return fmt.Sprintf("%s%d:%s", redisPrefix, a.Timestamp.UnixMilli(), strings.ToLower(a.TxHash.Hex()))
}

// Save writes the record and its index entry in one transaction.
func (r *Redis) Save(ctx context.Context, a *domain.TradeAnalytics) error {
	data, err := json.Marshal(a)
	if err != nil {
		return apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err))
	}

	key := redisKey(a)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.ttl)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{
			Score:  float64(a.Timestamp.UnixMilli()),
			Member: key,
		})
		return nil
	})
	if err != nil {
		return apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err), apperror.WithContext(key))
	}
	return nil
}

// pruneIndex drops index entries older than the TTL whose record is gone.
// Records expire relative to their last save, not their trade timestamp, so
// an old score alone does not mean the record expired.
func (r *Redis) pruneIndex(ctx context.Context) error {
	cutoff := r.now().Add(-r.ttl).UnixMilli()
	old, err := r.client.ZRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil || len(old) == 0 {
		return err
	}

	values, err := r.client.MGet(ctx, old...).Result()
	if err != nil {
		return err
	}
	var gone []any
	for i, v := range values {
		if v == nil {
			gone = append(gone, old[i])
		}
	}
	if len(gone) == 0 {
		return nil
	}
	return r.client.ZRem(ctx, redisIndexKey, gone...).Err()
}

// Range returns records in [from, to], newest first. Index entries whose
// record expired are pruned.
func (r *Redis) Range(ctx context.Context, from, to time.Time) ([]*domain.TradeAnalytics, error) {
	if err := r.pruneIndex(ctx); err != nil {
		return nil, apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err))
	}

	keys, err := r.client.ZRevRangeByScore(ctx, redisIndexKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.UnixMilli(), 10),
		Max: strconv.FormatInt(to.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err))
	}
	if len(keys) == 0 {
		return []*domain.TradeAnalytics{}, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperror.New(apperror.CodeAnalyticsStoreFailed, apperror.WithCause(err))
	}

	out := make([]*domain.TradeAnalytics, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var a domain.TradeAnalytics
		if err := json.Unmarshal([]byte(s), &a); err != nil {
			continue
		}
		out = append(out, &a)
	}

	if len(stale) > 0 {
		r.client.ZRem(ctx, redisIndexKey, stale...)
	}

	sortNewestFirst(out)
	return out, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
