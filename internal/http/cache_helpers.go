package httpserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	backgroundFetchTimeout = 15 * time.Second
	backgroundSetTimeout   = 5 * time.Second
)

// ttlWithJitter spreads expirations by up to ±15s so hot keys do not all
// expire in the same instant.
func ttlWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	return ttl + time.Duration(rand.Intn(30)-15)*time.Second
}

// FindAndCache implements read-through caching with singleflight collapsing
// and refresh-ahead on hits.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached T
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		refreshAhead(c, sf, key, ttl, logger, fn)
		return cached, nil
	case errors.Is(err, redis.Nil):
		logger.Debug("cache miss", zap.String("key", key))
	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		storeAsync(c, key, value, ttl, logger)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache type mismatch for key %q", key)
	}
	return value, nil
}

// refreshAhead re-fetches a key in the background after serving a hit, so
// the cached value keeps converging on storage without blocking readers.
func refreshAhead[T any](
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) {
	go func() {
		time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)

		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), backgroundFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}
			storeAsync(c, key, value, ttl, logger)
			return value, nil
		})
	}()
}

func storeAsync[T any](c Cacher, key string, value T, ttl time.Duration, logger *zap.Logger) {
	go func(v T) {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundSetTimeout)
		defer cancel()

		if err := c.Set(ctx, key, v, ttlWithJitter(ttl)); err != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
	}(value)
}
