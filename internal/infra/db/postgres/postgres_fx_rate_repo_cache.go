package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"course-enrollment/internal/domain/ports/repository"
	"course-enrollment/internal/infra/logging"
	"course-enrollment/internal/infra/metrics"
	red "course-enrollment/internal/infra/redis"
)

var _ repository.FXRateRepository = (*fxRateRepoCacheDecorator)(nil)

// fxRateRepoCacheDecorator keeps conversion rates in Redis. Concurrent misses
// for the same currency share one database read.
type fxRateRepoCacheDecorator struct {
	inner repository.FXRateRepository
	cache red.RedisClient
	ttl   time.Duration
	group singleflight.Group
	log   *zerolog.Logger
}

func NewFXRateRepoCacheDecorator(inner repository.FXRateRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.FXRateRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &fxRateRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logging.OrNop(logger),
	}
}

func fxRateKey(currency string) string {
	return "fx_rate:" + strings.ToUpper(strings.TrimSpace(currency))
}

func (d *fxRateRepoCacheDecorator) Rate(ctx context.Context, tx repository.Tx, currency string) (float64, error) {
	key := fxRateKey(currency)
	val, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		if rate, perr := strconv.ParseFloat(val, 64); perr == nil {
			metrics.IncCacheLookup("fx_rate", metrics.CacheHit)
			return rate, nil
		}
		metrics.IncCacheLookup("fx_rate", metrics.CacheMiss)
	case errors.Is(err, redis.Nil):
		metrics.IncCacheLookup("fx_rate", metrics.CacheMiss)
	default:
		d.log.Warn().Err(err).Str("key", key).Msg("fx rate cache read failed")
		metrics.IncCacheLookup("fx_rate", metrics.CacheError)
	}

	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		rate, err := d.inner.Rate(ctx, tx, currency)
		if err != nil {
			return 0.0, err
		}
		if serr := d.cache.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), d.ttl); serr != nil {
			d.log.Warn().Err(serr).Str("key", key).Msg("fx rate cache write failed")
		}
		return rate, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
