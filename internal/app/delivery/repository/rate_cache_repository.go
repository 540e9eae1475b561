package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"parceldelivery/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// RateKeyPrefix - префикс ключей кэша курсов в Redis
// Значение по ключу - десятичная строка курса, TTL до следующей полуночи UTC
const RateKeyPrefix = "CB_VALUE_"

type rateCacheRepository struct {
	client *redis.Client
}

// NewRateCacheRepository создает новый кэш курсов валют поверх Redis
func NewRateCacheRepository(client *redis.Client) RateCacheRepository {
	return &rateCacheRepository{client: client}
}

// Get получает курс валюты из кэша
// Отсутствие либо истечение ключа возвращается как ErrRateNotCached
func (r *rateCacheRepository) Get(ctx context.Context, currency string) (float64, error) {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpGet)
	defer timer.ObserveDuration()

	data, err := r.client.Get(ctx, RateKeyPrefix+currency).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheMiss(serviceName, RateKeyPrefix)
			return 0, ErrRateNotCached
		}
		metrics.RecordRedisError(serviceName, metrics.RedisOpGet)
		return 0, fmt.Errorf("failed to get exchange rate from redis: %w", err)
	}

	value, err := strconv.ParseFloat(data, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse cached rate %q: %w", data, err)
	}

	metrics.RecordCacheHit(serviceName, RateKeyPrefix)
	return value, nil
}

// Set сохраняет курс валюты с TTL
// Атомарность на уровне ключа - last writer wins, транзакции не используются
func (r *rateCacheRepository) Set(ctx context.Context, currency string, value float64, ttl time.Duration) error {
	timer := metrics.NewRedisTimer(serviceName, metrics.RedisOpSet)
	defer timer.ObserveDuration()

	data := strconv.FormatFloat(value, 'f', -1, 64)

	if err := r.client.Set(ctx, RateKeyPrefix+currency, data, ttl).Err(); err != nil {
		metrics.RecordRedisError(serviceName, metrics.RedisOpSet)
		return fmt.Errorf("failed to set exchange rate in redis: %w", err)
	}

	return nil
}
