package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/pkg/logger"
	"parceldelivery/pkg/metrics"
)

// ExchangeRateService - read-through кэш курсов валют
// На промахе сам ходит во внешний источник и наполняет кэш; TTL выравнивается
// по следующей полуночи UTC после даты публикации таблицы
type ExchangeRateService struct {
	rateCache repository.RateCacheRepository
	feed      RateFeedClient

	// Одна блокировка на весь кэш: не больше одного запроса к источнику
	// одновременно. Per-key блокировка была бы лучше для multi-instance
	// развертывания, для одного процесса этого достаточно
	mu sync.Mutex
}

// NewExchangeRateService создает новый сервис курсов валют
func NewExchangeRateService(rateCache repository.RateCacheRepository, feed RateFeedClient) *ExchangeRateService {
	return &ExchangeRateService{
		rateCache: rateCache,
		feed:      feed,
	}
}

// GetRate возвращает курс валюты, при необходимости запрашивая его у источника
// Ошибки источника не ретраятся здесь - политика повторов за вызывающим
func (s *ExchangeRateService) GetRate(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(currency)

	value, err := s.rateCache.Get(ctx, currency)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, repository.ErrRateNotCached) {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Пока ждали блокировку, другой вызов мог уже наполнить кэш
	value, err = s.rateCache.Get(ctx, currency)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, repository.ErrRateNotCached) {
		return 0, err
	}

	return s.fetchAndCache(ctx, currency)
}

// fetchAndCache запрашивает таблицу курсов и кэширует запрошенную валюту
// Вызывается только под s.mu
func (s *ExchangeRateService) fetchAndCache(ctx context.Context, currency string) (float64, error) {
	feed, err := s.feed.FetchDaily(ctx)
	if err != nil {
		metrics.ExchangeRateFetches.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("%w: %v", ErrRateSourceUnavailable, err)
	}
	metrics.ExchangeRateFetches.WithLabelValues("success").Inc()

	cbCurrency, ok := feed.Valute[currency]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrCurrencyNotFound, currency)
	}

	ttl := ttlUntilNextUTCDay(feed.Date)
	if err := s.rateCache.Set(ctx, currency, cbCurrency.Value, ttl); err != nil {
		// Курс получен, проблема только с кэшем - отвечаем значением
		logger.Warn().
			Err(err).
			Str("currency", currency).
			Msg("Failed to cache exchange rate")
	} else {
		logger.Debug().
			Str("currency", currency).
			Float64("value", cbCurrency.Value).
			Dur("ttl", ttl).
			Msg("Cached exchange rate")
	}

	return cbCurrency.Value, nil
}

// ttlUntilNextUTCDay считает срок жизни курса: от момента публикации таблицы
// до начала следующих суток UTC
func ttlUntilNextUTCDay(published time.Time) time.Duration {
	d := published.UTC()
	nextDayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return nextDayStart.Sub(d)
}
