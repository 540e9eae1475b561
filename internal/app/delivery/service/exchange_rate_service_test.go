package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"parceldelivery/internal/app/delivery/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rateTestEnv собирает реальный стек сервиса курсов: miniredis как кэш
// и httptest сервер как внешний источник
type rateTestEnv struct {
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	feedSrv   *httptest.Server
	fetches   *atomic.Int64
	service   *ExchangeRateService
}

// newRateTestEnv поднимает окружение с заданным телом ответа источника
func newRateTestEnv(t *testing.T, statusCode int, feedBody string) *rateTestEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var fetches atomic.Int64
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.WriteHeader(statusCode)
		fmt.Fprint(w, feedBody)
	}))
	t.Cleanup(feedSrv.Close)

	cacheRepo := repository.NewRateCacheRepository(client)
	feedClient := NewCBClient(feedSrv.URL, 3)

	return &rateTestEnv{
		miniRedis: mr,
		client:    client,
		feedSrv:   feedSrv,
		fetches:   &fetches,
		service:   NewExchangeRateService(cacheRepo, feedClient),
	}
}

const dailyFeedBody = `{
	"Date": "2024-01-01T15:00:00Z",
	"Timestamp": "2024-01-01T16:00:00Z",
	"Valute": {
		"USD": {"ID": "R01235", "NumCode": "840", "CharCode": "USD", "Nominal": 1, "Name": "Доллар США", "Value": 90.5, "Previous": 89.7},
		"EUR": {"ID": "R01239", "NumCode": "978", "CharCode": "EUR", "Nominal": 1, "Name": "Евро", "Value": 99.2, "Previous": 98.4}
	}
}`

// ===================== GetRate Tests =====================

func TestGetRate_MissFetchesAndCachesUntilMidnightUTC(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusOK, dailyFeedBody)
	ctx := context.Background()

	// Act
	value, err := env.service.GetRate(ctx, "USD")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 90.5, value)
	assert.Equal(t, int64(1), env.fetches.Load())

	// Таблица опубликована в 15:00 UTC - до полуночи остается ровно 9 часов
	ttl := env.miniRedis.TTL(repository.RateKeyPrefix + "USD")
	assert.Equal(t, 9*time.Hour, ttl)
}

func TestGetRate_CacheHitSkipsUpstream(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusOK, dailyFeedBody)
	ctx := context.Background()

	require.NoError(t, env.miniRedis.Set(repository.RateKeyPrefix+"USD", "88.25"))

	// Act
	value, err := env.service.GetRate(ctx, "USD")

	// Assert: значение из кэша, источник не трогали
	assert.NoError(t, err)
	assert.Equal(t, 88.25, value)
	assert.Equal(t, int64(0), env.fetches.Load())
}

func TestGetRate_ConcurrentMissesFetchOnce(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusOK, dailyFeedBody)
	ctx := context.Background()

	const goroutines = 10

	var wg sync.WaitGroup
	values := make([]float64, goroutines)
	errs := make([]error, goroutines)

	// Act: все вызовы стартуют на холодном кэше
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i], errs[i] = env.service.GetRate(ctx, "USD")
		}(i)
	}
	wg.Wait()

	// Assert: к источнику сходил ровно один вызов, остальные дождались кэша
	assert.Equal(t, int64(1), env.fetches.Load())
	for i := 0; i < goroutines; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, 90.5, values[i])
	}
}

func TestGetRate_UnknownCurrency(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusOK, dailyFeedBody)
	ctx := context.Background()

	// Act
	_, err := env.service.GetRate(ctx, "XXX")

	// Assert: ошибка не кэшируется, ключа в Redis нет
	assert.ErrorIs(t, err, ErrCurrencyNotFound)
	assert.False(t, env.miniRedis.Exists(repository.RateKeyPrefix+"XXX"))
}

func TestGetRate_UpstreamUnavailable(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusInternalServerError, "oops")
	ctx := context.Background()

	// Act
	_, err := env.service.GetRate(ctx, "USD")

	// Assert
	assert.ErrorIs(t, err, ErrRateSourceUnavailable)
}

func TestGetRate_LowercaseCurrencyNormalized(t *testing.T) {
	// Arrange
	env := newRateTestEnv(t, http.StatusOK, dailyFeedBody)
	ctx := context.Background()

	// Act
	value, err := env.service.GetRate(ctx, "eur")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 99.2, value)
	assert.True(t, env.miniRedis.Exists(repository.RateKeyPrefix+"EUR"))
}

// ===================== TTL Tests =====================

func TestTTLUntilNextUTCDay(t *testing.T) {
	tests := []struct {
		name      string
		published time.Time
		want      time.Duration
	}{
		{
			name:      "afternoon publication",
			published: time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC),
			want:      9 * time.Hour,
		},
		{
			name:      "midnight publication lives full day",
			published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			want:      24 * time.Hour,
		},
		{
			name:      "non-UTC zone converted first",
			published: time.Date(2024, 1, 1, 18, 0, 0, 0, time.FixedZone("MSK", 3*3600)),
			want:      9 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ttlUntilNextUTCDay(tt.published))
		})
	}
}
