package processor

import (
	"context"

	"parceldelivery/internal/app/delivery/service"
	"parceldelivery/pkg/logger"

	"github.com/robfig/cron/v3"
)

// RateRefreshScheduler прогревает кэш курсов по расписанию
// Кэш остается read-through: задача просто дергает GetRate, чтобы первый
// клиентский запрос после истечения TTL не ждал внешний источник
type RateRefreshScheduler struct {
	cron        *cron.Cron
	exchangeSvc service.ExchangeRateServiceInterface
	currencies  []string
}

// NewRateRefreshScheduler создает новый планировщик прогрева кэша
func NewRateRefreshScheduler(exchangeSvc service.ExchangeRateServiceInterface, currencies []string) *RateRefreshScheduler {
	return &RateRefreshScheduler{
		cron:        cron.New(),
		exchangeSvc: exchangeSvc,
		currencies:  currencies,
	}
}

// Start регистрирует задачу и запускает планировщик
// Первый прогрев выполняется сразу, не дожидаясь расписания
func (s *RateRefreshScheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.warmUp(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logger.Info().
		Str("schedule", schedule).
		Strs("currencies", s.currencies).
		Msg("Rate refresh scheduler started")

	s.warmUp(ctx)

	return nil
}

// Stop останавливает планировщик и дожидается активных задач
func (s *RateRefreshScheduler) Stop() {
	logger.Info().Msg("Stopping rate refresh scheduler")
	<-s.cron.Stop().Done()
	logger.Info().Msg("Rate refresh scheduler stopped")
}

// warmUp запрашивает курс каждой валюты; на прогретом кэше это no-op
func (s *RateRefreshScheduler) warmUp(ctx context.Context) {
	for _, currency := range s.currencies {
		value, err := s.exchangeSvc.GetRate(ctx, currency)
		if err != nil {
			// Прогрев не критичен: клиентский запрос сам сходит к источнику
			logger.Warn().
				Err(err).
				Str("currency", currency).
				Msg("Failed to warm up exchange rate")
			continue
		}
		logger.Debug().
			Str("currency", currency).
			Float64("value", value).
			Msg("Exchange rate warmed up")
	}
}
