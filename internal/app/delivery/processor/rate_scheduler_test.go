package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockExchangeRateService мок для ExchangeRateServiceInterface
type MockExchangeRateService struct {
	mock.Mock
}

func (m *MockExchangeRateService) GetRate(ctx context.Context, currency string) (float64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(float64), args.Error(1)
}

// ===================== NewRateRefreshScheduler Tests =====================

func TestNewRateRefreshScheduler(t *testing.T) {
	// Arrange
	mockSvc := new(MockExchangeRateService)

	// Act
	scheduler := NewRateRefreshScheduler(mockSvc, []string{"USD", "EUR"})

	// Assert
	assert.NotNil(t, scheduler)
	assert.NotNil(t, scheduler.cron)
	assert.Equal(t, []string{"USD", "EUR"}, scheduler.currencies)
}

// ===================== Start Tests =====================

func TestRateRefreshScheduler_Start_WarmsUpImmediately(t *testing.T) {
	// Arrange
	mockSvc := new(MockExchangeRateService)
	scheduler := NewRateRefreshScheduler(mockSvc, []string{"USD", "EUR"})

	ctx := context.Background()

	mockSvc.On("GetRate", ctx, "USD").Return(90.5, nil)
	mockSvc.On("GetRate", ctx, "EUR").Return(99.2, nil)

	// Act: прогрев выполняется сразу при старте, не дожидаясь расписания
	err := scheduler.Start(ctx, "5 0 * * *")
	defer scheduler.Stop()

	// Assert
	assert.NoError(t, err)
	mockSvc.AssertExpectations(t)
}

func TestRateRefreshScheduler_Start_InvalidSchedule(t *testing.T) {
	// Arrange
	mockSvc := new(MockExchangeRateService)
	scheduler := NewRateRefreshScheduler(mockSvc, []string{"USD"})

	// Act
	err := scheduler.Start(context.Background(), "not a cron expression")

	// Assert
	assert.Error(t, err)
	mockSvc.AssertNotCalled(t, "GetRate")
}

func TestRateRefreshScheduler_WarmUp_ContinuesAfterError(t *testing.T) {
	// Arrange
	mockSvc := new(MockExchangeRateService)
	scheduler := NewRateRefreshScheduler(mockSvc, []string{"USD", "EUR"})

	ctx := context.Background()

	// Первая валюта падает, вторая всё равно прогревается
	mockSvc.On("GetRate", ctx, "USD").Return(0.0, errors.New("feed unavailable"))
	mockSvc.On("GetRate", ctx, "EUR").Return(99.2, nil)

	// Act
	scheduler.warmUp(ctx)

	// Assert
	mockSvc.AssertExpectations(t)
}
