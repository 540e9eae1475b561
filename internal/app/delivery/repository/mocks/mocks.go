package mocks

import (
	"context"
	"time"

	"parceldelivery/internal/app/delivery/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockParcelRepository мок для ParcelRepository
type MockParcelRepository struct {
	mock.Mock
}

func (m *MockParcelRepository) Create(ctx context.Context, parcel *entity.Parcel) error {
	args := m.Called(ctx, parcel)
	return args.Error(0)
}

func (m *MockParcelRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.Parcel, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Parcel), args.Error(1)
}

func (m *MockParcelRepository) GetByID(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error) {
	args := m.Called(ctx, userID, parcelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Parcel), args.Error(1)
}

func (m *MockParcelRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Parcel), args.Error(1)
}

// MockParcelTypeRepository мок для ParcelTypeRepository
type MockParcelTypeRepository struct {
	mock.Mock
}

func (m *MockParcelTypeRepository) List(ctx context.Context) ([]entity.ParcelType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ParcelType), args.Error(1)
}

func (m *MockParcelTypeRepository) Seed(ctx context.Context, types []entity.ParcelType) error {
	args := m.Called(ctx, types)
	return args.Error(0)
}

// MockUserRepository мок для UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// MockRateCacheRepository мок для RateCacheRepository
type MockRateCacheRepository struct {
	mock.Mock
}

func (m *MockRateCacheRepository) Get(ctx context.Context, currency string) (float64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockRateCacheRepository) Set(ctx context.Context, currency string, value float64, ttl time.Duration) error {
	args := m.Called(ctx, currency, value, ttl)
	return args.Error(0)
}

// MockMessagePublisher мок для MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}
