package repository

import (
	"context"
	"errors"
	"time"

	"parceldelivery/internal/app/delivery/entity"

	"github.com/google/uuid"
)

var (
	// Стандартные ошибки репозиториев для обработки в service layer
	ErrParcelNotFound     = errors.New("parcel not found")
	ErrParcelTypeNotFound = errors.New("parcel type not found")
	ErrUserNotFound       = errors.New("user not found")
	// ErrDuplicateRequestID - нарушение уникальности ключа идемпотентности,
	// возможно при гонке двух одинаковых запросов между проверкой и вставкой
	ErrDuplicateRequestID = errors.New("parcel with this request id already exists")
	ErrRateNotCached      = errors.New("exchange rate not cached")
)

type ParcelRepository interface {
	Create(ctx context.Context, parcel *entity.Parcel) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.Parcel, error)
	// GetByID ищет посылку только среди принадлежащих userID
	GetByID(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error)
}

type ParcelTypeRepository interface {
	List(ctx context.Context) ([]entity.ParcelType, error)
	Seed(ctx context.Context, types []entity.ParcelType) error
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// RateCacheRepository - key-value кэш курсов валют с TTL на ключ
type RateCacheRepository interface {
	Get(ctx context.Context, currency string) (float64, error)
	Set(ctx context.Context, currency string, value float64, ttl time.Duration) error
}
