package service

import (
	"context"

	"parceldelivery/internal/app/delivery/entity"

	"github.com/google/uuid"
)

// ParcelServiceInterface определяет операции над посылками
type ParcelServiceInterface interface {
	// Register регистрирует посылку идемпотентно по request_id
	Register(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (*entity.Parcel, error)
	// RegisterAsync ставит регистрацию в очередь и возвращает ключ идемпотентности
	RegisterAsync(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (uuid.UUID, error)
	GetParcel(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error)
	ListParcels(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error)
	ListParcelTypes(ctx context.Context) ([]entity.ParcelType, error)
}

// UserServiceInterface определяет операции над пользователями
type UserServiceInterface interface {
	// GetOrCreate возвращает пользователя, лениво создавая его при первом обращении
	GetOrCreate(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// ExchangeRateServiceInterface определяет доступ к курсам валют
type ExchangeRateServiceInterface interface {
	GetRate(ctx context.Context, currency string) (float64, error)
}

// RateFeedClient - клиент внешнего источника курсов
type RateFeedClient interface {
	FetchDaily(ctx context.Context) (*entity.CBResponse, error)
}
