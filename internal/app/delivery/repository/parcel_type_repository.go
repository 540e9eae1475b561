package repository

import (
	"context"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/pkg/metrics"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type parcelTypeRepository struct {
	db *gorm.DB
}

// NewParcelTypeRepository создает новый репозиторий типов посылок
func NewParcelTypeRepository(db *gorm.DB) ParcelTypeRepository {
	return &parcelTypeRepository{db: db}
}

// List возвращает все типы посылок, отсортированные по имени
func (r *parcelTypeRepository) List(ctx context.Context) ([]entity.ParcelType, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "parcel_types")
	defer timer.ObserveDuration()

	var types []entity.ParcelType
	result := r.db.WithContext(ctx).Order("name").Find(&types)

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, result.Error
	}

	return types, nil
}

// Seed заполняет справочник фиксированным набором типов
// Идемпотентен: уже существующие имена не пересоздаются и не изменяются
func (r *parcelTypeRepository) Seed(ctx context.Context, types []entity.ParcelType) error {
	for _, t := range types {
		record := entity.ParcelType{
			ID:          uuid.New(),
			Name:        t.Name,
			Description: t.Description,
		}

		result := r.db.WithContext(ctx).
			Where("name = ?", t.Name).
			FirstOrCreate(&record)

		if result.Error != nil {
			metrics.RecordDbError(serviceName, metrics.DbOpInsert)
			return result.Error
		}
	}

	return nil
}
