package repository

import (
	"context"
	"errors"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const serviceName = "delivery"

// Коды SQLSTATE PostgreSQL, которые репозиторий переводит в доменные ошибки
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type parcelRepository struct {
	db *gorm.DB // GORM DB для работы с PostgreSQL
}

// NewParcelRepository создает новый репозиторий посылок
func NewParcelRepository(db *gorm.DB) ParcelRepository {
	return &parcelRepository{db: db}
}

// Create сохраняет новую посылку в PostgreSQL
// Нарушение уникальности request_id переводится в ErrDuplicateRequestID,
// нарушение внешнего ключа на parcel_types - в ErrParcelTypeNotFound
func (r *parcelRepository) Create(ctx context.Context, parcel *entity.Parcel) error {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpInsert, "parcels")
	defer timer.ObserveDuration()

	if err := r.db.WithContext(ctx).Create(parcel).Error; err != nil {
		translated := translateConstraintError(err)
		if errors.Is(translated, err) {
			metrics.RecordDbError(serviceName, metrics.DbOpInsert)
		}
		return translated
	}

	return nil
}

// translateConstraintError распознает нарушения ограничений PostgreSQL
func translateConstraintError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateRequestID
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateRequestID
		case pgForeignKeyViolation:
			return ErrParcelTypeNotFound
		}
	}

	return err
}

// GetByRequestID ищет посылку по ключу идемпотентности
func (r *parcelRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entity.Parcel, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "parcels")
	defer timer.ObserveDuration()

	var parcel entity.Parcel
	result := r.db.WithContext(ctx).First(&parcel, "request_id = ?", requestID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrParcelNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, result.Error
	}

	return &parcel, nil
}

// GetByID получает посылку по ID в пределах одного пользователя
// Чужая посылка неотличима от несуществующей
func (r *parcelRepository) GetByID(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "parcels")
	defer timer.ObserveDuration()

	var parcel entity.Parcel
	result := r.db.WithContext(ctx).First(&parcel, "id = ? AND user_id = ?", parcelID, userID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrParcelNotFound
		}
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, result.Error
	}

	return &parcel, nil
}

// GetByUserID получает посылки пользователя с фильтрами и пагинацией
// Порядок created_at, id детерминирован и стабилен при пагинации
func (r *parcelRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error) {
	timer := metrics.NewDbTimer(serviceName, metrics.DbOpSelect, "parcels")
	defer timer.ObserveDuration()

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if filter.ParcelTypeID != nil {
		query = query.Where("parcel_type_id = ?", *filter.ParcelTypeID)
	}
	if filter.WithDeliveryPrice != nil {
		if *filter.WithDeliveryPrice {
			query = query.Where("delivery_price IS NOT NULL")
		} else {
			query = query.Where("delivery_price IS NULL")
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = entity.DefaultParcelLimit
	}

	var parcels []entity.Parcel
	result := query.
		Order("created_at, id").
		Offset(filter.Offset).
		Limit(limit).
		Find(&parcels)

	if result.Error != nil {
		metrics.RecordDbError(serviceName, metrics.DbOpSelect)
		return nil, result.Error
	}

	return parcels, nil
}
