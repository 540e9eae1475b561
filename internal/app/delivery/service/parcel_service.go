package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/infrastructure"
	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/pkg/logger"
	"parceldelivery/pkg/metrics"

	"github.com/google/uuid"
)

// ParcelService обрабатывает бизнес-логику регистрации и выборки посылок
// Используется и синхронным HTTP путем, и воркером отложенной регистрации
type ParcelService struct {
	parcelRepo repository.ParcelRepository
	typeRepo   repository.ParcelTypeRepository
	publisher  infrastructure.MessagePublisher
}

// NewParcelService создает новый сервис посылок с внедрением зависимостей
// publisher может быть nil в процессе воркера, где RegisterAsync не вызывается
func NewParcelService(
	parcelRepo repository.ParcelRepository,
	typeRepo repository.ParcelTypeRepository,
	publisher infrastructure.MessagePublisher,
) *ParcelService {
	return &ParcelService{
		parcelRepo: parcelRepo,
		typeRepo:   typeRepo,
		publisher:  publisher,
	}
}

// Register регистрирует посылку идемпотентно
// 1. Ищет посылку по ключу идемпотентности, найденная возвращается как есть
// 2. Иначе вставляет новую запись
// 3. Проигранная гонка с конкурентным одинаковым запросом (нарушение
//    уникальности request_id при вставке) гасится повторным чтением:
//    легитимный ретрай никогда не видит ошибку дубликата
// Стоимость доставки здесь не рассчитывается, delivery_price остаётся NULL;
// расчёт по курсу из ExchangeRateService - отдельный будущий шаг
func (s *ParcelService) Register(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (*entity.Parcel, error) {
	requestID := resolveRequestID(req)

	existing, err := s.parcelRepo.GetByRequestID(ctx, requestID)
	if err == nil {
		logger.Info().
			Str("request_id", requestID.String()).
			Str("parcel_id", existing.ID.String()).
			Msg("Registration request already processed, returning saved parcel")
		metrics.ParcelIdempotentHits.Inc()
		return existing, nil
	}
	if !errors.Is(err, repository.ErrParcelNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}

	parcel := &entity.Parcel{
		ID:           uuid.New(),
		Name:         req.Name,
		Weight:       req.Weight,
		DollarPrice:  req.DollarPrice,
		RequestID:    requestID,
		ParcelTypeID: req.ParcelTypeID,
		UserID:       userID,
	}

	err = s.parcelRepo.Create(ctx, parcel)
	switch {
	case err == nil:
		metrics.ParcelsRegistered.Inc()
		return parcel, nil

	case errors.Is(err, repository.ErrDuplicateRequestID):
		// Гонка между проверкой и вставкой: возвращаем победителя
		winner, qerr := s.parcelRepo.GetByRequestID(ctx, requestID)
		if qerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, qerr)
		}
		logger.Info().
			Str("request_id", requestID.String()).
			Msg("Lost insert race to a concurrent identical request, returning winner")
		metrics.ParcelIdempotentHits.Inc()
		return winner, nil

	case errors.Is(err, repository.ErrParcelTypeNotFound):
		return nil, ErrParcelTypeNotFound

	default:
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	}
}

// RegisterAsync сериализует запрос регистрации и публикует его в очередь
// Возврат означает только подтверждение брокера, не факт обработки
func (s *ParcelService) RegisterAsync(ctx context.Context, userID uuid.UUID, req *entity.RegisterParcelRequest) (uuid.UUID, error) {
	requestID := resolveRequestID(req)

	msg := entity.ParcelQueuedMessage{
		RequestID:    requestID,
		Weight:       req.Weight,
		DollarPrice:  req.DollarPrice,
		ParcelTypeID: req.ParcelTypeID,
		Name:         req.Name,
		UserID:       userID,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	// Ключ сообщения = request_id: повторные публикации одной регистрации
	// попадают в одну партицию
	if err := s.publisher.PublishMessage(ctx, requestID.String(), body); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	logger.Info().
		Str("request_id", requestID.String()).
		Str("user_id", userID.String()).
		Msg("Parcel registration enqueued")

	return requestID, nil
}

// GetParcel получает посылку по ID в пределах пользователя
func (s *ParcelService) GetParcel(ctx context.Context, userID, parcelID uuid.UUID) (*entity.Parcel, error) {
	parcel, err := s.parcelRepo.GetByID(ctx, userID, parcelID)
	if err != nil {
		if errors.Is(err, repository.ErrParcelNotFound) {
			return nil, ErrParcelNotFound
		}
		return nil, fmt.Errorf("failed to get parcel: %w", err)
	}

	return parcel, nil
}

// ListParcels получает посылки пользователя с фильтрами и пагинацией
func (s *ParcelService) ListParcels(ctx context.Context, userID uuid.UUID, filter *entity.ParcelFilter) ([]entity.Parcel, error) {
	if filter == nil {
		filter = &entity.ParcelFilter{}
	}

	parcels, err := s.parcelRepo.GetByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}

	return parcels, nil
}

// ListParcelTypes возвращает справочник типов посылок
func (s *ParcelService) ListParcelTypes(ctx context.Context) ([]entity.ParcelType, error) {
	types, err := s.typeRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parcel types: %w", err)
	}

	return types, nil
}

// resolveRequestID возвращает клиентский ключ идемпотентности либо генерирует
// новый, если клиент его не прислал
func resolveRequestID(req *entity.RegisterParcelRequest) uuid.UUID {
	if req.RequestID != nil && *req.RequestID != uuid.Nil {
		return *req.RequestID
	}
	return uuid.New()
}
