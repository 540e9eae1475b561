package service

import (
	"context"
	"errors"
	"fmt"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/pkg/logger"

	"github.com/google/uuid"
)

// UserService управляет ленивым созданием пользователей
// Идентификатор приходит извне и системой не генерируется
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetOrCreate возвращает пользователя по внешнему идентификатору,
// создавая его при первом обращении
func (s *UserService) GetOrCreate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user = &entity.User{ID: id}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Тот же пользователь мог быть создан параллельно - перечитываем
		if existing, gerr := s.userRepo.GetByID(ctx, id); gerr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info().Str("user_id", id.String()).Msg("Created user on first reference")
	return user, nil
}
