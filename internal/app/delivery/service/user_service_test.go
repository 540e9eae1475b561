package service

import (
	"context"
	"errors"
	"testing"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/internal/app/delivery/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// ===================== GetOrCreate Tests =====================

func TestGetOrCreate_ExistingUser(t *testing.T) {
	// Arrange
	userRepo := new(mocks.MockUserRepository)
	service := NewUserService(userRepo)

	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID}

	userRepo.On("GetByID", ctx, userID).Return(user, nil)

	// Act
	result, err := service.GetOrCreate(ctx, userID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, userID, result.ID)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetOrCreate_CreatesOnFirstReference(t *testing.T) {
	// Arrange
	userRepo := new(mocks.MockUserRepository)
	service := NewUserService(userRepo)

	ctx := context.Background()
	userID := uuid.New()

	userRepo.On("GetByID", ctx, userID).Return(nil, repository.ErrUserNotFound)
	userRepo.On("Create", ctx, mock.AnythingOfType("*entity.User")).Return(nil)

	// Act
	result, err := service.GetOrCreate(ctx, userID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, userID, result.ID)
	userRepo.AssertExpectations(t)
}

func TestGetOrCreate_ConcurrentCreateRace(t *testing.T) {
	// Arrange
	userRepo := new(mocks.MockUserRepository)
	service := NewUserService(userRepo)

	ctx := context.Background()
	userID := uuid.New()
	existing := &entity.User{ID: userID}

	// Вставка проигрывает гонку параллельному запросу того же пользователя
	userRepo.On("GetByID", ctx, userID).Return(nil, repository.ErrUserNotFound).Once()
	userRepo.On("Create", ctx, mock.AnythingOfType("*entity.User")).Return(errors.New("duplicate key value"))
	userRepo.On("GetByID", ctx, userID).Return(existing, nil).Once()

	// Act
	result, err := service.GetOrCreate(ctx, userID)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, userID, result.ID)
	userRepo.AssertExpectations(t)
}

func TestGetOrCreate_RepositoryError(t *testing.T) {
	// Arrange
	userRepo := new(mocks.MockUserRepository)
	service := NewUserService(userRepo)

	ctx := context.Background()
	userID := uuid.New()

	userRepo.On("GetByID", ctx, userID).Return(nil, errors.New("connection refused"))

	// Act
	result, err := service.GetOrCreate(ctx, userID)

	// Assert
	assert.Nil(t, result)
	assert.Error(t, err)
}
