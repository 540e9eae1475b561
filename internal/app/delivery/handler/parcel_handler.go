package handler

import (
	"errors"
	"net/http"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ParcelHandler обрабатывает HTTP запросы для посылок с использованием Gin
type ParcelHandler struct {
	parcelService service.ParcelServiceInterface
	userService   service.UserServiceInterface
	validator     *validator.Validate
}

// NewParcelHandler создает новый обработчик посылок
func NewParcelHandler(parcelService service.ParcelServiceInterface, userService service.UserServiceInterface) *ParcelHandler {
	return &ParcelHandler{
		parcelService: parcelService,
		userService:   userService,
		validator:     validator.New(),
	}
}

// RegisterParcel обрабатывает POST /delivery/parcels
// Синхронно регистрирует посылку, идемпотентно по request_id
func (h *ParcelHandler) RegisterParcel(c *gin.Context) {
	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req entity.RegisterParcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Валидация
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	// Лениво создаем пользователя при первом обращении
	user, err := h.userService.GetOrCreate(c.Request.Context(), userUUID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
		return
	}

	// Регистрируем посылку
	parcel, err := h.parcelService.Register(c.Request.Context(), user.ID, &req)
	if err != nil {
		if errors.Is(err, service.ErrParcelTypeNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parcel type not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register parcel"})
		return
	}

	c.JSON(http.StatusCreated, parcel)
}

// RegisterParcelBackground обрабатывает POST /delivery/parcels/background
// Ставит регистрацию в очередь и отвечает сразу, не дожидаясь обработки
func (h *ParcelHandler) RegisterParcelBackground(c *gin.Context) {
	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req entity.RegisterParcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Валидация до постановки в очередь: битое сообщение не должно попасть в брокер
	if err := h.validator.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	requestID, err := h.parcelService.RegisterAsync(c.Request.Context(), userUUID, &req)
	if err != nil {
		if errors.Is(err, service.ErrPublishFailed) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to queue parcel registration"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue parcel registration"})
		return
	}

	c.JSON(http.StatusCreated, entity.ParcelAcceptedResponse{
		Status:    "in progress",
		RequestID: requestID,
	})
}

// GetParcel обрабатывает GET /delivery/parcels/{id}
// Возвращает посылку только её владельцу
func (h *ParcelHandler) GetParcel(c *gin.Context) {
	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	// Парсим parcelID из URL
	parcelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid parcel ID"})
		return
	}

	parcel, err := h.parcelService.GetParcel(c.Request.Context(), userUUID, parcelID)
	if err != nil {
		if errors.Is(err, service.ErrParcelNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Parcel not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcel"})
		return
	}

	c.JSON(http.StatusOK, parcel)
}

// ListParcels обрабатывает GET /delivery/parcels
// Возвращает посылки текущего пользователя с фильтрами и пагинацией
func (h *ParcelHandler) ListParcels(c *gin.Context) {
	userUUID, ok := currentUserID(c)
	if !ok {
		return
	}

	var filter entity.ParcelFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if err := h.validator.Struct(filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": formatValidationError(err)})
		return
	}

	parcels, err := h.parcelService.ListParcels(c.Request.Context(), userUUID, &filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcels"})
		return
	}

	c.JSON(http.StatusOK, entity.ParcelListResponse{
		Parcels: parcels,
		Total:   len(parcels),
	})
}

// ListParcelTypes обрабатывает GET /delivery/parcels/types
// Справочник типов посылок, общий для всех пользователей
func (h *ParcelHandler) ListParcelTypes(c *gin.Context) {
	types, err := h.parcelService.ListParcelTypes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get parcel types"})
		return
	}

	c.JSON(http.StatusOK, types)
}

// currentUserID достает UUID пользователя, установленный auth middleware
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, false
	}

	userUUID, ok := userID.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}

	return userUUID, true
}

// formatValidationError форматирует ошибки валидации
func formatValidationError(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
