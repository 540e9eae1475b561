package handler

import (
	"errors"
	"net/http"
	"strings"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/service"

	"github.com/gin-gonic/gin"
)

// CurrencyHandler обрабатывает HTTP запросы за курсами валют
type CurrencyHandler struct {
	exchangeService service.ExchangeRateServiceInterface
}

// NewCurrencyHandler создает новый обработчик курсов валют
func NewCurrencyHandler(exchangeService service.ExchangeRateServiceInterface) *CurrencyHandler {
	return &CurrencyHandler{
		exchangeService: exchangeService,
	}
}

// GetRate обрабатывает GET /currency/{code}
// Отдает курс из кэша, при промахе ходит во внешний источник
func (h *CurrencyHandler) GetRate(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if len(code) != 3 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Currency code must be 3 letters"})
		return
	}

	value, err := h.exchangeService.GetRate(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrCurrencyNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown currency code"})
			return
		}
		if errors.Is(err, service.ErrRateSourceUnavailable) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Exchange rate source unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get exchange rate"})
		return
	}

	c.JSON(http.StatusOK, entity.CurrencyResponse{
		CurrencyName: code,
		Value:        value,
	})
}
