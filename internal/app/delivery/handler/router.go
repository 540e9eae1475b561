package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parceldelivery/pkg/logger"
	"parceldelivery/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
func SetupRoutes(parcelHandler *ParcelHandler, currencyHandler *CurrencyHandler, authMiddleware *AuthMiddleware) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("delivery-api"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "delivery-api",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Delivery endpoints - все требуют аутентификации
	delivery := router.Group("/delivery/parcels")
	delivery.Use(authMiddleware.Authenticate())
	{
		delivery.POST("", parcelHandler.RegisterParcel)                      // Синхронная регистрация
		delivery.POST("/background", parcelHandler.RegisterParcelBackground) // Регистрация через очередь
		delivery.GET("", parcelHandler.ListParcels)                          // Посылки пользователя
		delivery.GET("/types", parcelHandler.ListParcelTypes)                // Справочник типов
		delivery.GET("/:id", parcelHandler.GetParcel)                        // Посылка по ID
	}

	// Currency endpoints - публичные, курс не зависит от пользователя
	currency := router.Group("/currency")
	{
		currency.GET("/:code", currencyHandler.GetRate)
	}

	return router
}
