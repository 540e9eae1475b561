package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parceldelivery/internal/app/delivery/config"
	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/handler"
	"parceldelivery/internal/app/delivery/processor"
	"parceldelivery/internal/app/delivery/repository"
	"parceldelivery/internal/app/delivery/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	log.Println("Starting Delivery Worker...")

	// === ИНИЦИАЛИЗАЦИЯ КОНФИГУРАЦИИ ===
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Создаем основной контекст приложения
	ctx := context.Background()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	// Воркер пишет в ту же БД, что и API: регистрация идемпотентна по request_id
	db, err := connectDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Successfully connected to PostgreSQL")

	// Миграции выполняет и воркер: порядок старта процессов не фиксирован
	if err := db.AutoMigrate(&entity.User{}, &entity.ParcelType{}, &entity.Parcel{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// === ПОДКЛЮЧЕНИЕ К REDIS ===
	// Redis используется для хранения курсов валют
	redisClient, err := connectRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Successfully connected to Redis")

	// === ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ ===
	parcelRepo := repository.NewParcelRepository(db)
	typeRepo := repository.NewParcelTypeRepository(db)
	userRepo := repository.NewUserRepository(db)
	rateCacheRepo := repository.NewRateCacheRepository(redisClient)
	log.Println("Repositories initialized")

	if err := typeRepo.Seed(ctx, entity.DefaultParcelTypes); err != nil {
		log.Fatalf("Failed to seed parcel types: %v", err)
	}

	// === ИНИЦИАЛИЗАЦИЯ СЕРВИСОВ ===
	feedClient := service.NewCBClient(cfg.RateFeed.URL, cfg.RateFeed.TimeoutSec)
	exchangeSvc := service.NewExchangeRateService(rateCacheRepo, feedClient)

	// Publisher не нужен: воркер только потребляет очередь
	parcelSvc := service.NewParcelService(parcelRepo, typeRepo, nil)
	userSvc := service.NewUserService(userRepo)
	log.Println("Services initialized")

	// === ИНИЦИАЛИЗАЦИЯ KAFKA CONSUMER ===
	kafkaConsumer := processor.NewKafkaConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.GroupID,
		parcelSvc,
		userSvc,
	)

	// Запускаем Kafka consumer
	kafkaConsumer.Start(ctx)
	defer kafkaConsumer.Stop()
	log.Printf("Kafka consumer started (topic: %s, group: %s)", cfg.Kafka.Topic, cfg.Kafka.GroupID)

	// === ИНИЦИАЛИЗАЦИЯ CRON SCHEDULER ===
	rateScheduler := processor.NewRateRefreshScheduler(exchangeSvc, cfg.RateFeed.WarmCurrencies)

	// Запускаем cron для прогрева кэша курсов валют
	if err := rateScheduler.Start(ctx, cfg.RateFeed.WarmSchedule); err != nil {
		log.Fatalf("Failed to start rate scheduler: %v", err)
	}
	defer rateScheduler.Stop()
	log.Printf("Rate scheduler started (schedule: %s)", cfg.RateFeed.WarmSchedule)

	// === ИНИЦИАЛИЗАЦИЯ HEALTHCHECK HTTP СЕРВЕРА ===
	healthHandler := handler.NewHealthCheckHandler(db, redisClient, exchangeSvc)

	mux := http.NewServeMux()
	healthHandler.RegisterRoutes(mux)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    ":8081",
		Handler: mux,
	}

	// Запускаем HTTP сервер в отдельной горутине
	go func() {
		log.Println("Starting healthcheck HTTP server on :8081...")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	// === ЗАПУСК ЗАВЕРШЕН ===
	log.Println("Delivery Worker is running")
	log.Printf("Waiting for registration messages from Kafka (topic: %s)...", cfg.Kafka.Topic)

	// === GRACEFUL SHUTDOWN ===
	// Ожидаем сигнала завершения (SIGINT или SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down Delivery Worker...")
	// Consumer дообработает текущее сообщение в Stop() через defer
	log.Println("Delivery Worker stopped gracefully")
}

// connectDB устанавливает соединение с PostgreSQL используя GORM
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	// Retry logic для устойчивости при запуске в Docker
	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else {
				if pingErr := sqlDB.Ping(); pingErr != nil {
					err = pingErr
				} else {
					// Настраиваем connection pool
					sqlDB.SetMaxOpenConns(10)
					sqlDB.SetMaxIdleConns(5)
					sqlDB.SetConnMaxLifetime(5 * time.Minute)
					sqlDB.SetConnMaxIdleTime(1 * time.Minute)
					return db, nil
				}
			}
		}
		log.Printf("Failed to connect to database (attempt %d/10): %v", i+1, err)
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}

// connectRedis устанавливает соединение с Redis
func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	// Проверяем соединение с retry logic
	for i := 0; i < 10; i++ {
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		log.Printf("Failed to connect to Redis (attempt %d/10)", i+1)
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to Redis after 10 attempts")
}
