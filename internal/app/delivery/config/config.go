package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config содержит все настройки приложения
// Один конфиг на оба процесса: API и воркер читают одни и те же секции
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	RateFeed RateFeedConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
}

type DatabaseConfig struct {
	Host     string // Хост PostgreSQL
	Port     string // Порт PostgreSQL
	User     string // Имя пользователя БД
	Password string // Пароль БД
	DBName   string // Имя базы данных
	SSLMode  string // Режим SSL (disable/require/verify-full)
}

// RedisConfig - настройки подключения к Redis
// Redis хранит курсы валют с TTL на ключ
type RedisConfig struct {
	Host     string // Хост Redis
	Port     string // Порт Redis
	Password string // Пароль Redis
	DB       int    // Номер БД Redis (обычно 0)
}

// KafkaConfig - настройки очереди отложенной регистрации
type KafkaConfig struct {
	Brokers []string // Список брокеров Kafka (формат: host:port)
	Topic   string   // Топик сообщений регистрации
	GroupID string   // ID группы потребителей воркера
}

// RateFeedConfig - настройки внешнего источника курсов валют
type RateFeedConfig struct {
	URL        string   // URL ежедневного JSON ЦБ
	TimeoutSec int      // Таймаут запроса в секундах
	// Валюты для прогрева кэша по расписанию воркером
	WarmCurrencies []string
	WarmSchedule   string // Cron расписание прогрева
}

type JWTConfig struct {
	Secret string // Секретный ключ проверки токенов с user_id claim
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "delivery"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "parcel_registrations"),
			GroupID: getEnv("KAFKA_GROUP_ID", "delivery-worker-group"),
		},
		RateFeed: RateFeedConfig{
			URL:            getEnv("RATE_FEED_URL", "https://www.cbr-xml-daily.ru/daily_json.js"),
			TimeoutSec:     getEnvInt("RATE_FEED_TIMEOUT_SEC", 3),
			WarmCurrencies: strings.Split(getEnv("RATE_WARM_CURRENCIES", "USD"), ","),
			// По умолчанию сразу после полуночи UTC, когда истекает TTL
			WarmSchedule: getEnv("RATE_WARM_SCHEDULE", "5 0 * * *"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-this-in-production"),
		},
	}, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
