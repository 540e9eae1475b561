package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"parceldelivery/internal/app/delivery/entity"
	"parceldelivery/internal/app/delivery/service"
	"parceldelivery/pkg/logger"
	"parceldelivery/pkg/metrics"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const serviceName = "delivery-worker"

// messageReader - операции kafka.Reader, нужные циклу потребления
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.ReaderStats
}

// KafkaConsumer обрабатывает сообщения отложенной регистрации посылок
// Читает строго последовательно: следующее сообщение запрашивается только
// после подтверждения или отклонения текущего (эквивалент prefetch = 1),
// backpressure виден брокеру через лаг consumer group
type KafkaConsumer struct {
	reader    messageReader
	parcelSvc service.ParcelServiceInterface
	userSvc   service.UserServiceInterface
	topic     string
	groupID   string
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewKafkaConsumer создает новый Kafka consumer
func NewKafkaConsumer(
	brokers []string,
	topic string,
	groupID string,
	parcelSvc service.ParcelServiceInterface,
	userSvc service.UserServiceInterface,
) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		// Offset коммитится явно после обработки каждого сообщения
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: 1 * time.Second,
	})

	return &KafkaConsumer{
		reader:    reader,
		parcelSvc: parcelSvc,
		userSvc:   userSvc,
		topic:     topic,
		groupID:   groupID,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start запускает consumer в отдельной горутине
func (c *KafkaConsumer) Start(ctx context.Context) {
	logger.Info().
		Str("topic", c.topic).
		Str("group", c.groupID).
		Msg("Starting Kafka consumer")

	go c.consume(ctx)
}

// Stop останавливает consumer и дожидается завершения цикла
func (c *KafkaConsumer) Stop() {
	logger.Info().Msg("Stopping Kafka consumer")
	close(c.stopChan)
	<-c.doneChan
	c.reader.Close()
	logger.Info().Msg("Kafka consumer stopped")
}

// consume читает и обрабатывает сообщения по одному
// Неподтвержденное на момент остановки сообщение брокер передоставит другому
// consumer - регистрация идемпотентна именно для того, чтобы at-least-once
// доставка была безопасной
func (c *KafkaConsumer) consume(ctx context.Context) {
	defer close(c.doneChan)

	for {
		select {
		case <-c.stopChan:
			return
		default:
			readCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			message, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// readCtx.Err() здесь непригоден: после cancel() он не-nil
				// при любой ошибке, различаем только сам истекший дедлайн
				if errors.Is(err, context.DeadlineExceeded) {
					// Нет сообщений - опрашиваем снова
					continue
				}
				logger.Error().Err(err).Msg("Error fetching message")
				time.Sleep(time.Second)
				continue
			}

			if err := c.processMessage(ctx, message); err != nil {
				// Reject с возвратом в очередь: offset не коммитится,
				// после перезапуска или ребаланса сообщение придет снова.
				// Отсечки для ядовитых сообщений нет - постоянно битое
				// сообщение будет циклиться (известное ограничение)
				logger.Error().
					Err(err).
					Int64("offset", message.Offset).
					Int("partition", message.Partition).
					Msg("Error processing message, offset not committed")
				continue
			}

			if err := c.reader.CommitMessages(ctx, message); err != nil {
				logger.Error().Err(err).Msg("Error committing message")
			}
		}
	}
}

// processMessage обрабатывает одно сообщение отложенной регистрации
func (c *KafkaConsumer) processMessage(ctx context.Context, message kafka.Message) error {
	start := time.Now()

	var msg entity.ParcelQueuedMessage
	if err := json.Unmarshal(message.Value, &msg); err != nil {
		metrics.WorkerMessagesProcessed.WithLabelValues("parse_error").Inc()
		return fmt.Errorf("failed to unmarshal registration message: %w", err)
	}

	if err := validateQueuedMessage(&msg); err != nil {
		metrics.WorkerMessagesProcessed.WithLabelValues("parse_error").Inc()
		return fmt.Errorf("invalid registration message: %w", err)
	}

	logger.Debug().
		Str("request_id", msg.RequestID.String()).
		Str("user_id", msg.UserID.String()).
		Int64("offset", message.Offset).
		Msg("Received registration message")

	// Владелец создается лениво при первом упоминании
	user, err := c.userSvc.GetOrCreate(ctx, msg.UserID)
	if err != nil {
		metrics.WorkerMessagesProcessed.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to resolve user: %w", err)
	}

	req := &entity.RegisterParcelRequest{
		RequestID:    &msg.RequestID,
		Name:         msg.Name,
		Weight:       msg.Weight,
		DollarPrice:  msg.DollarPrice,
		ParcelTypeID: msg.ParcelTypeID,
	}

	parcel, err := c.parcelSvc.Register(ctx, user.ID, req)
	if err != nil {
		metrics.WorkerMessagesProcessed.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to register parcel: %w", err)
	}

	metrics.WorkerMessagesProcessed.WithLabelValues("success").Inc()
	metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())
	metrics.RecordKafkaMessageConsumed(serviceName, c.topic, c.groupID, time.Since(start))

	logger.Info().
		Str("request_id", msg.RequestID.String()).
		Str("parcel_id", parcel.ID.String()).
		Msg("Registered parcel from queued message")

	return nil
}

// validateQueuedMessage проверяет обязательные поля и знаки значений
// Синтаксически корректный JSON с невалидными полями - тоже ошибка разбора
func validateQueuedMessage(msg *entity.ParcelQueuedMessage) error {
	if msg.RequestID == uuid.Nil {
		return fmt.Errorf("request_id is required")
	}
	if msg.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if msg.ParcelTypeID == uuid.Nil {
		return fmt.Errorf("parcel_type_id is required")
	}
	if msg.Weight < 0 {
		return fmt.Errorf("weight cannot be negative")
	}
	if msg.DollarPrice < 0 {
		return fmt.Errorf("dollar_price cannot be negative")
	}
	return nil
}

// GetStats возвращает статистику consumer
func (c *KafkaConsumer) GetStats() kafka.ReaderStats {
	return c.reader.Stats()
}
