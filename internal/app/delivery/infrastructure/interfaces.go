package infrastructure

import "context"

// MessagePublisher определяет интерфейс публикации сообщений в очередь
// Вызов возвращается после подтверждения брокера, не дожидаясь обработки
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
}
