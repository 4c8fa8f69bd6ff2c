package events

import (
	"context"
	"log/slog"

	"github.com/senyabanana/order-bidding/internal/models"
)

//go:generate mockgen -source=producer.go -destination=mock/producer.go -package=mock

// Producer отправляет пачку записей outbox во внешний брокер.
type Producer interface {
	Push(ctx context.Context, messages []models.OutboxMessage) error
	Close() error
}

// LogProducer пишет события в лог. Используется, когда брокер не настроен.
type LogProducer struct {
	logger *slog.Logger
}

// NewLogProducer создает новый экземпляр LogProducer.
func NewLogProducer(logger *slog.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

// Push логирует каждое событие.
func (p *LogProducer) Push(ctx context.Context, messages []models.OutboxMessage) error {
	for _, msg := range messages {
		p.logger.InfoContext(ctx, "domain event",
			"outbox_id", msg.ID,
			"type", msg.Type,
			"key", msg.Key,
			"content", string(msg.Content))
	}
	return nil
}

func (p *LogProducer) Close() error { return nil }
