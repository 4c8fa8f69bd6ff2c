package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
)

// Relay периодически забирает неотправленные записи outbox, публикует их и
// помечает отправленными. Запись помечается только после успешной отправки,
// поэтому доставка - at-least-once.
type Relay struct {
	repo      repository.OutboxRepository
	producer  Producer
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

// NewRelay создает новый экземпляр Relay.
func NewRelay(repo repository.OutboxRepository, producer Producer, batchSize int, interval time.Duration, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Relay{repo: repo, producer: producer, batchSize: batchSize, interval: interval, logger: logger}
}

// RelayOnce отправляет одну пачку и возвращает число отправленных записей.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	messages, err := r.repo.GetPendingOutbox(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load outbox: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}
	if err := r.producer.Push(ctx, messages); err != nil {
		return 0, fmt.Errorf("failed to push %d events: %w", len(messages), err)
	}
	if err := r.repo.MarkDoneOutboxes(ctx, extractIDs(messages)); err != nil {
		return 0, fmt.Errorf("failed to mark outbox done: %w", err)
	}
	return len(messages), nil
}

// Run крутит RelayOnce до отмены контекста. Ошибки пачки логируются, цикл продолжается.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return nil
		case <-ticker.C:
		}

		for {
			sent, err := r.RelayOnce(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				r.logger.Error("outbox relay failed", "error", err)
				break
			}
			if sent > 0 {
				r.logger.Debug("outbox batch sent", "count", sent)
			}
			if sent < r.batchSize {
				break
			}
		}
	}
}

func extractIDs(messages []models.OutboxMessage) []int64 {
	res := make([]int64, 0, len(messages))
	for _, msg := range messages {
		res = append(res, msg.ID)
	}
	return res
}
