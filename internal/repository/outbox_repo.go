package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository - интерфейс для работы с таблицей outbox.
type OutboxRepository interface {
	CreateOutbox(ctx context.Context, event models.Event) error
	GetPendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkDoneOutboxes(ctx context.Context, ids []int64) error
}

// PostgresOutboxRepository - реализация OutboxRepository для базы данных.
type PostgresOutboxRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresOutboxRepository создает новый экземпляр PostgresOutboxRepository.
func NewPostgresOutboxRepository(db *pgxpool.Pool) *PostgresOutboxRepository {
	return &PostgresOutboxRepository{DB: db}
}

// CreateOutbox записывает событие. Вызывается внутри транзакции изменения.
func (r *PostgresOutboxRepository) CreateOutbox(ctx context.Context, event models.Event) error {
	content, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = conn(ctx, r.DB).Exec(
		ctx,
		`INSERT INTO outbox (key, type, content, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		event.Key(),
		event.Type,
		content,
		models.OutboxPending,
		time.Now().UTC())
	return err
}

// GetPendingOutbox возвращает неотправленные записи в порядке создания.
func (r *PostgresOutboxRepository) GetPendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	rows, err := conn(ctx, r.DB).Query(
		ctx,
		`SELECT id, key, type, content, status, created_at FROM outbox WHERE status = $1 ORDER BY id LIMIT NULLIF($2, 0)`,
		models.OutboxPending,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var msg models.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.Key, &msg.Type, &msg.Content, &msg.Status, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkDoneOutboxes помечает записи отправленными.
func (r *PostgresOutboxRepository) MarkDoneOutboxes(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn(ctx, r.DB).Exec(ctx, `UPDATE outbox SET status = $1 WHERE id = ANY($2)`, models.OutboxDone, ids)
	return err
}
