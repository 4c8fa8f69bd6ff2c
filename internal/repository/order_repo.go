package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// OrderRepository - интерфейс для работы с заказами.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderId string) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, orderId string) (*models.Order, error)
	ListOrders(ctx context.Context, statuses []models.OrderStatus) ([]models.OrderWithOwner, error)
	UpdateOrder(ctx context.Context, order *models.Order) error
	DeleteOrder(ctx context.Context, orderId string, version int) error
}

// PostgresOrderRepository - реализация OrderRepository для базы данных.
type PostgresOrderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresOrderRepository создаёт новый экземпляр PostgresOrderRepository.
func NewPostgresOrderRepository(db *pgxpool.Pool) *PostgresOrderRepository {
	return &PostgresOrderRepository{DB: db}
}

const orderColumns = `o.id, o.user_id, o.title, o.description, o.quantity, o.price, o.material, o.color, o.size,
	o.no_of_logos, o.deadline, o.status, o.manufacturer_id, o.winning_bid_id, o.version, o.created_at, o.updated_at`

func scanOrder(row pgx.Row, order *models.Order, extra ...any) error {
	dest := []any{
		&order.ID,
		&order.UserID,
		&order.Title,
		&order.Description,
		&order.Quantity,
		&order.Price,
		&order.Material,
		&order.Color,
		&order.Size,
		&order.NoOfLogos,
		&order.Deadline,
		&order.Status,
		&order.Manufacturer,
		&order.WinningBid,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// CreateOrder создает новый заказ.
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.ID = uuid.New().String()
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO orders (id, user_id, title, description, quantity, price, material, color, size,
		                    no_of_logos, deadline, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		order.ID,
		order.UserID,
		order.Title,
		order.Description,
		order.Quantity,
		order.Price,
		order.Material,
		order.Color,
		order.Size,
		order.NoOfLogos,
		order.Deadline,
		order.Status,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по ID.
func (r *PostgresOrderRepository) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`
	if err := scanOrder(conn(ctx, r.DB).QueryRow(ctx, query, orderId), &order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// GetOrderForUpdate возвращает заказ и блокирует строку до конца транзакции.
func (r *PostgresOrderRepository) GetOrderForUpdate(ctx context.Context, orderId string) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 FOR UPDATE`
	if err := scanOrder(conn(ctx, r.DB).QueryRow(ctx, query, orderId), &order); err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// ListOrders возвращает заказы вместе с публичными данными заказчика.
func (r *PostgresOrderRepository) ListOrders(ctx context.Context, statuses []models.OrderStatus) ([]models.OrderWithOwner, error) {
	query := `SELECT ` + orderColumns + `, u.id, u.name, u.email
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id`
	var args []any
	if len(statuses) > 0 {
		filter := make([]string, 0, len(statuses))
		for _, s := range statuses {
			filter = append(filter, string(s))
		}
		query += ` WHERE o.status = ANY($1)`
		args = append(args, pq.Array(filter))
	}
	query += ` ORDER BY o.created_at, o.id`

	rows, err := conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]models.OrderWithOwner, 0)
	for rows.Next() {
		var (
			item                models.OrderWithOwner
			userId, name, email *string
		)
		if err := scanOrder(rows, &item.Order, &userId, &name, &email); err != nil {
			return nil, err
		}
		if userId != nil {
			item.User = &models.PublicUser{ID: *userId, Name: deref(name), Email: deref(email)}
		}
		orders = append(orders, item)
	}
	return orders, rows.Err()
}

// UpdateOrder сохраняет заказ, проверяя версию.
func (r *PostgresOrderRepository) UpdateOrder(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	tag, err := conn(ctx, r.DB).Exec(ctx, `
		UPDATE orders
		SET title = $1, description = $2, quantity = $3, price = $4, material = $5, color = $6, size = $7,
		    no_of_logos = $8, deadline = $9, status = $10, manufacturer_id = $11, winning_bid_id = $12,
		    version = version + 1, updated_at = $13
		WHERE id = $14 AND version = $15`,
		order.Title,
		order.Description,
		order.Quantity,
		order.Price,
		order.Material,
		order.Color,
		order.Size,
		order.NoOfLogos,
		order.Deadline,
		order.Status,
		order.Manufacturer,
		order.WinningBid,
		now,
		order.ID,
		order.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}
	order.Version++
	order.UpdatedAt = now
	return nil
}

// DeleteOrder удаляет заказ, проверяя версию.
func (r *PostgresOrderRepository) DeleteOrder(ctx context.Context, orderId string, version int) error {
	tag, err := conn(ctx, r.DB).Exec(ctx, `DELETE FROM orders WHERE id = $1 AND version = $2`, orderId, version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
