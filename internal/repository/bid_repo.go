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

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, bidId string) (*models.Bid, error)
	HasBid(ctx context.Context, orderId, manufacturerId string, ignoreWithdrawn bool) (bool, error)
	ListManufacturerBids(ctx context.Context, manufacturerId string) ([]models.BidWithOrder, error)
	ListOrderBids(ctx context.Context, orderId string) ([]models.BidWithManufacturer, error)
	UpdateBidStatus(ctx context.Context, bid *models.Bid) error
	RejectSiblingBids(ctx context.Context, orderId, winningBidId string, keep []models.BidStatus) (int64, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `b.id, b.order_id, b.manufacturer_id, b.price_per_unit, b.price, b.deadline, b.proposal,
	b.status, b.version, b.created_at, b.updated_at`

func scanBid(row pgx.Row, bid *models.Bid, extra ...any) error {
	dest := []any{
		&bid.ID,
		&bid.OrderID,
		&bid.ManufacturerID,
		&bid.PricePerUnit,
		&bid.Price,
		&bid.Deadline,
		&bid.Proposal,
		&bid.Status,
		&bid.Version,
		&bid.CreatedAt,
		&bid.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

// CreateBid создает новое предложение.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	now := time.Now().UTC()
	bid.ID = uuid.New().String()
	bid.Version = 1
	bid.CreatedAt = now
	bid.UpdatedAt = now

	insertQuery := `INSERT INTO bids (id, order_id, manufacturer_id, price_per_unit, price, deadline, proposal, status, version, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := conn(ctx, r.DB).Exec(
		ctx,
		insertQuery,
		bid.ID,
		bid.OrderID,
		bid.ManufacturerID,
		bid.PricePerUnit,
		bid.Price,
		bid.Deadline,
		bid.Proposal,
		bid.Status,
		bid.Version,
		bid.CreatedAt,
		bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateBid
		}
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	var bid models.Bid
	query := `SELECT ` + bidColumns + ` FROM bids b WHERE b.id = $1`
	if err := scanBid(conn(ctx, r.DB).QueryRow(ctx, query, bidId), &bid); err != nil {
		return nil, notFound(err)
	}
	return &bid, nil
}

// HasBid проверяет, делал ли производитель предложение по заказу.
func (r *PostgresBidRepository) HasBid(ctx context.Context, orderId, manufacturerId string, ignoreWithdrawn bool) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bids WHERE order_id = $1 AND manufacturer_id = $2`
	if ignoreWithdrawn {
		query += ` AND status <> 'withdrawn'`
	}
	query += `)`

	var exists bool
	err := conn(ctx, r.DB).QueryRow(ctx, query, orderId, manufacturerId).Scan(&exists)
	return exists, err
}

// ListManufacturerBids возвращает предложения производителя, новые первыми.
func (r *PostgresBidRepository) ListManufacturerBids(ctx context.Context, manufacturerId string) ([]models.BidWithOrder, error) {
	query := `
		SELECT ` + bidColumns + `, o.id, o.title, o.quantity, o.description, o.deadline, o.status
		FROM bids b
		LEFT JOIN orders o ON o.id = b.order_id
		WHERE b.manufacturer_id = $1
		ORDER BY b.created_at DESC, b.id`
	rows, err := conn(ctx, r.DB).Query(ctx, query, manufacturerId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]models.BidWithOrder, 0)
	for rows.Next() {
		var (
			item                  models.BidWithOrder
			orderId, title, descr *string
			quantity              *int
			deadline              *string
			status                *models.OrderStatus
		)
		if err := scanBid(rows, &item.Bid, &orderId, &title, &quantity, &descr, &deadline, &status); err != nil {
			return nil, err
		}
		if orderId != nil {
			item.Order = &models.OrderSummary{
				ID:          *orderId,
				Title:       deref(title),
				Description: deref(descr),
				Deadline:    deadline,
			}
			if quantity != nil {
				item.Order.Quantity = *quantity
			}
			if status != nil {
				item.Order.Status = *status
			}
		}
		bids = append(bids, item)
	}
	return bids, rows.Err()
}

// ListOrderBids возвращает предложения по заказу, самые дешевые первыми.
func (r *PostgresBidRepository) ListOrderBids(ctx context.Context, orderId string) ([]models.BidWithManufacturer, error) {
	if uuid.Validate(orderId) != nil {
		return []models.BidWithManufacturer{}, nil
	}
	query := `
		SELECT ` + bidColumns + `, u.id, u.name, u.email
		FROM bids b
		LEFT JOIN users u ON u.id = b.manufacturer_id
		WHERE b.order_id = $1
		ORDER BY b.price ASC, b.created_at ASC`
	rows, err := conn(ctx, r.DB).Query(ctx, query, orderId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]models.BidWithManufacturer, 0)
	for rows.Next() {
		var (
			item                models.BidWithManufacturer
			userId, name, email *string
		)
		if err := scanBid(rows, &item.Bid, &userId, &name, &email); err != nil {
			return nil, err
		}
		if userId != nil {
			item.Manufacturer = &models.PublicUser{ID: *userId, Name: deref(name), Email: deref(email)}
		}
		bids = append(bids, item)
	}
	return bids, rows.Err()
}

// UpdateBidStatus сохраняет статус предложения, проверяя версию.
func (r *PostgresBidRepository) UpdateBidStatus(ctx context.Context, bid *models.Bid) error {
	now := time.Now().UTC()
	updateQuery := `UPDATE bids SET status = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`
	tag, err := conn(ctx, r.DB).Exec(ctx, updateQuery, bid.Status, now, bid.ID, bid.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOptimisticLock
	}
	bid.Version++
	bid.UpdatedAt = now
	return nil
}

// RejectSiblingBids отклоняет все остальные предложения по заказу, кроме
// победившего и тех, чей статус входит в keep.
func (r *PostgresBidRepository) RejectSiblingBids(ctx context.Context, orderId, winningBidId string, keep []models.BidStatus) (int64, error) {
	keepStatuses := make([]string, 0, len(keep)+1)
	keepStatuses = append(keepStatuses, string(models.RejectedBid))
	for _, s := range keep {
		keepStatuses = append(keepStatuses, string(s))
	}

	updateQuery := `
		UPDATE bids SET status = $1, version = version + 1, updated_at = $2
		WHERE order_id = $3 AND id <> $4 AND NOT (status = ANY($5))`
	tag, err := conn(ctx, r.DB).Exec(
		ctx,
		updateQuery,
		models.RejectedBid,
		time.Now().UTC(),
		orderId,
		winningBidId,
		pq.Array(keepStatuses))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
