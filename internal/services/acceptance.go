package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
)

const acceptedMessage = "Bid accepted successfully"

// AcceptanceCoordinator принимает предложение: одной транзакцией переводит его в
// accepted, назначает победителя заказу и отклоняет остальные предложения.
type AcceptanceCoordinator struct {
	orders     repository.OrderRepository
	bids       repository.BidRepository
	outbox     repository.OutboxRepository
	tx         repository.TxManager
	access     AccessPolicy
	policy     BidPolicy
	maxRetries int
	logger     *slog.Logger
}

// NewAcceptanceCoordinator создает новый экземпляр AcceptanceCoordinator.
func NewAcceptanceCoordinator(
	orders repository.OrderRepository,
	bids repository.BidRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	access AccessPolicy,
	policy BidPolicy,
	maxRetries int,
	logger *slog.Logger,
) *AcceptanceCoordinator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AcceptanceCoordinator{
		orders:     orders,
		bids:       bids,
		outbox:     outbox,
		tx:         tx,
		access:     access,
		policy:     policy,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Accept принимает предложение bidId от имени владельца заказа. Конфликт версий
// повторяется целиком, после исчерпания попыток возвращается Conflict.
func (c *AcceptanceCoordinator) Accept(ctx context.Context, principal models.Principal, bidId string) (*models.AcceptResult, error) {
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		result, err := c.acceptOnce(ctx, principal, bidId)
		if err == nil {
			return result, nil
		}
		if !repository.IsRetryable(err) {
			return nil, translateStoreError(err, "bid not found")
		}
		c.logger.Warn("bid acceptance conflict", "bid_id", bidId, "attempt", attempt, "error", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, models.ConflictError("bid acceptance conflicted with a concurrent change, retry the request")
}

func (c *AcceptanceCoordinator) acceptOnce(ctx context.Context, principal models.Principal, bidId string) (*models.AcceptResult, error) {
	var result *models.AcceptResult
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		bid, err := c.bids.GetBid(ctx, bidId)
		if err != nil {
			return notFoundOr(err, "bid not found")
		}

		order, err := c.orders.GetOrderForUpdate(ctx, bid.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found")
		}
		if !c.access.IsOwner(principal, order.UserID) {
			return models.UnauthorizedError("user not authorized")
		}

		// Повторное чтение под блокировкой заказа.
		bid, err = c.bids.GetBid(ctx, bidId)
		if err != nil {
			return notFoundOr(err, "bid not found")
		}
		if order.Status != models.BiddingOrder {
			return models.ConflictError("order is no longer open for bidding")
		}
		if err := bid.Accept(); err != nil {
			return models.InvalidStateError("only pending bids can be accepted")
		}
		if err := c.bids.UpdateBidStatus(ctx, bid); err != nil {
			return err
		}

		if err := order.AssignWinner(bid); err != nil {
			return models.ConflictError("order is no longer open for bidding")
		}
		if err := c.orders.UpdateOrder(ctx, order); err != nil {
			return err
		}

		rejected, err := c.bids.RejectSiblingBids(ctx, order.ID, bid.ID, c.policy.siblingKeepStatuses())
		if err != nil {
			return fmt.Errorf("failed to reject sibling bids: %w", err)
		}

		if err := recordEvent(ctx, c.outbox, models.Event{
			Type:    models.BidAcceptedEvent,
			OrderID: order.ID,
			BidID:   bid.ID,
			ActorID: principal.ID,
			Status:  string(order.Status),
		}); err != nil {
			return err
		}

		c.logger.Debug("bid accepted", "bid_id", bid.ID, "order_id", order.ID, "rejected_siblings", rejected)
		result = &models.AcceptResult{Message: acceptedMessage, Bid: bid, Order: order}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// notFoundOr переводит только ErrNotFound, остальные ошибки остаются как есть,
// чтобы конфликт версий можно было повторить.
func notFoundOr(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NotFoundError(message)
	}
	return err
}
