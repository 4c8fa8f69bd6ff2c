package services

import (
	"context"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
	"github.com/senyabanana/order-bidding/internal/utils"
)

type BidService struct {
	Repo       repository.BidRepository
	orders     repository.OrderRepository
	outbox     repository.OutboxRepository
	tx         repository.TxManager
	access     AccessPolicy
	policy     BidPolicy
	acceptance *AcceptanceCoordinator
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(
	repo repository.BidRepository,
	orders repository.OrderRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	access AccessPolicy,
	policy BidPolicy,
	acceptance *AcceptanceCoordinator,
) *BidService {
	return &BidService{
		Repo:       repo,
		orders:     orders,
		outbox:     outbox,
		tx:         tx,
		access:     access,
		policy:     policy,
		acceptance: acceptance,
	}
}

// CreateBid создает новое предложение производителя по заказу.
// Первое предложение переводит заказ из pending в bidding.
func (s *BidService) CreateBid(ctx context.Context, principal models.Principal, bidReq models.BidRequest) (*models.Bid, error) {
	if bidReq.OrderID == "" || bidReq.PricePerUnit == "" || bidReq.Deadline == "" {
		return nil, models.ValidationError("please provide orderId, pricePerUnit and deadline")
	}
	pricePerUnit, err := utils.ParsePrice(bidReq.PricePerUnit, "pricePerUnit")
	if err != nil {
		return nil, models.ValidationError(err.Error())
	}
	deadline, err := utils.ParseDeadline(bidReq.Deadline)
	if err != nil {
		return nil, models.ValidationError(err.Error())
	}

	var bid *models.Bid
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetOrderForUpdate(ctx, bidReq.OrderID)
		if err != nil {
			return translateStoreError(err, "order not found")
		}
		if order.Status != models.PendingOrder && order.Status != models.BiddingOrder {
			return models.InvalidStateError("order is not open for bidding")
		}

		exists, err := s.Repo.HasBid(ctx, order.ID, principal.ID, s.policy.RebidAfterWithdraw)
		if err != nil {
			return err
		}
		if exists {
			return models.DuplicateBidError("you have already placed a bid on this order")
		}

		total := models.TotalPrice(pricePerUnit, order.Quantity)
		if total.GreaterThanOrEqual(models.MaxTotalPrice) {
			return models.ValidationError("total price of the bid is too large")
		}

		bid = &models.Bid{
			OrderID:        order.ID,
			ManufacturerID: principal.ID,
			PricePerUnit:   pricePerUnit,
			Price:          total,
			Deadline:       deadline,
			Proposal:       bidReq.Proposal,
			Status:         models.PendingBid,
		}
		if err := s.Repo.CreateBid(ctx, bid); err != nil {
			return translateStoreError(err, "order not found")
		}

		if order.StartBidding() {
			if err := s.orders.UpdateOrder(ctx, order); err != nil {
				return translateStoreError(err, "order not found")
			}
		}

		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.BidCreatedEvent,
			OrderID: order.ID,
			BidID:   bid.ID,
			ActorID: principal.ID,
			Status:  string(bid.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// ListMyBids получает предложения производителя, новые первыми.
func (s *BidService) ListMyBids(ctx context.Context, principal models.Principal) ([]models.BidWithOrder, error) {
	return s.Repo.ListManufacturerBids(ctx, principal.ID)
}

// ListBidsForOrder получает предложения по заказу, самые дешевые первыми.
func (s *BidService) ListBidsForOrder(ctx context.Context, orderId string) ([]models.BidWithManufacturer, error) {
	return s.Repo.ListOrderBids(ctx, orderId)
}

// WithdrawBid отзывает собственное pending-предложение производителя.
func (s *BidService) WithdrawBid(ctx context.Context, principal models.Principal, bidId string) (*models.Bid, error) {
	var withdrawn *models.Bid
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		bid, err := s.Repo.GetBid(ctx, bidId)
		if err != nil {
			return translateStoreError(err, "bid not found")
		}
		if !s.access.IsOwner(principal, bid.ManufacturerID) {
			return models.UnauthorizedError("user not authorized")
		}

		if _, err := s.orders.GetOrderForUpdate(ctx, bid.OrderID); err != nil {
			return translateStoreError(err, "order not found")
		}
		if bid, err = s.Repo.GetBid(ctx, bidId); err != nil {
			return translateStoreError(err, "bid not found")
		}

		if err := bid.Withdraw(); err != nil {
			return models.InvalidStateError("only pending bids can be withdrawn")
		}
		if err := s.Repo.UpdateBidStatus(ctx, bid); err != nil {
			return translateStoreError(err, "bid not found")
		}
		withdrawn = bid
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.BidWithdrawnEvent,
			OrderID: bid.OrderID,
			BidID:   bid.ID,
			ActorID: principal.ID,
			Status:  string(bid.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return withdrawn, nil
}

// AcceptBid принимает предложение от имени владельца заказа.
func (s *BidService) AcceptBid(ctx context.Context, principal models.Principal, bidId string) (*models.AcceptResult, error) {
	return s.acceptance.Accept(ctx, principal, bidId)
}

// RejectBid отклоняет предложение от имени владельца заказа. Проверка текущего
// статуса зависит от BidPolicy.RejectAnyStatus.
func (s *BidService) RejectBid(ctx context.Context, principal models.Principal, bidId string) (*models.Bid, error) {
	var rejected *models.Bid
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		bid, err := s.Repo.GetBid(ctx, bidId)
		if err != nil {
			return translateStoreError(err, "bid not found")
		}
		order, err := s.orders.GetOrderForUpdate(ctx, bid.OrderID)
		if err != nil {
			return translateStoreError(err, "order not found")
		}
		if !s.access.IsOwner(principal, order.UserID) {
			return models.UnauthorizedError("user not authorized")
		}
		if bid, err = s.Repo.GetBid(ctx, bidId); err != nil {
			return translateStoreError(err, "bid not found")
		}

		if err := bid.Reject(s.policy.RejectAnyStatus); err != nil {
			return models.InvalidStateError("only pending bids can be rejected")
		}
		if err := s.Repo.UpdateBidStatus(ctx, bid); err != nil {
			return translateStoreError(err, "bid not found")
		}
		rejected = bid
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.BidRejectedEvent,
			OrderID: order.ID,
			BidID:   bid.ID,
			ActorID: principal.ID,
			Status:  string(bid.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}
