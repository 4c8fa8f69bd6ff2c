package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/services"
	"github.com/senyabanana/order-bidding/internal/utils"
)

type BidHandler struct {
	Service *services.BidService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *slog.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для создания предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bid, err := h.Service.CreateBid(ctx, principal, bidReq)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to create bid")
		return
	}
	utils.SendJSON(w, http.StatusCreated, bid)
}

// GetMyBids обрабатывает запросы для получения предложений автора запроса.
func (h *BidHandler) GetMyBids(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.ListMyBids(ctx, principal)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// GetOrderBids обрабатывает запросы для получения предложений по заказу.
func (h *BidHandler) GetOrderBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.ListBidsForOrder(ctx, r.PathValue("orderId"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch order bids")
		return
	}
	utils.SendJSON(w, http.StatusOK, bids)
}

// WithdrawBid обрабатывает запросы для отзыва предложения.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.WithdrawBid(ctx, principal, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to withdraw bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, bid)
}

// AcceptBid обрабатывает запросы для принятия предложения владельцем заказа.
func (h *BidHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	result, err := h.Service.AcceptBid(ctx, principal, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to accept bid")
		return
	}
	h.Logger.Info("bid accepted", "bid_id", result.Bid.ID, "order_id", result.Order.ID)
	utils.SendJSON(w, http.StatusOK, result)
}

// RejectBid обрабатывает запросы для отклонения предложения владельцем заказа.
func (h *BidHandler) RejectBid(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.RejectBid(ctx, principal, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to reject bid")
		return
	}
	utils.SendJSON(w, http.StatusOK, models.RejectResult{Message: "Bid rejected", Bid: bid})
}
