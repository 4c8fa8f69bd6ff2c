package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/services"
	"github.com/senyabanana/order-bidding/internal/utils"
)

// OrderHandler - структура для обработки HTTP-запросов по заказам.
type OrderHandler struct {
	Service *services.OrderService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewOrderHandler создаёт новый экземпляр OrderHandler.
func NewOrderHandler(service *services.OrderService, logger *slog.Logger, timeout time.Duration) *OrderHandler {
	return &OrderHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetOrders обрабатывает запросы для получения списка заказов.
// Необязательный фильтр: ?status=pending&status=bidding или ?status=pending,bidding.
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var statuses []string
	for _, raw := range r.URL.Query()["status"] {
		for _, status := range strings.Split(raw, ",") {
			if status = strings.TrimSpace(status); status != "" {
				statuses = append(statuses, status)
			}
		}
	}

	orders, err := h.Service.ListOrders(ctx, statuses)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch orders")
		return
	}
	utils.SendJSON(w, http.StatusOK, orders)
}

// GetOrder обрабатывает запросы для получения заказа по ID.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	order, err := h.Service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch order")
		return
	}
	utils.SendJSON(w, http.StatusOK, order)
}

// CreateOrder обрабатывает запросы для создания заказа.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var orderReq models.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&orderReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.Service.CreateOrder(ctx, principal, orderReq)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to create order")
		return
	}
	utils.SendJSON(w, http.StatusCreated, order)
}

// UpdateOrder обрабатывает запросы для редактирования заказа.
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.OrderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.Service.UpdateOrder(ctx, principal, r.PathValue("id"), patch)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to update order")
		return
	}
	utils.SendJSON(w, http.StatusOK, order)
}

// DeleteOrder обрабатывает запросы для удаления заказа.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	orderId := r.PathValue("id")
	if err := h.Service.DeleteOrder(ctx, principal, orderId); err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to delete order")
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"id": orderId})
}

// CompleteOrder обрабатывает запросы для завершения заказа.
func (h *OrderHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	order, err := h.Service.CompleteOrder(ctx, principal, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to complete order")
		return
	}
	utils.SendJSON(w, http.StatusOK, order)
}
