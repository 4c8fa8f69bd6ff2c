package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
	"github.com/senyabanana/order-bidding/internal/utils"

	"github.com/shopspring/decimal"
)

// OrderService управляет жизненным циклом заказа.
type OrderService struct {
	Repo   repository.OrderRepository
	outbox repository.OutboxRepository
	tx     repository.TxManager
	access AccessPolicy
}

// NewOrderService создаёт новый экземпляр OrderService.
func NewOrderService(repo repository.OrderRepository, outbox repository.OutboxRepository, tx repository.TxManager, access AccessPolicy) *OrderService {
	return &OrderService{Repo: repo, outbox: outbox, tx: tx, access: access}
}

// orderDetails - необязательные параметры изготовления на верхнем уровне заказа.
type orderDetails struct {
	Material  *string
	Color     *string
	Size      *string
	NoOfLogos json.Number
	Deadline  *string
}

// flattenCustomDetails переносит вложенные customDetails на верхний уровень.
// Вложенное значение побеждает, если оно задано.
func flattenCustomDetails(nested *models.CustomDetails, top orderDetails) orderDetails {
	if nested == nil {
		return top
	}
	flat := orderDetails{
		Material:  utils.FirstNonEmpty(nested.Material, top.Material),
		Color:     utils.FirstNonEmpty(nested.Color, top.Color),
		Size:      utils.FirstNonEmpty(nested.Size, top.Size),
		NoOfLogos: top.NoOfLogos,
		Deadline:  utils.FirstNonEmpty(nested.Deadline, top.Deadline),
	}
	if nested.Logos != "" {
		flat.NoOfLogos = nested.Logos
	}
	return flat
}

func (d orderDetails) apply(order *models.Order) error {
	if d.Material != nil {
		order.Material = d.Material
	}
	if d.Color != nil {
		order.Color = d.Color
	}
	if d.Size != nil {
		order.Size = d.Size
	}
	if d.Deadline != nil {
		order.Deadline = d.Deadline
	}
	logos, err := utils.ParseOptionalInt(d.NoOfLogos, "noOfLogos")
	if err != nil {
		return models.ValidationError(err.Error())
	}
	if logos != nil {
		order.NoOfLogos = logos
	}
	return nil
}

func parseUnitPrice(raw json.Number) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	price, err := utils.ParsePrice(raw, "price")
	if err != nil {
		return decimal.NullDecimal{}, models.ValidationError(err.Error())
	}
	return decimal.NewNullDecimal(price), nil
}

// CreateOrder создает новый заказ от имени пользователя в статусе pending.
func (s *OrderService) CreateOrder(ctx context.Context, principal models.Principal, orderReq models.OrderRequest) (*models.Order, error) {
	if orderReq.Title == "" || orderReq.Quantity == "" {
		return nil, models.ValidationError("please add a title and quantity")
	}
	quantity, err := utils.ParseQuantity(orderReq.Quantity)
	if err != nil {
		return nil, models.ValidationError(err.Error())
	}
	price, err := parseUnitPrice(orderReq.Price)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:      principal.ID,
		Title:       orderReq.Title,
		Description: orderReq.Description,
		Quantity:    quantity,
		Price:       price,
		Status:      models.PendingOrder,
	}
	details := flattenCustomDetails(orderReq.CustomDetails, orderDetails{
		Material:  orderReq.Material,
		Color:     orderReq.Color,
		Size:      orderReq.Size,
		NoOfLogos: orderReq.NoOfLogos,
		Deadline:  orderReq.Deadline,
	})
	if err := details.apply(order); err != nil {
		return nil, err
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Repo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.OrderCreatedEvent,
			OrderID: order.ID,
			ActorID: principal.ID,
			Status:  string(order.Status),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

// ListOrders получает список заказов с публичными данными заказчиков.
func (s *OrderService) ListOrders(ctx context.Context, statuses []string) ([]models.OrderWithOwner, error) {
	filter := make([]models.OrderStatus, 0, len(statuses))
	for _, status := range statuses {
		orderStatus := models.OrderStatus(status)
		if !models.ValidOrderStatus(orderStatus) {
			return nil, models.ValidationError(fmt.Sprintf("unsupported order status: %s", status))
		}
		filter = append(filter, orderStatus)
	}
	return s.Repo.ListOrders(ctx, filter)
}

// GetOrder получает заказ по ID без блокировки.
func (s *OrderService) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderId)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}
	return order, nil
}

// loadOwnedOrder блокирует заказ и проверяет, что пользователь им владеет.
func (s *OrderService) loadOwnedOrder(ctx context.Context, principal models.Principal, orderId string) (*models.Order, error) {
	order, err := s.Repo.GetOrderForUpdate(ctx, orderId)
	if err != nil {
		return nil, translateStoreError(err, "order not found")
	}
	if !s.access.IsOwner(principal, order.UserID) {
		return nil, models.UnauthorizedError("user not authorized")
	}
	return order, nil
}

// UpdateOrder меняет разрешенные поля заказа, пока он в статусе pending.
func (s *OrderService) UpdateOrder(ctx context.Context, principal models.Principal, orderId string, patch models.OrderPatch) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.loadOwnedOrder(ctx, principal, orderId)
		if err != nil {
			return err
		}
		if !order.Editable() {
			return models.InvalidStateError("cannot update non-pending order")
		}
		if err := applyOrderPatch(order, patch); err != nil {
			return err
		}
		if err := s.Repo.UpdateOrder(ctx, order); err != nil {
			return translateStoreError(err, "order not found")
		}
		updated = order
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.OrderUpdatedEvent,
			OrderID: order.ID,
			ActorID: principal.ID,
			Status:  string(order.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// applyOrderPatch переносит только редактируемые заказчиком поля.
func applyOrderPatch(order *models.Order, patch models.OrderPatch) error {
	if patch.Title != nil {
		if *patch.Title == "" {
			return models.ValidationError("title cannot be empty")
		}
		order.Title = *patch.Title
	}
	if patch.Description != nil {
		order.Description = *patch.Description
	}
	if patch.Quantity != "" {
		quantity, err := utils.ParseQuantity(patch.Quantity)
		if err != nil {
			return models.ValidationError(err.Error())
		}
		order.Quantity = quantity
	}
	if patch.Price != "" {
		price, err := parseUnitPrice(patch.Price)
		if err != nil {
			return err
		}
		order.Price = price
	}
	details := flattenCustomDetails(patch.CustomDetails, orderDetails{
		Material:  patch.Material,
		Color:     patch.Color,
		Size:      patch.Size,
		NoOfLogos: patch.NoOfLogos,
		Deadline:  patch.Deadline,
	})
	return details.apply(order)
}

// DeleteOrder удаляет заказ, пока он в статусе pending.
func (s *OrderService) DeleteOrder(ctx context.Context, principal models.Principal, orderId string) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.loadOwnedOrder(ctx, principal, orderId)
		if err != nil {
			return err
		}
		if !order.Editable() {
			return models.InvalidStateError("cannot delete non-pending order")
		}
		if err := s.Repo.DeleteOrder(ctx, order.ID, order.Version); err != nil {
			return translateStoreError(err, "order not found")
		}
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.OrderDeletedEvent,
			OrderID: order.ID,
			ActorID: principal.ID,
		})
	})
}

// CompleteOrder завершает заказ, находящийся в работе.
func (s *OrderService) CompleteOrder(ctx context.Context, principal models.Principal, orderId string) (*models.Order, error) {
	var completed *models.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := s.loadOwnedOrder(ctx, principal, orderId)
		if err != nil {
			return err
		}
		if err := order.Complete(); err != nil {
			return models.InvalidStateError("only in-progress orders can be completed")
		}
		if err := s.Repo.UpdateOrder(ctx, order); err != nil {
			return translateStoreError(err, "order not found")
		}
		completed = order
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.OrderCompletedEvent,
			OrderID: order.ID,
			ActorID: principal.ID,
			Status:  string(order.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}
