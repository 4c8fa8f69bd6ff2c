package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string // Статус заказа

const (
	PendingOrder    OrderStatus = "pending"     // Заказ создан, предложений нет
	BiddingOrder    OrderStatus = "bidding"     // Получено первое предложение
	InProgressOrder OrderStatus = "in-progress" // Предложение принято
	CompletedOrder  OrderStatus = "completed"   // Заказ выполнен
)

// ErrInvalidStateTransition возвращается при недопустимом переходе статуса.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// allowedOrderTransition - статусы заказа двигаются только вперед.
var allowedOrderTransition = map[OrderStatus][]OrderStatus{
	PendingOrder:    {BiddingOrder},
	BiddingOrder:    {InProgressOrder},
	InProgressOrder: {CompletedOrder},
	CompletedOrder:  {},
}

// ValidOrderStatus проверяет, что статус входит в домен.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := allowedOrderTransition[s]
	return ok
}

// Order представляет модель заказа.
type Order struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Quantity     int                 `json:"quantity"`
	Price        decimal.NullDecimal `json:"price"`
	Material     *string             `json:"material,omitempty"`
	Color        *string             `json:"color,omitempty"`
	Size         *string             `json:"size,omitempty"`
	NoOfLogos    *int                `json:"noOfLogos,omitempty"`
	Deadline     *string             `json:"deadline,omitempty"`
	Status       OrderStatus         `json:"status"`
	Manufacturer *string             `json:"manufacturer,omitempty"`
	WinningBid   *string             `json:"winningBid,omitempty"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// CanTransition сообщает, разрешен ли переход в статус to.
func (o *Order) CanTransition(to OrderStatus) bool {
	for _, s := range allowedOrderTransition[o.Status] {
		if s == to {
			return true
		}
	}
	return false
}

// StartBidding переводит pending-заказ в bidding. Для остальных статусов ничего не делает.
func (o *Order) StartBidding() bool {
	if o.Status != PendingOrder {
		return false
	}
	o.Status = BiddingOrder
	return true
}

// AssignWinner фиксирует победившее предложение и переводит заказ в работу.
func (o *Order) AssignWinner(bid *Bid) error {
	if !o.CanTransition(InProgressOrder) {
		return ErrInvalidStateTransition
	}
	manufacturer := bid.ManufacturerID
	winningBid := bid.ID
	o.Status = InProgressOrder
	o.Manufacturer = &manufacturer
	o.WinningBid = &winningBid
	return nil
}

// Complete завершает заказ, находящийся в работе.
func (o *Order) Complete() error {
	if !o.CanTransition(CompletedOrder) {
		return ErrInvalidStateTransition
	}
	o.Status = CompletedOrder
	return nil
}

// Editable - заказ можно менять и удалять только до первого предложения.
func (o *Order) Editable() bool {
	return o.Status == PendingOrder
}

// PublicUser - публичные данные пользователя без учетных данных.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderWithOwner - заказ вместе с публичными данными заказчика.
type OrderWithOwner struct {
	Order
	User *PublicUser `json:"user"`
}

// OrderSummary - краткие данные заказа для списка предложений производителя.
type OrderSummary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Quantity    int         `json:"quantity"`
	Description string      `json:"description"`
	Deadline    *string     `json:"deadline,omitempty"`
	Status      OrderStatus `json:"status"`
}

// CustomDetails - вложенные параметры изготовления из запроса.
type CustomDetails struct {
	Material *string     `json:"material"`
	Color    *string     `json:"color"`
	Size     *string     `json:"size"`
	Logos    json.Number `json:"logos"`
	Deadline *string     `json:"deadline"`
}

// OrderRequest представляет структуру запроса для создания заказа.
type OrderRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Quantity      json.Number    `json:"quantity"`
	Price         json.Number    `json:"price"`
	Material      *string        `json:"material"`
	Color         *string        `json:"color"`
	Size          *string        `json:"size"`
	NoOfLogos     json.Number    `json:"noOfLogos"`
	Deadline      *string        `json:"deadline"`
	CustomDetails *CustomDetails `json:"customDetails"`
}

// OrderPatch - редактируемые заказчиком поля. Статус, производитель и
// победившее предложение сюда не входят.
type OrderPatch struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	Quantity      json.Number    `json:"quantity"`
	Price         json.Number    `json:"price"`
	Material      *string        `json:"material"`
	Color         *string        `json:"color"`
	Size          *string        `json:"size"`
	NoOfLogos     json.Number    `json:"noOfLogos"`
	Deadline      *string        `json:"deadline"`
	CustomDetails *CustomDetails `json:"customDetails"`
}
