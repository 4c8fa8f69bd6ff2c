package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type BidStatus string // Статус предложения

const (
	PendingBid   BidStatus = "pending"   // Предложение ожидает решения
	AcceptedBid  BidStatus = "accepted"  // Предложение принято
	RejectedBid  BidStatus = "rejected"  // Предложение отклонено
	WithdrawnBid BidStatus = "withdrawn" // Предложение отозвано производителем
)

// Bid представляет модель предложения.
type Bid struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order"`
	ManufacturerID string          `json:"manufacturer"`
	PricePerUnit   decimal.Decimal `json:"pricePerUnit"`
	Price          decimal.Decimal `json:"price"`
	Deadline       time.Time       `json:"deadline"`
	Proposal       string          `json:"proposal,omitempty"`
	Status         BidStatus       `json:"status"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// MaxTotalPrice - верхняя граница полной стоимости предложения, NUMERIC(16, 2).
var MaxTotalPrice = decimal.New(1, 14)

// TotalPrice считает полную стоимость: цена за единицу * количество.
func TotalPrice(pricePerUnit decimal.Decimal, quantity int) decimal.Decimal {
	return pricePerUnit.Mul(decimal.NewFromInt(int64(quantity)))
}

// Withdraw отзывает предложение. Допустимо только из pending.
func (b *Bid) Withdraw() error {
	if b.Status != PendingBid {
		return ErrInvalidStateTransition
	}
	b.Status = WithdrawnBid
	return nil
}

// Accept принимает предложение. Допустимо только из pending.
func (b *Bid) Accept() error {
	if b.Status != PendingBid {
		return ErrInvalidStateTransition
	}
	b.Status = AcceptedBid
	return nil
}

// Reject отклоняет предложение. При anyStatus предыдущий статус не проверяется.
func (b *Bid) Reject(anyStatus bool) error {
	if !anyStatus && b.Status != PendingBid {
		return ErrInvalidStateTransition
	}
	b.Status = RejectedBid
	return nil
}

// BidRequest представляет структуру запроса для создания предложения.
type BidRequest struct {
	OrderID      string      `json:"orderId"`
	PricePerUnit json.Number `json:"pricePerUnit"`
	Deadline     string      `json:"deadline"`
	Proposal     string      `json:"proposal"`
}

// BidWithOrder - предложение вместе с кратким описанием заказа.
type BidWithOrder struct {
	Bid
	Order *OrderSummary `json:"order"`
}

// BidWithManufacturer - предложение вместе с публичными данными производителя.
type BidWithManufacturer struct {
	Bid
	Manufacturer *PublicUser `json:"manufacturer"`
}

// AcceptResult - ответ на принятие предложения.
type AcceptResult struct {
	Message string `json:"message"`
	Bid     *Bid   `json:"bid"`
	Order   *Order `json:"order"`
}

// RejectResult - ответ на отклонение предложения.
type RejectResult struct {
	Message string `json:"message"`
	Bid     *Bid   `json:"bid"`
}
