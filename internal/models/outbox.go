package models

import "time"

type (
	EventType    string // Тип доменного события
	OutboxStatus string // Статус записи outbox
)

const (
	OrderCreatedEvent   EventType = "order.created"
	OrderUpdatedEvent   EventType = "order.updated"
	OrderDeletedEvent   EventType = "order.deleted"
	OrderCompletedEvent EventType = "order.completed"
	BidCreatedEvent     EventType = "bid.created"
	BidWithdrawnEvent   EventType = "bid.withdrawn"
	BidAcceptedEvent    EventType = "bid.accepted"
	BidRejectedEvent    EventType = "bid.rejected"
	UserDeletedEvent    EventType = "user.deleted"

	OutboxPending OutboxStatus = "pending"
	OutboxDone    OutboxStatus = "done"
)

// Event - доменное событие, которое публикуется после коммита транзакции.
type Event struct {
	Type       EventType `json:"type"`
	OrderID    string    `json:"orderId"`
	BidID      string    `json:"bidId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	ActorID    string    `json:"actorId"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Key - ключ партиционирования: заказ, для событий пользователя - пользователь.
func (e Event) Key() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.UserID
}

// OutboxMessage - запись outbox, ожидающая отправки.
type OutboxMessage struct {
	ID        int64
	Key       string
	Type      EventType
	Content   []byte
	Status    OutboxStatus
	CreatedAt time.Time
}
