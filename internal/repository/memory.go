package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/google/uuid"
)

// MemoryStore - in-memory хранилище заказов, предложений, пользователей и outbox.
// Используется в тестах и при STORAGE=memory.
type MemoryStore struct {
	mu sync.RWMutex
	memoryData
}

type memoryData struct {
	users        map[string]models.User
	orders       map[string]models.Order
	bids         map[string]models.Bid
	orderIDs     []string
	bidIDs       []string
	outbox       []models.OutboxMessage
	nextOutboxID int64
}

var (
	_ OrderRepository  = (*MemoryStore)(nil)
	_ BidRepository    = (*MemoryStore)(nil)
	_ UserRepository   = (*MemoryStore)(nil)
	_ OutboxRepository = (*MemoryStore)(nil)
	_ TxManager        = (*MemoryStore)(nil)
)

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memoryData: memoryData{
		users:        make(map[string]models.User),
		orders:       make(map[string]models.Order),
		bids:         make(map[string]models.Bid),
		nextOutboxID: 1,
	}}
}

type memoryTxKey struct{}

func inMemoryTx(ctx context.Context) bool {
	v, _ := ctx.Value(memoryTxKey{}).(bool)
	return v
}

func (m *MemoryStore) rlock(ctx context.Context) func() {
	if inMemoryTx(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *MemoryStore) wlock(ctx context.Context) func() {
	if inMemoryTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (d memoryData) clone() memoryData {
	c := memoryData{
		users:        make(map[string]models.User, len(d.users)),
		orders:       make(map[string]models.Order, len(d.orders)),
		bids:         make(map[string]models.Bid, len(d.bids)),
		orderIDs:     slices.Clone(d.orderIDs),
		bidIDs:       slices.Clone(d.bidIDs),
		outbox:       slices.Clone(d.outbox),
		nextOutboxID: d.nextOutboxID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.bids {
		c.bids[k] = v
	}
	return c
}

// WithTransaction держит блокировку записи на все время fn и откатывает
// изменения, если fn вернула ошибку.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemoryTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.memoryData.clone()
	if err := fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		m.memoryData = snapshot
		return err
	}
	return nil
}

// CreateOrder создает новый заказ.
func (m *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	defer m.wlock(ctx)()
	now := time.Now().UTC()
	order.ID = uuid.New().String()
	order.Version = 1
	order.CreatedAt = now
	order.UpdatedAt = now
	m.orders[order.ID] = *order
	m.orderIDs = append(m.orderIDs, order.ID)
	return nil
}

// GetOrder возвращает копию заказа.
func (m *MemoryStore) GetOrder(ctx context.Context, orderId string) (*models.Order, error) {
	defer m.rlock(ctx)()
	order, ok := m.orders[orderId]
	if !ok {
		return nil, ErrNotFound
	}
	return &order, nil
}

// GetOrderForUpdate совпадает с GetOrder: внутри транзакции хранилище уже заблокировано.
func (m *MemoryStore) GetOrderForUpdate(ctx context.Context, orderId string) (*models.Order, error) {
	return m.GetOrder(ctx, orderId)
}

// ListOrders возвращает заказы в порядке создания.
func (m *MemoryStore) ListOrders(ctx context.Context, statuses []models.OrderStatus) ([]models.OrderWithOwner, error) {
	defer m.rlock(ctx)()
	orders := make([]models.OrderWithOwner, 0, len(m.orderIDs))
	for _, id := range m.orderIDs {
		order := m.orders[id]
		if len(statuses) > 0 && !slices.Contains(statuses, order.Status) {
			continue
		}
		item := models.OrderWithOwner{Order: order}
		if user, ok := m.users[order.UserID]; ok {
			item.User = user.Public()
		}
		orders = append(orders, item)
	}
	return orders, nil
}

// UpdateOrder сохраняет заказ, проверяя версию.
func (m *MemoryStore) UpdateOrder(ctx context.Context, order *models.Order) error {
	defer m.wlock(ctx)()
	current, ok := m.orders[order.ID]
	if !ok || current.Version != order.Version {
		return ErrOptimisticLock
	}
	order.Version++
	order.UpdatedAt = time.Now().UTC()
	m.orders[order.ID] = *order
	return nil
}

// DeleteOrder удаляет заказ вместе с его предложениями.
func (m *MemoryStore) DeleteOrder(ctx context.Context, orderId string, version int) error {
	defer m.wlock(ctx)()
	current, ok := m.orders[orderId]
	if !ok || current.Version != version {
		return ErrOptimisticLock
	}
	delete(m.orders, orderId)
	m.orderIDs = slices.DeleteFunc(m.orderIDs, func(id string) bool { return id == orderId })
	m.bidIDs = slices.DeleteFunc(m.bidIDs, func(id string) bool {
		if m.bids[id].OrderID != orderId {
			return false
		}
		delete(m.bids, id)
		return true
	})
	return nil
}

// CreateBid создает новое предложение.
func (m *MemoryStore) CreateBid(ctx context.Context, bid *models.Bid) error {
	defer m.wlock(ctx)()
	if _, ok := m.orders[bid.OrderID]; !ok {
		return fmt.Errorf("failed to insert bid: order %s does not exist", bid.OrderID)
	}
	for _, id := range m.bidIDs {
		existing := m.bids[id]
		if existing.OrderID == bid.OrderID && existing.ManufacturerID == bid.ManufacturerID &&
			(existing.Status == models.PendingBid || existing.Status == models.AcceptedBid) {
			return ErrDuplicateBid
		}
	}
	now := time.Now().UTC()
	bid.ID = uuid.New().String()
	bid.Version = 1
	bid.CreatedAt = now
	bid.UpdatedAt = now
	m.bids[bid.ID] = *bid
	m.bidIDs = append(m.bidIDs, bid.ID)
	return nil
}

// GetBid возвращает копию предложения.
func (m *MemoryStore) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	defer m.rlock(ctx)()
	bid, ok := m.bids[bidId]
	if !ok {
		return nil, ErrNotFound
	}
	return &bid, nil
}

// HasBid проверяет, делал ли производитель предложение по заказу.
func (m *MemoryStore) HasBid(ctx context.Context, orderId, manufacturerId string, ignoreWithdrawn bool) (bool, error) {
	defer m.rlock(ctx)()
	for _, id := range m.bidIDs {
		bid := m.bids[id]
		if bid.OrderID != orderId || bid.ManufacturerID != manufacturerId {
			continue
		}
		if ignoreWithdrawn && bid.Status == models.WithdrawnBid {
			continue
		}
		return true, nil
	}
	return false, nil
}

// ListManufacturerBids возвращает предложения производителя, новые первыми.
func (m *MemoryStore) ListManufacturerBids(ctx context.Context, manufacturerId string) ([]models.BidWithOrder, error) {
	defer m.rlock(ctx)()
	bids := make([]models.BidWithOrder, 0)
	for i := len(m.bidIDs) - 1; i >= 0; i-- {
		bid := m.bids[m.bidIDs[i]]
		if bid.ManufacturerID != manufacturerId {
			continue
		}
		item := models.BidWithOrder{Bid: bid}
		if order, ok := m.orders[bid.OrderID]; ok {
			item.Order = &models.OrderSummary{
				ID:          order.ID,
				Title:       order.Title,
				Quantity:    order.Quantity,
				Description: order.Description,
				Deadline:    order.Deadline,
				Status:      order.Status,
			}
		}
		bids = append(bids, item)
	}
	return bids, nil
}

// ListOrderBids возвращает предложения по заказу, самые дешевые первыми.
func (m *MemoryStore) ListOrderBids(ctx context.Context, orderId string) ([]models.BidWithManufacturer, error) {
	defer m.rlock(ctx)()
	bids := make([]models.BidWithManufacturer, 0)
	for _, id := range m.bidIDs {
		bid := m.bids[id]
		if bid.OrderID != orderId {
			continue
		}
		item := models.BidWithManufacturer{Bid: bid}
		if user, ok := m.users[bid.ManufacturerID]; ok {
			item.Manufacturer = user.Public()
		}
		bids = append(bids, item)
	}
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].Price.LessThan(bids[j].Price)
	})
	return bids, nil
}

// UpdateBidStatus сохраняет статус предложения, проверяя версию.
func (m *MemoryStore) UpdateBidStatus(ctx context.Context, bid *models.Bid) error {
	defer m.wlock(ctx)()
	current, ok := m.bids[bid.ID]
	if !ok || current.Version != bid.Version {
		return ErrOptimisticLock
	}
	bid.Version++
	bid.UpdatedAt = time.Now().UTC()
	current.Status = bid.Status
	current.Version = bid.Version
	current.UpdatedAt = bid.UpdatedAt
	m.bids[bid.ID] = current
	return nil
}

// RejectSiblingBids отклоняет остальные предложения по заказу.
func (m *MemoryStore) RejectSiblingBids(ctx context.Context, orderId, winningBidId string, keep []models.BidStatus) (int64, error) {
	defer m.wlock(ctx)()
	var affected int64
	now := time.Now().UTC()
	for _, id := range m.bidIDs {
		bid := m.bids[id]
		if bid.OrderID != orderId || bid.ID == winningBidId {
			continue
		}
		if bid.Status == models.RejectedBid || slices.Contains(keep, bid.Status) {
			continue
		}
		bid.Status = models.RejectedBid
		bid.Version++
		bid.UpdatedAt = now
		m.bids[id] = bid
		affected++
	}
	return affected, nil
}

// GetUser получает пользователя по ID.
func (m *MemoryStore) GetUser(ctx context.Context, userId string) (*models.User, error) {
	defer m.rlock(ctx)()
	user, ok := m.users[userId]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// GetUserByTokenHash получает пользователя по хэшу токена доступа.
func (m *MemoryStore) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	defer m.rlock(ctx)()
	for _, user := range m.users {
		if tokenHash != "" && user.TokenHash == tokenHash {
			return &user, nil
		}
	}
	return nil, ErrNotFound
}

// ListUsers возвращает пользователей в порядке создания.
func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	defer m.rlock(ctx)()
	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// UpsertUser создает пользователя или обновляет существующего с тем же email.
func (m *MemoryStore) UpsertUser(ctx context.Context, user *models.User) error {
	defer m.wlock(ctx)()
	for id, existing := range m.users {
		if existing.Email == user.Email {
			if m.tokenTaken(user.TokenHash, id) {
				return ErrDuplicateUser
			}
			user.ID = id
			user.CreatedAt = existing.CreatedAt
			m.users[id] = *user
			return nil
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if m.tokenTaken(user.TokenHash, user.ID) {
		return ErrDuplicateUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.ID] = *user
	return nil
}

// UpdateUser сохраняет имя, email, компанию и хэш токена пользователя.
func (m *MemoryStore) UpdateUser(ctx context.Context, user *models.User) error {
	defer m.wlock(ctx)()
	current, ok := m.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != user.ID && other.Email == user.Email {
			return ErrDuplicateUser
		}
	}
	if m.tokenTaken(user.TokenHash, user.ID) {
		return ErrDuplicateUser
	}
	current.Name = user.Name
	current.Email = user.Email
	current.CompanyName = user.CompanyName
	current.TokenHash = user.TokenHash
	m.users[user.ID] = current
	return nil
}

func (m *MemoryStore) tokenTaken(tokenHash, ownerId string) bool {
	for id, other := range m.users {
		if tokenHash != "" && id != ownerId && other.TokenHash == tokenHash {
			return true
		}
	}
	return false
}

// HasAssignedOrders проверяет, назначен ли пользователь исполнителем чужого заказа.
func (m *MemoryStore) HasAssignedOrders(ctx context.Context, userId string) (bool, error) {
	defer m.rlock(ctx)()
	for _, order := range m.orders {
		if order.Manufacturer != nil && *order.Manufacturer == userId && order.UserID != userId {
			return true, nil
		}
	}
	return false, nil
}

// DeleteUser удаляет пользователя, его предложения и его заказы вместе с
// предложениями по ним.
func (m *MemoryStore) DeleteUser(ctx context.Context, userId string) error {
	defer m.wlock(ctx)()
	if _, ok := m.users[userId]; !ok {
		return ErrNotFound
	}
	m.orderIDs = slices.DeleteFunc(m.orderIDs, func(id string) bool {
		if m.orders[id].UserID != userId {
			return false
		}
		delete(m.orders, id)
		return true
	})
	m.bidIDs = slices.DeleteFunc(m.bidIDs, func(id string) bool {
		bid := m.bids[id]
		if _, ok := m.orders[bid.OrderID]; ok && bid.ManufacturerID != userId {
			return false
		}
		delete(m.bids, id)
		return true
	})
	delete(m.users, userId)
	return nil
}

// CreateOutbox записывает событие.
func (m *MemoryStore) CreateOutbox(ctx context.Context, event models.Event) error {
	content, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	defer m.wlock(ctx)()
	m.outbox = append(m.outbox, models.OutboxMessage{
		ID:        m.nextOutboxID,
		Key:       event.Key(),
		Type:      event.Type,
		Content:   content,
		Status:    models.OutboxPending,
		CreatedAt: time.Now().UTC(),
	})
	m.nextOutboxID++
	return nil
}

// GetPendingOutbox возвращает неотправленные записи.
func (m *MemoryStore) GetPendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	defer m.rlock(ctx)()
	var messages []models.OutboxMessage
	for _, msg := range m.outbox {
		if msg.Status != models.OutboxPending {
			continue
		}
		if limit > 0 && len(messages) >= limit {
			break
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// MarkDoneOutboxes помечает записи отправленными.
func (m *MemoryStore) MarkDoneOutboxes(ctx context.Context, ids []int64) error {
	defer m.wlock(ctx)()
	for i := range m.outbox {
		if slices.Contains(ids, m.outbox[i].ID) {
			m.outbox[i].Status = models.OutboxDone
		}
	}
	return nil
}
