package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store    *repository.MemoryStore
	orders   *OrderService
	bids     *BidService
	users    *UserService
	exporter models.Principal
	other    models.Principal
	makerA   models.Principal
	makerB   models.Principal
	makerC   models.Principal
}

func newTestEnv(t *testing.T, policy BidPolicy) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	access := OwnershipPolicy{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	acceptance := NewAcceptanceCoordinator(store, store, store, store, access, policy, 3, logger)

	env := &testEnv{
		store:  store,
		orders: NewOrderService(store, store, store, access),
		bids:   NewBidService(store, store, store, store, access, policy, acceptance),
		users:  NewUserService(store, store, store, access, nil),
	}
	env.exporter = env.addUser(t, "exporter", models.ExporterRole)
	env.other = env.addUser(t, "other", models.ExporterRole)
	env.makerA = env.addUser(t, "maker-a", models.ManufacturerRole)
	env.makerB = env.addUser(t, "maker-b", models.ManufacturerRole)
	env.makerC = env.addUser(t, "maker-c", models.ManufacturerRole)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string, role models.UserRole) models.Principal {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, e.users.RegisterUser(context.Background(), user, name+"-token"))
	return models.PrincipalOf(user)
}

func (e *testEnv) createOrder(t *testing.T, quantity int) *models.Order {
	t.Helper()
	order, err := e.orders.CreateOrder(context.Background(), e.exporter, models.OrderRequest{
		Title:       "T-shirts",
		Description: "cotton",
		Quantity:    json.Number(strconv.Itoa(quantity)),
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) createBid(t *testing.T, maker models.Principal, orderId, pricePerUnit string) *models.Bid {
	t.Helper()
	bid, err := e.bids.CreateBid(context.Background(), maker, models.BidRequest{
		OrderID:      orderId,
		PricePerUnit: json.Number(pricePerUnit),
		Deadline:     "2030-01-15",
		Proposal:     "fast delivery",
	})
	require.NoError(t, err)
	return bid
}

func (e *testEnv) bid(t *testing.T, bidId string) *models.Bid {
	t.Helper()
	bid, err := e.store.GetBid(context.Background(), bidId)
	require.NoError(t, err)
	return bid
}

func (e *testEnv) order(t *testing.T, orderId string) *models.Order {
	t.Helper()
	order, err := e.store.GetOrder(context.Background(), orderId)
	require.NoError(t, err)
	return order
}

func strPtr(s string) *string {
	return &s
}
