package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senyabanana/order-bidding/internal/handlers"
	"github.com/senyabanana/order-bidding/internal/middleware"
	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
	"github.com/senyabanana/order-bidding/internal/router"
	"github.com/senyabanana/order-bidding/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	exporterToken = "exporter-token"
	otherToken    = "other-token"
	makerAToken   = "maker-a-token"
	makerBToken   = "maker-b-token"
	adminToken    = "admin-token"
)

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemoryStore()
	access := services.OwnershipPolicy{}

	auth, err := middleware.NewAuthenticator(store, 16, logger)
	require.NoError(t, err)

	users := services.NewUserService(store, store, store, access, auth)
	for token, user := range map[string]*models.User{
		exporterToken: {Name: "Exporter", Email: "exporter@example.com", Role: models.ExporterRole},
		otherToken:    {Name: "Other", Email: "other@example.com", Role: models.ExporterRole},
		makerAToken:   {Name: "Maker A", Email: "a@example.com", Role: models.ManufacturerRole},
		makerBToken:   {Name: "Maker B", Email: "b@example.com", Role: models.ManufacturerRole},
	} {
		require.NoError(t, users.RegisterUser(ctx, user, token))
	}
	_, err = users.SeedAdmin(ctx, "Admin", "admin@example.com", adminToken)
	require.NoError(t, err)

	acceptance := services.NewAcceptanceCoordinator(store, store, store, store, access, services.DefaultBidPolicy, 3, logger)
	orders := services.NewOrderService(store, store, store, access)
	bids := services.NewBidService(store, store, store, store, access, services.DefaultBidPolicy, acceptance)

	return router.InitRoutes(
		handlers.NewOrderHandler(orders, logger, time.Second),
		handlers.NewBidHandler(bids, logger, time.Second),
		handlers.NewUserHandler(users, logger, time.Second),
		auth,
		nil,
	)
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createOrder(t *testing.T, h http.Handler, quantity any) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/orders", exporterToken, map[string]any{
		"title":       "Polo shirts",
		"description": "pique cotton",
		"quantity":    quantity,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}

func createBid(t *testing.T, h http.Handler, token, orderId string, pricePerUnit any) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/bids", token, map[string]any{
		"orderId":      orderId,
		"pricePerUnit": pricePerUnit,
		"deadline":     "2030-03-01",
		"proposal":     "two weeks",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)["id"].(string)
}

func TestPing(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	h := setupServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "not authorized, no token", decode[map[string]string](t, w)["message"])

	w = doJSON(t, h, http.MethodGet, "/api/orders", "bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBiddingFlow(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, "100")

	bidA := createBid(t, h, makerAToken, orderId, 10)
	bidB := createBid(t, h, makerBToken, orderId, "8")

	w := doJSON(t, h, http.MethodGet, "/api/bids/order/"+orderId, exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]map[string]any](t, w)
	require.Len(t, listed, 2)
	assert.Equal(t, bidB, listed[0]["id"])
	assert.Equal(t, "800", listed[0]["price"])
	assert.Equal(t, "Maker B", listed[0]["manufacturer"].(map[string]any)["name"])

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidB+"/accept", otherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidB+"/accept", exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[map[string]any](t, w)
	assert.Equal(t, "Bid accepted successfully", accepted["message"])
	assert.Equal(t, "accepted", accepted["bid"].(map[string]any)["status"])
	order := accepted["order"].(map[string]any)
	assert.Equal(t, "in-progress", order["status"])
	assert.Equal(t, bidB, order["winningBid"])

	w = doJSON(t, h, http.MethodGet, "/api/bids/my-bids", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decode[[]map[string]any](t, w)
	require.Len(t, mine, 1)
	assert.Equal(t, bidA, mine[0]["id"])
	assert.Equal(t, "rejected", mine[0]["status"])
	assert.Equal(t, "Polo shirts", mine[0]["order"].(map[string]any)["title"])

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidA+"/accept", exporterToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/orders/"+orderId+"/complete", exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[map[string]any](t, w)["status"])
}

func TestCreateBid_Errors(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 5)
	createBid(t, h, makerAToken, orderId, 2)

	w := doJSON(t, h, http.MethodPost, "/api/bids", makerAToken, map[string]any{
		"orderId": orderId, "pricePerUnit": 1, "deadline": "2030-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "you have already placed a bid on this order", decode[map[string]string](t, w)["message"])

	w = doJSON(t, h, http.MethodPost, "/api/bids", makerBToken, map[string]any{"orderId": orderId})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/bids", makerBToken, map[string]any{
		"orderId": "does-not-exist", "pricePerUnit": 1, "deadline": "2030-03-01",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/bids", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+makerBToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawAndReject(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 5)
	bidA := createBid(t, h, makerAToken, orderId, 2)
	bidB := createBid(t, h, makerBToken, orderId, 3)

	w := doJSON(t, h, http.MethodPut, "/api/bids/"+bidA+"/withdraw", makerBToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidA+"/withdraw", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "withdrawn", decode[map[string]any](t, w)["status"])

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidA+"/withdraw", makerAToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidB+"/reject", makerBToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/bids/"+bidB+"/reject", exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rejected := decode[map[string]any](t, w)
	assert.Equal(t, "Bid rejected", rejected["message"])
	assert.Equal(t, "rejected", rejected["bid"].(map[string]any)["status"])

	w = doJSON(t, h, http.MethodPut, "/api/bids/missing/reject", exporterToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderEndpoints(t *testing.T) {
	h := setupServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/orders", exporterToken, map[string]any{"title": "Socks"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "please add a title and quantity", decode[map[string]string](t, w)["message"])

	w = doJSON(t, h, http.MethodPost, "/api/orders", exporterToken, map[string]any{
		"title":         "Socks",
		"quantity":      "30",
		"customDetails": map[string]any{"material": "bamboo", "logos": 2},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	orderId := created["id"].(string)
	assert.Equal(t, "bamboo", created["material"])
	assert.Equal(t, float64(2), created["noOfLogos"])
	assert.Equal(t, "pending", created["status"])

	w = doJSON(t, h, http.MethodPut, "/api/orders/"+orderId, otherToken, map[string]any{"title": "Mine now"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodPut, "/api/orders/"+orderId, exporterToken, map[string]any{"title": "Long socks", "status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "Long socks", updated["title"])
	assert.Equal(t, "pending", updated["status"])

	w = doJSON(t, h, http.MethodGet, "/api/orders?status=pending", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]map[string]any](t, w)
	require.Len(t, listed, 1)
	owner := listed[0]["user"].(map[string]any)
	assert.Equal(t, "Exporter", owner["name"])
	assert.Equal(t, "exporter@example.com", owner["email"])
	assert.NotContains(t, owner, "tokenHash")

	w = doJSON(t, h, http.MethodGet, "/api/orders?status=unknown", makerAToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/orders/"+orderId, otherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/orders/"+orderId, exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, orderId, decode[map[string]string](t, w)["id"])

	w = doJSON(t, h, http.MethodDelete, "/api/orders/"+orderId, exporterToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderLockedAfterFirstBid(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 5)
	createBid(t, h, makerAToken, orderId, 2)

	w := doJSON(t, h, http.MethodPut, "/api/orders/"+orderId, exporterToken, map[string]any{"title": "late edit"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "cannot update non-pending order", decode[map[string]string](t, w)["message"])

	w = doJSON(t, h, http.MethodDelete, "/api/orders/"+orderId, exporterToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserEndpoints(t *testing.T) {
	h := setupServer(t)

	w := doJSON(t, h, http.MethodGet, "/api/users/profile", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]any](t, w)
	assert.Equal(t, "a@example.com", profile["email"])
	assert.Equal(t, "manufacturer", profile["role"])
	assert.NotContains(t, profile, "tokenHash")

	w = doJSON(t, h, http.MethodGet, "/api/users", exporterToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, h, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 5)
}

func TestGetOrder(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 20)

	w := doJSON(t, h, http.MethodGet, "/api/orders/"+orderId, makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Polo shirts", decode[map[string]any](t, w)["title"])

	w = doJSON(t, h, http.MethodGet, "/api/orders/unknown", makerAToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"order not found"}`, w.Body.String())
}

func TestCreateBid_RejectsSubCentPrice(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 100)

	for _, price := range []any{"10.005", 0.001} {
		w := doJSON(t, h, http.MethodPost, "/api/bids", makerAToken, map[string]any{
			"orderId":      orderId,
			"pricePerUnit": price,
			"deadline":     "2030-03-01",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	w := doJSON(t, h, http.MethodPost, "/api/orders", exporterToken, map[string]any{
		"title":    "Caps",
		"quantity": "2147483648",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserAdministration(t *testing.T) {
	h := setupServer(t)
	newMaker := map[string]any{
		"name":        "Maker C",
		"email":       "c@example.com",
		"role":        "manufacturer",
		"companyName": "Stitch Co",
		"token":       "maker-c-token",
	}

	w := doJSON(t, h, http.MethodPost, "/api/users", exporterToken, newMaker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/users", adminToken, map[string]any{
		"name": "X", "email": "x@example.com", "role": "boss", "token": "x",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/users", adminToken, map[string]any{
		"name": "X", "email": "x@example.com", "role": "exporter", "token": exporterToken,
	})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodPost, "/api/users", adminToken, newMaker)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	makerId := created["id"].(string)
	assert.Equal(t, "manufacturer", created["role"])
	assert.NotContains(t, w.Body.String(), "maker-c-token")

	orderId := createOrder(t, h, 10)
	createBid(t, h, "maker-c-token", orderId, 4)

	w = doJSON(t, h, http.MethodPut, "/api/users/profile", "maker-c-token", map[string]any{
		"companyName": "Stitch Ltd",
		"token":       "maker-c-rotated",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Stitch Ltd", decode[map[string]any](t, w)["companyName"])
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, h, http.MethodGet, "/api/users/profile", "maker-c-token", nil).Code)
	assert.Equal(t, http.StatusOK, doJSON(t, h, http.MethodGet, "/api/users/profile", "maker-c-rotated", nil).Code)

	w = doJSON(t, h, http.MethodPut, "/api/users/profile", "maker-c-rotated", map[string]any{"email": "a@example.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusForbidden, doJSON(t, h, http.MethodDelete, "/api/users/"+makerId, exporterToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodDelete, "/api/users/unknown", adminToken, nil).Code)

	w = doJSON(t, h, http.MethodDelete, "/api/users/"+makerId, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"message":"User and their orders removed","id":"`+makerId+`"}`, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, h, http.MethodGet, "/api/users/profile", "maker-c-rotated", nil).Code)

	w = doJSON(t, h, http.MethodGet, "/api/bids/order/"+orderId, exporterToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))
}

func TestDeleteUser_RemovesTheirOrders(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 10)
	createBid(t, h, makerAToken, orderId, 3)

	w := doJSON(t, h, http.MethodGet, "/api/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var exporterId string
	for _, user := range decode[[]map[string]any](t, w) {
		if user["email"] == "exporter@example.com" {
			exporterId = user["id"].(string)
		}
	}
	require.NotEmpty(t, exporterId)

	w = doJSON(t, h, http.MethodDelete, "/api/users/"+exporterId, adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusNotFound, doJSON(t, h, http.MethodGet, "/api/orders/"+orderId, makerAToken, nil).Code)
	w = doJSON(t, h, http.MethodGet, "/api/bids/my-bids", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))
}

func TestDeleteUser_AssignedManufacturer(t *testing.T) {
	h := setupServer(t)
	orderId := createOrder(t, h, 10)
	bidId := createBid(t, h, makerAToken, orderId, 3)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPut, "/api/bids/"+bidId+"/accept", exporterToken, nil).Code)

	w := doJSON(t, h, http.MethodGet, "/api/users/profile", makerAToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	makerId := decode[map[string]any](t, w)["id"].(string)

	w = doJSON(t, h, http.MethodDelete, "/api/users/"+makerId, adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"user is the assigned manufacturer of an order"}`, w.Body.String())
}
