package router

import (
	"net/http"

	"github.com/senyabanana/order-bidding/internal/handlers"
	"github.com/senyabanana/order-bidding/internal/middleware"
)

// InitRoutes регистрирует маршруты API. Все маршруты, кроме /api/ping, требуют
// Bearer-токен. limiter может быть nil, тогда ограничение частоты выключено.
func InitRoutes(
	orderHandler *handlers.OrderHandler,
	bidHandler *handlers.BidHandler,
	userHandler *handlers.UserHandler,
	auth *middleware.Authenticator,
	limiter func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	protected := func(h http.HandlerFunc) http.Handler {
		var handler http.Handler = h
		if limiter != nil {
			handler = limiter(handler)
		}
		return auth.Authenticate(handler)
	}

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)

	mux.Handle("GET /api/orders", protected(orderHandler.GetOrders))
	mux.Handle("POST /api/orders", protected(orderHandler.CreateOrder))
	mux.Handle("GET /api/orders/{id}", protected(orderHandler.GetOrder))
	mux.Handle("PUT /api/orders/{id}", protected(orderHandler.UpdateOrder))
	mux.Handle("DELETE /api/orders/{id}", protected(orderHandler.DeleteOrder))
	mux.Handle("PUT /api/orders/{id}/complete", protected(orderHandler.CompleteOrder))

	mux.Handle("POST /api/bids", protected(bidHandler.CreateBid))
	mux.Handle("GET /api/bids/my-bids", protected(bidHandler.GetMyBids))
	mux.Handle("GET /api/bids/order/{orderId}", protected(bidHandler.GetOrderBids))
	mux.Handle("PUT /api/bids/{id}/withdraw", protected(bidHandler.WithdrawBid))
	mux.Handle("PUT /api/bids/{id}/accept", protected(bidHandler.AcceptBid))
	mux.Handle("PUT /api/bids/{id}/reject", protected(bidHandler.RejectBid))

	mux.Handle("GET /api/users/profile", protected(userHandler.GetProfile))
	mux.Handle("PUT /api/users/profile", protected(userHandler.UpdateProfile))
	mux.Handle("GET /api/users", protected(userHandler.GetUsers))
	mux.Handle("POST /api/users", protected(userHandler.CreateUser))
	mux.Handle("DELETE /api/users/{id}", protected(userHandler.DeleteUser))

	return mux
}
