package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/order-bidding/internal/utils"

	"github.com/redis/go-redis/v9"
)

// counter - подмножество redis-клиента для фиксированного окна.
type counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RateLimit ограничивает число запросов в окне window. Ключ - ID пользователя,
// для анонимных запросов - IP. При недоступности redis запрос пропускается.
func RateLimit(rdb counter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := rateLimitKey(r)

			current, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				logger.Warn("rate limit unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if current == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					logger.Warn("failed to set rate limit window", "key", key, "error", err)
				}
			}

			if current > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				utils.SendErrorResponse(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if principal, ok := PrincipalFromContext(r.Context()); ok {
		return "rate_limit:user:" + principal.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "rate_limit:ip:" + host
}
