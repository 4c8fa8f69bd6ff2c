package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
	"github.com/senyabanana/order-bidding/internal/services"
	"github.com/senyabanana/order-bidding/internal/utils"

	lru "github.com/hashicorp/golang-lru"
)

type principalKey struct{}

// WithPrincipal кладет автора запроса в контекст.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext достает автора запроса из контекста.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(models.Principal)
	return principal, ok
}

// Authenticator проверяет Bearer-токен и кэширует найденных пользователей.
type Authenticator struct {
	users  repository.UserRepository
	cache  *lru.Cache
	logger *slog.Logger
}

// NewAuthenticator создает новый экземпляр Authenticator.
func NewAuthenticator(users repository.UserRepository, cacheSize int, logger *slog.Logger) (*Authenticator, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create principal cache: %w", err)
	}
	return &Authenticator{users: users, cache: cache, logger: logger}, nil
}

// Authenticate пропускает запрос дальше только с валидным токеном.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			utils.SendErrorResponse(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}

		principal, err := a.resolve(r.Context(), services.HashToken(token))
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				a.logger.Error("failed to resolve principal", "error", err)
			}
			utils.SendErrorResponse(w, http.StatusUnauthorized, "not authorized, token failed")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (a *Authenticator) resolve(ctx context.Context, tokenHash string) (models.Principal, error) {
	if cached, ok := a.cache.Get(tokenHash); ok {
		return cached.(models.Principal), nil
	}
	user, err := a.users.GetUserByTokenHash(ctx, tokenHash)
	if err != nil {
		return models.Principal{}, err
	}
	principal := models.PrincipalOf(user)
	a.cache.Add(tokenHash, principal)
	return principal, nil
}

// ForgetUser убирает из кэша все токены пользователя. Вызывается при смене
// токена, профиля или удалении пользователя.
func (a *Authenticator) ForgetUser(userId string) {
	for _, key := range a.cache.Keys() {
		cached, ok := a.cache.Peek(key)
		if ok && cached.(models.Principal).ID == userId {
			a.cache.Remove(key)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
