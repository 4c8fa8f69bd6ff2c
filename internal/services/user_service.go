package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/repository"
)

const userDeletedMessage = "User and their orders removed"

// CredentialCache сбрасывает закэшированные учетные данные пользователя.
type CredentialCache interface {
	ForgetUser(userId string)
}

// UserService управляет пользователями и их токенами доступа.
type UserService struct {
	Repo   repository.UserRepository
	outbox repository.OutboxRepository
	tx     repository.TxManager
	access AccessPolicy
	cache  CredentialCache
}

// NewUserService создает новый экземпляр UserService. cache может быть nil.
func NewUserService(
	repo repository.UserRepository,
	outbox repository.OutboxRepository,
	tx repository.TxManager,
	access AccessPolicy,
	cache CredentialCache,
) *UserService {
	return &UserService{Repo: repo, outbox: outbox, tx: tx, access: access, cache: cache}
}

// HashToken возвращает hex(sha256(token)). В хранилище лежит только хэш.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Profile получает профиль автора запроса.
func (s *UserService) Profile(ctx context.Context, principal models.Principal) (*models.User, error) {
	user, err := s.Repo.GetUser(ctx, principal.ID)
	if err != nil {
		return nil, translateStoreError(err, "user not found")
	}
	return user, nil
}

// UpdateProfile меняет собственный профиль. Новый токен заменяет прежний.
func (s *UserService) UpdateProfile(ctx context.Context, principal models.Principal, patch models.ProfilePatch) (*models.User, error) {
	var user *models.User
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.Repo.GetUser(ctx, principal.ID)
		if err != nil {
			return translateStoreError(err, "user not found")
		}

		if name := strings.TrimSpace(patch.Name); name != "" {
			user.Name = name
		}
		if email := strings.TrimSpace(patch.Email); email != "" {
			user.Email = email
		}
		if patch.CompanyName != nil {
			user.CompanyName = *patch.CompanyName
		}
		if patch.Token != "" {
			user.TokenHash = HashToken(patch.Token)
		}

		return translateStoreError(s.Repo.UpdateUser(ctx, user), "user not found")
	})
	if err != nil {
		return nil, err
	}
	s.forget(user.ID)
	return user, nil
}

// ListUsers получает всех пользователей. Доступно только администратору.
func (s *UserService) ListUsers(ctx context.Context, principal models.Principal) ([]models.User, error) {
	if !s.access.IsAdmin(principal) {
		return nil, models.ForbiddenError("admin access required")
	}
	return s.Repo.ListUsers(ctx)
}

// CreateUser заводит пользователя от имени администратора. Для существующего
// email перевыпускает токен и обновляет данные.
func (s *UserService) CreateUser(ctx context.Context, principal models.Principal, userReq models.UserRequest) (*models.User, error) {
	if !s.access.IsAdmin(principal) {
		return nil, models.ForbiddenError("admin access required")
	}
	user := &models.User{
		Name:        strings.TrimSpace(userReq.Name),
		Email:       strings.TrimSpace(userReq.Email),
		Role:        userReq.Role,
		CompanyName: userReq.CompanyName,
	}
	if user.Name == "" || user.Email == "" || userReq.Token == "" {
		return nil, models.ValidationError("please provide name, email, role and token")
	}
	if !user.Role.Valid() {
		return nil, models.ValidationError(fmt.Sprintf("unknown role %q", userReq.Role))
	}
	if err := s.RegisterUser(ctx, user, userReq.Token); err != nil {
		return nil, err
	}
	return user, nil
}

// RegisterUser сохраняет пользователя с токеном доступа. Повторный вызов с тем
// же email обновляет запись.
func (s *UserService) RegisterUser(ctx context.Context, user *models.User, token string) error {
	if user.Email == "" || token == "" {
		return models.ValidationError("email and token are required")
	}
	user.TokenHash = HashToken(token)
	if err := s.Repo.UpsertUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return translateStoreError(err, "user not found")
		}
		return fmt.Errorf("failed to save user %s: %w", user.Email, err)
	}
	s.forget(user.ID)
	return nil
}

// DeleteUser удаляет пользователя вместе с его заказами и предложениями.
// Исполнителя чужого заказа удалить нельзя.
func (s *UserService) DeleteUser(ctx context.Context, principal models.Principal, userId string) (*models.DeleteUserResult, error) {
	if !s.access.IsAdmin(principal) {
		return nil, models.ForbiddenError("admin access required")
	}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Repo.GetUser(ctx, userId); err != nil {
			return translateStoreError(err, "user not found")
		}
		assigned, err := s.Repo.HasAssignedOrders(ctx, userId)
		if err != nil {
			return err
		}
		if assigned {
			return models.InvalidStateError("user is the assigned manufacturer of an order")
		}
		if err := s.Repo.DeleteUser(ctx, userId); err != nil {
			return translateStoreError(err, "user not found")
		}
		return recordEvent(ctx, s.outbox, models.Event{
			Type:    models.UserDeletedEvent,
			UserID:  userId,
			ActorID: principal.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.forget(userId)
	return &models.DeleteUserResult{Message: userDeletedMessage, ID: userId}, nil
}

// SeedAdmin создает администратора при старте. Пустой токен - seed отключен.
func (s *UserService) SeedAdmin(ctx context.Context, name, email, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	admin := &models.User{Name: name, Email: email, Role: models.AdminRole}
	if err := s.RegisterUser(ctx, admin, token); err != nil {
		return nil, err
	}
	return admin, nil
}

func (s *UserService) forget(userId string) {
	if s.cache != nil {
		s.cache.ForgetUser(userId)
	}
}
