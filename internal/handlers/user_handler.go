package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/services"
	"github.com/senyabanana/order-bidding/internal/utils"
)

// UserHandler обрабатывает запросы профиля и администрирования пользователей.
type UserHandler struct {
	Service *services.UserService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewUserHandler создаёт новый экземпляр UserHandler.
func NewUserHandler(service *services.UserService, logger *slog.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{Service: service, Logger: logger, Timeout: timeout}
}

// GetProfile обрабатывает запросы профиля автора запроса.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	user, err := h.Service.Profile(ctx, principal)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch profile")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}

// GetUsers обрабатывает запросы администратора на список пользователей.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	users, err := h.Service.ListUsers(ctx, principal)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to fetch users")
		return
	}
	utils.SendJSON(w, http.StatusOK, users)
}

// UpdateProfile обрабатывает запросы на изменение собственного профиля.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.UpdateProfile(ctx, principal, patch)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to update profile")
		return
	}
	utils.SendJSON(w, http.StatusOK, user)
}

// CreateUser обрабатывает запросы администратора на создание пользователя.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var userReq models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&userReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Service.CreateUser(ctx, principal, userReq)
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to create user")
		return
	}
	utils.SendJSON(w, http.StatusCreated, user)
}

// DeleteUser обрабатывает запросы администратора на удаление пользователя.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePrincipal(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	result, err := h.Service.DeleteUser(ctx, principal, r.PathValue("id"))
	if err != nil {
		sendServiceError(w, r, h.Logger, err, "failed to delete user")
		return
	}
	utils.SendJSON(w, http.StatusOK, result)
}
