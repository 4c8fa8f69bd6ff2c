package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/senyabanana/order-bidding/internal/middleware"
	"github.com/senyabanana/order-bidding/internal/models"
	"github.com/senyabanana/order-bidding/internal/utils"
)

// sendServiceError переводит ошибку сервиса в ответ. Доменные ошибки отдаются
// со своим кодом, остальные - 500 с текстом fallback.
func sendServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) {
		logger.Warn("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", errorResponse.StatusCode,
			"error", errorResponse.Message)
		utils.SendErrorResponse(w, errorResponse.StatusCode, errorResponse.Message)
		return
	}
	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback+": "+err.Error())
}

// requirePrincipal достает автора запроса, выставленного middleware.Authenticate.
func requirePrincipal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "not authorized")
	}
	return principal, ok
}
