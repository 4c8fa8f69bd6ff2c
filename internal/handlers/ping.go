package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
)

// PingHandler обрабатывает GET запрос к /api/ping
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, "ok"); err != nil {
		slog.Default().Error("failed to write ping response", "error", err)
	}
}
