package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/order-bidding/internal/models"

	"github.com/shopspring/decimal"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	SendJSON(w, statusCode, models.NewErrorResponse(statusCode, message))
}

// SendJSON отправляет тело ответа в формате JSON
func SendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// ParseQuantity приводит количество к положительному целому.
// Принимает как число, так и строку с числом.
func ParseQuantity(raw json.Number) (int, error) {
	n, err := raw.Int64()
	if err != nil {
		f, ferr := raw.Float64()
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("quantity must be a whole number")
		}
		n = int64(f)
	}
	if n <= 0 {
		return 0, fmt.Errorf("quantity must be a positive number")
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("quantity must not exceed %d", math.MaxInt32)
	}
	return int(n), nil
}

// ParseOptionalInt разбирает необязательное целое значение. Пустое значение - nil.
func ParseOptionalInt(raw json.Number, field string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := raw.Int64()
	if err != nil || n < 0 || n > math.MaxInt32 {
		return nil, fmt.Errorf("%s must be a non-negative whole number", field)
	}
	v := int(n)
	return &v, nil
}

// PriceScale - число знаков после запятой в денежных колонках.
const PriceScale = 2

// MaxPrice - верхняя граница цены за единицу, NUMERIC(14, 2).
var MaxPrice = decimal.New(1, 12)

// ParsePrice разбирает положительную цену не точнее копейки.
func ParsePrice(raw json.Number, field string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be a number", field)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%s must be a positive number", field)
	}
	if !price.Equal(price.Truncate(PriceScale)) {
		return decimal.Decimal{}, fmt.Errorf("%s must have at most %d decimal places", field, PriceScale)
	}
	if price.GreaterThanOrEqual(MaxPrice) {
		return decimal.Decimal{}, fmt.Errorf("%s must be less than %s", field, MaxPrice)
	}
	return price, nil
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDeadline разбирает срок в формате RFC 3339 или YYYY-MM-DD.
func ParseDeadline(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid deadline %q, expected RFC 3339 or YYYY-MM-DD", raw)
}

// FirstNonEmpty возвращает первое непустое значение или nil.
func FirstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
