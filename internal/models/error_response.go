package models

import (
	"errors"
	"net/http"
)

// Виды доменных ошибок. Проверяются через errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrDuplicateBid = errors.New("duplicate bid")
	ErrConflict     = errors.New("conflict")
)

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	kind       error
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message,
	}
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}

// Unwrap возвращает вид ошибки.
func (e *ErrorResponse) Unwrap() error {
	return e.kind
}

func newKindError(kind error, statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{StatusCode: statusCode, Message: message, kind: kind}
}

// ValidationError - отсутствующие или некорректные поля запроса.
func ValidationError(message string) *ErrorResponse {
	return newKindError(ErrValidation, http.StatusBadRequest, message)
}

// NotFoundError - заказ или предложение не найдены.
func NotFoundError(message string) *ErrorResponse {
	return newKindError(ErrNotFound, http.StatusNotFound, message)
}

// UnauthorizedError - у пользователя нет прав на ресурс.
func UnauthorizedError(message string) *ErrorResponse {
	return newKindError(ErrUnauthorized, http.StatusUnauthorized, message)
}

// ForbiddenError - действие требует роли администратора.
func ForbiddenError(message string) *ErrorResponse {
	return newKindError(ErrForbidden, http.StatusForbidden, message)
}

// InvalidStateError - операция недопустима в текущем статусе.
func InvalidStateError(message string) *ErrorResponse {
	return newKindError(ErrInvalidState, http.StatusBadRequest, message)
}

// DuplicateBidError - повторное предложение производителя по заказу.
func DuplicateBidError(message string) *ErrorResponse {
	return newKindError(ErrDuplicateBid, http.StatusBadRequest, message)
}

// ConflictError - конкурентное изменение заказа.
func ConflictError(message string) *ErrorResponse {
	return newKindError(ErrConflict, http.StatusConflict, message)
}
