package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound возвращается, когда запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrOptimisticLock возвращается, когда версия записи изменилась.
	ErrOptimisticLock = errors.New("optimistic locking failed")
	// ErrDuplicateBid возвращается при нарушении уникальности (order, manufacturer).
	ErrDuplicateBid = errors.New("bid already exists for this order and manufacturer")
	// ErrDuplicateUser возвращается, когда email или токен уже заняты другим пользователем.
	ErrDuplicateUser = errors.New("email or token already belongs to another user")
)

const (
	uniqueViolationCode      = "23505"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
	invalidTextCode          = "22P02"
)

// TxManager - абстракция транзакции. Все изменения заказа и его предложений
// выполняются внутри WithTransaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// querier - общее подмножество *pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// conn возвращает открытую транзакцию из контекста или пул.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

// IsRetryable сообщает, можно ли повторить транзакцию после ошибки.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrOptimisticLock) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationFailureCode || pgErr.Code == deadlockDetectedCode
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// notFound сводит отсутствие строки и некорректный UUID к ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextCode {
		return ErrNotFound
	}
	return err
}
