package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTxManager - реализация TxManager поверх pgxpool.
type PostgresTxManager struct {
	DB *pgxpool.Pool
}

// NewPostgresTxManager создает новый экземпляр PostgresTxManager.
func NewPostgresTxManager(db *pgxpool.Pool) *PostgresTxManager {
	return &PostgresTxManager{DB: db}
}

// WithTransaction выполняет fn в транзакции READ COMMITTED. Репозитории берут
// транзакцию из контекста; вложенный вызов переиспользует внешнюю транзакцию.
func (m *PostgresTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
