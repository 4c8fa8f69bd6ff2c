package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/senyabanana/order-bidding/internal/router/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectAttempts = 5
	retryInterval   = 2 * time.Second
)

// ConnString возвращает POSTGRES_CONN или собирает строку из отдельных параметров.
func ConnString(cfg config.Config) (string, error) {
	if cfg.PostgresConn != "" {
		return cfg.PostgresConn, nil
	}
	if cfg.PostgresUser == "" || cfg.PostgresPass == "" || cfg.PostgresHost == "" || cfg.PostgresPort == "" || cfg.PostgresDB == "" {
		return "", fmt.Errorf("one or more database connection environment variables are missing")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.PostgresUser, cfg.PostgresPass),
		Host:     net.JoinHostPort(cfg.PostgresHost, cfg.PostgresPort),
		Path:     cfg.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String(), nil
}

// InitDb инициализирует подключение к базе данных и возвращает пул соединений.
// Пока база не отвечает, подключение повторяется.
func InitDb(ctx context.Context, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	databaseUrl, err := ConnString(cfg)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(databaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if cfg.PostgresMaxConns > 0 {
		poolConfig.MaxConns = cfg.PostgresMaxConns
	}

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = dbPool.Ping(ctx)
		if err == nil {
			return dbPool, nil
		}
		if attempt == connectAttempts {
			break
		}
		logger.Warn("database is not ready", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			dbPool.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	dbPool.Close()
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", connectAttempts, err)
}

// RunMigrations применяет миграции из migrationURL.
func RunMigrations(migrationURL, dbSource string, logger *slog.Logger) error {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		return fmt.Errorf("cannot create a new migrate instance: %w", err)
	}
	defer migration.Close()

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrate up: %w", err)
	}
	logger.Info("db migrated successfully")
	return nil
}
