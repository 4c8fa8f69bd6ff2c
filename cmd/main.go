package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/senyabanana/order-bidding/internal/db"
	"github.com/senyabanana/order-bidding/internal/events"
	"github.com/senyabanana/order-bidding/internal/handlers"
	"github.com/senyabanana/order-bidding/internal/middleware"
	"github.com/senyabanana/order-bidding/internal/repository"
	"github.com/senyabanana/order-bidding/internal/router"
	"github.com/senyabanana/order-bidding/internal/router/config"
	"github.com/senyabanana/order-bidding/internal/services"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// storage - набор репозиториев, которыми пользуются сервисы.
type storage struct {
	orders repository.OrderRepository
	bids   repository.BidRepository
	users  repository.UserRepository
	outbox repository.OutboxRepository
	tx     repository.TxManager
	close  func()
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("cannot load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	access := services.OwnershipPolicy{}
	policy := services.BidPolicy{
		RejectAnyStatus:         cfg.BidRejectAnyStatus,
		RejectWithdrawnSiblings: cfg.BidRejectWithdrawnSiblings,
		RebidAfterWithdraw:      cfg.BidRebidAfterWithdraw,
	}

	auth, err := middleware.NewAuthenticator(store.users, cfg.PrincipalCacheSize, logger)
	if err != nil {
		return err
	}

	userService := services.NewUserService(store.users, store.outbox, store.tx, access, auth)
	if admin, err := userService.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminToken); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	} else if admin != nil {
		logger.Info("admin user ready", "email", admin.Email)
	}

	acceptance := services.NewAcceptanceCoordinator(store.orders, store.bids, store.outbox, store.tx, access, policy, cfg.AcceptMaxRetries, logger)
	orderService := services.NewOrderService(store.orders, store.outbox, store.tx, access)
	bidService := services.NewBidService(store.bids, store.orders, store.outbox, store.tx, access, policy, acceptance)

	var limiter func(http.Handler) http.Handler
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis is not reachable, rate limiting fails open", "addr", cfg.RedisAddr, "error", err)
		}
		limiter = middleware.RateLimit(rdb, cfg.RateLimit, cfg.RateLimitWindow, logger)
	}

	producer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer producer.Close()
	relay := events.NewRelay(store.outbox, producer, cfg.OutboxBatchSize, cfg.OutboxInterval, logger)

	routes := router.InitRoutes(
		handlers.NewOrderHandler(orderService, logger, cfg.RequestTimeout),
		handlers.NewBidHandler(bidService, logger, cfg.RequestTimeout),
		handlers.NewUserHandler(userService, logger, cfg.RequestTimeout),
		auth,
		limiter,
	)
	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           routes,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server is listening", "addr", cfg.ServerAddress, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		store := repository.NewMemoryStore()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{orders: store, bids: store, users: store, outbox: store, tx: store, close: func() {}}, nil
	}

	dbSource, err := db.ConnString(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(cfg.MigrationURL, dbSource, logger); err != nil {
		return nil, err
	}

	dbPool, err := db.InitDb(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return &storage{
		orders: repository.NewPostgresOrderRepository(dbPool),
		bids:   repository.NewPostgresBidRepository(dbPool),
		users:  repository.NewPostgresUserRepository(dbPool),
		outbox: repository.NewPostgresOutboxRepository(dbPool),
		tx:     repository.NewPostgresTxManager(dbPool),
		close:  dbPool.Close,
	}, nil
}

func newProducer(cfg config.Config, logger *slog.Logger) (events.Producer, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		logger.Info("KAFKA_BROKERS is empty, domain events are written to the log")
		return events.NewLogProducer(logger), nil
	}
	producer, err := events.NewKafkaProducer(brokers, cfg.KafkaTopic)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing domain events to kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	return producer, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
