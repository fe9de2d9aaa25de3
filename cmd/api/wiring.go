package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dejobratic/petstore/internal/auth"
	"github.com/dejobratic/petstore/internal/config"
	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/discounts"
	discountsmemory "github.com/dejobratic/petstore/internal/discounts/memory"
	discountspostgres "github.com/dejobratic/petstore/internal/discounts/postgres"
	idemmemory "github.com/dejobratic/petstore/internal/idempotency/memory"
	idempostgres "github.com/dejobratic/petstore/internal/idempotency/postgres"
	idemredis "github.com/dejobratic/petstore/internal/idempotency/redis"
	"github.com/dejobratic/petstore/internal/kafka"
	"github.com/dejobratic/petstore/internal/notification"
	"github.com/dejobratic/petstore/internal/orders/adapters"
	httpadapter "github.com/dejobratic/petstore/internal/orders/adapters/http"
	"github.com/dejobratic/petstore/internal/orders/adapters/memory"
	orderspostgres "github.com/dejobratic/petstore/internal/orders/adapters/postgres"
	ordersapp "github.com/dejobratic/petstore/internal/orders/app"
	"github.com/dejobratic/petstore/internal/orders/app/commands"
	ordersmetrics "github.com/dejobratic/petstore/internal/orders/metrics"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/dejobratic/petstore/internal/retry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
)

type application struct {
	handler http.Handler
	closers []func() error
	logger  *slog.Logger
}

// close releases resources in reverse order of acquisition.
func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
}

type storage struct {
	store     ports.Store
	orders    ports.OrderRepository
	customers ports.CustomerDirectory
	discounts discounts.Repository
	pool      *pgxpool.Pool
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, meter metric.Meter) (_ *application, err error) {
	app := &application{logger: logger}
	defer func() {
		if err != nil {
			app.close()
		}
	}()

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	st, err := openStorage(ctx, cfg, logger, dbMetrics)
	if err != nil {
		return nil, err
	}
	if st.pool != nil {
		app.closers = append(app.closers, func() error { st.pool.Close(); return nil })
	}

	idem, err := openIdempotency(ctx, cfg, st.pool, app)
	if err != nil {
		return nil, err
	}

	events, err := openEventBus(cfg, logger, meter, app)
	if err != nil {
		return nil, err
	}

	dispatcher, err := openDispatcher(cfg, logger, meter)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, dispatcher.Close)

	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	service := ordersapp.NewService(commands.Dependencies{
		Store:     st.store,
		Orders:    adapters.NewObservableRepository(st.orders),
		Events:    adapters.NewObservableEventBus(events),
		Customers: st.customers,
		Notifier:  dispatcher,
		Logger:    logger,
		Metrics:   orderMetrics,
		Retry: commands.RetryConfig{
			MaxAttempts: cfg.Orders.MaxAttempts,
			NewBackOff:  retry.Exponential(cfg.Orders.RetryBackoff),
		},
	}, idem)

	discountService := discounts.NewService(st.discounts, dispatcher, logger)

	verifier, err := auth.NewVerifier(auth.Config{Secret: cfg.Auth.Secret, Issuer: cfg.Auth.Issuer})
	if err != nil {
		return nil, fmt.Errorf("create token verifier: %w", err)
	}

	httpMetrics, err := httpadapter.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	ready := func(ctx context.Context) error { return nil }
	if st.pool != nil {
		ready = func(ctx context.Context) error { return database.CheckReady(ctx, st.pool) }
	}

	app.handler = newRouter(routerDeps{
		handler:     httpadapter.NewHandler(service, discountService, logger),
		verifier:    verifier,
		metrics:     httpMetrics,
		logger:      logger,
		ready:       ready,
		metricsPath: cfg.HTTP.MetricsPath,
		serviceName: cfg.Service.Name,
	})

	return app, nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger, dbMetrics *database.Metrics) (*storage, error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewStore()
		wishlist := discountsmemory.NewRepository(store, store)
		seedDemoData(store, wishlist)
		logger.Warn("using in-memory storage with demo data; nothing is persisted")
		return &storage{
			store:     store,
			orders:    store,
			customers: store,
			discounts: wishlist,
		}, nil
	}

	pool, err := database.NewPool(ctx, database.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		result, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database schema ready", "version", result.Version, "applied", result.Applied)
	}

	return &storage{
		store:     orderspostgres.NewStore(pool, dbMetrics),
		orders:    orderspostgres.NewRepository(pool, dbMetrics),
		customers: orderspostgres.NewCustomerDirectory(pool),
		discounts: discountspostgres.NewRepository(pool, dbMetrics),
		pool:      pool,
	}, nil
}

func openIdempotency(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, app *application) (ports.IdempotencyStore, error) {
	switch cfg.Idempotency.Backend {
	case config.DriverPostgres:
		if pool == nil {
			return nil, errors.New("postgres idempotency backend needs postgres storage")
		}
		return idempostgres.NewStore(pool, cfg.Idempotency.TTL), nil
	case config.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.closers = append(app.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return idemredis.NewStore(rdb, cfg.Idempotency.TTL), nil
	default:
		return idemmemory.NewStore(cfg.Idempotency.TTL), nil
	}
}

func openEventBus(cfg *config.Config, logger *slog.Logger, meter metric.Meter, app *application) (ports.EventBus, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Info("no kafka brokers configured; order events are only logged")
		return kafka.NewNoopEventBus(logger), nil
	}

	kafkaMetrics, err := kafka.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	bus := kafka.NewEventBus(kafka.Config{
		Brokers:      cfg.Kafka.Brokers,
		OrdersTopic:  cfg.Kafka.OrdersTopic,
		StatusTopic:  cfg.Kafka.StatusTopic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
	}, kafkaMetrics)
	app.closers = append(app.closers, bus.Close)
	return bus, nil
}

func openDispatcher(cfg *config.Config, logger *slog.Logger, meter metric.Meter) (*notification.Dispatcher, error) {
	var sender notification.Sender = notification.NewLogSender(logger)
	if cfg.Mail.SMTPHost != "" {
		smtp, err := notification.NewSMTPSender(notification.SMTPConfig{
			Host:       cfg.Mail.SMTPHost,
			Port:       cfg.Mail.SMTPPort,
			Username:   cfg.Mail.Username,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			RequireTLS: cfg.Mail.RequireTLS,
		})
		if err != nil {
			return nil, fmt.Errorf("configure smtp: %w", err)
		}
		sender = smtp
	}

	metrics, err := notification.NewMetrics(meter)
	if err != nil {
		return nil, err
	}

	return notification.NewDispatcher(sender, logger, metrics, notification.DispatcherConfig{
		Workers:     cfg.Mail.Workers,
		QueueSize:   cfg.Mail.QueueSize,
		SendTimeout: cfg.Mail.SendTimeout,
	}), nil
}
