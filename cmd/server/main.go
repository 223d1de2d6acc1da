package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/event-checkin/internal/auth"
	"github.com/iliyamo/event-checkin/internal/config"
	"github.com/iliyamo/event-checkin/internal/database"
	"github.com/iliyamo/event-checkin/internal/logger"
	"github.com/iliyamo/event-checkin/internal/queue"
	"github.com/iliyamo/event-checkin/internal/router"
	"github.com/iliyamo/event-checkin/internal/service"
	"github.com/iliyamo/event-checkin/internal/store"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	st, err := store.New(backend)
	if err != nil {
		return err
	}
	adminHash, err := auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	wrote, err := store.Seed(ctx, st, store.SeedOptions{AdminPasswordHash: adminHash, SampleEvent: cfg.SeedSampleEvent})
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	if wrote {
		log.Info("seeded store")
	}

	mailer := queue.NewLogMailer(log)
	var notifier service.Notifier = queue.NewLogPublisher(log, mailer)
	if cfg.NotifyEnabled {
		pub := queue.NewPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		notifier = pub

		consumer := queue.NewConsumer(cfg.RabbitURL, mailer, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Info("redis unavailable; rate limiting and caching disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	e := router.New(router.Deps{
		Log:       log,
		Store:     st,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),

		Auth:   service.NewAuthService(st, tokens, cfg.BcryptCost),
		Events: service.NewEventService(st),
		Tickets: service.NewTicketService(st,
			service.WithNotifier(notifier),
			service.WithLogger(log),
			service.WithAdminOverride(cfg.AdminTicketOverride),
		),
		CheckIn:       service.NewCheckInService(st, nil),
		Announcements: service.NewAnnouncementService(st, notifier),
		Reports:       service.NewReportService(st),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

// openBackend selects the snapshot backend named by STORE_DRIVER.
func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Backend, func(), error) {
	switch cfg.StoreDriver {
	case "", "file":
		fb, err := store.NewFileBackend(cfg.DataFile)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using file store", zap.String("path", fb.Path()))
		return fb, func() {}, nil
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		mb := store.NewMySQLBackend(db, cfg.SnapshotKey)
		if err := mb.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return mb, func() { _ = db.Close() }, nil
	case "postgres":
		pool, err := database.NewPool(ctx, cfg.PGDSN, log)
		if err != nil {
			return nil, nil, err
		}
		pb := store.NewPostgresBackend(pool, cfg.SnapshotKey)
		if err := pb.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pb, pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
