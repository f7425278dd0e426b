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

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/checkout"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/lifecycle"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/notify"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	directory := store.New(db)
	sessions := cart.NewMemorySessions(cfg.Order.GuestCartTTL)
	go sweepSessions(ctx, sessions, cfg.Order.GuestCartTTL, logger)

	router := api.NewRouter(cfg, api.Deps{
		Checkout:  checkout.NewService(db, pricing.NewTieredDelivery(cfg.Delivery), cfg.Order, logger),
		Orders:    lifecycle.NewController(db, notify.NewLogSender(logger), cfg.Order, logger),
		Directory: directory,
		Carts:     cart.NewService(directory, logger),
		CustomerCart: func(customerID int64) cart.Lines {
			return cart.CustomerLines(db, customerID)
		},
		Sessions: sessions,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func sweepSessions(ctx context.Context, sessions *cart.MemorySessions, ttl time.Duration, logger *zap.Logger) {
	interval := max(ttl/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				logger.Debug("expired guest carts swept", zap.Int("count", n))
			}
		}
	}
}
