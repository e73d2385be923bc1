package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/config"
	storehttp "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/money"
	"github.com/fjod/storefront/internal/poller"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()

	lg, err := logger.New("storefront", cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("storefront stopped with error", zap.Error(err))
	}
	lg.Info("storefront stopped")
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsesDefaultSecret() {
		lg.Warn("JWT_SECRET not set, signing sessions with the development default")
	}

	kv, closeKV, err := keyValueStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeKV()

	gate, err := auth.NewGate(kv, cfg.JWTSecret, lg.Named("auth"))
	if err != nil {
		return err
	}

	store := cart.NewStore(ctx, kv, lg.Named("cart"), cart.WithShippingFee(cfg.ShippingFee))

	var (
		probe catalog.PermissionProbe = catalog.ProbeFunc(func(context.Context) (bool, error) { return false, nil })
		live  catalog.LiveSource
	)
	if cfg.MongoURI != "" {
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()
		lg.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

		probe = repository.NewPermissionProbe(db)
		live = repository.NewLiveProducts(db)
	}

	var static catalog.StaticSource = catalog.NewFileStaticSource(cfg.StaticCatalogPath)
	if cfg.StaticCatalogURL != "" {
		static = catalog.NewHTTPStaticSource(cfg.StaticCatalogURL, &http.Client{Timeout: cfg.RequestTimeout})
	}

	feed := catalog.NewFeed(probe, live, static, gate, lg.Named("catalog"), catalog.WithProbeTimeout(cfg.ProbeTimeout))
	view := catalog.NewView(lg.Named("catalog"))

	formatter, err := money.NewFormatter(cfg.Locale, cfg.Currency)
	if err != nil {
		return err
	}

	router := storehttp.NewRouter(
		storehttp.NewCartHandler(store, view, formatter, lg.Named("http")),
		storehttp.NewCatalogHandler(view, lg.Named("http")),
		storehttp.NewSessionHandler(gate, view, cfg.ShopperID, cfg.SessionTTL, lg.Named("http")),
		cfg.RequestTimeout,
	)
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		view.Run(gctx, feed)
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(store, cfg.ShopperID, lg.Named("poller"), cfg.KafkaBrokers...)
		g.Go(func() error {
			defer p.Close()
			p.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		lg.Info("storefront listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down storefront")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// keyValueStore picks Redis when configured and an in-process map otherwise.
func keyValueStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (storage.KeyValueStore, func(), error) {
	if cfg.RedisAddr == "" {
		lg.Info("REDIS_ADDR not set, keeping cart in memory")
		return storage.NewMemoryStore(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	lg.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	return storage.NewRedisStore(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
}
