package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-ordering-api/cache"
	"food-ordering-api/config"
	"food-ordering-api/events"
	"food-ordering-api/handlers"
	"food-ordering-api/routes"
	"food-ordering-api/services"
	"food-ordering-api/store"
	"food-ordering-api/token"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := config.InitLogger(cfg.App.LogPath, cfg.App.Name, cfg.App.Debug)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	st, err := store.Open(openCtx, store.Options{
		Driver:        cfg.Store.Driver,
		DSN:           cfg.Store.DatabaseURL,
		MongoURI:      cfg.Store.MongoURI,
		MongoDatabase: cfg.Store.MongoDatabase,
	}, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	catalog := st.Catalog
	if cfg.Redis.Addr != "" {
		rdb := cache.NewClient(cfg.Redis.Addr)
		defer rdb.Close()
		catalog = cache.NewRestaurantCache(st.Catalog, rdb, cfg.Redis.TTL, logger)
		logger.Info("restaurant cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Buffer, logger)
		logger.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer publisher.Close()

	// --- Services ---
	tokens, err := token.NewService(token.Options{
		Secret:     cfg.JWT.Secret,
		Issuer:     cfg.JWT.Issuer,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return err
	}
	authService := services.NewAuthService(st.Users, catalog, tokens, services.AuthOptions{
		InitialAdminEmail: cfg.Seed.InitialAdminEmail,
		RevalidateRefresh: cfg.JWT.RevalidateRefresh,
		StoreTimeout:      cfg.Store.Timeout,
	}, logger)
	orderService := services.NewOrderService(st.Orders, catalog, publisher, cfg.Store.Timeout, logger)

	if cfg.Seed.Enabled {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := services.Seed(seedCtx, st.Users, catalog, logger)
		cancel()
		if err != nil {
			return err
		}
	}

	// --- Router ---
	router := routes.NewRouter(logger, tokens, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		Orders: handlers.NewOrderHandler(orderService),
		Owner:  handlers.NewOwnerHandler(orderService),
		Admin:  handlers.NewAdminHandler(authService),
		Public: handlers.NewPublicHandler(catalog, st, cfg.App.Name, cfg.Store.Timeout),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", srv.Addr), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
