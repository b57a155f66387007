package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/config"
	h "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/poller"
	"github.com/fjod/go_shop/internal/publisher"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/internal/service"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so this goes through a bootstrap one.
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	if err := repository.EnsureCollections(ctx, mongoDB); err != nil {
		log.Fatal("failed to create collections", zap.Error(err))
	}
	if err := repository.CreateIndexes(ctx, mongoDB); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))

	// Repositories
	cartRepo := repository.NewCartRepository(mongoDB)
	checkoutRepo := repository.NewCheckoutRepository(mongoDB)
	orderRepo := repository.NewOrderRepository(mongoDB)
	productRepo := repository.NewProductRepository(mongoDB)
	userRepo := repository.NewUserRepository(mongoDB)
	outboxRepo := repository.NewOutboxRepository(mongoDB)
	tx := repository.NewTransactor(mongoDB)

	// Services
	productCatalog := catalog.NewProductCatalog(productRepo, cfg.CatalogTimeout, log)
	userDirectory := catalog.NewUserDirectory(userRepo, cfg.CatalogTimeout, log)

	cartCache := cache.NewRedisCache(redisClient)
	cartService := service.NewCartService(cartRepo, cartCache, productCatalog, tx, log)
	orderService := service.NewOrderService(orderRepo, log)
	checkoutService := service.NewCheckoutService(checkoutRepo, cartRepo, cartCache, outboxRepo, tx, userDirectory, orderService, log)
	userService := service.NewUserService(userRepo, log)
	productService := service.NewProductService(productRepo)

	// Event pipeline: outbox -> Kafka -> cart settlement
	outboxPoller := publisher.NewOutboxPoller(outboxRepo, publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...), log)
	cartCleaner := poller.NewPoller(poller.NewKafkaReader(cfg.KafkaTopic, cfg.KafkaBrokers...), checkoutService, log)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		outboxPoller.Run(workerCtx)
	}()
	go func() {
		defer workers.Done()
		cartCleaner.Run(workerCtx)
	}()

	router := h.NewRouter(h.Services{
		Users:     userService,
		Products:  productService,
		Carts:     cartService,
		Checkouts: checkoutService,
		Orders:    orderService,
	}, h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Metrics:        h.NewMetrics(prometheus.DefaultRegisterer),
		Gatherer:       prometheus.DefaultGatherer,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      otelhttp.NewHandler(router, "shop"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	stopWorkers()
	workers.Wait()
	if err := outboxPoller.Close(); err != nil {
		log.Warn("failed to close kafka writer", zap.Error(err))
	}
	cartCleaner.Close()

	if err := mongoDB.Client().Disconnect(shutdownCtx); err != nil {
		log.Warn("failed to disconnect from MongoDB", zap.Error(err))
	}
	log.Info("server exited")
}
