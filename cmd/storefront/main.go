package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cache"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/cart"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/catalog"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/checkout"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	h "github.com/bahaaabdelrahman/noon-app-sub000/internal/http"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/identity"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/order"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/pricing"
	"github.com/bahaaabdelrahman/noon-app-sub000/internal/publisher"
	"github.com/bahaaabdelrahman/noon-app-sub000/pkg/logger"
)

type Config struct {
	HTTPPort        string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	PostgresHost    string
	PostgresPort    int
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	MigrationsPath  string
	KafkaBrokers    []string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "storefront"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		PostgresHost:    getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:    getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:      getEnv("POSTGRES_DB", "orders"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "internal/order/migrations"),
		KafkaBrokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// discountTable is the configured coupon set. A real deployment would load
// this from a campaigns backend.
func discountTable() map[string]domain.Discount {
	return map[string]domain.Discount{
		"WELCOME10": {Code: "WELCOME10", Type: domain.DiscountPercentage, Amount: 10},
		"SAVE5":     {Code: "SAVE5", Type: domain.DiscountFixed, Amount: 5},
	}
}

func main() {
	cfg := loadConfig()

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// MongoDB holds carts, products and users.
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := cart.EnsureIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("failed to ensure cart indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Postgres holds orders and their outbox.
	cred := &order.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	orderRepo, err := order.NewPostgresRepository(cred)
	if err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(cred); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	policy := pricing.Policy{
		TaxRate:               getEnvFloat("TAX_RATE", 0.05),
		FreeShippingThreshold: getEnvFloat("FREE_SHIPPING_THRESHOLD", 100),
		FlatShippingFee:       getEnvFloat("FLAT_SHIPPING_FEE", 10),
	}

	cat := catalog.NewBreaker(catalog.NewMongoCatalog(mongoDB))
	users := identity.NewMongoDirectory(mongoDB)
	cartCache := cache.NewRedisCache(redisClient)
	cartRepo := cart.NewMongoRepository(mongoDB)

	cartSvc := cart.NewService(cartRepo, cartCache, cat, discountTable(), policy, zlog)
	mergeSvc := cart.NewMergeService(cartSvc, cartRepo, cat, zlog)
	orderSvc := order.NewService(orderRepo, cat, zlog)
	checkoutSvc := checkout.NewService(users, cartSvc, cat, orderRepo, policy, zlog)

	// Drain the order outbox into Kafka until shutdown.
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go publisher.NewOutboxPoller(orderRepo, zlog, cfg.KafkaBrokers...).Run(pollerCtx)

	router := h.NewRouter(
		h.NewCartHandler(cartSvc, mergeSvc, cfg.RequestTimeout),
		h.NewCheckoutHandler(checkoutSvc, cfg.RequestTimeout),
		h.NewOrdersHandler(orderSvc, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")
	stopPoller()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	zlog.Info("server exited")
}
