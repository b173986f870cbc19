package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"ms-venues/internal/admin"
	"ms-venues/internal/auth"
	"ms-venues/internal/config"
	"ms-venues/internal/database"
	"ms-venues/internal/events"
	"ms-venues/internal/kafka"
	"ms-venues/internal/lock"
	"ms-venues/internal/logger"
	"ms-venues/internal/payments"
	"ms-venues/internal/reservations"
	"ms-venues/internal/users"
	"ms-venues/internal/venues"
)

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Failed to connect to Redis at %s: %v", cfg.Addr, err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func newPublisher(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) (reservations.Publisher, func()) {
	if !cfg.Enabled {
		log.Warn("KAFKA", "Kafka disabled, domain events will be dropped")
		return kafka.Disabled{Log: log}, func() {}
	}
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, cfg.TopicPrefix, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		log.Info("KAFKA", "Required topics ensured successfully")
	}
	producer := kafka.NewProducer(cfg.Brokers, cfg.TopicPrefix, log)
	log.Info("KAFKA", "Kafka producer initialized successfully")
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
		}
	}
}

func newGateway(cfg config.StripeConfig, log *logger.Logger) payments.Gateway {
	gateway, err := payments.NewStripeGateway(cfg.SecretKey, log)
	if errors.Is(err, payments.ErrProviderDisabled) {
		log.Warn("PAYMENT", "STRIPE_SECRET_KEY not set, charges are disabled")
		return nil
	}
	if err != nil {
		log.Fatal("PAYMENT", fmt.Sprintf("Failed to initialize Stripe: %v", err))
	}
	return gateway
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	level, levelErr := logger.ParseLevel(cfg.Log.Level)
	log, err := logger.NewLogger(logger.Options{Service: "ms-venues", Dir: cfg.Log.Dir, Level: level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("APP", "Starting venue marketplace admin service")
	if levelErr != nil {
		log.Warn("CONFIG", fmt.Sprintf("%v, using info", levelErr))
	}
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer store.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	publisher, closePublisher := newPublisher(ctx, cfg.Kafka, log)
	defer closePublisher()

	loc := cfg.Display.Location()
	usersService := users.NewService(store, log)
	handler := &admin.Handler{
		Users:         usersService,
		Venues:        venues.NewService(store, log),
		Events:        events.NewService(store, log, loc),
		Reservations:  reservations.NewService(store, lock.NewRedis(redisClient, cfg.Redis.LockTTL, log), publisher, log),
		Payments:      payments.NewService(store, newGateway(cfg.Stripe, log), publisher, log, cfg.Stripe.Currency, loc),
		Logger:        log,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}

	var guards []func(http.Handler) http.Handler
	if cfg.Auth.Enabled {
		authenticate, err := auth.Middleware(ctx, cfg.Auth.OIDCIssuer, log)
		if err != nil {
			log.Fatal("AUTH", err.Error())
		}
		staff := auth.NewStaffCache(usersService, redisClient, cfg.Auth.StaffCacheTTL, log)
		guards = append(guards, authenticate, auth.RequireStaff(staff, log))
		log.Info("AUTH", "OIDC middleware applied to admin routes")
	} else {
		log.Warn("AUTH", "Authentication disabled, admin routes are open")
	}

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handler.Router(guards...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Admin service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	log.Info("APP", "Server exited gracefully")
}
