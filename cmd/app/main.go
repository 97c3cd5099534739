package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/bootstrap"
	"github.com/ZizzPj/fly-nyasa-ops/internal/cache"
	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"github.com/ZizzPj/fly-nyasa-ops/internal/logger"
	"github.com/ZizzPj/fly-nyasa-ops/internal/repository"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLog, err := logger.New(cfg.Log, cfg.App.Name)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLog.Sync()

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		zapLog.Fatal("parse database config", zap.Error(err))
	}
	poolCfg.MaxConns = cfg.Database.MaxConns
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		zapLog.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	loc, err := cfg.App.Location()
	if err != nil {
		zapLog.Fatal("load timezone", zap.Error(err))
	}

	viewCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ViewCacheTTL)*time.Second)
	defer viewCache.Close()
	producer := kafka.NewProducer(cfg.Kafka.Brokers, zapLog)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	inventoryRepo := repository.NewInventoryRepository(pool)

	flightService := flights.NewFlightService(flightRepo, viewCache, producer, cfg.Kafka.OpsTopic, loc, zapLog)
	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		inventoryRepo,
		viewCache,
		producer,
		cfg.Kafka.OpsTopic,
		zapLog,
		booking.WithHoldPolicy(cfg.Booking.HoldPolicy),
		booking.WithDemoUserID(cfg.Access.DemoUserID),
		booking.WithLocation(loc),
	)

	guard := auth.NewGuard(auth.OptionsFromConfig(cfg), zapLog)
	handler, err := bootstrap.NewHandler(cfg, guard, bootstrap.Services{
		Flights:  flightService,
		Bookings: bookingService,
	}, map[string]bootstrap.HealthCheck{
		"database": pool.Ping,
		"redis":    viewCache.Ping,
		"kafka":    producer.CheckConnection,
	}, zapLog)
	if err != nil {
		zapLog.Fatal("build http handler", zap.Error(err))
	}

	zapLog.Info("starting ops dashboard",
		zap.Bool("demo_mode", cfg.Access.DemoMode),
		zap.String("hold_policy", string(cfg.Booking.HoldPolicy)),
		zap.String("timezone", loc.String()),
	)
	if err := bootstrap.Run(ctx, cfg, handler, zapLog); err != nil {
		zapLog.Fatal("server error", zap.Error(err))
	}
}
