package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/ZizzPj/fly-nyasa-ops/internal/cache"
	"github.com/ZizzPj/fly-nyasa-ops/internal/jobs"
	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"github.com/ZizzPj/fly-nyasa-ops/internal/logger"
	"github.com/ZizzPj/fly-nyasa-ops/internal/notify"
	"github.com/ZizzPj/fly-nyasa-ops/internal/repository"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
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

	zapLog, err := logger.New(cfg.Log, cfg.App.Name+"-worker")
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
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
	flightService := flights.NewFlightService(flightRepo, viewCache, producer, cfg.Kafka.OpsTopic, loc, zapLog)
	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		flightRepo,
		repository.NewInventoryRepository(pool),
		viewCache,
		producer,
		cfg.Kafka.OpsTopic,
		zapLog,
		booking.WithLocation(loc),
	)

	redisOpt := jobs.RedisOpt(cfg.Redis)
	handlers := jobs.NewHandlers(bookingService, flightService, zapLog)
	server := jobs.NewServer(redisOpt, cfg.Worker, zapLog)
	scheduler, err := jobs.NewScheduler(redisOpt, cfg.Worker, zapLog)
	if err != nil {
		zapLog.Fatal("schedule sweeps", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OpsTopic, zapLog)
	defer consumer.Close()
	audit := notify.NewAuditSender(zapLog)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(handlers.Mux()); err != nil {
			return err
		}
		<-gctx.Done()
		server.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Start(); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Shutdown()
		return nil
	})
	g.Go(func() error {
		return consumer.Consume(gctx, audit.Send)
	})

	zapLog.Info("worker started",
		zap.String("release_holds_cron", cfg.Worker.ReleaseHoldsCron),
		zap.String("close_cutoff_cron", cfg.Worker.CloseCutoffCron),
		zap.String("ops_topic", cfg.Kafka.OpsTopic),
	)
	if err := g.Wait(); err != nil {
		zapLog.Error("worker stopped", zap.Error(err))
		return
	}
	zapLog.Info("worker stopped")
}
