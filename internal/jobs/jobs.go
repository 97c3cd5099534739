package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeReleaseExpiredHolds    = "ops:release_expired_holds"
	TypeCloseFlightsPastCutoff = "ops:close_flights_past_cutoff"

	sweepTimeout = time.Minute
)

type HoldReleaser interface {
	ReleaseExpiredHolds(ctx context.Context, actor auth.Operator) (int, error)
}

type CutoffCloser interface {
	CloseFlightsPastCutoff(ctx context.Context, actor auth.Operator) (int, error)
}

// Handlers runs the periodic sweeps as the system operator.
type Handlers struct {
	holds   HoldReleaser
	flights CutoffCloser
	log     *zap.Logger
}

func NewHandlers(holds HoldReleaser, flights CutoffCloser, log *zap.Logger) *Handlers {
	return &Handlers{holds: holds, flights: flights, log: log.With(zap.String("component", "jobs"))}
}

func (h *Handlers) HandleReleaseExpiredHolds(ctx context.Context, t *asynq.Task) error {
	released, err := h.holds.ReleaseExpiredHolds(ctx, auth.System())
	if err != nil {
		return fmt.Errorf("release expired holds: %w", err)
	}
	if released > 0 {
		h.log.Info("released expired holds", zap.Int("released", released))
	}
	return nil
}

func (h *Handlers) HandleCloseFlightsPastCutoff(ctx context.Context, t *asynq.Task) error {
	closed, err := h.flights.CloseFlightsPastCutoff(ctx, auth.System())
	if err != nil {
		return fmt.Errorf("close flights past cutoff: %w", err)
	}
	if closed > 0 {
		h.log.Info("closed flights past cutoff", zap.Int("closed", closed))
	}
	return nil
}

func (h *Handlers) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReleaseExpiredHolds, h.HandleReleaseExpiredHolds)
	mux.HandleFunc(TypeCloseFlightsPastCutoff, h.HandleCloseFlightsPastCutoff)
	return mux
}

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

func NewServer(redisOpt asynq.RedisConnOpt, cfg config.WorkerConfig, log *zap.Logger) *asynq.Server {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Logger:      log.With(zap.String("component", "asynq")).Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Warn("sweep failed", zap.String("task", task.Type()), zap.Error(err))
		}),
	})
}

// Schedule is one periodic sweep.
type Schedule struct {
	Cron string
	Type string
}

func Schedules(cfg config.WorkerConfig) []Schedule {
	return []Schedule{
		{Cron: cfg.ReleaseHoldsCron, Type: TypeReleaseExpiredHolds},
		{Cron: cfg.CloseCutoffCron, Type: TypeCloseFlightsPastCutoff},
	}
}

// NewScheduler registers every sweep with a cron spec. Sweeps are not retried;
// the next tick runs them again.
func NewScheduler(redisOpt asynq.RedisConnOpt, cfg config.WorkerConfig, log *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger: log.With(zap.String("component", "scheduler")).Sugar(),
	})
	for _, s := range Schedules(cfg) {
		if s.Cron == "" {
			continue
		}
		entryID, err := scheduler.Register(s.Cron, asynq.NewTask(s.Type, nil), asynq.MaxRetry(0), asynq.Timeout(sweepTimeout))
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", s.Type, err)
		}
		log.Info("sweep scheduled", zap.String("task", s.Type), zap.String("cron", s.Cron), zap.String("entry_id", entryID))
	}
	return scheduler, nil
}
