package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/api"
	"github.com/ZizzPj/fly-nyasa-ops/config"
	"github.com/ZizzPj/fly-nyasa-ops/internal/auth"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/booking"
	"github.com/ZizzPj/fly-nyasa-ops/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Services struct {
	Flights  flights.FlightUseCase
	Bookings booking.BookingUseCase
}

// Run serves the dashboard and blocks until ctx is canceled or the server fails.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		log.Info("http server stopped")
		return nil
	}
}

// NewHandler builds the dashboard: public login and health routes, the guarded /ops group,
// and CSRF protection around every form post.
func NewHandler(cfg *config.Config, guard *auth.Guard, svc Services, checks map[string]HealthCheck, log *zap.Logger) (http.Handler, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	tmpl, err := api.Templates(loc)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	engine := gin.New()
	engine.Use(accessLog(log), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/health", health(checks))
	engine.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/ops") })
	api.NewAuthHandler(guard).Register(engine)

	ops := engine.Group("/ops", guard.Middleware())
	api.NewDashboardHandler(svc.Flights, svc.Bookings, cfg.Booking.HoldPolicy, cfg.Booking.DefaultHoldMinutes).Register(ops)
	api.NewFlightHandler(svc.Flights, svc.Bookings, cfg.Booking.HoldPolicy, cfg.Booking.DefaultHoldMinutes, loc).Register(ops)
	api.NewBookingHandler(svc.Bookings).Register(ops)
	api.NewReportHandler(svc.Flights, svc.Bookings).Register(ops)

	protect := csrf.Protect(
		[]byte(cfg.HTTP.CSRFKey),
		csrf.Secure(cfg.HTTP.SecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("csrf check failed", zap.String("path", r.URL.Path), zap.Error(csrf.FailureReason(r)))
			http.Error(w, "Forbidden: the form expired, reload the page and try again", http.StatusForbidden)
		})),
	)
	return protect(engine), nil
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if op, ok := auth.OperatorFromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("operator", op.Name()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			log.Error("request failed", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report[name] = err.Error()
				continue
			}
			report[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": report})
	}
}
