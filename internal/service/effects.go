package service

import (
	"context"
	"time"

	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"go.uber.org/zap"
)

// DefaultPublishTimeout bounds the ops event publish so an unreachable broker
// delays an action by at most this much.
const DefaultPublishTimeout = 2 * time.Second

type ViewCache interface {
	GetView(ctx context.Context, path, field string, dst any) (bool, error)
	SetView(ctx context.Context, path, field string, v any) error
	Invalidate(ctx context.Context, paths ...string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Effects runs what follows a successful mutation: dropping the views it touched
// and announcing it on the ops topic. Neither step can fail the mutation.
type Effects struct {
	Cache    ViewCache
	Producer Producer
	Topic    string
	Log      *zap.Logger
	Now      func() time.Time
	// PublishTimeout overrides DefaultPublishTimeout when positive.
	PublishTimeout time.Duration
}

func (e *Effects) Commit(ctx context.Context, views []string, event kafka.OpsEvent) {
	log := e.logger().With(zap.String("event", event.Type), zap.String("entity_id", event.EntityID))

	if e.Cache != nil && len(views) > 0 {
		if err := e.Cache.Invalidate(ctx, views...); err != nil {
			log.Warn("view invalidation failed", zap.Strings("views", views), zap.Error(err))
		}
	}

	if e.Producer == nil || e.Topic == "" {
		return
	}
	if event.At.IsZero() {
		event.At = e.now()
	}
	publishCtx, cancel := context.WithTimeout(ctx, e.publishTimeout())
	defer cancel()
	if err := e.Producer.Publish(publishCtx, e.Topic, event.EntityID, event); err != nil {
		log.Warn("ops event not published", zap.Error(err))
	}
}

func (e *Effects) publishTimeout() time.Duration {
	if e.PublishTimeout > 0 {
		return e.PublishTimeout
	}
	return DefaultPublishTimeout
}

func (e *Effects) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Effects) logger() *zap.Logger {
	if e.Log != nil {
		return e.Log
	}
	return zap.NewNop()
}

// Cached serves field of the view at path from c, loading and storing it on a miss.
// Cache failures fall through to load.
func Cached[T any](ctx context.Context, c ViewCache, path, field string, load func(context.Context) (T, error)) (T, error) {
	var v T
	if c != nil {
		if ok, err := c.GetView(ctx, path, field, &v); err == nil && ok {
			return v, nil
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if c != nil {
		_ = c.SetView(ctx, path, field, v)
	}
	return v, nil
}
