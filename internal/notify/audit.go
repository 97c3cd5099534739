package notify

import (
	"context"
	"sort"

	"github.com/ZizzPj/fly-nyasa-ops/internal/kafka"
	"go.uber.org/zap"
)

// AuditSender writes one structured audit line per ops event.
type AuditSender struct {
	log *zap.Logger
}

func NewAuditSender(log *zap.Logger) *AuditSender {
	return &AuditSender{log: log.With(zap.String("component", "audit"))}
}

func (s *AuditSender) Send(ctx context.Context, event kafka.OpsEvent) error {
	fields := []zap.Field{
		zap.String("event", event.Type),
		zap.String("entity_id", event.EntityID),
		zap.String("actor", event.Actor),
		zap.Time("at", event.At),
	}

	keys := make([]string, 0, len(event.Detail))
	for k := range event.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.String(k, event.Detail[k]))
	}

	s.log.Info("ops event", fields...)
	return nil
}
