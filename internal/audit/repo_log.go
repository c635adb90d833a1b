package audit

import (
	"context"
	"log/slog"
	"time"
)

// LogRepo writes events to a structured logger. The driver keeps no history
// of its own; log shipping is where audit records end up.
type LogRepo struct {
	log *slog.Logger
}

func NewLogRepo(l *slog.Logger) *LogRepo {
	if l == nil {
		l = slog.Default()
	}
	return &LogRepo{log: l.With("component", "audit")}
}

func (r *LogRepo) Append(ctx context.Context, e Event) error {
	attrs := []slog.Attr{
		slog.String("audit_id", e.ID),
		slog.String("type", string(e.Type)),
		slog.String("device", e.Device),
		slog.String("outcome", string(e.Outcome)),
		slog.Time("created_at", e.CreatedAt.Truncate(time.Millisecond)),
	}
	for k, v := range map[string]string{
		"actor":      e.Actor,
		"actor_role": e.ActorRole,
		"ip":         e.IPAddress,
		"call_id":    e.CallID,
		"message":    e.Message,
		"error":      e.Error,
	} {
		if v != "" {
			attrs = append(attrs, slog.String(k, v))
		}
	}
	r.log.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
	return nil
}
