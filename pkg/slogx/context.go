package slogx

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/invitetracker/pkg/idx"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

func WithRequestID(ctx context.Context, id idx.ID) context.Context {
	return WithAttrs(ctx, slog.String("req_id", id.String()))
}

// WithUpdate tags the logger with our correlation id and the chat
// platform's own update number.
func WithUpdate(ctx context.Context, id idx.ID, platformUpdateID int) context.Context {
	return WithAttrs(ctx,
		slog.String("update_id", id.String()),
		slog.Int("telegram_update_id", platformUpdateID),
	)
}

func WithAttrs(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}
