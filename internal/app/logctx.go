package app

import (
	"context"

	"github.com/bft-labs/greenfinch/internal/ports"
)

type loggerKey struct{}

// ContextWithLogger attaches a logger, typically one carrying a flush cycle
// id, to ctx.
func ContextWithLogger(ctx context.Context, l ports.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context, fallback ports.Logger) ports.Logger {
	if l, ok := ctx.Value(loggerKey{}).(ports.Logger); ok && l != nil {
		return l
	}
	return fallback
}
