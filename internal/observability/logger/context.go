package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext inyecta un logger "scoped" en el contexto.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// WithFields agrega campos al logger del contexto y retorna el nuevo contexto.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	return ToContext(ctx, From(ctx).With(fields...))
}

// From extrae el logger del contexto; si no hay, retorna el global.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}
