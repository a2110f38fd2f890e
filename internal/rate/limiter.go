// Package rate limita intentos por clave con ventana fija sobre el cache.
package rate

import (
	"context"
	"strings"
	"time"
)

// Counter es el contador de ventana fija (ver cache.Client.Incr).
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

// Limiter: fixed window sencillo. Max <= 0 deshabilita el límite.
type Limiter struct {
	Counter Counter
	Prefix  string
	Max     int64
	Window  time.Duration
}

func NewLimiter(counter Counter, prefix string, max int, window time.Duration) *Limiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		Counter: counter,
		Prefix:  prefix,
		Max:     int64(max),
		Window:  window,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	if l == nil || l.Max <= 0 {
		return Result{Allowed: true}, nil
	}
	k := l.Prefix + strings.ReplaceAll(strings.ToLower(key), " ", "_")

	hits, left, err := l.Counter.Incr(ctx, k, l.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   remaining,
		CurrentHits: hits,
	}
	if !res.Allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = left
		if res.RetryAfter <= 0 {
			res.RetryAfter = l.Window
		}
	}
	return res, nil
}
