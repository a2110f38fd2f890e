// Package cache provee el almacenamiento clave-valor con TTL.
//
// Soporta:
//   - Memory (in-process con go-cache, para desarrollo/testing)
//   - Redis (compartido entre instancias, para producción)
//
// Es el almacenamiento canónico de sesiones de refresh (ver services/auth).
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor reemplazando el anterior. ttl 0 = no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete elimina una key. Borrar una key inexistente no es error.
	Delete(ctx context.Context, key string) error

	// CompareAndDelete elimina la key solo si su valor actual es expected,
	// de forma atómica. Retorna true si borró.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)

	// Incr incrementa un contador de ventana fija. El primer hit fija la
	// expiración en window; retorna el valor nuevo y lo que resta de la ventana.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	// Stats retorna estadísticas del cache.
	Stats(ctx context.Context) (Stats, error)
}

// Stats contiene estadísticas del cache.
type Stats struct {
	Driver string
	Keys   int64
	Hits   int64
	Misses int64
}

// Config configuración para crear un cliente de cache.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string // host:port para redis
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// ErrNotFound indica que la key no existe o expiró.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New crea un cliente de cache según la configuración.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(ctx, cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
