// Package logger expone un logger zap global con scoping por contexto.
//
// Init se llama una vez desde cmd/welive; el resto del código usa From(ctx)
// para obtener el logger del request (o el global si no hay uno inyectado).
//
//	log := logger.From(ctx).With(
//	    logger.Layer("service"),
//	    logger.Component("users"),
//	    logger.Op("Approve"),
//	)
package logger

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "dev" (consola con colores) o "prod" (JSON). Default "dev".
	Env string
	// Level: debug, info, warn, error. Default "info".
	Level string
	// ServiceName y Version se agregan como campos base si no están vacíos.
	ServiceName string
	Version     string
}

var (
	mu       sync.RWMutex
	once     sync.Once
	instance *zap.Logger
)

// Init inicializa el logger global. Solo la primera llamada tiene efecto.
func Init(cfg Config) {
	once.Do(func() {
		l := build(cfg)
		mu.Lock()
		instance = l
		mu.Unlock()
	})
}

// L retorna el logger global. Si Init no fue llamado usa dev/info.
func L() *zap.Logger {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(Config{Env: "dev", Level: "info"})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Named retorna un hijo del logger global con nombre.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Sync flushea buffers pendientes. Llamar con defer en main.
func Sync() error {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l == nil {
		return nil
	}
	return l.Sync()
}

// Replace reemplaza el logger global. Usado por tests (zaptest/observer).
func Replace(l *zap.Logger) func() {
	mu.Lock()
	prev := instance
	instance = l
	mu.Unlock()
	return func() {
		mu.Lock()
		instance = prev
		mu.Unlock()
	}
}

func build(cfg Config) *zap.Logger {
	level := parseLevel(cfg.Level)

	var (
		zcfg zap.Config
		opts = []zap.Option{zap.AddCaller()}
	)
	if strings.EqualFold(cfg.Env, "prod") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zcfg.Build(opts...)
	if err != nil {
		l, _ = zap.NewProduction()
	}

	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

// parseLevel convierte un string a zapcore.Level (info si no se reconoce).
func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
