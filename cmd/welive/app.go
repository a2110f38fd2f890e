package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/june5815/welive/internal/cache"
	"github.com/june5815/welive/internal/config"
	"github.com/june5815/welive/internal/http/ops"
	jwtx "github.com/june5815/welive/internal/jwt"
	"github.com/june5815/welive/internal/metrics"
	"github.com/june5815/welive/internal/observability/logger"
	"github.com/june5815/welive/internal/rate"
	"github.com/june5815/welive/internal/security/password"
	"github.com/june5815/welive/internal/services/auth"
	"github.com/june5815/welive/internal/services/users"
	store "github.com/june5815/welive/internal/store/v2"
	_ "github.com/june5815/welive/internal/store/v2/adapters/memory"
	"github.com/june5815/welive/internal/store/v2/adapters/pg"
)

// app agrupa las dependencias armadas a partir de la config.
type app struct {
	cfg     *config.Config
	conn    store.Connection
	cache   cache.Client
	metrics *metrics.Metrics
	auth    auth.Service
	users   users.Service
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logger.From(ctx).With(logger.Component("bootstrap"))

	if cfg.Storage.Driver == "postgres" && cfg.Storage.MigrateOnStart {
		res, err := pg.Migrate(cfg.Storage.DSN, true, 0)
		if err != nil {
			return nil, err
		}
		log.Info("migrations applied", zap.Uint("schema_version", res.Version), logger.Bool("changed", res.Changed))
	}

	conn, err := store.Open(ctx, store.AdapterConfig{
		Name:            cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxConns:        int32(cfg.Storage.Postgres.MaxConns),
		MinConns:        int32(cfg.Storage.Postgres.MinConns),
		MaxConnLifetime: cfg.ConnMaxLifetime(),
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, conn: conn}

	a.cache, err = cache.New(ctx, cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.metrics, err = metrics.New(true)
	if err != nil {
		a.Close()
		return nil, err
	}
	if pc, ok := conn.(*pg.Connection); ok {
		if err := a.metrics.RegisterPool(pc.Pool()); err != nil {
			a.Close()
			return nil, err
		}
	}

	keys, err := signingKeys(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	codec := jwtx.NewCodec(cfg.JWT.Issuer, keys)
	codec.AccessTTL = cfg.AccessTTL()
	codec.RefreshTTL = cfg.RefreshTTL()

	hasher, err := password.New(cfg.Security.PasswordAlgo, cfg.Security.BcryptCost)
	if err != nil {
		a.Close()
		return nil, err
	}

	uow := store.Instrument(conn.UnitOfWork(), a.metrics)

	a.auth = auth.NewService(auth.Deps{
		UoW:        uow,
		Sessions:   a.cache,
		Codec:      codec,
		Hasher:     hasher,
		SessionTTL: cfg.RefreshTTL(),
		Observer:   a.metrics,
		Limiter:    rate.NewLimiter(a.cache, "rl:", cfg.Security.LoginRateLimit.Max, cfg.LoginRateWindow()),
	})

	pp := cfg.Security.PasswordPolicy
	a.users = users.NewService(users.Deps{
		UoW:    uow,
		Hasher: hasher,
		Policy: password.Policy{
			MinLength:     pp.MinLength,
			RequireLetter: pp.RequireLetter,
			RequireDigit:  pp.RequireDigit,
			RequireSymbol: pp.RequireSymbol,
		},
		Sessions:    a.auth,
		Isolation:   store.IsolationLevel(strings.ToUpper(cfg.Tx.DefaultIsolation)),
		Timeout:     cfg.TxTimeout(),
		BulkTimeout: cfg.BulkTimeout(),
	})

	log.Info("wired",
		logger.String("storage", conn.Name()),
		logger.String("cache", cfg.Cache.Kind),
		logger.String("kid", keys.KID),
	)
	return a, nil
}

// signingKeys lee la semilla configurada. Sin semilla (solo fuera de prod,
// Validate lo exige) genera un par efímero.
func signingKeys(cfg *config.Config, log *zap.Logger) (*jwtx.Keys, error) {
	if cfg.JWT.SigningKey != "" {
		k, err := jwtx.KeysFromSeed(cfg.JWT.SigningKey)
		if err != nil {
			return nil, fmt.Errorf("jwt.signing_key: %w", err)
		}
		return k, nil
	}
	log.Warn("jwt.signing_key not set, using an ephemeral key; tokens will not survive a restart")
	return jwtx.GenerateKeys()
}

// checks arma los checks de /readyz: la base es crítica, el cache no.
func (a *app) checks() []ops.Check {
	return []ops.Check{
		{Name: "storage", Critical: true, Fn: a.conn.Ping},
		{Name: "cache", Critical: a.cfg.IsProd(), Fn: a.cache.Ping},
	}
}

func (a *app) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
}
