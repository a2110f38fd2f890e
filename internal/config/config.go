package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"app_env"`
		Name     string `yaml:"name"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	// Server es solo la superficie de operación (/readyz, /metrics).
	Server struct {
		Addr            string `yaml:"addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			MinConns        int    `yaml:"min_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		// MigrateOnStart corre las migraciones pendientes en `serve`.
		MigrateOnStart bool `yaml:"migrate_on_start"`
	} `yaml:"storage"`

	Cache struct {
		// redis | memory
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	JWT struct {
		Issuer string `yaml:"issuer"`
		// SigningKey: semilla Ed25519 de 32 bytes en base64.
		SigningKey string `yaml:"signing_key"`
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Security struct {
		// argon2id | bcrypt
		PasswordAlgo   string `yaml:"password_algo"`
		BcryptCost     int    `yaml:"bcrypt_cost"`
		PasswordPolicy struct {
			MinLength     int  `yaml:"min_length"`
			RequireLetter bool `yaml:"require_letter"`
			RequireDigit  bool `yaml:"require_digit"`
			RequireSymbol bool `yaml:"require_symbol"`
		} `yaml:"password_policy"`
		// LoginRateLimit: intentos de login por username y ventana. Max 0 = sin límite.
		LoginRateLimit struct {
			Max    int    `yaml:"max"`
			Window string `yaml:"window"`
		} `yaml:"login_rate_limit"`
	} `yaml:"security"`

	Tx struct {
		DefaultIsolation string `yaml:"default_isolation"`
		// BulkTimeout acota las operaciones masivas (aprobar/rechazar/borrar).
		BulkTimeout string `yaml:"bulk_timeout"`
		// Timeout acota el resto de las unidades de trabajo. Vacío = sin límite.
		Timeout string `yaml:"timeout"`
	} `yaml:"tx"`
}

// Load lee el YAML (si path no es vacío), aplica defaults y variables de
// entorno. No valida: llamar Validate.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "welive"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":9090"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 20
	}
	if c.Storage.Postgres.ConnMaxLifetime == "" {
		c.Storage.Postgres.ConnMaxLifetime = "30m"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "welive:"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "welive"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "168h" // 7d
	}
	if c.Security.PasswordAlgo == "" {
		c.Security.PasswordAlgo = "argon2id"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
		c.Security.PasswordPolicy.RequireLetter = true
		c.Security.PasswordPolicy.RequireDigit = true
	}
	if c.Security.LoginRateLimit.Window == "" {
		c.Security.LoginRateLimit.Window = "1m"
	}
	if c.Tx.DefaultIsolation == "" {
		c.Tx.DefaultIsolation = "READ COMMITTED"
	}
	if c.Tx.BulkTimeout == "" {
		c.Tx.BulkTimeout = "30s"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvBool("STORAGE_MIGRATE_ON_START"); ok {
		c.Storage.MigrateOnStart = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// JWT
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvStr("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}

	// SECURITY
	if v, ok := getEnvStr("PASSWORD_ALGO"); ok {
		c.Security.PasswordAlgo = v
	}
	if v, ok := getEnvInt("BCRYPT_COST"); ok {
		c.Security.BcryptCost = v
	}
	if v, ok := getEnvInt("LOGIN_RATE_MAX"); ok {
		c.Security.LoginRateLimit.Max = v
	}
	if v, ok := getEnvStr("LOGIN_RATE_WINDOW"); ok {
		c.Security.LoginRateLimit.Window = v
	}

	// TX
	if v, ok := getEnvStr("TX_BULK_TIMEOUT"); ok {
		c.Tx.BulkTimeout = v
	}
	if v, ok := getEnvStr("TX_TIMEOUT"); ok {
		c.Tx.Timeout = v
	}
}

// Validate verifica los valores críticos. En prod exige una clave de firma
// explícita; en dev se puede omitir y se genera una efímera.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for driver postgres"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported", c.Cache.Kind))
	}

	if c.IsProd() {
		if c.JWT.SigningKey == "" {
			errs = append(errs, errors.New("jwt.signing_key is required in prod"))
		}
		if c.Cache.Kind == "memory" {
			errs = append(errs, errors.New("cache.kind memory is not allowed in prod"))
		}
	}

	for name, raw := range map[string]string{
		"server.shutdown_timeout":            c.Server.ShutdownTimeout,
		"storage.postgres.conn_max_lifetime": c.Storage.Postgres.ConnMaxLifetime,
		"jwt.access_ttl":                     c.JWT.AccessTTL,
		"jwt.refresh_ttl":                    c.JWT.RefreshTTL,
		"security.login_rate_limit.window":   c.Security.LoginRateLimit.Window,
		"tx.bulk_timeout":                    c.Tx.BulkTimeout,
		"tx.timeout":                         c.Tx.Timeout,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, raw))
		}
	}

	switch strings.ToUpper(c.Tx.DefaultIsolation) {
	case "READ COMMITTED", "REPEATABLE READ", "SERIALIZABLE":
	default:
		errs = append(errs, fmt.Errorf("tx.default_isolation %q not supported", c.Tx.DefaultIsolation))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProd() bool { return c.App.Env == "prod" }

func dur(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}

func (c *Config) AccessTTL() time.Duration       { return dur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration      { return dur(c.JWT.RefreshTTL) }
func (c *Config) BulkTimeout() time.Duration     { return dur(c.Tx.BulkTimeout) }
func (c *Config) TxTimeout() time.Duration       { return dur(c.Tx.Timeout) }
func (c *Config) ShutdownTimeout() time.Duration { return dur(c.Server.ShutdownTimeout) }
func (c *Config) ConnMaxLifetime() time.Duration { return dur(c.Storage.Postgres.ConnMaxLifetime) }
func (c *Config) LoginRateWindow() time.Duration { return dur(c.Security.LoginRateLimit.Window) }
