package pg

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	migrations "github.com/june5815/welive/migrations/postgres"
)

// MigrateResult describe el estado del esquema después de migrar.
type MigrateResult struct {
	Version uint
	Dirty   bool
	Changed bool
}

// migrateURL convierte un DSN postgres:// al esquema del driver pgx5 de
// golang-migrate.
func migrateURL(dsn string) (string, error) {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix), nil
		}
	}
	if strings.HasPrefix(dsn, "pgx5://") {
		return dsn, nil
	}
	return "", fmt.Errorf("pg: migrate needs a URL DSN (postgres://...), got %q", redact(dsn))
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}

// Migrate aplica (up) o revierte (down) las migraciones embebidas.
// steps == 0 significa todas.
func Migrate(dsn string, up bool, steps int) (MigrateResult, error) {
	url, err := migrateURL(dsn)
	if err != nil {
		return MigrateResult{}, err
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return MigrateResult{}, fmt.Errorf("pg: migrations source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return MigrateResult{}, fmt.Errorf("pg: init migrations: %w", err)
	}
	defer m.Close()

	switch {
	case steps > 0 && up:
		err = m.Steps(steps)
	case steps > 0:
		err = m.Steps(-steps)
	case up:
		err = m.Up()
	default:
		err = m.Down()
	}

	res := MigrateResult{Changed: true}
	if errors.Is(err, migrate.ErrNoChange) {
		res.Changed = false
		err = nil
	}
	if err != nil {
		return res, fmt.Errorf("pg: migrate: %w", err)
	}

	v, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		return res, fmt.Errorf("pg: migration version: %w", verr)
	}
	res.Version, res.Dirty = v, dirty
	return res, nil
}
