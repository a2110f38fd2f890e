// Package migrations embebe las migraciones SQL de PostgreSQL.
// Formato golang-migrate: {version}_{name}.up.sql / .down.sql.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
