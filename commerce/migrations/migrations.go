// Package migrations registers the bun schema migrations run by
// `neemo migrate`.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
