package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	"github.com/tanpawarit/neemo/commerce/migrations"
	configx "github.com/tanpawarit/neemo/pkg/config"
	"github.com/tanpawarit/neemo/pkg/postgres"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create the migration tables",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					return m.Init(c.Context)
				}),
			},
			{
				Name:  "up",
				Usage: "apply pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context)

					group, err := m.Migrate(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						log.Info().Msg("no new migrations to run")
						return nil
					}
					log.Info().Str("group", group.String()).Msg("migrated")
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "roll back the last migration group",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					if err := m.Lock(c.Context); err != nil {
						return err
					}
					defer m.Unlock(c.Context)

					group, err := m.Rollback(c.Context)
					if err != nil {
						return err
					}
					if group.IsZero() {
						log.Info().Msg("no groups to roll back")
						return nil
					}
					log.Info().Str("group", group.String()).Msg("rolled back")
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print applied and pending migrations",
				Action: withMigrator(func(c *cli.Context, m *migrate.Migrator) error {
					ms, err := m.MigrationsWithStatus(c.Context)
					if err != nil {
						return err
					}
					fmt.Printf("migrations: %s\n", ms)
					fmt.Printf("unapplied: %s\n", ms.Unapplied())
					fmt.Printf("last group: %s\n", ms.LastGroup())
					return nil
				}),
			},
		},
	}
}

func withMigrator(fn func(c *cli.Context, m *migrate.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, err := postgres.Open(c.Context, *configx.MustNew[postgres.Config]("DB"))
		if err != nil {
			return err
		}
		defer func(db *bun.DB) {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("close database")
			}
		}(db)

		return fn(c, migrate.NewMigrator(db, migrations.Migrations))
	}
}
