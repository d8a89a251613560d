package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	configx "github.com/tanpawarit/neemo/pkg/config"
	_ "github.com/tanpawarit/neemo/pkg/logger/autoload"
)

func main() {
	app := &cli.App{
		Name:  "neemo",
		Usage: "WhatsApp assistant for neighbourhood shops",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path of the .env file to load (defaults to ./.env when present)",
			},
		},
		Before: func(c *cli.Context) error {
			configx.UseEnvFile(c.String("env"))
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("neemo exited")
	}
}
