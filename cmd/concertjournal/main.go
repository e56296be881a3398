package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"concertjournal/internal/config"
	"concertjournal/internal/logging"
	"concertjournal/internal/version"
)

const configKey = "config"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed loading .env file: %s\n", err)
		os.Exit(1)
	}

	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("concertjournal failed")
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "concertjournal"
	app.Usage = "Keep a journal of the concerts you have been to."
	app.Version = version.Info()
	app.Metadata = map[string]any{}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory holding the database and media files",
			EnvVars: []string{"DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database location; postgres:// URLs select Postgres",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "json or text",
			EnvVars: []string{"LOG_FORMAT"},
		},
	}
	app.Before = func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if c.IsSet("data-dir") {
			cfg.Storage.DataDir = c.String("data-dir")
		}
		if c.IsSet("database-url") {
			cfg.Storage.DatabaseURL = c.String("database-url")
		}
		if c.IsSet("log-level") {
			cfg.Logging.Level = c.String("log-level")
		}
		if c.IsSet("log-format") {
			cfg.Logging.Format = c.String("log-format")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logging.Setup(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
		c.App.Metadata[configKey] = cfg
		return nil
	}
	app.Commands = []*cli.Command{
		serveCommand(),
		importCommand(),
		exportCommand(),
		statsCommand(),
		browseCommand(),
		checkUpdateCommand(),
		seedCommand(),
		migrateCommand(),
		hashPasswordCommand(),
	}
	return app
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

// withApplication opens the journal for the duration of fn.
func withApplication(c *cli.Context, fn func(*application) error) error {
	a, err := newApplication(c.Context, configFrom(c))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()
	return fn(a)
}
