package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"concertjournal/internal/auth"
	"concertjournal/internal/models"
	"concertjournal/internal/store"
	"concertjournal/internal/transfer"
	"concertjournal/internal/update"
)

func fileFormat(c *cli.Context, path string) (transfer.Format, error) {
	if c.IsSet("format") {
		return transfer.ParseFormat(c.String("format"))
	}
	return transfer.FormatFromPath(path)
}

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Usage: "csv or xlsx; derived from the file extension when omitted",
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "add concerts from a CSV file or Excel workbook",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{formatFlag},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("import needs a file", 2)
			}
			format, err := fileFormat(c, path)
			if err != nil {
				return err
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			return withApplication(c, func(a *application) error {
				res, err := a.importer.Import(c.Context, format, f)
				if err != nil {
					return err
				}
				for _, rowErr := range res.Errors {
					fmt.Fprintf(c.App.ErrWriter, "row %d skipped: %s\n", rowErr.Row, rowErr.Reason)
				}
				fmt.Fprintf(c.App.Writer, "Imported %d concerts, skipped %d rows.\n", res.Imported, res.Skipped)
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write every concert to a CSV file or Excel workbook",
		ArgsUsage: "<file>",
		Flags:     []cli.Flag{formatFlag},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return cli.Exit("export needs a file", 2)
			}
			format, err := fileFormat(c, path)
			if err != nil {
				return err
			}

			return withApplication(c, func(a *application) error {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				n, err := a.exporter.Export(c.Context, format, f)
				if cerr := f.Close(); err == nil && cerr != nil {
					err = fmt.Errorf("close %s: %w", path, cerr)
				}
				if err != nil {
					_ = os.Remove(path)
					return err
				}
				fmt.Fprintf(c.App.Writer, "Exported %d concerts to %s.\n", n, path)
				return nil
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print the statistics dashboard",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the dashboard as JSON"},
		},
		Action: func(c *cli.Context) error {
			return withApplication(c, func(a *application) error {
				d, err := a.stats.Dashboard(c.Context)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(d)
				}

				w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Concerts\t%d\n", d.TotalConcerts)
				fmt.Fprintf(w, "Performers\t%d\n", d.TotalPerformers)
				fmt.Fprintf(w, "Average rating\t%.1f\n", d.AverageRating)
				if d.LatestConcert != nil {
					fmt.Fprintf(w, "Latest\t%s (%s)\n", d.LatestConcert.EventTitle, models.FormatDate(d.LatestConcert.Date))
				}
				if d.MostConcertsYear != nil {
					fmt.Fprintf(w, "Busiest year\t%d (%d concerts)\n", d.MostConcertsYear.Year, d.MostConcertsYear.Concerts)
				}
				if d.MostPerformersYear != nil {
					fmt.Fprintf(w, "Most performers\t%d (%d performers)\n", d.MostPerformersYear.Year, d.MostPerformersYear.Performers)
				}
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Country\tConcerts\tPerformers")
				for _, cs := range d.Countries {
					fmt.Fprintf(w, "%s\t%d\t%d\n", cs.Country, cs.Concerts, cs.Performers)
				}
				return w.Flush()
			})
		},
	}
}

func checkUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-update",
		Usage: "check whether a newer release is available",
		Action: func(c *cli.Context) error {
			return withApplication(c, func(a *application) error {
				res := a.updates.Check(c.Context)
				switch res.Status {
				case update.StatusAvailable:
					fmt.Fprintf(c.App.Writer, "Version %s is available (current %s): %s\n", res.Latest, res.Current, res.DownloadURL)
				case update.StatusCurrent:
					fmt.Fprintf(c.App.Writer, "You are running the latest version (%s).\n", res.Current)
				default:
					fmt.Fprintln(c.App.Writer, "Update check unavailable.")
				}
				return nil
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "add demo concerts to an empty journal",
		Action: func(c *cli.Context) error {
			return withApplication(c, func(a *application) error {
				n, err := seedDemoConcerts(c.Context, a.concerts)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Added %d demo concerts.\n", n)
				return nil
			})
		},
	}
}

func migrateCommand() *cli.Command {
	run := func(c *cli.Context, fn func(a *migrationTarget) error) error {
		db, dialect, err := connectDatabase(c.Context, configFrom(c).DatabaseDSN())
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(&migrationTarget{db: db, dialect: dialect})
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "manage the database schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					return run(c, func(t *migrationTarget) error {
						if err := store.Migrate(t.db, t.dialect); err != nil {
							return err
						}
						return t.report(c)
					})
				},
			},
			{
				Name:  "down",
				Usage: "roll back the most recent migration",
				Action: func(c *cli.Context) error {
					return run(c, func(t *migrationTarget) error {
						if err := store.Rollback(t.db, t.dialect); err != nil {
							return err
						}
						return t.report(c)
					})
				},
			},
			{
				Name:  "version",
				Usage: "print the applied schema version",
				Action: func(c *cli.Context) error {
					return run(c, func(t *migrationTarget) error {
						return t.report(c)
					})
				},
			},
		},
	}
}

func hashPasswordCommand() *cli.Command {
	return &cli.Command{
		Name:      "hash-password",
		Usage:     "print a bcrypt hash for AUTH_PASSWORD_HASH",
		ArgsUsage: "[password]",
		Action: func(c *cli.Context) error {
			plain := c.Args().First()
			if plain == "" {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("read password: %w", err)
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			if plain == "" {
				return cli.Exit("password must not be empty", 2)
			}
			hash, err := auth.HashPassword(plain)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, hash)
			return nil
		},
	}
}

type migrationTarget struct {
	db      *sql.DB
	dialect store.Dialect
}

func (t *migrationTarget) report(c *cli.Context) error {
	v, dirty, err := store.SchemaVersion(t.db, t.dialect)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info().Uint("version", v).Bool("dirty", dirty).Str("dialect", string(t.dialect)).Msg("schema version")
	fmt.Fprintf(c.App.Writer, "Schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
