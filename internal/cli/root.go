package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/limaJavier/studyplan/internal/catalog"
	"github.com/limaJavier/studyplan/internal/config"
	"github.com/limaJavier/studyplan/internal/store"
	"github.com/limaJavier/studyplan/internal/telemetry"
	"github.com/limaJavier/studyplan/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// App holds everything the commands work with. Fields left nil are filled
// from the configuration before the first command runs.
type App struct {
	Catalog    *catalog.Catalog
	Plans      *store.Repo
	PlanConfig model.PlanConfig
	Logger     *slog.Logger
	Metrics    *telemetry.Metrics
	Gatherer   prometheus.Gatherer

	closers []func() error
}

type globalOptions struct {
	configPath  string
	catalogPath string
	database    string
	logLevel    string
	metrics     bool
}

// NewRootCmd creates the top-level "advisor" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	var options globalOptions

	root := &cobra.Command{
		Use:           "advisor",
		Short:         "Plan which subjects to take and when",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd, options)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if options.metrics && app.Gatherer != nil {
				samples, err := telemetry.Snapshot(app.Gatherer)
				if err != nil {
					return err
				}
				for _, sample := range samples {
					fmt.Fprintln(cmd.ErrOrStderr(), sample)
				}
			}
			return app.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&options.configPath, "config", "", "Path to a YAML configuration file (default $"+config.EnvConfig+")")
	flags.StringVar(&options.catalogPath, "catalog", "", "Path to the YAML or JSON catalogue")
	flags.StringVar(&options.database, "db", "", "Path to the SQLite database holding saved plans")
	flags.StringVar(&options.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.BoolVar(&options.metrics, "metrics", false, "Print analysis metrics to stderr when the command finishes")

	root.AddCommand(
		newPlanCmd(app),
		newAddCmd(app),
		newRemoveCmd(app),
		newForceCmd(app),
		newUnforceCmd(app),
		newCapacityCmd(app),
		newDecisionsCmd(app),
		newScheduleCmd(app),
		newBansCmd(app),
		newNextCmd(app),
	)

	return root
}

// open loads the configuration, the catalogue and the database for whatever
// the App is still missing.
func (app *App) open(cmd *cobra.Command, options globalOptions) error {
	if app.Catalog != nil && app.Plans != nil {
		if app.Logger == nil {
			app.Logger = slog.Default()
		}
		return nil
	}

	flags := cmd.Flags()
	cfg, err := config.NewLoader(app.Logger).Load(options.configPath, func(c *config.Config) {
		if flags.Changed("catalog") {
			c.Catalog = options.catalogPath
		}
		if flags.Changed("db") {
			c.Database = options.database
		}
		if flags.Changed("log-level") {
			c.LogLevel = options.logLevel
		}
	})
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, _ := cfg.Level()
	app.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	app.PlanConfig = cfg.PlanConfig()

	if app.Catalog == nil {
		app.Catalog, err = catalog.Load(cfg.Catalog)
		if err != nil {
			return fmt.Errorf("loading catalogue: %w", err)
		}
		subjects, courses := app.Catalog.Size()
		app.Logger.Debug("catalogue loaded", "path", cfg.Catalog, "subjects", subjects, "courses", courses)
	}

	if app.Plans == nil {
		database, err := store.OpenDB(cfg.Database)
		if err != nil {
			return err
		}
		app.closers = append(app.closers, database.Close)
		app.Plans = store.NewRepo(database)
	}

	if app.Metrics == nil {
		registry := prometheus.NewRegistry()
		app.Metrics = telemetry.NewMetrics(registry)
		app.Gatherer = registry
	}
	return nil
}

// Close releases what open acquired.
func (app *App) Close() error {
	var errs []error
	for _, closer := range app.closers {
		errs = append(errs, closer())
	}
	app.closers = nil
	return errors.Join(errs...)
}
