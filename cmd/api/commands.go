// cmd/api/commands.go
// This file defines the command tree: serve runs the HTTP API, migrate
// manages the schema and seed bulk-loads the sample data files.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fabio-stoppa/sistema-biblioteca/internal/data"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/data/migrations"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/seed"
	"github.com/fabio-stoppa/sistema-biblioteca/internal/services"
)

// cli carries the state shared by every command: the viper instance the
// flags are bound to and the optional config file path.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

// newRootCmd builds the api command and its subcommands.
func newRootCmd() *cobra.Command {
	c := &cli{v: newViper()}

	root := &cobra.Command{
		Use:           "api",
		Short:         "Library records API",
		Long:          `Manage librarians, readers and the loans readers take out, over a JSON HTTP API backed by PostgreSQL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "Config file (yaml, json or toml)")
	flags.Int("port", 4000, "Server port")
	flags.String("env", "development", "Environment (development|staging|production)")
	flags.String("db-dsn", "", "PostgreSQL DSN")
	flags.String("log-level", "info", "Log level (debug|info|warn|error)")
	c.bind(root, "port", "port")
	c.bind(root, "env", "env")
	c.bind(root, "db.dsn", "db-dsn")
	c.bind(root, "log.level", "log-level")

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.seedCmd())
	return root
}

// bind ties a persistent flag to a config key. A flag the user did not set
// leaves the key's default and environment value in place.
func (c *cli) bind(cmd *cobra.Command, key, flag string) {
	_ = c.v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag))
}

// setup loads the configuration and creates the logger. Config errors are
// logged with a default logger since the configured one cannot be built.
func (c *cli) setup() (serverConfig, *slog.Logger, error) {
	cfg, err := loadConfig(c.v, c.cfgFile)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error(err.Error())
		return serverConfig{}, nil, err
	}
	return cfg, newLogger(cfg.Log, os.Stdout), nil
}

// connect opens the database pool, logging any failure.
func (c *cli) connect(cfg serverConfig, logger *slog.Logger) (data.Models, func(), error) {
	db, err := openDB(cfg.DB)
	if err != nil {
		logger.Error("database connection failed", "error", err.Error())
		return data.Models{}, nil, err
	}
	logger.Info("database connection pool established")

	if cfg.DB.MigrateOnStart {
		if err := migrations.RunMigrations(db.DB); err != nil {
			db.Close()
			logger.Error("migrations failed", "error", err.Error())
			return data.Models{}, nil, err
		}
		logger.Info("migrations applied")
	}

	return data.NewModels(db, data.WithLogger(logger)), func() { db.Close() }, nil
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			models, closeDB, err := c.connect(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			app := newApplication(cfg, logger, models)
			if err := app.serve(cmd.Context()); err != nil {
				logger.Error(err.Error())
				return err
			}
			return nil
		},
	}

	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	_ = c.v.BindPFlag("db.migrate_on_start", cmd.Flags().Lookup("migrate"))
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			db, err := openDB(cfg.DB)
			if err != nil {
				logger.Error("database connection failed", "error", err.Error())
				return err
			}
			defer db.Close()

			if down > 0 {
				err = migrations.RollbackMigrations(db.DB, down)
			} else {
				err = migrations.RunMigrations(db.DB)
			}
			if err != nil {
				logger.Error("migration failed", "error", err.Error())
				return err
			}

			version, dirty, err := migrations.Version(db.DB)
			if err != nil {
				logger.Error("read schema version", "error", err.Error())
				return err
			}
			logger.Info("schema migrated", "version", version, "dirty", dirty)
			return nil
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many migrations instead of applying")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load librarians, readers and loans from the seed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := c.setup()
			if err != nil {
				return err
			}
			models, closeDB, err := c.connect(cfg, logger)
			if err != nil {
				return err
			}
			defer closeDB()

			svc := services.NewFromModels(models, services.WithMinSalary(cfg.minSalary()))
			loader := seed.NewLoader(svc.Librarians, svc.Readers, svc.Loans, logger)

			results, err := loader.LoadDir(cmd.Context(), cfg.Seed.Dir)
			for _, res := range results {
				logger.Info("seed summary", "file", res.File, "loaded", res.Loaded, "skipped", res.Skipped)
			}
			if err != nil {
				logger.Error("seed failed", "error", err.Error())
				return err
			}
			return nil
		},
	}

	cmd.Flags().String("dir", "data", "Directory holding librarians.txt, readers.txt and loans.txt")
	_ = c.v.BindPFlag("seed.dir", cmd.Flags().Lookup("dir"))
	return cmd
}
