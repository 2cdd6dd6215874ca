package cmd

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-gocardless/config"
	"github.com/vibast-solutions/ms-go-gocardless/migrations"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the MySQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigration(func(m *migrate.Migrate) error {
			if migrateSteps > 0 {
				return m.Steps(migrateSteps)
			}
			return m.Up()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (one step unless --steps is given)",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runMigration(func(m *migrate.Migrate) error {
			steps := migrateSteps
			if steps <= 0 {
				steps = 1
			}
			return m.Steps(-steps)
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)

	migrateCmd.PersistentFlags().IntVar(&migrateSteps, "steps", 0, "Number of migrations to apply or roll back")
}

func runMigration(fn func(m *migrate.Migrate) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := configureLogging(cfg); err != nil {
		return err
	}

	db := mustOpenDatabase(cfg)
	defer db.Close()

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return err
	}

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	logrus.WithField("version", version).WithField("dirty", dirty).Info("migrations_applied")
	return nil
}
