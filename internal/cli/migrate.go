package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/content-collections/internal/database"
)

func newMigrateCommand(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema of the content collections server",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "migrations directory (default: database.migrations_dir)")

	withDB := func(fn func(db *database.DB, dir string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			dir := path
			if dir == "" {
				dir = a.cfg.Database.MigrationsDir
			}
			db, err := database.New(&a.cfg.Database, a.log)
			if err != nil {
				return err
			}
			defer db.Close()
			return fn(db, dir)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, dir string) error {
				return db.RunMigrations(dir)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last migration",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, dir string) error {
				return db.MigrateDown(dir)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: withDB(func(db *database.DB, dir string) error {
				version, dirty, err := db.MigrationVersion(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "version %d", version)
				if dirty {
					fmt.Fprint(a.out, " (dirty)")
				}
				fmt.Fprintln(a.out)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "goto N",
			Short: "Migrate up or down to version N",
			Args:  cobra.ExactArgs(1),
			PreRunE: func(cmd *cobra.Command, args []string) error {
				_, err := parseVersion(args[0])
				return err
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				version, _ := parseVersion(args[0])
				return withDB(func(db *database.DB, dir string) error {
					return db.MigrateToVersion(dir, version)
				})(cmd, args)
			},
		},
	)
	return cmd
}

func parseVersion(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid migration version %q", s)
	}
	return uint(n), nil
}
