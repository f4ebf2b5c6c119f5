package cmd

import (
	"fmt"

	"github.com/msomdec/travelupa/internal/repository/sqlite"
	"github.com/msomdec/travelupa/internal/repository/sqlite/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Example: `  # List migrations without applying them
  travelupa migrate --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			pending, err := migrations.Pending(cmd.Context(), db.SqlDB)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintln(out, "database is up to date")
				return nil
			}
			for _, name := range pending {
				fmt.Fprintln(out, name)
			}
			if dryRun {
				return nil
			}
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "applied %d migration(s)\n", len(pending))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list pending migrations")

	return cmd
}
