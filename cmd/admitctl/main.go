// Command admitctl runs one-off maintenance tasks against the pre-board database:
// schema migration, admin account creation, offline admit card rendering and
// inspection of the exam schedule.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"preboard/internal/config"
)

func main() {
	config.LoadEnv()
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.App) *cobra.Command {
	root := &cobra.Command{
		Use:          "admitctl",
		Short:        "Maintenance commands for the pre-board admit card portal",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "Postgres connection string")
	root.PersistentFlags().StringVar(&cfg.ScheduleFile, "schedule", cfg.ScheduleFile, "exam schedule YAML (compiled-in table when empty)")

	root.AddCommand(
		newMigrateCmd(&cfg),
		newCreateAdminCmd(&cfg),
		newRenderCmd(&cfg),
		newScheduleCmd(&cfg),
	)
	return root
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
