package cmd

import (
	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Apply the schema for drafts, finalized invoices and monthly usage to the
database named by DATABASE_DRIVER and DATABASE_URL. Every other command also
migrates on start; this command only migrates.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")

	ctx, cancel := createContext(120, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}

	log.Info().
		Str("driver", a.cfg.DatabaseDriver).
		Msg("Database schema is up to date")
	return nil
}
