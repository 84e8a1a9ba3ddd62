package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
	"invoiceai/internal/sheets"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Append finalized invoices to a Google Sheets ledger",
	Long: `Append the caller's finalized invoices to a Google Sheets worksheet, one
row per invoice. The worksheet and its header row are created when missing, and
invoices already in the ledger are skipped, so the command can run repeatedly.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - URL of the target spreadsheet (or pass --sheet-url)`,
	Example: `  # Export to the configured spreadsheet
  invoiceai export --user user-123

  # Export to another worksheet
  invoiceai export --sheet-url https://docs.google.com/spreadsheets/d/abc/edit --worksheet 2025`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("sheet-url", "", "Spreadsheet URL (default: GOOGLE_SHEET_URL)")
	exportCmd.Flags().String("worksheet", "", "Worksheet name (default: GOOGLE_SHEET_WORKSHEET)")
	exportCmd.Flags().Bool("dry-run", false, "Print the rows instead of writing them")
	exportCmd.Flags().Int("timeout", 120, "Timeout in seconds")
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")

	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := createContext(timeoutSecs, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	if a.caller.IsGuest() {
		return errors.New("guest invoices are never saved. Pass --user or set TEST_USER_ID")
	}
	if sheetURL == "" {
		sheetURL = a.cfg.GoogleSheetURL
	}
	if worksheet == "" {
		worksheet = a.cfg.GoogleSheetWorksheet
	}

	invoices, err := a.store.ListInvoices(ctx, *a.caller.ID)
	if err != nil {
		return handleCommandError(err, log)
	}

	log.Info().
		Int("invoices", len(invoices)).
		Str("worksheet", worksheet).
		Bool("dry_run", dryRun).
		Msg("Starting ledger export")

	if dryRun {
		rows := make([][]any, 0, len(invoices))
		for _, inv := range invoices {
			rows = append(rows, sheets.Row(inv, ""))
		}
		return outputJSON(rows, "", log)
	}

	if sheetURL == "" {
		return errors.New("no spreadsheet configured. Set GOOGLE_SHEET_URL or pass --sheet-url")
	}

	exporter, err := sheets.NewExporter(ctx, sheetURL)
	if err != nil {
		if errors.Is(err, sheets.ErrMissingCredentials) {
			return fmt.Errorf("missing Google credentials. Please set one of:\n" +
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n" +
				"  GOOGLE_CREDENTIALS='<json-credentials>'")
		}
		return handleCommandError(err, log)
	}

	n, err := exporter.AppendInvoices(ctx, invoices, worksheet)
	if err != nil {
		return handleCommandError(err, log)
	}

	fmt.Printf("Exported %d new invoice(s) to %q (%d already in the ledger).\n", n, worksheet, len(invoices)-n)
	return nil
}
