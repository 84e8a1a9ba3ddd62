package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
	"invoiceai/internal/reconciliation"
	"invoiceai/internal/sheets"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Mark sent invoices as paid from a payments sheet",
	Long: `Match incoming payments from a Google Sheets worksheet against the caller's
SENT and OVERDUE invoices and mark the matched ones PAID.

A payment settles an invoice when its reference contains the invoice number
and the amount equals the invoice total. Without a reference, a payment from
the billed client for the exact total is used when it is the only candidate.

The worksheet needs a header row and the columns
  A=Date, B=Reference, C=Payer, D=Amount, E=Currency (optional)

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_SHEET_URL - Spreadsheet holding the payments worksheet`,
	Example: `  # Preview the matches
  invoiceai reconcile --user user-123 --dry-run

  # Only consider payments up to the end of June
  invoiceai reconcile --cutoff-date 2025-06-30 --worksheet Bank`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("sheet-url", "", "Spreadsheet URL (default: GOOGLE_SHEET_URL)")
	reconcileCmd.Flags().String("worksheet", "Payments", "Worksheet with incoming payments")
	reconcileCmd.Flags().String("cutoff-date", "", "Ignore payments after this date (format: YYYY-MM-DD, default: today)")
	reconcileCmd.Flags().Bool("dry-run", false, "Show matches without changing any status")
	reconcileCmd.Flags().Bool("json", false, "Output the result as JSON")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")

	sheetURL, _ := cmd.Flags().GetString("sheet-url")
	worksheet, _ := cmd.Flags().GetString("worksheet")
	cutoffDateStr, _ := cmd.Flags().GetString("cutoff-date")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cutoffDate := time.Now()
	if cutoffDateStr != "" {
		parsed, err := time.Parse("2006-01-02", cutoffDateStr)
		if err != nil {
			return fmt.Errorf("invalid cutoff date format. Use YYYY-MM-DD: %w", err)
		}
		cutoffDate = parsed
	}

	ctx, cancel := createContext(120, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	if a.caller.IsGuest() {
		return errors.New("reconciliation runs per user. Pass --user or set TEST_USER_ID")
	}
	if sheetURL == "" {
		sheetURL = a.cfg.GoogleSheetURL
	}
	if sheetURL == "" {
		return errors.New("no spreadsheet configured. Set GOOGLE_SHEET_URL or pass --sheet-url")
	}

	log.Info().
		Str("worksheet", worksheet).
		Str("cutoff_date", cutoffDate.Format("2006-01-02")).
		Bool("dry_run", dryRun).
		Msg("Starting payment reconciliation")

	exporter, err := sheets.NewExporter(ctx, sheetURL)
	if err != nil {
		return handleCommandError(err, log)
	}

	payments, err := reconciliation.NewReader(exporter).ReadPayments(ctx, worksheet)
	if err != nil {
		return handleCommandError(err, log)
	}
	inRange := payments[:0]
	for _, p := range payments {
		if !p.Date.After(cutoffDate) {
			inRange = append(inRange, p)
		}
	}

	res, err := reconciliation.NewReconciler(a.store).Reconcile(ctx, *a.caller.ID, inRange, dryRun)
	if err != nil {
		return handleCommandError(err, log)
	}

	if jsonOutput {
		return outputJSON(res, "", log)
	}
	return printReconciliation(res)
}

func printReconciliation(res *reconciliation.Result) error {
	verb := "Marked as paid"
	if !res.Applied {
		verb = "Would mark as paid"
	}

	fmt.Printf("%s: %d invoice(s)\n", verb, len(res.Matched))
	if len(res.Matched) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INVOICE\tCLIENT\tTOTAL\tPAYMENT ROW\tMATCHED BY")
		for _, m := range res.Matched {
			fmt.Fprintf(w, "%s\t%s\t%s %s\t%d\t%s\n",
				m.Invoice.Number, m.Invoice.BillTo.Name, m.Invoice.Total.StringFixed(2), m.Invoice.Currency, m.Payment.Row, m.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Printf("\nStill open: %d invoice(s)\n", len(res.UnmatchedInvoices))
	for _, inv := range res.UnmatchedInvoices {
		fmt.Printf("  %s  %s  %s %s  (%s)\n", inv.Number, inv.BillTo.Name, inv.Total.StringFixed(2), inv.Currency, inv.Status)
	}
	fmt.Printf("Unmatched payments: %d\n", len(res.UnmatchedPayments))
	return nil
}
