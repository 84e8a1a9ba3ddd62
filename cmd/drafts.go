package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
	"invoiceai/internal/store"
	"invoiceai/pkg/models"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "List the caller's invoice drafts",
	Long: `List invoice drafts of the current user, newest first, with the
sections that are filled in. Filter by one or more statuses with --status.`,
	Example: `  # All drafts
  invoiceai drafts --user user-123

  # Only sent and overdue drafts, as JSON
  invoiceai drafts --status SENT,OVERDUE --json

  # Per-status counts
  invoiceai drafts --summary`,
	RunE: runDrafts,
}

func init() {
	rootCmd.AddCommand(draftsCmd)

	draftsCmd.Flags().String("status", "", "Comma-separated statuses to include")
	draftsCmd.Flags().Bool("summary", false, "Print per-status counts instead of drafts")
	draftsCmd.Flags().Bool("json", false, "Output as JSON")
	draftsCmd.Flags().Int("limit", 0, "Maximum number of drafts (0 = all)")
}

func runDrafts(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("drafts")

	statusFilter, _ := cmd.Flags().GetString("status")
	summary, _ := cmd.Flags().GetBool("summary")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	ctx, cancel := createContext(30, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	if a.caller.IsGuest() {
		return errors.New("drafts are listed per user. Pass --user or set TEST_USER_ID")
	}

	if summary {
		counts, err := a.store.CountByStatus(ctx, a.caller.ID)
		if err != nil {
			return handleCommandError(err, log)
		}
		if jsonOutput {
			return outputJSON(counts, "", log)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, status := range models.AllStatuses {
			fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
		}
		return w.Flush()
	}

	q := store.Query{Limit: limit}
	if statusFilter != "" {
		for _, part := range strings.Split(statusFilter, ",") {
			status := models.DraftStatus(strings.ToUpper(strings.TrimSpace(part)))
			if !status.Valid() {
				return fmt.Errorf("unknown status %q. Valid statuses: %s", part, joinStatuses(models.AllStatuses))
			}
			q.Statuses = append(q.Statuses, status)
		}
	}

	drafts, err := a.store.FindMany(ctx, a.caller.ID, q)
	if err != nil {
		return handleCommandError(err, log)
	}
	if jsonOutput {
		return outputJSON(drafts, "", log)
	}

	if len(drafts) == 0 {
		fmt.Println("No drafts found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tSTATUS\tCLIENT\tUPDATED\tSECTIONS")
	for _, d := range drafts {
		client := "-"
		if d.ClientInfo != nil {
			client = d.ClientInfo.ClientName
		}
		filled := len(models.RequiredSections) - len(d.Missing())
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			d.InvoiceNumber, d.Status, client, d.UpdatedAt.Format("2006-01-02 15:04"), filled, len(models.RequiredSections))
	}
	return w.Flush()
}

func joinStatuses(statuses []models.DraftStatus) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
