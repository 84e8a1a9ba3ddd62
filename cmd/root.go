package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoiceai/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoiceai",
	Short: "InvoiceAI - draft invoices in conversation with an AI assistant",
	Long: `InvoiceAI drafts invoices through a conversation. The assistant gathers
the freelancer, client, invoice details, line items and payment terms one
section at a time, tells you what is still missing and finalizes the invoice
once every section is filled.

The same draft tools are available over HTTP (serve), the Model Context
Protocol (mcp) and directly from the command line (tool).`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("InvoiceAI CLI executed")

		fmt.Println("Welcome to InvoiceAI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("user", "", "Act as this user id (default: TEST_USER_ID, else guest)")
}
