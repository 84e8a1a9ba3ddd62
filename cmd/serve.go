package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"invoiceai/internal/api"
	"invoiceai/internal/logger"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat, draft and dashboard HTTP API",
	Long: `Start the HTTP API backed by the record store.

Routes:
  POST /api/chat                 continue a conversation with the assistant
  GET  /api/invoice/:id          public draft preview
  GET  /api/invoices             finalized invoices of the caller
  GET  /api/drafts?status=       drafts of the caller
  GET  /api/dashboard            per-status draft counts and monthly usage
  POST /api/user/usage/tokens    record token usage
  POST /api/tools/:name          invoke one draft tool directly

The caller is read from the X-User-ID header, falling back to TEST_USER_ID.
Chat is disabled (503) when OPENAI_API_KEY is not set.`,
	Example: `  # Serve on the default address (HTTP_ADDR or :8080)
  invoiceai serve

  # Serve on another port in release mode
  invoiceai serve --addr :9090 --release`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default: HTTP_ADDR)")
	serveCmd.Flags().Bool("release", false, "Run gin in release mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	addr, _ := cmd.Flags().GetString("addr")
	release, _ := cmd.Flags().GetBool("release")
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := createContext(0, log)
	defer cancel()

	a, err := newApp(ctx, cmd, log)
	if err != nil {
		return handleCommandError(err, log)
	}
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}

	deps := api.Deps{
		Records:    a.store,
		Tools:      a.toolDeps(),
		Usage:      a.usage,
		TestUserID: a.cfg.TestUserID,
	}
	if runner, err := a.assistant(); err != nil {
		log.Warn().Err(err).Msg("Assistant disabled, /api/chat will answer 503")
	} else {
		deps.Assistant = runner
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return handleCommandError(err, log)
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}
