package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoiceai/internal/assistant"
	"invoiceai/internal/config"
	"invoiceai/internal/identity"
	"invoiceai/internal/session"
	"invoiceai/internal/store"
	"invoiceai/internal/tools"
	"invoiceai/internal/usage"
)

// app is the wiring shared by every command: configuration, the record
// store, the process-wide draft selector and the usage tracker.
type app struct {
	cfg      *config.Config
	store    *store.Store
	selector *session.Selector
	usage    *usage.Tracker
	caller   identity.Identity
}

func newApp(ctx context.Context, cmd *cobra.Command, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	records := store.New(db)
	if err := records.Migrate(ctx); err != nil {
		return nil, err
	}

	tracker, err := usage.NewTracker(records, usage.Plan(cfg.UsagePlan), nil)
	if err != nil {
		return nil, err
	}

	userFlag, _ := cmd.Flags().GetString("user")
	caller := identity.Resolve(userFlag, cfg.TestUserID)

	log.Debug().
		Str("driver", cfg.DatabaseDriver).
		Str("plan", cfg.UsagePlan).
		Str("caller", caller.String()).
		Msg("Application wired")

	return &app{
		cfg:      cfg,
		store:    records,
		selector: session.NewSelector(),
		usage:    tracker,
		caller:   caller,
	}, nil
}

func (a *app) toolDeps() tools.Deps {
	return tools.Deps{
		Store:    a.store,
		Selector: a.selector,
		AppURL:   a.cfg.AppURL,
		Usage:    a.usage,
	}
}

func (a *app) assistant() (*assistant.Assistant, error) {
	if err := a.cfg.RequireAssistant(); err != nil {
		return nil, err
	}
	model := assistant.NewOpenAIModel(a.cfg.OpenAIAPIKey, 3)
	return assistant.New(model, a.toolDeps(), a.usage, assistant.Config{
		Model:    a.cfg.OpenAIModel,
		MaxSteps: a.cfg.AssistantMaxSteps,
		Timeout:  a.cfg.AssistantTimeout,
	}), nil
}

// createContext cancels on SIGINT/SIGTERM and, when timeoutSecs is positive,
// after the timeout.
func createContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeoutSecs > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// handleCommandError turns well-known failures into actionable messages.
func handleCommandError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Command failed")

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("operation timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("operation was canceled")
	case errors.Is(err, config.ErrMissingOpenAIKey):
		return fmt.Errorf("missing OpenAI credentials. Please set OPENAI_API_KEY in your environment or .env file")
	case errors.Is(err, store.ErrUnsupportedDriver):
		return fmt.Errorf("unsupported database. Set DATABASE_DRIVER to sqlite or postgres")
	case errors.Is(err, assistant.ErrUsageLimit):
		return fmt.Errorf("monthly usage limit reached. Wait for the next month or raise USAGE_PLAN")
	case errors.Is(err, tools.ErrUnknownTool):
		return fmt.Errorf("%w. Run 'invoiceai tool --list' to see the available tools", err)
	case strings.Contains(err.Error(), "connection refused"):
		return fmt.Errorf("could not reach the database. Check DATABASE_URL: %w", err)
	default:
		return err
	}
}

// outputJSON pretty-prints v to outputPath, or stdout when empty.
func outputJSON(v any, outputPath string, log zerolog.Logger) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal output to JSON")
		return fmt.Errorf("failed to create JSON output: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(jsonData))
		return nil
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(jsonData)).
		Msg("Output written to file")
	return nil
}
