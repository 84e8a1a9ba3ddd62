package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"invoiceai/cmd"
	"invoiceai/internal/config"
	"invoiceai/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Commands reload the configuration and report validation errors themselves
	cfg, err := config.Load()
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting InvoiceAI")

	cmd.Execute()

	log.Debug().Msg("InvoiceAI shutdown")
	os.Exit(0)
}
