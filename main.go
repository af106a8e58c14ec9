package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"textalert/cmd"
	"textalert/internal/config"
	"textalert/internal/logger"
)

func main() {
	// Local runs read a .env file, Lambda uses its environment as-is
	if !logger.InLambda() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Could not load .env file: %v", err)
		}
	}

	// Only the logger settings are needed here, each command validates the rest
	cfg, err := config.LoadVision()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		// Use default logger config if main config fails
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting textalert")

	cmd.Execute()
}
