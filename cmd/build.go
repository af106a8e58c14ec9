package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"textalert/internal/config"
	"textalert/internal/detection"
	"textalert/internal/notify"
	"textalert/internal/pipeline"
	"textalert/internal/sheets"
	"textalert/internal/vision"
)

// loadConfig reads and validates the environment configuration
func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// loadVisionConfig is loadConfig for commands that never send mail
func loadVisionConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.LoadVision()
	if err != nil {
		log.Error().Err(err).Msg("Invalid vision configuration")
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// buildDetector creates the vision backend and the Text Detector on top of it.
// The caller owns the returned client and must close it.
func buildDetector(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*detection.Detector, vision.Client, error) {
	client, err := vision.New(ctx, cfg.GetVisionConfig())
	if err != nil {
		log.Error().
			Err(err).
			Str("provider", cfg.VisionProvider).
			Msg("Failed to create vision client")
		return nil, nil, err
	}

	detector := detection.NewDetector(client,
		detection.WithTextLabel(cfg.TextLabel),
		detection.WithCallTimeout(cfg.CallTimeout),
	)

	log.Debug().
		Str("provider", cfg.VisionProvider).
		Str("text_label", cfg.TextLabel).
		Dur("call_timeout", cfg.CallTimeout).
		Msg("Text detector ready")

	return detector, client, nil
}

// buildPipeline wires every collaborator of an invocation. ctx must outlive
// the pipeline since the Gmail token source refreshes through it.
func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	detector, client, err := buildDetector(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close vision client")
		}
	}

	mailer, err := notify.NewGmail(ctx, cfg.GetGmailConfig())
	if err != nil {
		cleanup()
		log.Error().Err(err).Msg("Failed to create Gmail client")
		return nil, nil, err
	}

	opts := []pipeline.Option{pipeline.WithWorkers(cfg.Workers)}

	if cfg.OutcomeSheetURL != "" {
		recorder, err := sheets.NewSheetsService(ctx, cfg.OutcomeSheetURL, cfg.OutcomeSheetName, sheets.Credentials{
			JSON: cfg.GoogleCredentials,
			File: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			// The outcome sheet is optional, the pipeline still runs without it
			log.Warn().Err(err).Msg("Failed to create outcome sheet recorder, continuing without it")
		} else {
			opts = append(opts, pipeline.WithRecorder(recorder))
		}
	}

	p := pipeline.New(detector, notify.NewNotifier(mailer, cfg.GetNotifyOptions()), opts...)

	log.Info().
		Str("provider", cfg.VisionProvider).
		Int("workers", cfg.Workers).
		Bool("outcome_sheet", cfg.OutcomeSheetURL != "").
		Msg("Pipeline ready")

	return p, cleanup, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}
