package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textalert/internal/event"
	"textalert/internal/logger"
	"textalert/internal/pipeline"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke",
	Short: "Run one invocation locally against a notification file",
	Long: `Run the full pipeline once against an S3 notification batch read from a file,
exactly as the Lambda handler would. Emails are really sent.

Required environment variables:
  GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET - OAuth client of the sending account
  GMAIL_REFRESH_TOKEN (or GMAIL_ACCESS_TOKEN) - OAuth token of the sending account
  MAIL_SENDER, MAIL_RECIPIENT - Message addresses

Optional environment variables:
  VISION_PROVIDER - rekognition (default) or google
  PIPELINE_WORKERS - Number of records processed in parallel (default: 1)
  OUTCOME_SHEET_URL - Google Sheet that receives one row per record`,
	Example: `  # Process a test event
  textalert invoke --event testdata/put.json

  # Print the per-record summary as JSON
  textalert invoke --event testdata/put.json --json`,
	Args: cobra.NoArgs,
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringP("event", "e", "", "Path to the S3 notification JSON [REQUIRED]")
	invokeCmd.Flags().Int("timeout", 60, "Invocation timeout in seconds")
	invokeCmd.Flags().Bool("json", false, "Output summary as JSON")
	_ = invokeCmd.MarkFlagRequired("event")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("invoke")

	eventPath, _ := cmd.Flags().GetString("event")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	payload, err := os.ReadFile(eventPath)
	if err != nil {
		log.Error().Err(err).Str("file", eventPath).Msg("Failed to read event file")
		return fmt.Errorf("failed to read event file: %w", err)
	}

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	p, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.ProcessPayload(ctx, payload)
	if err != nil && !errors.Is(err, pipeline.ErrBatchUndecodable) {
		if errors.Is(err, event.ErrInvalidPayload) {
			return fmt.Errorf("%s is not an S3 notification: %w", eventPath, err)
		}
		return err
	}

	if printErr := printSummary(cmd, summary, jsonOutput); printErr != nil {
		return printErr
	}

	// Undecodable batches still print their decode errors before failing
	return err
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary, jsonOutput bool) error {
	out := cmd.OutOrStdout()

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Fprintf(out, "Invocation %s: %d records in %s\n", summary.InvocationID, len(summary.Outcomes), summary.Duration)
	for _, o := range summary.Outcomes {
		line := fmt.Sprintf("  [%d] %-18s %s", o.Index, o.Kind, o.Ref)
		if o.Error != "" {
			line += "  " + o.Error
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "Notified: %d, failed: %d\n", summary.Count(pipeline.OutcomeNotified), summary.Failures())
	return nil
}
