package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"textalert/internal/logger"
	"textalert/pkg/models"
)

var detectCmd = &cobra.Command{
	Use:   "detect [bucket] [key]",
	Short: "Run text detection on one S3 object without sending email",
	Long: `Run only the Text Detector against a single S3 object and print the labels
and, when the configured text label is present, the extracted text.

Uses the same vision configuration as the Lambda handler (VISION_PROVIDER,
AWS_REGION, TEXT_LABEL, MIN_LABEL_CONFIDENCE, MAX_LABELS).`,
	Example: `  # Check one image
  textalert detect mybucket uploads/sign.jpeg

  # Check a specific version and print JSON
  textalert detect mybucket uploads/sign.jpeg --version F6AB --json`,
	Args: cobra.ExactArgs(2),
	RunE: runDetect,
}

// DetectOutput represents the JSON output structure when --json flag is used
type DetectOutput struct {
	Object   string         `json:"object"`
	Detected bool           `json:"detected"`
	Label    *models.Label  `json:"label,omitempty"`
	Labels   []models.Label `json:"labels"`
	Text     string         `json:"text,omitempty"`
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("version", "", "Object version id")
	detectCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
	detectCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDetect(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("detect")

	versionID, _ := cmd.Flags().GetString("version")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ref := models.ObjectReference{Bucket: args[0], Key: args[1], Version: versionID}

	cfg, err := loadVisionConfig(log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	detector, client, err := buildDetector(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close vision client")
		}
	}()

	result, err := detector.Detect(ctx, ref)
	if err != nil {
		log.Error().Err(err).Str("object", ref.String()).Msg("Detection failed")
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(DetectOutput{
			Object:   ref.String(),
			Detected: result.Detected,
			Label:    result.Label,
			Labels:   result.Labels,
			Text:     result.Text,
		})
	}

	fmt.Fprintf(out, "Object: %s\n", ref)
	fmt.Fprintln(out, "Labels:")
	for _, l := range result.Labels {
		fmt.Fprintf(out, "  %-24s %6.2f\n", l.Name, l.Confidence)
	}
	if !result.Detected {
		fmt.Fprintf(out, "No %q label found\n", detector.TextLabel())
		return nil
	}
	fmt.Fprintf(out, "Text:\n%s\n", result.Text)
	return nil
}
