package cmd

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"textalert/internal/logger"
)

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Start the AWS Lambda handler",
	Long: `Start the AWS Lambda runtime loop with the notification pipeline as handler.

Collaborators are created once here (cold start) and reused by every warm
invocation. This is what the root command runs inside Lambda.`,
	Args: cobra.NoArgs,
	RunE: runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func runLambda(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("lambda")

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	// Lives for the whole execution context
	ctx := context.Background()

	p, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info().
		Str("version", version).
		Msg("Starting Lambda handler")

	lambda.StartWithOptions(p.Handler, lambda.WithContext(ctx))
	return nil
}
