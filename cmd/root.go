package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"textalert/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "textalert",
	Short: "Detect text in newly uploaded S3 images and send it by email",
	Long: `textalert reacts to S3 object-created notifications. Every new image is
checked for a "Text" label; when one is found the text is extracted and
mailed to a fixed recipient through Gmail.

Inside AWS Lambda (AWS_LAMBDA_RUNTIME_API is set) running the binary without
a subcommand starts the Lambda handler. Elsewhere the subcommands run the
same pipeline locally.`,
	Version:      version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logger.InLambda() {
			return runLambda(cmd, args)
		}

		log := logger.WithComponent("root")
		log.Debug().
			Str("version", version).
			Msg("No subcommand given outside Lambda")

		return cmd.Help()
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
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
