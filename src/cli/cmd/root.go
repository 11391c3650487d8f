package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/sofmeright/whanos/src/config"
	"github.com/sofmeright/whanos/src/output"
	"github.com/sofmeright/whanos/src/version"
)

var (
	cfgFile string
	envFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "whanos",
	Short: "Containerize any supported repository",
	Long: `Whanos detects a repository's language, writes a Dockerfile for it,
runs its tests in the language's base image, then builds and pushes the image.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		if envFile != "" {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load(cfgFile, config.CaptureEnv())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		warnings, err := config.Validate(cfg, version.Version)
		color := output.UseColor()
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, output.Warn(w, color))
		}
		return err
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: "+config.DefaultFile+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from a dotenv file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, output.Error(err, output.UseColor()))
		return err
	}
	return nil
}

// newLogger returns the logger for library log lines, written to stderr so
// stdout stays clean for command output.
func newLogger() logr.Logger {
	return output.NewLogger(os.Stderr, verbose, output.UseColor())
}
