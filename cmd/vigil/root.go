package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/vigil/pkg/cli"
	"mercator-hq/vigil/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Vigil - safety classification and intervention engine",
	Long: `Vigil evaluates conversational AI exchanges for safety risks.

It classifies user inputs and assistant outputs against a versioned pattern
catalog, keeps a risk profile per user, and selects an intervention:
  - Gentle redirects and firm boundaries for concerning content
  - Session termination for dependency and manipulation patterns
  - Human escalation for critical risk
  - Emergency protocol with crisis resources for self-harm indicators`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadEnvFile loads envFile into the process environment. Variables that
// are already set win. A missing file is ignored.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return cli.NewConfigError(envFile, err)
	}
	return nil
}
