package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "llmproxy",
	Short: "llmproxy - OpenAI-compatible LLM gateway",
	Long: `llmproxy is an OpenAI-compatible gateway in front of a pool of upstream
LLM deployments.

It accepts /v1/chat/completions and /v1/completions requests and:
  - Resolves the requested model to a group of deployments
  - Routes each request to a healthy deployment (shuffle, round-robin,
    least-busy or latency-based)
  - Falls back to the next deployment when an upstream fails
  - Trips a per-deployment circuit breaker on repeated failures
  - Records every request in an audit log`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config (missing file is ignored)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the env file, then the config file, and exports the
// config's environment_variables so credential references can see them.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, cli.NewConfigError(envFile, err)
	}
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err)
	}
	if err := config.ExportEnvironment(cfg); err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}
