package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing/strategies"
)

var validateFlags struct {
	format string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the gateway.

The file is decoded strictly (unknown keys are errors), defaults and
environment overrides are applied, and the model list is resolved into model
groups. With --verbose the resolved deployments are listed.

Examples:
  # Validate config.yaml
  llmproxy validate

  # Validate another file and list its deployments as JSON
  llmproxy validate --config prod.yaml --verbose --format json`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "deployment list format: text, json, csv")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return cli.NewConfigError("model_list", err)
	}
	if _, err := strategies.New(cfg.RouterSettings.RoutingStrategy); err != nil {
		return cli.NewConfigError("router_settings.routing_strategy", err)
	}

	out := cmd.OutOrStdout()
	if verbose {
		if err := cli.NewFormatter(format).FormatTo(out, deploymentTable(reg)); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "✓ %s is valid (%d deployments, %d models)\n",
		cfgFile, len(reg.Deployments()), len(reg.ModelNames()))
	return nil
}

func deploymentTable(reg *registry.Registry) *cli.Table {
	t := &cli.Table{Headers: []string{"ID", "MODEL_NAME", "PROVIDER", "UPSTREAM_MODEL", "PRIORITY", "WEIGHT", "MAX_CONCURRENT"}}
	for _, d := range reg.Deployments() {
		t.Append(
			d.ID,
			d.ModelName,
			d.ProviderKind,
			d.Model,
			strconv.Itoa(d.Priority),
			strconv.Itoa(d.Weight),
			strconv.Itoa(d.MaxConcurrent),
		)
	}
	return t
}
