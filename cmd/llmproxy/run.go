package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/spf13/cobra"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/proxy/middleware"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/logging"
)

var runFlags struct {
	host   string
	port   int
	debug  bool
	dryRun bool
	watch  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The server listens on server.host:server.port and serves the OpenAI-compatible
API under /v1. LITELLM_PROXY_HOST and LITELLM_PROXY_PORT override the file;
--host and --port override both.

Examples:
  # Start with default config
  llmproxy run

  # Start with custom config and listen on all interfaces
  llmproxy run --config /etc/llmproxy/config.yaml --host 0.0.0.0 --port 4000

  # Reload the model list whenever the config file changes
  llmproxy run --watch

  # Validate config without starting server
  llmproxy run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.host, "host", "", "override listen host (env "+config.EnvProxyHost+")")
	runCmd.Flags().IntVar(&runFlags.port, "port", 0, "override listen port (env "+config.EnvProxyPort+")")
	runCmd.Flags().BoolVar(&runFlags.debug, "debug", false, "log at debug level")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload the model list when the config file changes")
}

// applyRunFlags applies --host and --port and validates the result.
func applyRunFlags(cfg *config.Config) error {
	if runFlags.host != "" {
		cfg.Server.Host = runFlags.host
	}
	if runFlags.port != 0 {
		cfg.Server.Port = runFlags.port
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err)
	}
	return nil
}

func newLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	return logging.New(cfg.Telemetry.Logging, logging.Options{
		Debug: debug,
		Fields: []logging.ContextField{
			logging.StringField("request_id", middleware.GetRequestID),
		},
	})
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg, runFlags.debug)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err)
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		reg, err := registry.FromConfig(cfg)
		if err != nil {
			return cli.NewConfigError("model_list", err)
		}
		fmt.Fprintf(out, "✓ Configuration valid (%d deployments, %d models)\n",
			len(reg.Deployments()), len(reg.ModelNames()))
		return nil
	}

	printBanner(out, cfg)

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	gw, err := newGateway(ctx, cfg, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Deployments initialized (%d deployments)\n", len(gw.models.Deployments()))
	if gw.audit != nil {
		fmt.Fprintln(out, "✓ Audit log initialized")
	}

	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, gw.reload, logger)
		if err != nil {
			_ = gw.close(context.Background())
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
		fmt.Fprintf(out, "✓ Watching %s for changes\n", cfgFile)
	}

	ln, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		_ = gw.close(context.Background())
		return cli.NewCommandError("run", err)
	}
	printEndpoints(out, ln.Addr().String(), cfg)

	// Serve returns after a signal, once in-flight requests have finished.
	serveErr := gw.server.Serve(ctx, ln)
	if ctx.Err() != nil {
		fmt.Fprintln(out, "\nShutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	closeErr := gw.close(shutdownCtx)

	if serveErr != nil {
		logger.Error("server stopped", "error", serveErr)
		return cli.NewCommandError("run", serveErr)
	}
	if closeErr != nil {
		logger.Warn("shutdown finished with errors", "error", closeErr)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "llmproxy v%s\n", Version)
	fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(w, "✓ Configuration loaded")

	slog.Debug("router settings",
		"routing_strategy", cfg.RouterSettings.RoutingStrategy,
		"max_attempts", cfg.RouterSettings.MaxAttempts,
		"cooldown_time", cfg.RouterSettings.CooldownTime,
	)
	if cfg.Audit.Enabled {
		slog.Debug("audit enabled", "retention_days", cfg.Audit.RetentionDays)
	}
}

func printEndpoints(w io.Writer, addr string, cfg *config.Config) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ Server listening on %s\n", addr)
	fmt.Fprintf(w, "✓ Health endpoint: http://%s/health\n", addr)
	fmt.Fprintf(w, "✓ API base URL: http://%s/v1\n", addr)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(w, "✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")
}
