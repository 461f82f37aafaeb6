package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/igamenovoer/my-litellm-proxy/pkg/cli"
	"github.com/igamenovoer/my-litellm-proxy/pkg/config"
	"github.com/igamenovoer/my-litellm-proxy/pkg/dispatch"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/recorder"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/retention"
	"github.com/igamenovoer/my-litellm-proxy/pkg/evidence/storage"
	"github.com/igamenovoer/my-litellm-proxy/pkg/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/limits"
	"github.com/igamenovoer/my-litellm-proxy/pkg/providerfactory"
	"github.com/igamenovoer/my-litellm-proxy/pkg/registry"
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing"
	"github.com/igamenovoer/my-litellm-proxy/pkg/routing/strategies"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/auth"
	"github.com/igamenovoer/my-litellm-proxy/pkg/security/secrets"
	"github.com/igamenovoer/my-litellm-proxy/pkg/server"
	readiness "github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/health"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/logging"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/metrics"
	"github.com/igamenovoer/my-litellm-proxy/pkg/telemetry/tracing"
)

// gateway holds every long-lived component of a running proxy.
type gateway struct {
	cfg    *config.Config
	logger *slog.Logger

	models     *registry.Store
	tracker    *health.Tracker
	providers  *providerfactory.Manager
	router     *routing.Router
	dispatcher *dispatch.Dispatcher
	tracer     *tracing.Tracer
	metrics    *metrics.Collector
	checker    *readiness.Checker

	audit    evidence.Storage
	recorder *recorder.Recorder
	pruner   *retention.Pruner

	server *server.Server
}

// auditDatabaseURL is audit.database_url, falling back to
// general_settings.database_url.
func auditDatabaseURL(cfg *config.Config) string {
	if cfg.Audit.DatabaseURL != "" {
		return cfg.Audit.DatabaseURL
	}
	return cfg.GeneralSettings.DatabaseURL
}

// newGateway wires the components described by cfg. On error everything
// already opened is closed again.
func newGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *gateway, err error) {
	g := &gateway{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = g.close(context.Background())
		}
	}()

	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, cli.NewConfigError("model_list", err)
	}
	g.models = registry.NewStore(reg)

	var trackerOpts []health.Option
	if cfg.Telemetry.Metrics.Enabled {
		g.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		trackerOpts = append(trackerOpts, health.WithStateListener(g.metrics.StateChanged))
	}
	g.tracker = health.NewTracker(health.SettingsFromConfig(cfg.RouterSettings), trackerOpts...)
	g.tracker.Sync(reg.Deployments())
	if g.metrics != nil {
		g.metrics.WatchHealth(g.tracker)
	}

	g.providers = providerfactory.NewManager(nil, secrets.NewDefaultManager())
	if err := g.providers.Sync(reg.Deployments()); err != nil {
		logger.Warn("some deployments failed to initialize", "error", err)
	}

	strategy, err := strategies.New(cfg.RouterSettings.RoutingStrategy)
	if err != nil {
		return nil, cli.NewConfigError("router_settings.routing_strategy", err)
	}
	g.router = routing.NewRouter(g.tracker, strategy, logger,
		routing.WithTieredPrimary(cfg.RouterSettings.TieredPrimary))

	g.tracer, err = tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogger(logger),
		dispatch.WithTracer(g.tracer.Tracer()),
	}
	if g.metrics != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithObserver(g.metrics))
	}
	g.dispatcher = dispatch.New(g.providers, g.tracker, dispatch.Settings{
		MaxAttempts: cfg.RouterSettings.MaxAttempts,
		Timeout:     cfg.RouterSettings.Timeout,
	}, dispatchOpts...)

	g.checker = readiness.New(0)
	g.checker.RegisterCheck("deployments", readiness.DeploymentsCheck(g.tracker))

	if cfg.Audit.Enabled {
		if err := g.openAudit(ctx); err != nil {
			return nil, err
		}
	}

	deps := server.Deps{
		Models:     g.models,
		Router:     g.router,
		Dispatcher: g.dispatcher,
		Health:     g.tracker,
		Readiness:  g.checker.ReadinessHandler(),
		Version:    readiness.VersionHandler(Version, GitCommit, BuildDate),
		Logger:     logger,
	}
	if g.tracer.Enabled() {
		deps.Tracer = g.tracer
	}
	if v := auth.NewValidator(cfg.GeneralSettings); v.Enabled() {
		deps.Auth = auth.NewMiddleware(v, nil, logger)
		limitOpts := limits.Options{Logger: logger}
		if g.metrics != nil {
			limitOpts.Metrics = limits.NewMetrics(cfg.Telemetry.Metrics.Namespace, g.metrics.Registry())
		}
		deps.Limits = limits.NewManager(limitOpts)
	} else {
		logger.Warn("no master_key or keys configured, the API is open")
	}
	if g.metrics != nil {
		deps.Metrics = g.metrics.Handler()
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
		deps.Observers = append(deps.Observers, g.metrics)
	}
	if g.recorder != nil {
		deps.Observers = append(deps.Observers, g.recorder)
	}
	g.server = server.NewServer(&cfg.Server, deps)

	return g, nil
}

func (g *gateway) openAudit(ctx context.Context) error {
	cfg := g.cfg
	url := auditDatabaseURL(cfg)
	if url == "" {
		return cli.NewConfigError("audit.database_url",
			errors.New("audit is enabled but neither audit.database_url nor general_settings.database_url is set"))
	}

	store, err := storage.Open(ctx, url, storage.Options{
		ConnectTimeout: cfg.Audit.ConnectTimeout,
		Logger:         g.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open audit database: %w", err)
	}
	g.audit = store
	g.checker.RegisterCheck("audit_database", readiness.PingCheck(store))

	redactor, _ := logging.NewRedactor()
	g.recorder = recorder.NewRecorder(store, &recorder.Config{
		AsyncBuffer:  cfg.Audit.BufferSize,
		WriteTimeout: cfg.Audit.WriteTimeout,
		Redact:       redactor.RedactString,
		Logger:       g.logger,
	})
	if g.metrics != nil {
		g.registerAuditMetrics(g.metrics.Registry())
	}

	if cfg.Audit.RetentionDays > 0 {
		g.pruner = retention.NewPruner(store, retention.Config{
			RetentionDays: cfg.Audit.RetentionDays,
			PruneSchedule: cfg.Audit.PruneSchedule,
			ArchiveDir:    cfg.Audit.ArchiveDir,
		}, g.logger)
		if err := g.pruner.Start(ctx); err != nil {
			g.logger.Warn("failed to start audit retention scheduler", "error", err)
		} else if next := g.pruner.NextPruning(); next != nil {
			g.logger.Debug("audit retention scheduler started", "next_pruning", next)
		}
	}
	return nil
}

func (g *gateway) registerAuditMetrics(reg prometheus.Registerer) {
	ns := g.cfg.Telemetry.Metrics.Namespace
	rec := g.recorder
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "audit_records_written_total",
			Help:      "Audit records stored.",
		}, func() float64 { return float64(rec.Written()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "audit_records_dropped_total",
			Help:      "Audit records dropped because the write queue was full.",
		}, func() float64 { return float64(rec.Dropped()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "audit_records_failed_total",
			Help:      "Audit records the database refused.",
		}, func() float64 { return float64(rec.Failed()) }),
	)
}

// reload applies a changed model list. Providers and tracker stats are
// synced before the registry is swapped, so a request never resolves to a
// deployment without a provider. Listener, router and audit settings
// need a restart.
func (g *gateway) reload(cfg *config.Config) {
	if err := config.ExportEnvironment(cfg); err != nil {
		g.logger.Error("config reload rejected", "error", err)
		return
	}
	reg, err := registry.FromConfig(cfg)
	if err != nil {
		g.logger.Error("config reload rejected", "error", err)
		return
	}

	if err := g.providers.Sync(reg.Deployments()); err != nil {
		g.logger.Warn("some deployments failed to initialize", "error", err)
	}
	g.tracker.Sync(reg.Deployments())
	g.models.Replace(reg)

	g.logger.Info("model list reloaded",
		"deployments", len(reg.Deployments()),
		"models", len(reg.ModelNames()),
	)
}

// close releases everything newGateway opened. The audit queue is drained
// before its database is closed.
func (g *gateway) close(ctx context.Context) error {
	var errs []error
	if g.pruner != nil {
		g.pruner.Stop()
	}
	if g.recorder != nil {
		errs = append(errs, g.recorder.Close())
	}
	if g.audit != nil {
		errs = append(errs, g.audit.Close())
	}
	if g.providers != nil {
		errs = append(errs, g.providers.Close())
	}
	if g.tracer != nil {
		errs = append(errs, g.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
