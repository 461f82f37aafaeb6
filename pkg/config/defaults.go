package config

import (
	"fmt"
	"time"
)

// Default values for configuration fields.
const (
	// Server defaults
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8000
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = 10 * 1024 * 1024

	// CORS defaults
	DefaultCORSMaxAge = 3600

	// Deployment defaults
	DefaultDeploymentWeight = 1
	DefaultOpenAIBase       = "https://api.openai.com/v1"

	// Router defaults
	DefaultRoutingStrategy  = "simple-shuffle"
	DefaultMaxAttempts      = 3
	DefaultAttemptTimeout   = 60 * time.Second
	DefaultCooldownTime     = 30 * time.Second
	DefaultFailureThreshold = 0.5
	DefaultFailureWindow    = 5
	DefaultMinRequests      = 5
	DefaultStatsWindow      = 50

	// Audit defaults
	DefaultAuditBufferSize     = 1000
	DefaultAuditWriteTimeout   = 5 * time.Second
	DefaultAuditConnectTimeout = 30 * time.Second
	DefaultAuditPruneSchedule  = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "llmproxy"
	DefaultTracingServiceName = "llmproxy"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingTimeout     = 10 * time.Second
)

// Default CORS lists.
var (
	DefaultCORSAllowedOrigins = []string{"*"}
	DefaultCORSAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	DefaultCORSAllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"}
)

// ApplyDefaults fills zero-valued fields with their defaults. It is applied
// after decoding and before environment overrides and validation.
func ApplyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDeploymentDefaults(cfg.ModelList)
	applyRouterDefaults(&cfg.RouterSettings)
	applyAuditDefaults(&cfg.Audit)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.CORS.Enabled {
		if len(s.CORS.AllowedOrigins) == 0 {
			s.CORS.AllowedOrigins = DefaultCORSAllowedOrigins
		}
		if len(s.CORS.AllowedMethods) == 0 {
			s.CORS.AllowedMethods = DefaultCORSAllowedMethods
		}
		if len(s.CORS.AllowedHeaders) == 0 {
			s.CORS.AllowedHeaders = DefaultCORSAllowedHeaders
		}
		if s.CORS.MaxAge == 0 {
			s.CORS.MaxAge = DefaultCORSMaxAge
		}
	}
}

func applyDeploymentDefaults(list []DeploymentConfig) {
	for i := range list {
		d := &list[i]
		if d.ID == "" {
			d.ID = fmt.Sprintf("%s-%d", d.ModelName, i)
		}
		if d.Weight == 0 {
			d.Weight = DefaultDeploymentWeight
		}
		if d.Provider == "openai" && d.APIBase == "" {
			d.APIBase = DefaultOpenAIBase
		}
	}
}

func applyRouterDefaults(r *RouterSettings) {
	if r.RoutingStrategy == "" {
		r.RoutingStrategy = DefaultRoutingStrategy
	}
	if r.MaxAttempts == 0 {
		r.MaxAttempts = DefaultMaxAttempts
	}
	if r.Timeout == 0 {
		r.Timeout = DefaultAttemptTimeout
	}
	if r.CooldownTime == 0 {
		r.CooldownTime = DefaultCooldownTime
	}
	if r.FailureThreshold == 0 {
		r.FailureThreshold = DefaultFailureThreshold
	}
	if r.StatsWindow == 0 {
		r.StatsWindow = DefaultStatsWindow
	}
	if r.FailureWindow == 0 {
		r.FailureWindow = min(DefaultFailureWindow, r.StatsWindow)
	}
	if r.MinRequests == 0 {
		r.MinRequests = min(DefaultMinRequests, r.FailureWindow)
	}
}

func applyAuditDefaults(a *AuditConfig) {
	if a.BufferSize == 0 {
		a.BufferSize = DefaultAuditBufferSize
	}
	if a.WriteTimeout == 0 {
		a.WriteTimeout = DefaultAuditWriteTimeout
	}
	if a.ConnectTimeout == 0 {
		a.ConnectTimeout = DefaultAuditConnectTimeout
	}
	if a.PruneSchedule == "" && a.RetentionDays > 0 {
		a.PruneSchedule = DefaultAuditPruneSchedule
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
}
