package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for the gateway.
// It is built once at startup by LoadConfig and passed explicitly to every
// component that needs it; nothing in this package holds a global copy.
type Config struct {
	// Server contains HTTP listener configuration.
	Server ServerConfig `yaml:"server"`

	// ModelList is the declarative list of upstream deployments. Deployments
	// sharing a model_name form an implicit model group.
	ModelList []DeploymentConfig `yaml:"model_list" validate:"dive"`

	// ModelGroups declares additional model groups by deployment id.
	ModelGroups []ModelGroupConfig `yaml:"model_groups" validate:"dive"`

	// GeneralSettings holds the master key, database URL and client keys.
	GeneralSettings GeneralSettings `yaml:"general_settings"`

	// RouterSettings tunes routing, retries and the circuit breaker.
	RouterSettings RouterSettings `yaml:"router_settings"`

	// EnvironmentVariables are exported into the process environment before
	// credential references are resolved.
	EnvironmentVariables map[string]string `yaml:"environment_variables"`

	// Audit configures the request audit log.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP listener.
type ServerConfig struct {
	// Host is the interface to bind. Env: LITELLM_PROXY_HOST.
	// Default: "127.0.0.1"
	Host string `yaml:"host" validate:"required"`

	// Port is the TCP port to bind. Env: LITELLM_PROXY_PORT.
	// Default: 8000
	Port int `yaml:"port" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout bounds writing a response. Streamed completions can run
	// for minutes, so the default is generous.
	// Default: 10m
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" validate:"gte=0"`

	// ShutdownTimeout is the graceful shutdown deadline.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// MaxBodyBytes limits inbound request bodies.
	// Default: 10MB
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=0"`

	// CORS configures cross-origin access.
	CORS CORSConfig `yaml:"cors"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	Enabled          bool     `yaml:"enabled"`
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	ExposedHeaders   []string `yaml:"exposed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" validate:"gte=0"`
}

// DeploymentConfig describes one upstream deployment.
type DeploymentConfig struct {
	// ID uniquely identifies the deployment. Defaults to "<model_name>-<index>".
	ID string `yaml:"id"`

	// ModelName is the logical model group this deployment serves.
	ModelName string `yaml:"model_name" validate:"required"`

	// Provider selects the upstream wire convention.
	Provider string `yaml:"provider" validate:"required,oneof=openai azure openai-compatible"`

	// Model is the upstream model (or Azure deployment) name.
	Model string `yaml:"model" validate:"required"`

	// APIBase is the upstream base URL. Required for azure and
	// openai-compatible deployments.
	APIBase string `yaml:"api_base" validate:"required_unless=Provider openai,omitempty,url"`

	// APIKey is a credential reference: "os.environ/NAME", "env:NAME",
	// "file:/path" or a literal key.
	APIKey string `yaml:"api_key"`

	// APIVersion is the Azure api-version query parameter.
	APIVersion string `yaml:"api_version" validate:"required_if=Provider azure"`

	// MaxConcurrent caps in-flight requests. Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent" validate:"gte=0"`

	// Weight is the relative selection weight. Default: 1
	Weight int `yaml:"weight" validate:"gt=0"`

	// Priority is the fallback tier; lower tiers are tried first.
	Priority int `yaml:"priority" validate:"gte=0"`

	// Timeout overrides router_settings.timeout for this deployment.
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`

	// Headers are extra headers sent on every upstream request.
	Headers map[string]string `yaml:"headers"`
}

// ModelGroupConfig declares a model group explicitly by deployment id.
type ModelGroupConfig struct {
	Name        string   `yaml:"name" validate:"required"`
	Deployments []string `yaml:"deployments" validate:"required,min=1,dive,required"`
}

// GeneralSettings holds gateway-wide credentials.
type GeneralSettings struct {
	// MasterKey authenticates admin calls and signs virtual keys.
	// Env: LITELLM_MASTER_KEY
	MasterKey string `yaml:"master_key"`

	// DatabaseURL is the audit log database. Env: DATABASE_URL
	DatabaseURL string `yaml:"database_url"`

	// Keys are additional client API keys.
	Keys []KeyConfig `yaml:"keys" validate:"dive"`
}

// KeyConfig is a configured client API key. Exactly one of Key or KeyHash
// must be set.
type KeyConfig struct {
	Key      string   `yaml:"key" validate:"required_without=KeyHash,excluded_with=KeyHash"`
	KeyHash  string   `yaml:"key_hash" validate:"required_without=Key,omitempty,startswith=$2"`
	Alias    string   `yaml:"alias"`
	Models   []string `yaml:"models"`
	Disabled bool     `yaml:"disabled"`

	// RPMLimit caps requests per minute for this key. 0 is unlimited.
	RPMLimit int `yaml:"rpm_limit" validate:"gte=0"`

	// MaxParallelRequests caps in-flight requests for this key. 0 is
	// unlimited.
	MaxParallelRequests int `yaml:"max_parallel_requests" validate:"gte=0"`
}

// RouterSettings tunes routing and the per-deployment circuit breaker.
type RouterSettings struct {
	// RoutingStrategy picks the primary candidate.
	// Default: "simple-shuffle"
	RoutingStrategy string `yaml:"routing_strategy" validate:"oneof=simple-shuffle round-robin least-busy latency-based-routing"`

	// MaxAttempts bounds upstream attempts per request. Default: 3
	MaxAttempts int `yaml:"max_attempts" validate:"gte=1"`

	// Timeout is the per-attempt upstream timeout. For streams it bounds the
	// time to the first event. Default: 60s
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`

	// CooldownTime is how long a tripped deployment stays Open. Default: 30s
	CooldownTime time.Duration `yaml:"cooldown_time" validate:"gt=0"`

	// FailureThreshold is the failure ratio that trips the breaker. Default: 0.5
	FailureThreshold float64 `yaml:"failure_threshold" validate:"gt=0,lte=1"`

	// FailureWindow is how many recent outcomes the breaker considers. Default: 5
	FailureWindow int `yaml:"failure_window" validate:"gte=1,ltefield=StatsWindow"`

	// MinRequests is the minimum number of outcomes before the breaker may
	// trip. Default: 5
	MinRequests int `yaml:"min_requests" validate:"gte=1,ltefield=FailureWindow"`

	// StatsWindow is the capacity of the latency and outcome ring buffers.
	// Default: 50
	StatsWindow int `yaml:"stats_window" validate:"gte=1"`

	// TieredPrimary restricts the primary pick to the lowest eligible
	// priority tier, so higher tiers only serve as fallbacks. Default: false
	TieredPrimary bool `yaml:"tiered_primary"`

	// ModelGroupAlias maps alternative names onto model groups.
	ModelGroupAlias map[string]string `yaml:"model_group_alias"`
}

// AuditConfig configures the request audit log.
type AuditConfig struct {
	// Enabled turns audit logging on. Default: false
	Enabled bool `yaml:"enabled"`

	// DatabaseURL overrides general_settings.database_url. Accepted forms:
	// "sqlite://path", "sqlite3://path", "postgres://...", or a bare path.
	DatabaseURL string `yaml:"database_url"`

	// BufferSize is the async write queue length. Default: 1000
	BufferSize int `yaml:"buffer_size" validate:"gte=0"`

	// WriteTimeout bounds each database write. Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// ConnectTimeout bounds the initial connection retries. Default: 30s
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`

	// RetentionDays deletes records older than this. Zero keeps everything.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`

	// PruneSchedule is a cron expression for retention pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveDir receives a JSON export of pruned records. Empty deletes
	// without archiving.
	ArchiveDir string `yaml:"archive_dir"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: "info"
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format is json or text. Default: "json"
	Format string `yaml:"format" validate:"oneof=json text"`

	// AddSource adds file:line to log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes metrics at Path.
	Enabled bool `yaml:"enabled"`

	// Path is the scrape path. Default: "/metrics"
	Path string `yaml:"path" validate:"startswith=/"`

	// Namespace prefixes every metric name. Default: "llmproxy"
	Namespace string `yaml:"namespace"`

	// LatencyBuckets are histogram buckets in seconds.
	LatencyBuckets []float64 `yaml:"latency_buckets"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on. Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint" validate:"required_if=Enabled true"`

	// ServiceName is reported as service.name. Default: "llmproxy"
	ServiceName string `yaml:"service_name"`

	// SampleRatio is the parent-based trace ratio. Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds exports. Default: 10s
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}
