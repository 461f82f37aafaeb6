package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := &Config{
		ModelList: []DeploymentConfig{
			{ID: "a", ModelName: "gpt-4o", Provider: "openai", Model: "gpt-4o"},
			{ID: "b", ModelName: "gpt-4o", Provider: "azure", Model: "gpt4o", APIBase: "https://x.openai.azure.com", APIVersion: "2024-06-01"},
			{ID: "c", ModelName: "local", Provider: "openai-compatible", Model: "llama", APIBase: "http://localhost:8080/v1"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "port out of range",
			mutate: func(c *Config) { c.Server.Port = 70000 },
			field:  "server.port",
		},
		{
			name:   "missing model name",
			mutate: func(c *Config) { c.ModelList[0].ModelName = "" },
			field:  "model_list[0].model_name",
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.ModelList[0].Provider = "bedrock" },
			field:  "model_list[0].provider",
		},
		{
			name:   "azure without api version",
			mutate: func(c *Config) { c.ModelList[1].APIVersion = "" },
			field:  "model_list[1].api_version",
		},
		{
			name:   "compatible without api base",
			mutate: func(c *Config) { c.ModelList[2].APIBase = "" },
			field:  "model_list[2].api_base",
		},
		{
			name:   "bad api base",
			mutate: func(c *Config) { c.ModelList[2].APIBase = "not a url" },
			field:  "model_list[2].api_base",
		},
		{
			name:   "negative weight",
			mutate: func(c *Config) { c.ModelList[0].Weight = -1 },
			field:  "model_list[0].weight",
		},
		{
			name:   "negative max concurrent",
			mutate: func(c *Config) { c.ModelList[0].MaxConcurrent = -2 },
			field:  "model_list[0].max_concurrent",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.RouterSettings.RoutingStrategy = "cheapest" },
			field:  "router_settings.routing_strategy",
		},
		{
			name:   "threshold above one",
			mutate: func(c *Config) { c.RouterSettings.FailureThreshold = 1.5 },
			field:  "router_settings.failure_threshold",
		},
		{
			name:   "failure window larger than stats window",
			mutate: func(c *Config) { c.RouterSettings.FailureWindow = 100 },
			field:  "router_settings.failure_window",
		},
		{
			name: "min requests larger than failure window",
			mutate: func(c *Config) {
				c.RouterSettings.MinRequests = c.RouterSettings.FailureWindow + 1
			},
			field: "router_settings.min_requests",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "trace" },
			field:  "telemetry.logging.level",
		},
		{
			name:   "tracing without endpoint",
			mutate: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name: "key and key hash together",
			mutate: func(c *Config) {
				c.GeneralSettings.Keys = []KeyConfig{{Key: "sk-1", KeyHash: "$2a$10$abc"}}
			},
			field: "general_settings.keys[0].key",
		},
		{
			name: "key hash not bcrypt",
			mutate: func(c *Config) {
				c.GeneralSettings.Keys = []KeyConfig{{KeyHash: "md5:abc"}}
			},
			field: "general_settings.keys[0].key_hash",
		},
		{
			name: "negative rpm limit",
			mutate: func(c *Config) {
				c.GeneralSettings.Keys = []KeyConfig{{Key: "sk-1", RPMLimit: -1}}
			},
			field: "general_settings.keys[0].rpm_limit",
		},
		{
			name:   "duplicate deployment id",
			mutate: func(c *Config) { c.ModelList[1].ID = "a" },
			field:  "model_list[1].id",
		},
		{
			name: "group references unknown deployment",
			mutate: func(c *Config) {
				c.ModelGroups = []ModelGroupConfig{{Name: "mixed", Deployments: []string{"a", "zzz"}}}
			},
			field: "model_groups[0].deployments[1]",
		},
		{
			name: "alias to unknown group",
			mutate: func(c *Config) {
				c.RouterSettings.ModelGroupAlias = map[string]string{"gpt4": "missing"}
			},
			field: "router_settings.model_group_alias.gpt4",
		},
		{
			name: "bad prune schedule",
			mutate: func(c *Config) {
				c.Audit.RetentionDays = 7
				c.Audit.PruneSchedule = "every day"
			},
			field: "audit.prune_schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.True(t, verr.Has(tt.field), "expected error on %s, got %v", tt.field, verr.Errors)
		})
	}
}

func TestValidate_AliasToExplicitGroup(t *testing.T) {
	cfg := validConfig()
	cfg.ModelGroups = []ModelGroupConfig{{Name: "mixed", Deployments: []string{"a", "c"}}}
	cfg.RouterSettings.ModelGroupAlias = map[string]string{"best": "mixed"}

	assert.NoError(t, Validate(cfg))
}

func TestValidationError_Error(t *testing.T) {
	single := ValidationError{Errors: []FieldError{{Field: "server.port", Message: "bad"}}}
	assert.Equal(t, "configuration validation failed: server.port: bad", single.Error())

	multi := ValidationError{Errors: []FieldError{
		{Field: "a", Message: "x"},
		{Field: "b", Message: "y"},
	}}
	msg := multi.Error()
	assert.True(t, strings.HasPrefix(msg, "configuration validation failed with 2 errors"))
	assert.Contains(t, msg, "  - a: x")
	assert.Contains(t, msg, "  - b: y")

	assert.Equal(t, "configuration validation failed", ValidationError{}.Error())
}
