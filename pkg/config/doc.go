// Package config loads and validates the gateway configuration.
//
// Configuration is read from a YAML or JSON file, filled with defaults,
// overridden from the environment and validated in that order:
//
//	cfg, err := config.LoadConfig("config.yaml")
//
// Unknown keys are rejected. Validation collects every problem into a single
// ValidationError whose FieldError entries name the offending field by its
// dotted YAML path (for example "model_list[0].api_base").
//
// # Environment
//
// A .env file can be loaded into the process environment with LoadDotEnv
// before LoadConfig runs. The following variables override file values:
//
//   - LITELLM_PROXY_HOST overrides server.host
//   - LITELLM_PROXY_PORT overrides server.port
//   - LITELLM_MASTER_KEY overrides general_settings.master_key
//   - DATABASE_URL overrides general_settings.database_url
//   - LITELLM_LOG_LEVEL overrides telemetry.logging.level
//
// Command-line flags are applied by the caller and take precedence over both.
//
// # Model list
//
// Each model_list entry is one upstream deployment. Entries that share a
// model_name form a model group; model_groups can declare further groups by
// deployment id, and router_settings.model_group_alias maps extra names onto
// existing groups.
//
// # Reloading
//
// Watcher observes the configuration file and invokes a callback with each
// new configuration that loads and validates cleanly.
package config
