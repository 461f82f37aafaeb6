package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "router_settings.timeout").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Has reports whether any error refers to the given field path.
func (e ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate validates the entire configuration and returns a ValidationError
// if any rule fails. All problems are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating configuration: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	errs = append(errs, validateModelList(cfg)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if", "required_unless":
		return fmt.Sprintf("is required when %s", fe.Param())
	case "required_without":
		return fmt.Sprintf("is required when %s is not set", fe.Param())
	case "excluded_with":
		return fmt.Sprintf("cannot be set together with %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("must be a valid URL, got %v", fe.Value())
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s, got %v", fe.Param(), fe.Value())
	case "ltefield":
		return fmt.Sprintf("must not exceed %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// validateModelList checks cross-references that struct tags cannot express.
func validateModelList(cfg *Config) []FieldError {
	var errs []FieldError

	ids := make(map[string]int, len(cfg.ModelList))
	groups := make(map[string]bool)
	for i, d := range cfg.ModelList {
		if prev, ok := ids[d.ID]; ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("model_list[%d].id", i),
				Message: fmt.Sprintf("duplicate deployment id %q (also model_list[%d])", d.ID, prev),
			})
			continue
		}
		ids[d.ID] = i
		groups[d.ModelName] = true
	}

	for i, g := range cfg.ModelGroups {
		for j, id := range g.Deployments {
			if _, ok := ids[id]; !ok {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("model_groups[%d].deployments[%d]", i, j),
					Message: fmt.Sprintf("unknown deployment id %q", id),
				})
			}
		}
		groups[g.Name] = true
	}

	for alias, target := range cfg.RouterSettings.ModelGroupAlias {
		if !groups[target] {
			errs = append(errs, FieldError{
				Field:   "router_settings.model_group_alias." + alias,
				Message: fmt.Sprintf("target model group %q does not exist", target),
			})
		}
	}

	return errs
}

func validateAudit(a *AuditConfig) []FieldError {
	if a.PruneSchedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(a.PruneSchedule); err != nil {
		return []FieldError{{
			Field:   "audit.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		}}
	}
	return nil
}
