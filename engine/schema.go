package engine

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hlxsites/sidekick-config/api"
	"github.com/hlxsites/sidekick-config/util"
)

// use a single instance of Validate, it caches struct info
var validate *validator.Validate

var langTagRE = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

func init() {
	validate = validator.New()
	// Report violations against the wire names, not the Go field names.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidationResult is the outcome of checking one candidate config against
// the configuration schema. Validation is advisory only: every violation
// found is reported, and the candidate is never mutated or coerced.
type ValidationResult struct {
	Valid  bool
	Errors []FieldError
}

// Err returns the result as a SchemaViolationError, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &SchemaViolationError{Errors: r.Errors}
}

// ValidateConfig checks a candidate config against the published schema:
// hostname syntax, the environments enum, the plugin action constraint
// (at least one of url, event, isContainer), palette requirements,
// titleI18n language tags and plugin id uniqueness.
func ValidateConfig(cfg *api.Config) ValidationResult {
	var fieldErrors []FieldError

	if err := validate.Struct(cfg); err != nil {
		if violations, ok := err.(validator.ValidationErrors); ok {
			for _, violation := range violations {
				fieldErrors = append(fieldErrors, FieldError{
					Path:    structPath(violation.Namespace()),
					Message: tagMessage(violation),
				})
			}
		} else {
			fieldErrors = append(fieldErrors, FieldError{Message: err.Error()})
		}
	}

	seenIDs := make(map[string]bool, len(cfg.Plugins))
	for i := range cfg.Plugins {
		fieldErrors = append(fieldErrors, validatePlugin(&cfg.Plugins[i], i)...)
		if id := cfg.Plugins[i].ID; id != "" {
			if seenIDs[id] {
				fieldErrors = append(fieldErrors, FieldError{
					Path:    fmt.Sprintf("plugins[%d].id", i),
					Message: fmt.Sprintf("duplicate plugin id %q", id),
				})
			}
			seenIDs[id] = true
		}
	}

	return ValidationResult{Valid: len(fieldErrors) == 0, Errors: fieldErrors}
}

// ValidateConfigJSON decodes a raw config document strictly (unknown
// properties at any level are violations) and validates the result. The
// decoded config is returned even when invalid so callers can report on it.
func ValidateConfigJSON(raw []byte) (api.Config, ValidationResult) {
	var cfg api.Config
	if err := util.DecodeStrict(raw, &cfg); err != nil {
		return cfg, ValidationResult{
			Valid:  false,
			Errors: []FieldError{{Message: err.Error()}},
		}
	}
	return cfg, ValidateConfig(&cfg)
}

func validatePlugin(plugin *api.Plugin, index int) []FieldError {
	var fieldErrors []FieldError
	path := func(field string) string {
		return fmt.Sprintf("plugins[%d].%s", index, field)
	}

	if !plugin.HasAction() {
		fieldErrors = append(fieldErrors, FieldError{
			Path:    fmt.Sprintf("plugins[%d]", index),
			Message: "plugin needs at least one of url, event or isContainer",
		})
	}
	if plugin.IsPalette && plugin.URL == "" {
		fieldErrors = append(fieldErrors, FieldError{
			Path:    path("isPalette"),
			Message: "isPalette requires url",
		})
	}
	if plugin.PaletteRect != "" && !plugin.IsPalette {
		fieldErrors = append(fieldErrors, FieldError{
			Path:    path("paletteRect"),
			Message: "paletteRect requires isPalette",
		})
	}
	if plugin.TitleI18n != nil && len(plugin.TitleI18n) == 0 {
		fieldErrors = append(fieldErrors, FieldError{
			Path:    path("titleI18n"),
			Message: "titleI18n must have at least one entry",
		})
	}
	for tag := range plugin.TitleI18n {
		if !langTagRE.MatchString(tag) {
			fieldErrors = append(fieldErrors, FieldError{
				Path:    path("titleI18n"),
				Message: fmt.Sprintf("%q is not a language tag (expected xx or xx-XX)", tag),
			})
		}
	}
	return fieldErrors
}

// structPath turns a validator namespace like "Config.plugins[2].url" into
// the document path "plugins[2].url".
func structPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func tagMessage(violation validator.FieldError) string {
	switch violation.Tag() {
	case "required":
		return "required property missing"
	case "url":
		return "must be a valid URL"
	case "hostname_rfc1123":
		return "must be a valid hostname"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", violation.Param())
	default:
		return fmt.Sprintf("failed %q constraint", violation.Tag())
	}
}
