package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/andybalholm/cascadia"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Export config
	if c.Export.Product == "" {
		errors = append(errors, ValidationError{
			Field:   "export.product",
			Message: "product is required",
		})
	}

	if c.Export.TitleMaxLen < 1 {
		errors = append(errors, ValidationError{
			Field:   "export.title_max_len",
			Message: "title_max_len must be positive",
		})
	}

	if c.Export.WarningThreshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "export.warning_threshold",
			Message: "warning_threshold must be positive",
		})
	}

	// Validate selectors compile
	selectors := map[string]string{
		"selectors.user":             c.Selectors.User,
		"selectors.model":            c.Selectors.Model,
		"selectors.aggressive_user":  c.Selectors.AggressiveUser,
		"selectors.aggressive_model": c.Selectors.AggressiveModel,
		"selectors.query_text":       c.Selectors.QueryText,
		"selectors.response_text":    c.Selectors.ResponseText,
		"selectors.title":            c.Selectors.Title,
	}
	for _, field := range []string{
		"selectors.user", "selectors.model", "selectors.aggressive_user",
		"selectors.aggressive_model", "selectors.query_text", "selectors.response_text",
		"selectors.title",
	} {
		if _, err := cascadia.ParseGroup(selectors[field]); err != nil {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid selector %q", selectors[field]),
			})
		}
	}
	for i, sel := range c.Selectors.Containers {
		if _, err := cascadia.ParseGroup(sel); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("selectors.containers[%d]", i),
				Message: fmt.Sprintf("invalid selector %q", sel),
			})
		}
	}

	// Validate Source config
	switch c.Source.Kind {
	case "file", "http", "browser":
	default:
		errors = append(errors, ValidationError{
			Field:   "source.kind",
			Message: fmt.Sprintf("unknown source kind: %s", c.Source.Kind),
		})
	}

	if c.Source.Kind == "http" {
		if _, err := url.ParseRequestURI(c.Source.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "source.url",
				Message: "invalid page URL",
			})
		}
	}

	if c.Source.Kind == "browser" && c.Source.BrowserURL == "" {
		errors = append(errors, ValidationError{
			Field:   "source.browser_url",
			Message: "browser_url is required for the browser source",
		})
	}

	if c.Source.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "source.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if d, err := time.ParseDuration(c.Source.Timeout); err != nil || d <= 0 {
		errors = append(errors, ValidationError{
			Field:   "source.timeout",
			Message: "timeout must be a positive duration",
		})
	}

	return errors
}

// TimeoutDuration returns the parsed source timeout, defaulting to 30s.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Source.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
