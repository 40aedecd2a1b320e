package config

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateBackend(&c.Backend)...)
	errors = append(errors, validateDirectory(&c.Directory)...)
	errors = append(errors, validateMarketplace(&c.Marketplace)...)
	errors = append(errors, validateCache(&c.Cache)...)
	errors = append(errors, validateAPIServer(&c.APIServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateBackend(b *BackendConfig) []ValidationError {
	var errors []ValidationError

	if b.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Message: "must not be empty",
		})
	}
	if b.UserID == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.user_id",
			Message: "must not be empty",
		})
	}
	if b.Timeout < time.Second {
		errors = append(errors, ValidationError{
			Field:   "backend.timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateDirectory(d *DirectoryConfig) []ValidationError {
	var errors []ValidationError

	if d.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "directory.base_url",
			Message: "must not be empty",
		})
	}
	if d.Timeout < time.Second {
		errors = append(errors, ValidationError{
			Field:   "directory.timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateMarketplace(m *MarketplaceConfig) []ValidationError {
	if m.Host == "" {
		return []ValidationError{{
			Field:   "marketplace.host",
			Message: "must not be empty",
		}}
	}
	return nil
}

func validateCache(cc *CacheConfig) []ValidationError {
	var errors []ValidationError

	check := func(field string, d time.Duration) {
		if d < time.Second {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "must be at least 1 second",
			})
		}
	}
	check("cache.pinned_ttl", cc.PinnedTTL)
	check("cache.alerts_ttl", cc.AlertsTTL)
	check("cache.snapshot_ttl", cc.SnapshotTTL)
	check("cache.pinned_refresh", cc.PinnedRefresh)
	check("cache.alerts_refresh", cc.AlertsRefresh)

	return errors
}

func validateAPIServer(a *APIServerConfig) []ValidationError {
	var errors []ValidationError

	if a.Port < 1 || a.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "api_server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", a.Port),
		})
	}
	if a.PushInterval < time.Second {
		errors = append(errors, ValidationError{
			Field:   "api_server.push_interval",
			Message: "must be at least 1 second",
		})
	}

	return errors
}
