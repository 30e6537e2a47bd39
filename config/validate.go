package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"serialtool/codec"
)

// ValidationError contains details about configuration validation failures
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors
func Validate(cfg *Config) error {
	var errors ValidationErrors

	errors = append(errors, validateSerial(cfg.Serial)...)

	// Validate logging
	if !containsString(validLevels, strings.ToLower(cfg.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level: %s (must be one of %s)", cfg.Logging.Level, strings.Join(validLevels, ", ")),
		})
	}
	if cfg.Logging.BasePath != "" {
		if info, err := os.Stat(cfg.Logging.BasePath); err != nil || !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "logging.base_path",
				Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
			})
		}
	}

	// Validate monitoring
	if cfg.Monitoring.Enabled && (cfg.Monitoring.Port < 1 || cfg.Monitoring.Port > 65535) {
		errors = append(errors, ValidationError{
			Field:   "monitoring.port",
			Message: "must be between 1 and 65535",
		})
	}

	// Validate notify
	if cfg.Notify.WebhookURL != "" {
		if u, err := url.Parse(cfg.Notify.WebhookURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "notify.webhook_url",
				Message: "must be an absolute URL",
			})
		}
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateSerial(s SerialConfig) ValidationErrors {
	var errors ValidationErrors

	if s.BaudRate <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.baud_rate",
			Message: fmt.Sprintf("invalid baud rate: %d", s.BaudRate),
		})
	}
	for i, rate := range s.BaudRates {
		if rate <= 0 {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("serial.baud_rates[%d]", i),
				Message: fmt.Sprintf("invalid baud rate: %d", rate),
			})
		}
	}

	if _, err := codec.ParseMode(s.Mode); err != nil {
		errors = append(errors, ValidationError{
			Field:   "serial.mode",
			Message: fmt.Sprintf("invalid mode: %s (available: %s)", s.Mode, joinModes(codec.List())),
		})
	}

	if s.PollIntervalMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.poll_interval_ms",
			Message: "must be greater than 0",
		})
	}
	if s.ReadTimeoutMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.read_timeout_ms",
			Message: "must be greater than 0",
		})
	}
	if s.PortRefreshMs <= 0 {
		errors = append(errors, ValidationError{
			Field:   "serial.port_refresh_ms",
			Message: "must be greater than 0",
		})
	}

	return errors
}

func joinModes(modes []codec.Mode) string {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func containsString(slice []string, val string) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}
