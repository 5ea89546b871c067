package config

import (
	"fmt"
	"strings"
)

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the whole configuration and returns every problem
// found, not just the first.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, c.validateDetector()...)
	errs = append(errs, c.validateThresholds()...)
	errs = append(errs, c.validateCorpus()...)
	errs = append(errs, c.validateHistory()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateMetrics()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateDetector() ValidationErrors {
	var errs ValidationErrors
	d := c.Detector

	if d.Trees <= 0 {
		errs = append(errs, ValidationError{"detector.trees", "must be positive"})
	}
	if d.Contamination <= 0 || d.Contamination >= 0.5 {
		errs = append(errs, ValidationError{"detector.contamination", "must be in (0, 0.5)"})
	}
	if d.Subsample <= 0 {
		errs = append(errs, ValidationError{"detector.subsample", "must be positive"})
	}
	if d.Nu <= 0 || d.Nu >= 1 {
		errs = append(errs, ValidationError{"detector.nu", "must be in (0, 1)"})
	}
	if d.Gamma < 0 {
		errs = append(errs, ValidationError{"detector.gamma", "must not be negative"})
	}
	return errs
}

func (c *Config) validateThresholds() ValidationErrors {
	var errs ValidationErrors
	if !c.Thresholds.Typing.Ascending() {
		errs = append(errs, ValidationError{"thresholds.typing", "must be strictly ascending"})
	}
	if !c.Thresholds.Mouse.Ascending() {
		errs = append(errs, ValidationError{"thresholds.mouse", "must be strictly ascending"})
	}
	return errs
}

func (c *Config) validateCorpus() ValidationErrors {
	var errs ValidationErrors
	if c.Corpus.NormalCount < 5 {
		errs = append(errs, ValidationError{"corpus.normal_count", "need at least 5 normal samples"})
	}
	if c.Corpus.SuspiciousCount < 0 {
		errs = append(errs, ValidationError{"corpus.suspicious_count", "must not be negative"})
	}
	return errs
}

func (c *Config) validateHistory() ValidationErrors {
	if c.History.Capacity <= 0 {
		return ValidationErrors{{Field: "history.capacity", Message: "must be positive"}}
	}
	return nil
}

func (c *Config) validateLogging() ValidationErrors {
	var errs ValidationErrors

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{"logging.level",
			fmt.Sprintf("unknown level %q", c.Logging.Level)})
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{"logging.format",
			fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file", "both":
	default:
		errs = append(errs, ValidationError{"logging.output",
			fmt.Sprintf("unknown output %q", c.Logging.Output)})
	}
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		errs = append(errs, ValidationError{"logging.file_path", "required for file output"})
	}
	return errs
}

func (c *Config) validateMetrics() ValidationErrors {
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return ValidationErrors{{Field: "metrics.addr", Message: "required when metrics are enabled"}}
	}
	return nil
}

func (c *Config) validateStorage() ValidationErrors {
	var errs ValidationErrors
	if c.Storage.Enabled {
		if c.Storage.Path == "" {
			errs = append(errs, ValidationError{"storage.path", "required when storage is enabled"})
		}
		if c.Storage.KeyPath == "" {
			errs = append(errs, ValidationError{"storage.key_path", "required when storage is enabled"})
		}
	}
	return errs
}
