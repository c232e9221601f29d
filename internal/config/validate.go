package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration values for consistency. It reports every
// problem it finds rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}

	if c.Processing.MaxWorkers < 0 {
		problems = append(problems, "processing.max_workers must be zero or positive")
	}
	if c.Processing.ConfidenceThreshold < 0 || c.Processing.ConfidenceThreshold > 1 {
		problems = append(problems, "processing.confidence_threshold must be between 0 and 1")
	}
	if c.Processing.QuickAcceptThreshold < 0 || c.Processing.QuickAcceptThreshold > 1 {
		problems = append(problems, "processing.quick_accept_threshold must be between 0 and 1")
	}
	if c.Processing.AmbiguityEpsilon < 0 || c.Processing.AmbiguityEpsilon > 1 {
		problems = append(problems, "processing.ambiguity_epsilon must be between 0 and 1")
	}
	if _, err := c.EraCutoffTime(); err != nil {
		problems = append(problems, err.Error())
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (use console or json)", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not supported", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
