package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// All failures are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	// backend.base_url must be an absolute http(s) URL.
	if c.Backend.BaseURL == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is required"))
	} else if u, err := url.Parse(c.Backend.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url must be an absolute http(s) URL, got %q", c.Backend.BaseURL))
	}

	if c.Backend.Model == "" {
		errs = append(errs, fmt.Errorf("backend.model is required"))
	}

	if c.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout must be >= 0, got %s", c.Backend.Timeout))
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of trace, debug, info, warn, error, got %q", c.Log.Level))
	}

	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("generation.temperature must be between 0 and 2, got %g", *t))
	}
	if n := c.Generation.MaxTokens; n != nil && *n <= 0 {
		errs = append(errs, fmt.Errorf("generation.max_tokens must be > 0, got %d", *n))
	}

	return errors.Join(errs...)
}
