package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Bind); err != nil {
		return fmt.Errorf("server.bind %q: %w", c.Server.Bind, err)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.InferenceURL != "" {
		if err := validateHTTPURL(c.Video.InferenceURL); err != nil {
			return fmt.Errorf("video.inference_url: %w", err)
		}
	}
	if c.Video.FrameSampleRate > 30 {
		return errors.New("video.frame_sample_rate must be at most 30 frames per second")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.RestURL == "" {
		return nil
	}
	if err := validateHTTPURL(c.Audit.RestURL); err != nil {
		return fmt.Errorf("audit.rest_url: %w", err)
	}
	if c.Audit.RestKey == "" {
		return errors.New("audit.rest_key must be set when audit.rest_url is configured (or export SUPABASE_KEY)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
