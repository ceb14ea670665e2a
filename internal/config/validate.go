package config

import (
	"errors"
	"fmt"
	"strings"

	"mangadrop/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validatePackager(); err != nil {
		return err
	}
	if err := c.validateMangaDex(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDevice() error {
	if c.Device.SafetyMarginBytes < 0 {
		return errors.New("device.safety_margin_bytes must be zero or positive")
	}
	if strings.ContainsAny(c.Device.CatalogFile, `/\`) {
		return fmt.Errorf("device.catalog_file must be a plain file name, got %q", c.Device.CatalogFile)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be at least 1")
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("fetch.timeout_seconds must be zero or positive")
	}
	if c.Fetch.PageWidth < 1 {
		return errors.New("fetch.page_width must be positive")
	}
	return nil
}

func (c *Config) validatePackager() error {
	if c.Packager.ConvertTimeoutSeconds < 0 {
		return errors.New("packager.convert_timeout_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateMangaDex() error {
	for key, value := range map[string]string{
		"mangadex.base_url":    c.MangaDex.BaseURL,
		"mangadex.uploads_url": c.MangaDex.UploadsURL,
	} {
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
		}
	}
	if language.Normalize(c.MangaDex.Language) == "" {
		return fmt.Errorf("mangadex.language must be a language code such as en or pt-br, got %q", c.MangaDex.Language)
	}
	if c.MangaDex.CacheMinutes < 0 {
		return errors.New("mangadex.cache_minutes must be zero or positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", topic)
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
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
