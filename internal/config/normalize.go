package config

import (
	"fmt"
	"os"
	"strings"

	"mangadrop/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDevice()
	c.normalizeFetch()
	c.normalizePackager()
	c.normalizeMangaDex()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.queue_dir", &c.Paths.QueueDir, defaultQueueDir},
		{"paths.cart_path", &c.Paths.CartPath, defaultCartPath},
		{"paths.assets_dir", &c.Paths.AssetsDir, defaultAssetsDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeDevice() {
	if value, ok := os.LookupEnv("MANGADROP_DEVICE"); ok && strings.TrimSpace(value) != "" {
		c.Device.Name = value
	}
	c.Device.Name = strings.TrimSpace(c.Device.Name)
	if c.Device.Name == "" {
		c.Device.Name = defaultDeviceName
	}
	c.Device.DocumentsDir = strings.Trim(strings.TrimSpace(c.Device.DocumentsDir), "/")
	if c.Device.DocumentsDir == "" {
		c.Device.DocumentsDir = defaultDocumentsDir
	}
	c.Device.CatalogFile = strings.TrimSpace(c.Device.CatalogFile)
	if c.Device.CatalogFile == "" {
		c.Device.CatalogFile = defaultCatalogFile
	}
	if c.Device.ScanTimeoutSeconds <= 0 {
		c.Device.ScanTimeoutSeconds = defaultScanTimeoutSeconds
	}
}

func (c *Config) normalizeFetch() {
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = defaultFetchConcurrency
	}
	if c.Fetch.TimeoutSeconds == 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}
	if c.Fetch.PageWidth == 0 {
		c.Fetch.PageWidth = defaultPageWidth
	}
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizePackager() {
	c.Packager.KindlegenBinary = strings.TrimSpace(c.Packager.KindlegenBinary)
	if c.Packager.KindlegenBinary == "" {
		c.Packager.KindlegenBinary = defaultKindlegenBinary
	}
	if c.Packager.ConvertTimeoutSeconds == 0 {
		c.Packager.ConvertTimeoutSeconds = defaultConvertTimeoutSeconds
	}
	c.Packager.Author = strings.TrimSpace(c.Packager.Author)
	if c.Packager.Author == "" {
		c.Packager.Author = defaultAuthor
	}
}

func (c *Config) normalizeMangaDex() {
	c.MangaDex.BaseURL = strings.TrimRight(strings.TrimSpace(c.MangaDex.BaseURL), "/")
	if c.MangaDex.BaseURL == "" {
		c.MangaDex.BaseURL = defaultMangaDexBaseURL
	}
	c.MangaDex.UploadsURL = strings.TrimRight(strings.TrimSpace(c.MangaDex.UploadsURL), "/")
	if c.MangaDex.UploadsURL == "" {
		c.MangaDex.UploadsURL = defaultMangaDexUploadsURL
	}
	c.MangaDex.Language = strings.ToLower(strings.TrimSpace(c.MangaDex.Language))
	if c.MangaDex.Language == "" {
		c.MangaDex.Language = defaultMangaDexLanguage
	}
	if code := language.Normalize(c.MangaDex.Language); code != "" {
		c.MangaDex.Language = code
	}
	if c.MangaDex.TimeoutSeconds == 0 {
		c.MangaDex.TimeoutSeconds = defaultMangaDexTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
