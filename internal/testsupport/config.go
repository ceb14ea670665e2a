package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mangadrop/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.QueueDir = filepath.Join(base, "queue")
	cfgVal.Paths.CartPath = filepath.Join(base, "temp", "cart.txt")
	cfgVal.Paths.AssetsDir = filepath.Join(base, "assets")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Fetch.Concurrency = 4
	cfgVal.MangaDex.BaseURL = "http://127.0.0.1:0"
	cfgVal.MangaDex.UploadsURL = "http://127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithMangaDex points the MangaDex client at a test server.
func WithMangaDex(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MangaDex.BaseURL = baseURL
		b.cfg.MangaDex.UploadsURL = baseURL
	}
}

// WithSafetyMargin overrides device.safety_margin_bytes.
func WithSafetyMargin(margin int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Device.SafetyMarginBytes = margin
	}
}

// WithMarkerAssets writes small PNG marker and overlay images into the
// assets directory.
func WithMarkerAssets() ConfigOption {
	return func(b *configBuilder) {
		for _, path := range []string{b.cfg.EndOfChapterImage(), b.cfg.EndOfVolumeImage(), b.cfg.CoverNotFoundImage()} {
			WritePNG(b.t, path, 8, 8)
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, kindlegen is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"kindlegen"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		if tb, ok := b.t.(interface{ Setenv(string, string) }); ok {
			tb.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
