package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"mangadrop/internal/config"
	"mangadrop/internal/content"
	"mangadrop/internal/device"
	"mangadrop/internal/packager"
	"mangadrop/internal/services"
	"mangadrop/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mountPath  string
	deps       dependencies
	notifier   *recordingNotifier

	mu        sync.Mutex
	connected bool
	available int64
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("MANGADROP_DEVICE", "")
	cfg := testsupport.NewConfig(t)
	cfg.Fetch.PageWidth = 64
	cfg.Logging.Level = "error"
	cfg.Device.Name = "Kindle"
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		mountPath:  filepath.Join(base, "mnt", "kindle"),
		connected:  true,
		available:  1 << 30,
	}
	if err := os.MkdirAll(env.mountPath, 0o755); err != nil {
		t.Fatalf("mkdir mount: %v", err)
	}
	env.notifier = &recordingNotifier{}
	env.deps = dependencies{
		notifier: env.notifier,
		scan:     env.scan,
		resolver: fakeResolver{},
		fetcher:  &fakeFetcher{t: t},
		packager: &fakePackager{},
	}
	return env
}

func (e *cliTestEnv) scan(_ context.Context, name string) (device.Mount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.connected || name != "Kindle" {
		return device.Mount{}, nil
	}
	return device.Mount{Path: e.mountPath, AvailableBytes: e.available, Connected: true}, nil
}

func (e *cliTestEnv) setConnected(connected bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = connected
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommandWith(e.deps)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// fakeResolver serves series "berserk": volume 1 with chapters 1 and 2,
// volume 2 with chapter 3. Every chapter has two pages.
type fakeResolver struct{}

func (fakeResolver) Series(_ context.Context, id string) (content.Series, error) {
	if id != "berserk" {
		return content.Series{}, services.Wrap(services.ErrContentNotFound, "test", "series", id, nil)
	}
	series := content.Series{
		ID:          id,
		Title:       "Berserk",
		Demographic: "seinen",
		Status:      "completed",
		Year:        "1989",
		CoverURL:    "https://uploads/berserk.jpg",
	}
	layout := map[string][]string{"1": {"1", "2"}, "2": {"3"}}
	for _, vol := range []string{"1", "2"} {
		v := content.Volume{
			Title:       vol,
			SeriesTitle: series.Title,
			Cover:       content.Cover{URL: series.CoverURL, Found: vol == "1"},
		}
		for _, ch := range layout[vol] {
			v.Chapters = append(v.Chapters, content.Chapter{ID: "ch-" + ch, Title: ch, VolumeTitle: vol, SeriesTitle: series.Title})
		}
		series.Volumes = append(series.Volumes, v)
	}
	return series, nil
}

func (fakeResolver) PageURLs(_ context.Context, chapterID string) ([]string, error) {
	return []string{
		fmt.Sprintf("https://pages/%s/1.jpg", chapterID),
		fmt.Sprintf("https://pages/%s/2.jpg", chapterID),
	}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) record(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recordingNotifier) NotifyBatchCompleted(_ context.Context, series string, delivered, queued, failed int) error {
	return r.record(fmt.Sprintf("batch %s %d/%d/%d", series, delivered, queued, failed))
}

func (r *recordingNotifier) NotifyQueueFlushed(_ context.Context, delivered, remaining int) error {
	return r.record(fmt.Sprintf("flush %d/%d", delivered, remaining))
}

func (r *recordingNotifier) NotifyError(_ context.Context, err error, during string) error {
	return r.record(fmt.Sprintf("error %s: %v", during, err))
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

type fakeFetcher struct {
	t *testing.T
}

func (f *fakeFetcher) FetchAndNormalize(_ context.Context, _ string, dest string) (string, error) {
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	testsupport.WritePNG(f.t, abs, 8, 12)
	return abs, nil
}

type fakePackager struct{}

func (fakePackager) Package(_ context.Context, images []string, meta packager.Metadata) (string, error) {
	out := filepath.Join(meta.OutputDir, meta.Title+".mobi")
	if err := os.WriteFile(out, bytes.Repeat([]byte("k"), 100*len(images)), 0o644); err != nil {
		return "", err
	}
	return out, nil
}
