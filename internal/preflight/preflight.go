package preflight

import (
	"context"
	"net/http"
	"os"

	"mangadrop/internal/config"
)

// Result reports the outcome of a single preflight check. Optional results
// never fail a run.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Optional bool   `json:"optional,omitempty"`
	Detail   string `json:"detail"`
}

// HTTPDoer is the HTTP client used for service checks.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RunAll executes every preflight check for cfg. A nil client uses a short
// timeout default client.
func RunAll(ctx context.Context, cfg *config.Config, client HTTPDoer) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Queue directory", cfg.Paths.QueueDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckMarkers(cfg),
	}
	results = append(results, CheckBinaries([]Requirement{{
		Name:        "kindlegen",
		Command:     cfg.Packager.KindlegenBinary,
		Description: "Required to convert EPUB to MOBI",
	}})...)
	results = append(results, CheckMangaDex(ctx, client, cfg.MangaDex.BaseURL, cfg.Fetch.UserAgent))
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// CheckMarkers reports whether the end-of-chapter, end-of-volume, and
// cover-not-found images exist. Missing images are rendered on the next
// checkout, so this check is optional.
func CheckMarkers(cfg *config.Config) Result {
	const name = "Marker images"
	var missing int
	for _, path := range []string{cfg.EndOfChapterImage(), cfg.EndOfVolumeImage(), cfg.CoverNotFoundImage()} {
		if _, err := os.Stat(path); err != nil {
			missing++
		}
	}
	if missing > 0 {
		return Result{Name: name, Optional: true, Detail: cfg.Paths.AssetsDir + " (defaults rendered on first checkout)"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Paths.AssetsDir}
}
