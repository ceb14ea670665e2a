package testsupport

import (
	"testing"

	"mangadrop/internal/config"
	"mangadrop/internal/history"
)

// MustOpenHistory opens the delivery journal for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
