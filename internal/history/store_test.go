package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mangadrop/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := history.Entry{Source: history.SourceFresh, FileName: "a.mobi", Outcome: "queued", Reason: "device_not_connected", SizeBytes: 10}
	second := history.Entry{Source: history.SourceQueue, FileName: "a.mobi", Outcome: "delivered", SizeBytes: 10, AvailableBytes: 1000, MountPath: "/media/Kindle"}
	for _, entry := range []history.Entry{first, second} {
		if _, err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Outcome != "delivered" || entries[0].Source != history.SourceQueue {
		t.Fatalf("expected newest entry first, got %+v", entries[0])
	}
	if entries[1].Reason != "device_not_connected" {
		t.Fatalf("unexpected reason %q", entries[1].Reason)
	}
	if entries[0].RecordedAt.IsZero() {
		t.Fatal("expected recorded_at to be stamped")
	}

	queued, err := store.List(ctx, history.ListOptions{Outcome: "queued", Limit: 5})
	if err != nil {
		t.Fatalf("List filtered: %v", err)
	}
	if len(queued) != 1 || queued[0].FileName != "a.mobi" {
		t.Fatalf("unexpected filtered entries %+v", queued)
	}
}

func TestRecordRequiresFileName(t *testing.T) {
	store := openStore(t)
	if _, err := store.Record(context.Background(), history.Entry{Outcome: "queued"}); err == nil {
		t.Fatal("expected error for empty file name")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := history.Entry{RecordedAt: time.Now().Add(-48 * time.Hour), Source: history.SourceFresh, FileName: "old.mobi", Outcome: "delivered"}
	recent := history.Entry{Source: history.SourceFresh, FileName: "new.mobi", Outcome: "delivered"}
	for _, entry := range []history.Entry{old, recent} {
		if _, err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	entries, err := store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].FileName != "new.mobi" {
		t.Fatalf("unexpected remaining entries %+v", entries)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
