package queue_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mangadrop/internal/artifact"
	"mangadrop/internal/queue"
	"mangadrop/internal/services"
	"mangadrop/internal/testsupport"
)

func newArtifact(t *testing.T, dir, name string, size int64) artifact.Artifact {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, size)
	return artifact.Artifact{Kind: artifact.KindVolume, SeriesTitle: "Berserk", VolumeTitle: "1", Path: path, Size: size}
}

func TestAddCopiesFileAndRecords(t *testing.T) {
	base := t.TempDir()
	q := queue.New(filepath.Join(base, "queue"))
	if err := q.EnsureInitialized(); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	a := newArtifact(t, filepath.Join(base, "work"), "Berserk volume 1.mobi", 128)

	added, err := q.Add(a)
	if err != nil || !added {
		t.Fatalf("Add: added=%v err=%v", added, err)
	}
	info, err := os.Stat(q.SourcePath(a.Record()))
	if err != nil {
		t.Fatalf("queued copy missing: %v", err)
	}
	if info.Size() != 128 {
		t.Fatalf("queued copy size %d", info.Size())
	}
	if _, err := os.Stat(a.Path); err != nil {
		t.Fatal("Add must not remove the source artifact")
	}

	added, err = q.Add(a)
	if err != nil || added {
		t.Fatalf("duplicate Add: added=%v err=%v", added, err)
	}
	records, _ := q.List()
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestRemovePairsRecordAndFile(t *testing.T) {
	base := t.TempDir()
	q := queue.New(filepath.Join(base, "queue"))
	if err := q.EnsureInitialized(); err != nil {
		t.Fatal(err)
	}
	a := newArtifact(t, base, "b.mobi", 10)
	if _, err := q.Add(a); err != nil {
		t.Fatal(err)
	}

	if err := q.Remove(a.Record()); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(q.SourcePath(a.Record())); !os.IsNotExist(err) {
		t.Fatalf("expected queued file removed, stat err=%v", err)
	}
	if err := q.Remove(a.Record()); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveMissingLeavesFolderUntouched(t *testing.T) {
	base := t.TempDir()
	q := queue.New(base)
	if err := q.EnsureInitialized(); err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(base, "stray.mobi")
	testsupport.WriteFile(t, stray, 4)

	err := q.Remove(artifact.Record{FileName: "stray.mobi"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := os.Stat(stray); err != nil {
		t.Fatal("unrecorded file must survive a missing remove")
	}
}

func TestRemoveRefusesEscapingRecord(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "queue")
	q := queue.New(dir)
	if err := q.EnsureInitialized(); err != nil {
		t.Fatal(err)
	}
	victim := filepath.Join(base, "victim.mobi")
	testsupport.WriteFile(t, victim, 4)
	doc := `{"files":[{"type":"volume","manga_title":"Berserk","volume_title":"1","chapter_title":null,"file_name":"../victim.mobi","file_size":4}]}`
	if err := os.WriteFile(filepath.Join(dir, queue.DBFileName), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	err := q.Remove(artifact.Record{FileName: "../victim.mobi"})
	if !errors.Is(err, services.ErrStoreCorrupt) {
		t.Fatalf("expected store corrupt, got %v", err)
	}
	if _, err := os.Stat(victim); err != nil {
		t.Fatal("file outside the queue folder must survive")
	}
}

func TestArtifactRebuildsFromRecord(t *testing.T) {
	base := t.TempDir()
	q := queue.New(base)
	rec := artifact.Record{Type: "chapter", MangaTitle: "Berserk", VolumeTitle: "2", ChapterTitle: artifact.Chapter("7"), FileName: "c.mobi", FileSize: 5}
	a, err := q.Artifact(rec)
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if a.Path != filepath.Join(base, "c.mobi") || a.Kind != artifact.KindChapter || *a.ChapterTitle != "7" {
		t.Fatalf("unexpected artifact %+v", a)
	}
}
