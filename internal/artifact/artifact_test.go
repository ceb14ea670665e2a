package artifact_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"mangadrop/internal/artifact"
)

func TestRecordJSONShape(t *testing.T) {
	a := artifact.Artifact{
		Kind:         artifact.KindChapter,
		SeriesTitle:  "Berserk",
		VolumeTitle:  "3",
		ChapterTitle: artifact.Chapter("12"),
		Path:         "/tmp/work/Berserk volume 3 chapter 12.mobi",
		Size:         2048,
	}
	data, err := json.Marshal(a.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"chapter","manga_title":"Berserk","volume_title":"3","chapter_title":"12","file_name":"Berserk volume 3 chapter 12.mobi","file_size":2048}`
	if string(data) != want {
		t.Fatalf("unexpected json:\n got %s\nwant %s", data, want)
	}
}

func TestVolumeRecordHasNullChapter(t *testing.T) {
	a := artifact.Artifact{Kind: artifact.KindVolume, SeriesTitle: "Berserk", VolumeTitle: "1", Path: "/x/Berserk volume 1.mobi"}
	data, err := json.Marshal(a.Record())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"chapter_title":null`) {
		t.Fatalf("expected null chapter_title, got %s", data)
	}
	if a.Label() != "volume 1" {
		t.Fatalf("unexpected label %q", a.Label())
	}
}

func TestRecordArtifactRoundTrip(t *testing.T) {
	rec := artifact.Record{Type: "chapter", MangaTitle: "Berserk", VolumeTitle: "3", ChapterTitle: artifact.Chapter("12"), FileName: "b.mobi", FileSize: 9}
	a, err := rec.Artifact("/queue")
	if err != nil {
		t.Fatalf("Artifact: %v", err)
	}
	if a.Path != filepath.Join("/queue", "b.mobi") || a.FileName() != "b.mobi" {
		t.Fatalf("unexpected path %q", a.Path)
	}
	if a.Label() != "volume 3 chapter 12" {
		t.Fatalf("unexpected label %q", a.Label())
	}
	*rec.ChapterTitle = "13"
	if *a.ChapterTitle != "12" {
		t.Fatal("artifact should not alias record chapter title")
	}

	if _, err := (artifact.Record{Type: "omnibus"}).Artifact("/queue"); err == nil {
		t.Fatal("expected unknown kind error")
	}
}
