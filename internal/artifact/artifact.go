// Package artifact defines the packaged ebook produced for a volume or chapter
// and the record shape shared by the device catalog and the delivery queue.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind distinguishes volume and chapter artifacts.
type Kind string

const (
	KindVolume  Kind = "volume"
	KindChapter Kind = "chapter"
)

// ParseKind validates a persisted kind string.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVolume:
		return KindVolume, nil
	case KindChapter:
		return KindChapter, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", value)
	}
}

// Artifact is one packaged ebook on local disk. ChapterTitle is set only for
// chapter artifacts.
type Artifact struct {
	Kind         Kind
	SeriesTitle  string
	VolumeTitle  string
	ChapterTitle *string
	Path         string
	Size         int64
}

// FileName is the base name of Path and the artifact's identity in stores.
func (a Artifact) FileName() string {
	return filepath.Base(a.Path)
}

// Label renders "volume 3" or "volume 3 chapter 12" for logs and tables.
func (a Artifact) Label() string {
	if a.ChapterTitle != nil {
		return fmt.Sprintf("volume %s chapter %s", a.VolumeTitle, *a.ChapterTitle)
	}
	return "volume " + a.VolumeTitle
}

// Record returns the persisted form of a.
func (a Artifact) Record() Record {
	rec := Record{
		Type:        string(a.Kind),
		MangaTitle:  a.SeriesTitle,
		VolumeTitle: a.VolumeTitle,
		FileName:    a.FileName(),
		FileSize:    a.Size,
	}
	if a.ChapterTitle != nil {
		chapter := *a.ChapterTitle
		rec.ChapterTitle = &chapter
	}
	return rec
}

// Record is the JSON entry stored in the catalog and queue ledgers.
type Record struct {
	Type         string  `json:"type"`
	MangaTitle   string  `json:"manga_title"`
	VolumeTitle  string  `json:"volume_title"`
	ChapterTitle *string `json:"chapter_title"`
	FileName     string  `json:"file_name"`
	FileSize     int64   `json:"file_size"`
}

// Artifact rebuilds an Artifact whose file lives in dir.
func (r Record) Artifact(dir string) (Artifact, error) {
	kind, err := ParseKind(r.Type)
	if err != nil {
		return Artifact{}, err
	}
	a := Artifact{
		Kind:        kind,
		SeriesTitle: r.MangaTitle,
		VolumeTitle: r.VolumeTitle,
		Path:        filepath.Join(dir, r.FileName),
		Size:        r.FileSize,
	}
	if r.ChapterTitle != nil {
		chapter := *r.ChapterTitle
		a.ChapterTitle = &chapter
	}
	return a, nil
}

// Chapter returns a pointer to title for Artifact.ChapterTitle.
func Chapter(title string) *string {
	return &title
}
