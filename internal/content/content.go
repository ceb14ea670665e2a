// Package content describes the series, volumes, and chapters that can be
// packaged, independent of where they are resolved from.
package content

import (
	"context"
	"sort"
	"strconv"
	"strings"
)

// UngroupedVolume is the title given to chapters that belong to no volume.
const UngroupedVolume = "UnGrouped"

// Resolver looks up series structure and chapter page URLs.
type Resolver interface {
	Series(ctx context.Context, id string) (Series, error)
	PageURLs(ctx context.Context, chapterID string) ([]string, error)
}

// Series is a resolved manga with its volumes in reading order.
type Series struct {
	ID          string
	Title       string
	Description string
	Demographic string
	Status      string
	Year        string
	Tags        []string
	CoverURL    string
	Volumes     []Volume
}

// Cover is a volume cover. When Found is false, URL points at the series
// cover and the assembler overlays a "cover not found" banner on it.
type Cover struct {
	URL   string
	Found bool
}

// Volume is one volume and its chapters in reading order.
type Volume struct {
	Title       string
	SeriesTitle string
	Cover       Cover
	Chapters    []Chapter
}

// Chapter is one chapter of a volume.
type Chapter struct {
	ID          string
	Title       string
	VolumeTitle string
	SeriesTitle string
}

// Unit is a packageable descriptor: a Volume or a Chapter.
type Unit interface {
	Label() string
}

// Label renders the volume title, matching its cart entry.
func (v Volume) Label() string { return v.Title }

// Label renders "volume-chapter", matching its cart entry.
func (c Chapter) Label() string { return c.VolumeTitle + "-" + c.Title }

// FindVolume returns the volume titled title.
func (s Series) FindVolume(title string) (Volume, bool) {
	title = strings.TrimSpace(title)
	for _, v := range s.Volumes {
		if v.Title == title {
			return v, true
		}
	}
	return Volume{}, false
}

// FindChapter returns chapter of volume.
func (s Series) FindChapter(volume, chapter string) (Chapter, bool) {
	v, ok := s.FindVolume(volume)
	if !ok {
		return Chapter{}, false
	}
	chapter = strings.TrimSpace(chapter)
	for _, c := range v.Chapters {
		if c.Title == chapter {
			return c, true
		}
	}
	return Chapter{}, false
}

// SortVolumes orders volumes with non-numeric titles (such as UnGrouped)
// first, then numerically ascending.
func SortVolumes(volumes []Volume) {
	sort.SliceStable(volumes, func(i, j int) bool {
		return lessTitle(volumes[i].Title, volumes[j].Title, true)
	})
}

// SortChapters orders chapters numerically ascending; non-numeric titles
// sort last.
func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		return lessTitle(chapters[i].Title, chapters[j].Title, false)
	})
}

func lessTitle(a, b string, textFirst bool) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	switch {
	case errA == nil && errB == nil:
		return fa < fb
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return textFirst
	default:
		return !textFirst
	}
}
