package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mangadrop/internal/artifact"
	"mangadrop/internal/config"
	"mangadrop/internal/content"
	"mangadrop/internal/logging"
	"mangadrop/internal/packager"
	"mangadrop/internal/services"
	"mangadrop/internal/staging"
	"mangadrop/internal/textutil"
)

// PageFetcher downloads one page and normalizes it to the device width.
type PageFetcher interface {
	FetchAndNormalize(ctx context.Context, remoteURL, destination string) (string, error)
}

// PageResolver lists the page URLs of a chapter.
type PageResolver interface {
	PageURLs(ctx context.Context, chapterID string) ([]string, error)
}

// Markers holds the shared marker and overlay images.
type Markers struct {
	EndOfChapter  string
	EndOfVolume   string
	CoverNotFound string
}

// Assembler fetches, orders, and packages pages.
type Assembler struct {
	fetcher     PageFetcher
	resolver    PageResolver
	packager    packager.Packager
	markers     Markers
	workDir     string
	author      string
	concurrency int
	logger      *slog.Logger
}

// Option customizes an Assembler.
type Option func(*Assembler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logging.NewComponentLogger(logger, "assembler")
	}
}

// WithConcurrency overrides the page fetch pool size.
func WithConcurrency(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New constructs an assembler from the [paths], [fetch], and [packager]
// sections.
func New(cfg *config.Config, fetcher PageFetcher, resolver PageResolver, pkg packager.Packager, opts ...Option) *Assembler {
	a := &Assembler{
		fetcher:  fetcher,
		resolver: resolver,
		packager: pkg,
		markers: Markers{
			EndOfChapter:  absPath(cfg.EndOfChapterImage()),
			EndOfVolume:   absPath(cfg.EndOfVolumeImage()),
			CoverNotFound: absPath(cfg.CoverNotFoundImage()),
		},
		workDir:     cfg.Paths.WorkDir,
		author:      cfg.Packager.Author,
		concurrency: cfg.Fetch.Concurrency,
		logger:      logging.NewNop(),
	}
	if a.concurrency <= 0 {
		a.concurrency = 1
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble dispatches on the descriptor type.
func (a *Assembler) Assemble(ctx context.Context, unit content.Unit) (artifact.Artifact, error) {
	switch u := unit.(type) {
	case content.Volume:
		return a.AssembleVolume(ctx, u)
	case *content.Volume:
		return a.AssembleVolume(ctx, *u)
	case content.Chapter:
		return a.AssembleChapter(ctx, u)
	case *content.Chapter:
		return a.AssembleChapter(ctx, *u)
	default:
		return artifact.Artifact{}, fmt.Errorf("assemble: unsupported unit %T", unit)
	}
}

// AssembleChapter packages one chapter followed by the end-of-chapter marker.
func (a *Assembler) AssembleChapter(ctx context.Context, chapter content.Chapter) (artifact.Artifact, error) {
	if err := a.checkMarkers(); err != nil {
		return artifact.Artifact{}, err
	}
	unitDir, err := staging.NewUnitDir(a.workDir)
	if err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrPackaging, "assembler", "create work dir", a.workDir, err)
	}
	logger := a.logger.With(logging.String(logging.FieldUnit, chapter.Label()))
	start := time.Now()

	pages, err := a.chapterPages(ctx, chapter, unitDir, 0)
	if err != nil {
		a.discard(unitDir)
		return artifact.Artifact{}, err
	}
	images := ChapterSequence(pages, a.markers.EndOfChapter)

	title := textutil.EbookTitle(fmt.Sprintf("%s volume %s chapter %s", chapter.SeriesTitle, chapter.VolumeTitle, chapter.Title))
	chapterTitle := chapter.Title
	out, err := a.pack(ctx, images, title, unitDir, artifact.Artifact{
		Kind:         artifact.KindChapter,
		SeriesTitle:  chapter.SeriesTitle,
		VolumeTitle:  chapter.VolumeTitle,
		ChapterTitle: &chapterTitle,
	})
	if err != nil {
		a.discard(unitDir)
		return artifact.Artifact{}, err
	}
	logger.Info("chapter assembled",
		logging.String(logging.FieldEventType, "unit_assembled"),
		logging.String("file_name", out.FileName()),
		logging.Int("pages", len(images)),
		logging.Int64("size_bytes", out.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// AssembleVolume packages the cover, every chapter with its marker, and the
// end-of-volume marker.
func (a *Assembler) AssembleVolume(ctx context.Context, volume content.Volume) (artifact.Artifact, error) {
	if err := a.checkMarkers(); err != nil {
		return artifact.Artifact{}, err
	}
	if len(volume.Chapters) == 0 {
		return artifact.Artifact{}, services.Wrap(services.ErrContentNotFound, "assembler", "assemble volume", "volume "+volume.Title+" has no chapters", nil)
	}
	unitDir, err := staging.NewUnitDir(a.workDir)
	if err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrPackaging, "assembler", "create work dir", a.workDir, err)
	}
	logger := a.logger.With(logging.String(logging.FieldUnit, volume.Label()))
	start := time.Now()

	cover, err := a.cover(ctx, volume.Cover, filepath.Join(unitDir, "pages", "cover.png"))
	if err != nil {
		a.discard(unitDir)
		return artifact.Artifact{}, err
	}

	chapters := make([][]string, 0, len(volume.Chapters))
	for i, chapter := range volume.Chapters {
		if chapter.SeriesTitle == "" {
			chapter.SeriesTitle = volume.SeriesTitle
		}
		if chapter.VolumeTitle == "" {
			chapter.VolumeTitle = volume.Title
		}
		pages, err := a.chapterPages(ctx, chapter, unitDir, i+1)
		if err != nil {
			a.discard(unitDir)
			return artifact.Artifact{}, err
		}
		logger.Debug("chapter pages fetched",
			logging.String("chapter", chapter.Title),
			logging.Int("pages", len(pages)),
		)
		chapters = append(chapters, pages)
	}
	images := PageSequence(cover, chapters, a.markers.EndOfChapter, a.markers.EndOfVolume)

	title := textutil.EbookTitle(fmt.Sprintf("%s volume %s", volume.SeriesTitle, volume.Title))
	out, err := a.pack(ctx, images, title, unitDir, artifact.Artifact{
		Kind:        artifact.KindVolume,
		SeriesTitle: volume.SeriesTitle,
		VolumeTitle: volume.Title,
	})
	if err != nil {
		a.discard(unitDir)
		return artifact.Artifact{}, err
	}
	logger.Info("volume assembled",
		logging.String(logging.FieldEventType, "unit_assembled"),
		logging.String("file_name", out.FileName()),
		logging.Int("chapters", len(volume.Chapters)),
		logging.Int("pages", len(images)),
		logging.Bool("cover_found", volume.Cover.Found),
		logging.Int64("size_bytes", out.Size),
		logging.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// ChapterSequence returns the packaged image order of a single chapter.
func ChapterSequence(pages []string, endOfChapter string) []string {
	out := make([]string, 0, len(pages)+1)
	out = append(out, pages...)
	return append(out, endOfChapter)
}

// PageSequence returns the packaged image order of a volume: cover, each
// chapter's pages followed by the end-of-chapter marker, then the
// end-of-volume marker.
func PageSequence(cover string, chapters [][]string, endOfChapter, endOfVolume string) []string {
	total := 2
	for _, pages := range chapters {
		total += len(pages) + 1
	}
	out := make([]string, 0, total)
	out = append(out, cover)
	for _, pages := range chapters {
		out = append(out, ChapterSequence(pages, endOfChapter)...)
	}
	return append(out, endOfVolume)
}

func (a *Assembler) chapterPages(ctx context.Context, chapter content.Chapter, unitDir string, index int) ([]string, error) {
	urls, err := a.resolver.PageURLs(ctx, chapter.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrContentNotFound, "assembler", "resolve pages", "chapter "+chapter.Label(), err)
	}
	if len(urls) == 0 {
		return nil, services.Wrap(services.ErrContentNotFound, "assembler", "resolve pages", "chapter "+chapter.Label()+" has no pages", nil)
	}
	dir := filepath.Join(unitDir, "pages")
	return fetchAll(ctx, a.fetcher, urls, a.concurrency, func(page int) string {
		return filepath.Join(dir, fmt.Sprintf("%03d-%04d.png", index, page))
	})
}

func (a *Assembler) pack(ctx context.Context, images []string, title, unitDir string, base artifact.Artifact) (artifact.Artifact, error) {
	path, err := a.packager.Package(ctx, images, packager.Metadata{
		Author:    a.author,
		Title:     title,
		OutputDir: unitDir,
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return artifact.Artifact{}, services.Wrap(services.ErrPackaging, "assembler", "stat ebook", path, err)
	}
	a.cleanupPages(images)
	_ = os.Remove(filepath.Join(unitDir, "pages"))

	base.Path = path
	base.Size = info.Size()
	return base, nil
}

// cleanupPages removes fetched pages. Marker images are shared and kept.
func (a *Assembler) cleanupPages(images []string) {
	for _, image := range images {
		if a.isMarker(image) {
			continue
		}
		if err := os.Remove(image); err != nil && !os.IsNotExist(err) {
			a.logger.Debug("page cleanup failed", logging.String("path", image), logging.Error(err))
		}
	}
}

func (a *Assembler) isMarker(path string) bool {
	abs := absPath(path)
	return abs == a.markers.EndOfChapter || abs == a.markers.EndOfVolume || abs == a.markers.CoverNotFound
}

func (a *Assembler) checkMarkers() error {
	for _, path := range []string{a.markers.EndOfChapter, a.markers.EndOfVolume} {
		if _, err := os.Stat(path); err != nil {
			return services.Wrap(services.ErrConfiguration, "assembler", "check markers", path, err)
		}
	}
	return nil
}

func (a *Assembler) discard(unitDir string) {
	if strings.TrimSpace(unitDir) == "" {
		return
	}
	if err := os.RemoveAll(unitDir); err != nil {
		a.logger.Debug("work dir cleanup failed", logging.String("path", unitDir), logging.Error(err))
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}
