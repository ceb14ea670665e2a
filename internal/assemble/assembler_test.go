package assemble_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mangadrop/internal/artifact"
	"mangadrop/internal/assemble"
	"mangadrop/internal/content"
	"mangadrop/internal/packager"
	"mangadrop/internal/services"
	"mangadrop/internal/testsupport"
)

type fakeFetcher struct {
	t      *testing.T
	mu     sync.Mutex
	byDest map[string]string
	fail   string
	delay  func(url string) time.Duration

	inFlight int
	peak     int
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	return &fakeFetcher{t: t, byDest: make(map[string]string)}
}

func (f *fakeFetcher) FetchAndNormalize(ctx context.Context, url, dest string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.delay != nil {
		select {
		case <-time.After(f.delay(url)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if url == f.fail {
		return "", services.Wrap(services.ErrFetch, "fetch", "request", url, nil)
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	testsupport.WritePNG(f.t, abs, 4, 6)
	f.mu.Lock()
	f.byDest[abs] = url
	f.mu.Unlock()
	return abs, nil
}

func (f *fakeFetcher) urlOf(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byDest[path]
}

type fakeResolver map[string][]string

func (r fakeResolver) PageURLs(_ context.Context, chapterID string) ([]string, error) {
	urls, ok := r[chapterID]
	if !ok {
		return nil, services.Wrap(services.ErrContentNotFound, "test", "pages", chapterID, nil)
	}
	return urls, nil
}

type fakePackager struct {
	images []string
	meta   packager.Metadata
	calls  int
	err    error
}

func (p *fakePackager) Package(_ context.Context, images []string, meta packager.Metadata) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	p.images = append([]string(nil), images...)
	p.meta = meta
	for _, image := range images {
		if _, err := os.Stat(image); err != nil {
			return "", fmt.Errorf("missing image %s: %w", image, err)
		}
	}
	out := filepath.Join(meta.OutputDir, meta.Title+".mobi")
	if err := os.WriteFile(out, []byte(strings.Repeat("m", 1234)), 0o644); err != nil {
		return "", err
	}
	return out, nil
}

func threeChapterVolume() (content.Volume, fakeResolver) {
	resolver := fakeResolver{}
	volume := content.Volume{
		Title:       "1",
		SeriesTitle: "Re:Zero",
		Cover:       content.Cover{URL: "https://uploads/cover.jpg", Found: true},
	}
	for c := 1; c <= 3; c++ {
		id := fmt.Sprintf("ch-%d", c)
		resolver[id] = []string{
			fmt.Sprintf("https://pages/c%d-p1.jpg", c),
			fmt.Sprintf("https://pages/c%d-p2.jpg", c),
		}
		volume.Chapters = append(volume.Chapters, content.Chapter{
			ID:          id,
			Title:       fmt.Sprint(c),
			VolumeTitle: "1",
			SeriesTitle: "Re:Zero",
		})
	}
	return volume, resolver
}

func TestPageSequence(t *testing.T) {
	chapters := [][]string{{"a1", "a2"}, {"b1", "b2"}, {"c1", "c2"}}
	got := assemble.PageSequence("cover", chapters, "eoc", "eov")
	want := []string{"cover", "a1", "a2", "eoc", "b1", "b2", "eoc", "c1", "c2", "eoc", "eov"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("sequence = %v, want %v", got, want)
	}
	if chapter := assemble.ChapterSequence([]string{"p1"}, "eoc"); strings.Join(chapter, ",") != "p1,eoc" {
		t.Fatalf("chapter sequence = %v", chapter)
	}
}

func TestAssembleVolumeProducesElevenPages(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	volume, resolver := threeChapterVolume()
	fetcher := newFakeFetcher(t)
	pkg := &fakePackager{}
	asm := assemble.New(cfg, fetcher, resolver, pkg)

	out, err := asm.Assemble(context.Background(), volume)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(pkg.images) != 11 {
		t.Fatalf("expected 11 images, got %d: %v", len(pkg.images), pkg.images)
	}
	if fetcher.urlOf(pkg.images[0]) != volume.Cover.URL {
		t.Fatalf("first image should be the cover, got %s", pkg.images[0])
	}
	endOfChapter, _ := filepath.Abs(cfg.EndOfChapterImage())
	endOfVolume, _ := filepath.Abs(cfg.EndOfVolumeImage())
	for _, idx := range []int{3, 6, 9} {
		if pkg.images[idx] != endOfChapter {
			t.Fatalf("image %d = %s, want end-of-chapter marker", idx, pkg.images[idx])
		}
	}
	if pkg.images[10] != endOfVolume {
		t.Fatalf("last image = %s, want end-of-volume marker", pkg.images[10])
	}
	if got := fetcher.urlOf(pkg.images[4]); got != "https://pages/c2-p1.jpg" {
		t.Fatalf("image 4 came from %s", got)
	}

	if pkg.meta.Title != "Re Zero volume 1" || pkg.meta.Author != "KindleMangaReader" {
		t.Fatalf("unexpected metadata: %+v", pkg.meta)
	}
	if out.Kind != artifact.KindVolume || out.VolumeTitle != "1" || out.ChapterTitle != nil {
		t.Fatalf("unexpected artifact: %+v", out)
	}
	if out.Size != 1234 {
		t.Fatalf("size = %d, want 1234", out.Size)
	}

	for _, image := range pkg.images {
		_, err := os.Stat(image)
		isMarker := image == endOfChapter || image == endOfVolume
		if isMarker && err != nil {
			t.Fatalf("marker %s was removed: %v", image, err)
		}
		if !isMarker && !os.IsNotExist(err) {
			t.Fatalf("page %s should be cleaned up", image)
		}
	}
	if _, err := os.Stat(out.Path); err != nil {
		t.Fatalf("artifact file missing: %v", err)
	}
}

func TestAssembleChapterPreservesOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	var urls []string
	for i := 0; i < 12; i++ {
		urls = append(urls, fmt.Sprintf("https://pages/p%02d.jpg", i))
	}
	fetcher := newFakeFetcher(t)
	fetcher.delay = func(url string) time.Duration {
		for i, u := range urls {
			if u == url {
				return time.Duration(len(urls)-i) * 2 * time.Millisecond
			}
		}
		return 0
	}
	pkg := &fakePackager{}
	asm := assemble.New(cfg, fetcher, fakeResolver{"ch": urls}, pkg)

	chapter := content.Chapter{ID: "ch", Title: "7", VolumeTitle: "2", SeriesTitle: "Dandadan"}
	out, err := asm.AssembleChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("AssembleChapter: %v", err)
	}
	if len(pkg.images) != len(urls)+1 {
		t.Fatalf("expected %d images, got %d", len(urls)+1, len(pkg.images))
	}
	for i, url := range urls {
		if got := fetcher.urlOf(pkg.images[i]); got != url {
			t.Fatalf("image %d came from %s, want %s", i, got, url)
		}
	}
	if pkg.meta.Title != "Dandadan volume 2 chapter 7" {
		t.Fatalf("title = %q", pkg.meta.Title)
	}
	if out.Kind != artifact.KindChapter || out.ChapterTitle == nil || *out.ChapterTitle != "7" {
		t.Fatalf("unexpected artifact: %+v", out)
	}
}

func TestAssembleChapterFetchFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	urls := []string{"https://pages/1", "https://pages/2", "https://pages/3"}
	fetcher := newFakeFetcher(t)
	fetcher.fail = urls[1]
	pkg := &fakePackager{}
	asm := assemble.New(cfg, fetcher, fakeResolver{"ch": urls}, pkg)

	_, err := asm.AssembleChapter(context.Background(), content.Chapter{ID: "ch", Title: "1", VolumeTitle: "1", SeriesTitle: "S"})
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if pkg.calls != 0 {
		t.Fatal("packager should not run after a failed fetch")
	}
	entries, _ := os.ReadDir(cfg.Paths.WorkDir)
	if len(entries) != 0 {
		t.Fatalf("work dir should be discarded, found %d entries", len(entries))
	}
}

func TestAssembleUnknownChapter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	asm := assemble.New(cfg, newFakeFetcher(t), fakeResolver{}, &fakePackager{})
	_, err := asm.AssembleChapter(context.Background(), content.Chapter{ID: "nope", Title: "1", VolumeTitle: "1", SeriesTitle: "S"})
	if !errors.Is(err, services.ErrContentNotFound) {
		t.Fatalf("expected content not found, got %v", err)
	}
}

func TestAssemblePackagingFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	pkg := &fakePackager{err: services.Wrap(services.ErrConversion, "packager", "convert", "x", nil)}
	asm := assemble.New(cfg, newFakeFetcher(t), fakeResolver{"ch": {"https://pages/1"}}, pkg)
	_, err := asm.AssembleChapter(context.Background(), content.Chapter{ID: "ch", Title: "1", VolumeTitle: "1", SeriesTitle: "S"})
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected conversion error, got %v", err)
	}
}

func TestAssembleRequiresMarkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	asm := assemble.New(cfg, newFakeFetcher(t), fakeResolver{"ch": {"https://pages/1"}}, &fakePackager{})
	_, err := asm.AssembleChapter(context.Background(), content.Chapter{ID: "ch", Title: "1", VolumeTitle: "1", SeriesTitle: "S"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func writeSolid(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return img
}

func TestOverlayCompositesTopLeft(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "cover.png")
	overlay := filepath.Join(dir, "banner.png")
	red := color.NRGBA{R: 255, A: 255}
	blue := color.NRGBA{B: 255, A: 255}
	writeSolid(t, base, 16, 16, red)
	writeSolid(t, overlay, 8, 4, blue)

	if err := assemble.Overlay(base, overlay); err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	img := readPNG(t, base)
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("overlay changed size: %v", img.Bounds())
	}
	if got := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); got != blue {
		t.Fatalf("pixel (0,0) = %v, want overlay", got)
	}
	if got := color.NRGBAModel.Convert(img.At(12, 12)).(color.NRGBA); got != red {
		t.Fatalf("pixel (12,12) = %v, want base", got)
	}
}

func TestAssembleVolumeMissingCoverUsesOverlay(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	volume, resolver := threeChapterVolume()
	volume.Cover.Found = false
	pkg := &fakePackager{}
	asm := assemble.New(cfg, newFakeFetcher(t), resolver, pkg)
	if _, err := asm.AssembleVolume(context.Background(), volume); err != nil {
		t.Fatalf("AssembleVolume: %v", err)
	}
	if len(pkg.images) != 11 {
		t.Fatalf("expected 11 images, got %d", len(pkg.images))
	}
}

func TestAssembleVolumeWithoutSeriesCover(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	volume, resolver := threeChapterVolume()
	volume.Cover = content.Cover{}
	fetcher := newFakeFetcher(t)
	pkg := &fakePackager{}
	asm := assemble.New(cfg, fetcher, resolver, pkg)
	if _, err := asm.AssembleVolume(context.Background(), volume); err != nil {
		t.Fatalf("AssembleVolume: %v", err)
	}
	if len(pkg.images) != 11 {
		t.Fatalf("expected 11 images, got %d", len(pkg.images))
	}
	cover := pkg.images[0]
	if filepath.Base(cover) != "cover.png" {
		t.Fatalf("first image = %s, want cover.png", cover)
	}
	if url := fetcher.urlOf(cover); url != "" {
		t.Fatalf("placeholder cover should not be fetched, came from %s", url)
	}
}

func TestAssembleChapterBoundsConcurrentFetches(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithMarkerAssets())
	var urls []string
	for i := 0; i < 10; i++ {
		urls = append(urls, fmt.Sprintf("https://pages/p%02d.jpg", i))
	}
	fetcher := newFakeFetcher(t)
	fetcher.delay = func(string) time.Duration { return 5 * time.Millisecond }
	pkg := &fakePackager{}
	asm := assemble.New(cfg, fetcher, fakeResolver{"ch": urls}, pkg, assemble.WithConcurrency(2))

	chapter := content.Chapter{ID: "ch", Title: "1", VolumeTitle: "1", SeriesTitle: "Frieren"}
	if _, err := asm.AssembleChapter(context.Background(), chapter); err != nil {
		t.Fatalf("AssembleChapter: %v", err)
	}
	fetcher.mu.Lock()
	peak := fetcher.peak
	fetcher.mu.Unlock()
	if peak > 2 {
		t.Fatalf("peak concurrent fetches = %d, want at most 2", peak)
	}
	if peak < 1 {
		t.Fatal("no fetches recorded")
	}
	for i, url := range urls {
		if got := fetcher.urlOf(pkg.images[i]); got != url {
			t.Fatalf("image %d came from %s, want %s", i, got, url)
		}
	}
}

func TestEnsureMarkersRendersMissingAssets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Fetch.PageWidth = 248

	created, err := assemble.EnsureMarkers(cfg)
	if err != nil {
		t.Fatalf("EnsureMarkers: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 created assets, got %v", created)
	}
	page := readPNG(t, cfg.EndOfChapterImage())
	if page.Bounds().Dx() != 248 || page.Bounds().Dy() != 350 {
		t.Fatalf("marker bounds = %v", page.Bounds())
	}
	banner := readPNG(t, cfg.CoverNotFoundImage())
	if banner.Bounds().Dx() != 248 || banner.Bounds().Dy() != 40 {
		t.Fatalf("banner bounds = %v", banner.Bounds())
	}

	again, err := assemble.EnsureMarkers(cfg)
	if err != nil {
		t.Fatalf("EnsureMarkers again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("existing assets should be kept, got %v", again)
	}
}
