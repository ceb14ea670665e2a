package fetch_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mangadrop/internal/fetch"
	"mangadrop/internal/services"
	"mangadrop/internal/testsupport"
)

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode normalized page: %v", err)
	}
	return img
}

func TestFetchAndNormalizeResizesToWidth(t *testing.T) {
	page := testsupport.PNGBytes(t, 40, 60)
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(page)
	}))
	defer server.Close()

	f := fetch.New(100, 5*time.Second, "mangadrop/test")
	dest := filepath.Join(t.TempDir(), "ch1", "001.png")
	path, err := f.FetchAndNormalize(context.Background(), server.URL+"/data-saver/hash/1.png", dest)
	if err != nil {
		t.Fatalf("FetchAndNormalize: %v", err)
	}
	if path != dest {
		t.Fatalf("unexpected path %q", path)
	}
	if gotUA != "mangadrop/test" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}
	bounds := decodePNG(t, path).Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 150 {
		t.Fatalf("expected 100x150, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "001.png")
	_, err := fetch.New(100, time.Second, "").FetchAndNormalize(context.Background(), server.URL, dest)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("destination should not exist, stat err=%v", statErr)
	}
}

func TestFetchUndecodableBodyIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "001.png")
	_, err := fetch.New(100, time.Second, "").FetchAndNormalize(context.Background(), server.URL, dest)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("partial page should be removed")
	}
}

func TestFetchHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := fetch.New(100, 50*time.Millisecond, "").FetchAndNormalize(context.Background(), server.URL, filepath.Join(t.TempDir(), "p.png"))
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected ErrFetch on timeout, got %v", err)
	}
}

func TestResizeRoundsHeight(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 7))
	out, err := fetch.Resize(src, 100)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	// 7 * 100 / 3 = 233.33
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 233 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
}

func TestResizeKeepsTransparentEdgesClean(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if x < 2 {
				src.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
			} else {
				src.SetNRGBA(x, y, color.NRGBA{G: 255, A: 0})
			}
		}
	}
	out, err := fetch.Resize(src, 16)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	for x := 0; x < 16; x++ {
		c := out.NRGBAAt(x, 8)
		if c.A > 0 && c.G > 0 {
			t.Fatalf("transparent green bled into visible pixel at x=%d: %+v", x, c)
		}
	}
}

func TestResizeRejectsEmptyImage(t *testing.T) {
	if _, err := fetch.Resize(image.NewNRGBA(image.Rect(0, 0, 0, 0)), 100); err == nil {
		t.Fatal("expected error for empty image")
	}
}
