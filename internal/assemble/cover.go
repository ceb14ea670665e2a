package assemble

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"mangadrop/internal/content"
	"mangadrop/internal/fileutil"
	"mangadrop/internal/services"
)

// cover fetches the volume cover. A cover that was not found is the series
// cover with the "cover not found" banner composited over its top-left corner.
func (a *Assembler) cover(ctx context.Context, cover content.Cover, destination string) (string, error) {
	if cover.URL == "" {
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return "", services.Wrap(services.ErrPackaging, "assembler", "ensure cover dir", filepath.Dir(destination), err)
		}
		if err := fileutil.CopyFile(a.markers.CoverNotFound, destination); err != nil {
			return "", services.Wrap(services.ErrConfiguration, "assembler", "placeholder cover", a.markers.CoverNotFound, err)
		}
		return absPath(destination), nil
	}
	path, err := a.fetcher.FetchAndNormalize(ctx, cover.URL, destination)
	if err != nil {
		return "", err
	}
	if cover.Found {
		return path, nil
	}
	if err := Overlay(path, a.markers.CoverNotFound); err != nil {
		return "", services.Wrap(services.ErrPackaging, "assembler", "overlay cover", filepath.Base(path), err)
	}
	return path, nil
}

// Overlay composites the image at overlayPath onto basePath at (0,0) and
// rewrites basePath as PNG.
func Overlay(basePath, overlayPath string) error {
	base, err := decodeFile(basePath)
	if err != nil {
		return err
	}
	overlay, err := decodeFile(overlayPath)
	if err != nil {
		return err
	}

	bounds := base.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), base, bounds.Min, draw.Src)
	draw.Draw(canvas, overlay.Bounds().Sub(overlay.Bounds().Min), overlay, overlay.Bounds().Min, draw.Over)
	return writePNG(basePath, canvas)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".img-*.png")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, img); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
