package fetch

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// NormalizeFile decodes the image at path, rescales it to width, and rewrites
// it in place as PNG.
func NormalizeFile(path string, width int) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	src, _, err := image.Decode(in)
	_ = in.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}

	resized, err := Resize(src, width)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".page-*.png")
	if err != nil {
		return err
	}
	if err := png.Encode(tmp, resized); err != nil {
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

// Resize scales src to width using Catmull-Rom, keeping the aspect ratio.
// Resampling runs on premultiplied pixels; the result is straight alpha.
func Resize(src image.Image, width int) (*image.NRGBA, error) {
	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.New("image has no pixels")
	}
	if width <= 0 {
		return nil, fmt.Errorf("invalid target width %d", width)
	}
	height := int(math.Round(float64(bounds.Dy()) * float64(width) / float64(bounds.Dx())))
	if height < 1 {
		height = 1
	}

	premultiplied := image.NewRGBA(bounds)
	draw.Draw(premultiplied, bounds, src, bounds.Min, draw.Src)

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), premultiplied, bounds, draw.Src, nil)

	out := image.NewNRGBA(scaled.Bounds())
	draw.Draw(out, out.Bounds(), scaled, image.Point{}, draw.Src)
	return out, nil
}
