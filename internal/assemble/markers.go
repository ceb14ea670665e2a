package assemble

import (
	"image"
	"image/color"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"mangadrop/internal/config"
)

const (
	markerCanvasWidth  = 124
	markerCanvasHeight = 175
	bannerHeight       = 20
)

// EnsureMarkers renders default marker and overlay images for any that are
// missing from the assets directory. It returns the paths it created.
func EnsureMarkers(cfg *config.Config) ([]string, error) {
	width := cfg.Fetch.PageWidth
	if width < markerCanvasWidth {
		width = markerCanvasWidth
	}
	assets := []struct {
		path   string
		render func() *image.NRGBA
	}{
		{cfg.EndOfChapterImage(), func() *image.NRGBA { return markerPage("END OF CHAPTER") }},
		{cfg.EndOfVolumeImage(), func() *image.NRGBA { return markerPage("END OF VOLUME") }},
		{cfg.CoverNotFoundImage(), func() *image.NRGBA { return banner("COVER NOT FOUND") }},
	}

	var created []string
	for _, asset := range assets {
		if _, err := os.Stat(asset.path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return created, err
		}
		if err := writePNG(asset.path, upscale(asset.render(), width)); err != nil {
			return created, err
		}
		created = append(created, asset.path)
	}
	return created, nil
}

func markerPage(text string) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, markerCanvasWidth, markerCanvasHeight))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	drawCentered(canvas, text, image.Black, markerCanvasHeight/2)
	return canvas
}

func banner(text string) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, markerCanvasWidth, bannerHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.NRGBA{A: 0xd0}), image.Point{}, draw.Src)
	drawCentered(canvas, text, image.White, bannerHeight/2)
	return canvas
}

func drawCentered(dst draw.Image, text string, ink image.Image, midY int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	baseline := midY + (metrics.Ascent.Ceil()-metrics.Descent.Ceil())/2
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  ink,
		Face: face,
		Dot:  fixed.P((dst.Bounds().Dx()-width)/2, baseline),
	}
	drawer.DrawString(text)
}

// upscale keeps the hard pixel edges of the bitmap font.
func upscale(src *image.NRGBA, width int) *image.NRGBA {
	b := src.Bounds()
	height := b.Dy() * width / b.Dx()
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(out, out.Bounds(), src, b, draw.Src, nil)
	return out
}
