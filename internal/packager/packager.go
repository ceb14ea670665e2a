package packager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mangadrop/internal/config"
	"mangadrop/internal/logging"
	"mangadrop/internal/services"
	"mangadrop/internal/textutil"
)

// Metadata describes the ebook being packaged. OutputDir defaults to the
// directory of the first image.
type Metadata struct {
	Author    string
	Title     string
	OutputDir string
}

// Packager builds one device-native ebook from page images.
type Packager interface {
	Package(ctx context.Context, images []string, meta Metadata) (string, error)
}

// Kindle packages pages as EPUB and converts them to MOBI with kindlegen.
type Kindle struct {
	builder   *EPUBBuilder
	converter Converter
	logger    *slog.Logger
}

// NewKindle wires an EPUB builder to converter.
func NewKindle(converter Converter, logger *slog.Logger) *Kindle {
	return &Kindle{
		builder:   NewEPUBBuilder(),
		converter: converter,
		logger:    logging.NewComponentLogger(logger, "packager"),
	}
}

// NewKindleFromConfig builds the kindlegen-backed packager from [packager].
func NewKindleFromConfig(cfg *config.Config, logger *slog.Logger, opts ...KindlegenOption) (*Kindle, error) {
	converter, err := NewKindlegen(cfg.Packager.KindlegenBinary, cfg.ConvertTimeout(), opts...)
	if err != nil {
		return nil, err
	}
	return NewKindle(converter, logger), nil
}

// Package builds <title>.epub, converts it, and returns the .mobi path. The
// intermediate EPUB is removed on success.
func (k *Kindle) Package(ctx context.Context, images []string, meta Metadata) (string, error) {
	if len(images) == 0 {
		return "", services.Wrap(services.ErrPackaging, "packager", "package", "no pages to package", nil)
	}
	name := textutil.SanitizeFileName(meta.Title)
	if name == "" {
		return "", services.Wrap(services.ErrPackaging, "packager", "package", "ebook title is empty", nil)
	}
	outDir := strings.TrimSpace(meta.OutputDir)
	if outDir == "" {
		outDir = filepath.Dir(images[0])
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPackaging, "packager", "ensure output dir", outDir, err)
	}

	epubPath := filepath.Join(outDir, name+".epub")
	if err := k.builder.Build(epubPath, images, meta); err != nil {
		return "", services.Wrap(services.ErrPackaging, "packager", "build epub", name, err)
	}
	k.logger.Debug("epub built",
		logging.String("path", epubPath),
		logging.Int("pages", len(images)),
	)

	mobiPath, err := k.converter.Convert(ctx, epubPath)
	if err != nil {
		return "", services.Wrap(services.ErrConversion, "packager", "convert", name, err)
	}
	if err := os.Remove(epubPath); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(k.logger, "intermediate epub not removed", "epub_cleanup_failed",
			logging.String("path", epubPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "work directory keeps an extra file until stale cleanup"),
		)
	}
	k.logger.Info("ebook packaged",
		logging.String(logging.FieldEventType, "ebook_packaged"),
		logging.String("file_name", filepath.Base(mobiPath)),
		logging.Int("pages", len(images)),
	)
	return mobiPath, nil
}

var _ Packager = (*Kindle)(nil)

func mustNonEmpty(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
