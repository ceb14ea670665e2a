package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrContentNotFound    = errors.New("content not found")
	ErrFetch              = errors.New("fetch error")
	ErrPackaging          = errors.New("packaging failure")
	ErrConversion         = errors.New("conversion failure")
	ErrDeviceNotConnected = errors.New("device not connected")
	ErrInsufficientSpace  = errors.New("insufficient space")
	ErrStoreCorrupt       = errors.New("store corrupt")
	ErrNotFound           = errors.New("not found")
	ErrConfiguration      = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker so callers can branch with errors.Is. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFetch
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short, stable classification for err suitable for logs and
// the delivery journal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentNotFound):
		return "content_not_found"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrPackaging):
		return "packaging"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrDeviceNotConnected):
		return "device_not_connected"
	case errors.Is(err, ErrInsufficientSpace):
		return "insufficient_space"
	case errors.Is(err, ErrStoreCorrupt):
		return "store_corrupt"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// Expected reports whether err is a routing condition of the delivery state
// machine rather than a failure. Batches continue past expected errors.
func Expected(err error) bool {
	return errors.Is(err, ErrDeviceNotConnected) || errors.Is(err, ErrInsufficientSpace)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
