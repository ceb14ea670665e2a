package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"mangadrop/internal/logging"
)

// Mount describes where the device is mounted and how much space it has.
// A disconnected Mount has an empty Path and zero AvailableBytes.
type Mount struct {
	Path           string `json:"path"`
	AvailableBytes int64  `json:"available_bytes"`
	Connected      bool   `json:"connected"`
}

// StatfsFunc reports the bytes available to unprivileged users at path.
type StatfsFunc func(path string) (int64, error)

// Scanner resolves a filesystem label to a Mount.
type Scanner struct {
	enumerator Enumerator
	statfs     StatfsFunc
	timeout    time.Duration
	logger     *slog.Logger
}

// Option customizes a Scanner.
type Option func(*Scanner)

// WithEnumerator replaces the lsblk enumerator.
func WithEnumerator(e Enumerator) Option {
	return func(s *Scanner) {
		if e != nil {
			s.enumerator = e
		}
	}
}

// WithStatfs replaces the free-space probe.
func WithStatfs(fn StatfsFunc) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.statfs = fn
		}
	}
}

// WithTimeout bounds each enumeration.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scanner) {
		s.timeout = timeout
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logging.NewComponentLogger(logger, "device")
	}
}

// NewScanner builds a scanner backed by lsblk and statfs.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		enumerator: NewLSBLK(nil),
		statfs:     realStatfs,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the mount of the first mounted device whose label equals name.
// No match is not an error: the returned Mount is simply disconnected.
func (s *Scanner) Scan(ctx context.Context, name string) (Mount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Mount{}, fmt.Errorf("device name is empty")
	}
	scanCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	devices, err := s.enumerator.List(scanCtx)
	if err != nil {
		return Mount{}, fmt.Errorf("enumerate block devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Label != name || strings.TrimSpace(dev.MountPoint) == "" {
			continue
		}
		available, err := s.statfs(dev.MountPoint)
		if err != nil {
			return Mount{}, fmt.Errorf("statfs %s: %w", dev.MountPoint, err)
		}
		s.logger.Debug("device mount resolved",
			logging.String("label", name),
			logging.String("mount", dev.MountPoint),
			logging.Int64("available_bytes", available),
		)
		return Mount{Path: dev.MountPoint, AvailableBytes: available, Connected: true}, nil
	}
	s.logger.Debug("device not mounted", logging.String("label", name))
	return Mount{}, nil
}

func realStatfs(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * int64(stat.Bsize), nil
}
