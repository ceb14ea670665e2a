package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Converter turns an EPUB into the device format and returns the output path.
type Converter interface {
	Convert(ctx context.Context, epubPath string) (string, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
}

// KindlegenOption configures Kindlegen.
type KindlegenOption func(*Kindlegen)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) KindlegenOption {
	return func(k *Kindlegen) {
		if exec != nil {
			k.exec = exec
		}
	}
}

// Kindlegen wraps the kindlegen CLI.
type Kindlegen struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewKindlegen constructs a converter. A zero timeout disables the deadline.
func NewKindlegen(binary string, timeout time.Duration, opts ...KindlegenOption) (*Kindlegen, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("kindlegen binary required")
	}
	k := &Kindlegen{binary: binary, timeout: timeout, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

// Convert runs `kindlegen <epub> -c0 -o <name>.mobi`. The .mobi is written
// next to the EPUB. kindlegen exits non-zero for warnings, so the output file
// is the source of truth for success unless ctx expired first.
func (k *Kindlegen) Convert(ctx context.Context, epubPath string) (string, error) {
	if k.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}
	name := strings.TrimSuffix(filepath.Base(epubPath), filepath.Ext(epubPath)) + ".mobi"
	mobiPath := filepath.Join(filepath.Dir(epubPath), name)
	_ = os.Remove(mobiPath)

	output, runErr := k.exec.Run(ctx, k.binary, []string{epubPath, "-c0", "-o", name})
	if ctxErr := ctx.Err(); ctxErr != nil {
		_ = os.Remove(mobiPath)
		return "", fmt.Errorf("%s interrupted: %w", k.binary, ctxErr)
	}
	if info, err := os.Stat(mobiPath); err == nil && info.Size() > 0 {
		return mobiPath, nil
	}
	if runErr != nil {
		return "", fmt.Errorf("%s failed: %w: %s", k.binary, runErr, lastLine(output))
	}
	return "", fmt.Errorf("%s produced no output: %s", k.binary, lastLine(output))
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
