package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrBusy reports that another process holds the store lock.
var ErrBusy = errors.New("another mangadrop process is delivering")

const (
	lockRetryDelay     = 100 * time.Millisecond
	defaultLockTimeout = 5 * time.Second
)

// Locked runs fn while holding the store lock. A competing holder is waited
// on for at most the lock timeout, then ErrBusy is returned.
func (c *Coordinator) Locked(ctx context.Context, fn func() error) error {
	if c.lockPath == "" {
		return fn()
	}
	if err := os.MkdirAll(filepath.Dir(c.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock dir: %w", err)
	}
	lock := flock.New(c.lockPath)
	waitCtx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	ok, err := lock.TryLockContext(waitCtx, lockRetryDelay)
	if err != nil {
		if waitCtx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrBusy, c.lockPath)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBusy, c.lockPath)
	}
	defer func() {
		_ = lock.Unlock()
	}()
	return fn()
}
