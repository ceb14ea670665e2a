package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partialSuffix marks an in-flight copy; readers never see a half-written file
// under its final name.
const partialSuffix = ".part"

// CopyFile streams src to dst with mode 0o644.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CopyVerified copies src to dst through a sibling partial file, verifying
// size and SHA256 before renaming it into place. It returns the byte count.
// On any failure the partial file is removed and dst is left untouched.
func CopyVerified(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("ensure destination dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	partial := dst + partialSuffix
	out, err := os.Create(partial)
	if err != nil {
		return 0, err
	}
	cleanup := func() {
		_ = out.Close()
		_ = os.Remove(partial)
	}

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		cleanup()
		return 0, err
	}
	if err := out.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("sync %s: %w", partial, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partial)
		return 0, err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return 0, fmt.Errorf("finalize %s: %w", dst, err)
	}
	return written, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
