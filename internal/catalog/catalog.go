// Package catalog tracks the artifacts installed on a connected device.
//
// The catalog lives at the device root (kmr2.json by default) and lists every
// file copied into the documents folder. Uninstall removes both the record and
// the file; the pair is not transactional.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"mangadrop/internal/artifact"
	"mangadrop/internal/device"
	"mangadrop/internal/fileutil"
	"mangadrop/internal/ledger"
	"mangadrop/internal/services"
)

// Layout names the catalog file and documents folder relative to the mount.
type Layout struct {
	CatalogFile  string
	DocumentsDir string
}

// DefaultLayout matches the reader app's expectations.
var DefaultLayout = Layout{CatalogFile: "kmr2.json", DocumentsDir: "documents"}

// Catalog is bound to one connected mount.
type Catalog struct {
	mount  device.Mount
	layout Layout
	ledger *ledger.Ledger
}

// Open binds a catalog to mount. The mount must be connected.
func Open(mount device.Mount, layout Layout) (*Catalog, error) {
	if !mount.Connected || mount.Path == "" {
		return nil, services.Wrap(services.ErrDeviceNotConnected, "catalog", "open", "device is not mounted", nil)
	}
	if layout.CatalogFile == "" {
		layout.CatalogFile = DefaultLayout.CatalogFile
	}
	if layout.DocumentsDir == "" {
		layout.DocumentsDir = DefaultLayout.DocumentsDir
	}
	return &Catalog{
		mount:  mount,
		layout: layout,
		ledger: ledger.New(filepath.Join(mount.Path, layout.CatalogFile), "catalog"),
	}, nil
}

// Path returns the catalog file location.
func (c *Catalog) Path() string {
	return c.ledger.Path()
}

// DocumentsDir returns the absolute documents folder on the device.
func (c *Catalog) DocumentsDir() string {
	return filepath.Join(c.mount.Path, c.layout.DocumentsDir)
}

// DocumentPath returns where fileName is stored on the device.
func (c *Catalog) DocumentPath(fileName string) string {
	return filepath.Join(c.DocumentsDir(), fileName)
}

// EnsureInitialized creates the catalog file and documents folder if missing.
func (c *Catalog) EnsureInitialized() error {
	if err := os.MkdirAll(c.DocumentsDir(), 0o755); err != nil {
		return fmt.Errorf("ensure documents dir: %w", err)
	}
	return c.ledger.EnsureInitialized()
}

// List returns every installed record.
func (c *Catalog) List() ([]artifact.Record, error) {
	return c.ledger.List()
}

// Contains reports whether fileName is recorded.
func (c *Catalog) Contains(fileName string) (bool, error) {
	_, ok, err := c.ledger.Find(fileName)
	return ok, err
}

// Add records rec unless its file name is already present.
func (c *Catalog) Add(rec artifact.Record) (bool, error) {
	return c.ledger.Add(rec)
}

// Remove deletes the record for fileName. Absent records are a no-op.
func (c *Catalog) Remove(fileName string) error {
	_, err := c.ledger.Remove(fileName)
	return err
}

// Uninstall removes the record and the document file. The record goes first
// so a failure cannot leave a catalog entry pointing at a deleted file.
func (c *Catalog) Uninstall(fileName string) error {
	removed, err := c.ledger.Remove(fileName)
	if err != nil {
		return err
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "catalog", "uninstall", fileName, nil)
	}
	if err := fileutil.RemoveIfExists(c.DocumentPath(fileName)); err != nil {
		return fmt.Errorf("remove %s: %w", c.DocumentPath(fileName), err)
	}
	return nil
}
