// Package ledger persists artifact records as a JSON document of the form
// {"files": [...]}. The device catalog and the delivery queue are both ledgers.
//
// Every mutation is a full read-modify-write of the document; the file is
// replaced atomically through a temp file and rename. Callers that share a
// ledger across processes serialize through the delivery lock.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mangadrop/internal/artifact"
	"mangadrop/internal/services"
)

type document struct {
	Files []artifact.Record `json:"files"`
}

// Ledger is a record store bound to one JSON file.
type Ledger struct {
	mu        sync.Mutex
	path      string
	component string
}

// New binds a ledger to path. component tags errors (e.g. "catalog").
func New(path, component string) *Ledger {
	return &Ledger{path: path, component: component}
}

// Path returns the JSON file location.
func (l *Ledger) Path() string {
	return l.path
}

// EnsureInitialized creates an empty document when the file does not exist.
// Existing files are left untouched.
func (l *Ledger) EnsureInitialized() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", l.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("ensure ledger dir: %w", err)
	}
	return l.write(nil)
}

// List returns every record in file order.
func (l *Ledger) List() ([]artifact.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Find returns the record with fileName.
func (l *Ledger) Find(fileName string) (artifact.Record, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return artifact.Record{}, false, err
	}
	for _, rec := range records {
		if rec.FileName == fileName {
			return rec, true, nil
		}
	}
	return artifact.Record{}, false, nil
}

// Add appends rec unless a record with the same file name exists. It reports
// whether the ledger changed.
func (l *Ledger) Add(rec artifact.Record) (bool, error) {
	if strings.TrimSpace(rec.FileName) == "" {
		return false, services.Wrap(services.ErrStoreCorrupt, l.component, "add", "record has no file name", nil)
	}
	if !plainFileName(rec.FileName) {
		return false, services.Wrap(services.ErrStoreCorrupt, l.component, "add", fmt.Sprintf("file name %q is not a plain file name", rec.FileName), nil)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return false, err
	}
	for _, existing := range records {
		if existing.FileName == rec.FileName {
			return false, nil
		}
	}
	return true, l.write(append(records, rec))
}

// Remove deletes the record with fileName and reports whether one existed.
func (l *Ledger) Remove(fileName string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return false, err
	}
	kept := records[:0]
	removed := false
	for _, rec := range records {
		if rec.FileName == fileName {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return false, nil
	}
	return true, l.write(kept)
}

// plainFileName reports whether name stays inside the folder it is joined to.
func plainFileName(name string) bool {
	return name != "." && name != ".." && filepath.Base(name) == name && !strings.ContainsRune(name, '\\')
}

// read loads the document. A missing file reads as empty. Placeholder records
// with an empty file name, written by older tools, are skipped. A record whose
// file name carries a path fails the whole load.
func (l *Ledger) read() ([]artifact.Record, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrStoreCorrupt, l.component, "load", l.path, err)
	}
	records := make([]artifact.Record, 0, len(doc.Files))
	for _, rec := range doc.Files {
		if strings.TrimSpace(rec.FileName) == "" {
			continue
		}
		if !plainFileName(rec.FileName) {
			return nil, services.Wrap(services.ErrStoreCorrupt, l.component, "load", fmt.Sprintf("%s: file name %q escapes the store folder", l.path, rec.FileName), nil)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (l *Ledger) write(records []artifact.Record) error {
	if records == nil {
		records = []artifact.Record{}
	}
	data, err := json.MarshalIndent(document{Files: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), "."+filepath.Base(l.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", l.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", l.path, err)
	}
	return nil
}
