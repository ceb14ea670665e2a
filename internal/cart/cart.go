// Package cart persists the ordered list of volumes and chapters the user has
// staged for packaging.
//
// The cart file holds one entry per line. An entry is a volume ("3") or a
// volume and chapter joined by the first dash ("3-12"). Add does not dedup.
package cart

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"mangadrop/internal/services"
)

// Entry is one cart line.
type Entry string

// ParseEntry splits e on the first dash into a volume and an optional chapter.
func ParseEntry(e Entry) (volume string, chapter string, hasChapter bool, err error) {
	value := strings.TrimSpace(string(e))
	if value == "" {
		return "", "", false, fmt.Errorf("empty cart entry")
	}
	volume, chapter, hasChapter = strings.Cut(value, "-")
	volume = strings.TrimSpace(volume)
	chapter = strings.TrimSpace(chapter)
	if volume == "" {
		return "", "", false, fmt.Errorf("cart entry %q has no volume", value)
	}
	if hasChapter && chapter == "" {
		return "", "", false, fmt.Errorf("cart entry %q has an empty chapter", value)
	}
	return volume, chapter, hasChapter, nil
}

// VolumeEntry builds the entry for a whole volume.
func VolumeEntry(volume string) Entry {
	return Entry(strings.TrimSpace(volume))
}

// ChapterEntry builds the entry for one chapter of a volume.
func ChapterEntry(volume, chapter string) Entry {
	return Entry(strings.TrimSpace(volume) + "-" + strings.TrimSpace(chapter))
}

// Cart is the file-backed cart.
type Cart struct {
	mu   sync.Mutex
	path string
}

// New binds a cart to path.
func New(path string) *Cart {
	return &Cart{path: path}
}

// Path returns the cart file location.
func (c *Cart) Path() string {
	return c.path
}

// Add appends entry.
func (c *Cart) Add(entry Entry) error {
	if _, _, _, err := ParseEntry(entry); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return err
	}
	return c.write(append(entries, Entry(strings.TrimSpace(string(entry)))))
}

// Remove deletes the first occurrence of entry.
func (c *Cart) Remove(entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return err
	}
	target := Entry(strings.TrimSpace(string(entry)))
	for i, existing := range entries {
		if existing == target {
			return c.write(append(entries[:i], entries[i+1:]...))
		}
	}
	return services.Wrap(services.ErrNotFound, "cart", "remove", string(target), nil)
}

// List returns the entries in insertion order.
func (c *Cart) List() ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Contains reports whether entry is in the cart.
func (c *Cart) Contains(entry Entry) (bool, error) {
	entries, err := c.List()
	if err != nil {
		return false, err
	}
	target := Entry(strings.TrimSpace(string(entry)))
	for _, existing := range entries {
		if existing == target {
			return true, nil
		}
	}
	return false, nil
}

// Clear deletes the cart file.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (c *Cart) read() ([]Entry, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open cart: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			entries = append(entries, Entry(line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return entries, nil
}

func (c *Cart) write(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("ensure cart dir: %w", err)
	}
	var b strings.Builder
	for _, entry := range entries {
		b.WriteString(string(entry))
		b.WriteByte('\n')
	}
	if err := os.WriteFile(c.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write cart: %w", err)
	}
	return nil
}
