package cart_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mangadrop/internal/cart"
	"mangadrop/internal/services"
)

func TestParseEntry(t *testing.T) {
	tests := []struct {
		entry      cart.Entry
		volume     string
		chapter    string
		hasChapter bool
		wantErr    bool
	}{
		{entry: "3", volume: "3"},
		{entry: "3-12", volume: "3", chapter: "12", hasChapter: true},
		{entry: "UnGrouped-10.5", volume: "UnGrouped", chapter: "10.5", hasChapter: true},
		{entry: "1-2-3", volume: "1", chapter: "2-3", hasChapter: true},
		{entry: "", wantErr: true},
		{entry: "-4", wantErr: true},
		{entry: "4-", wantErr: true},
	}
	for _, tt := range tests {
		volume, chapter, hasChapter, err := cart.ParseEntry(tt.entry)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseEntry(%q) expected error", tt.entry)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntry(%q) error: %v", tt.entry, err)
			continue
		}
		if volume != tt.volume || chapter != tt.chapter || hasChapter != tt.hasChapter {
			t.Errorf("ParseEntry(%q) = %q %q %v", tt.entry, volume, chapter, hasChapter)
		}
	}
}

func TestAddListPreservesOrderWithoutDedup(t *testing.T) {
	c := cart.New(filepath.Join(t.TempDir(), "temp", "cart.txt"))
	for _, entry := range []cart.Entry{cart.VolumeEntry("2"), cart.ChapterEntry("1", "4"), cart.VolumeEntry("2")} {
		if err := c.Add(entry); err != nil {
			t.Fatalf("Add %q: %v", entry, err)
		}
	}
	entries, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []cart.Entry{"2", "1-4", "2"}
	if len(entries) != len(want) {
		t.Fatalf("got %v want %v", entries, want)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Fatalf("got %v want %v", entries, want)
		}
	}
	data, _ := os.ReadFile(c.Path())
	if string(data) != "2\n1-4\n2\n" {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestRemoveAndContains(t *testing.T) {
	c := cart.New(filepath.Join(t.TempDir(), "cart.txt"))
	_ = c.Add("1")
	_ = c.Add("1-3")

	if ok, _ := c.Contains("1-3"); !ok {
		t.Fatal("expected entry present")
	}
	if err := c.Remove("1-3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := c.Contains("1-3"); ok {
		t.Fatal("expected entry removed")
	}
	if err := c.Remove("1-3"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClear(t *testing.T) {
	c := cart.New(filepath.Join(t.TempDir(), "cart.txt"))
	_ = c.Add("5")
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	entries, err := c.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty cart, got %v err=%v", entries, err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear on empty cart: %v", err)
	}
}

func TestAddRejectsMalformedEntry(t *testing.T) {
	c := cart.New(filepath.Join(t.TempDir(), "cart.txt"))
	if err := c.Add("-3"); err == nil {
		t.Fatal("expected error for malformed entry")
	}
}
