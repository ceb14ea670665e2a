package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Re:Zero volume 1", "Re Zero volume 1"},
		{"  Fate/Zero  volume 2 ", "Fate-Zero volume 2"},
		{"What?", "What"},
		{"Café", "Café"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEbookTitleReplacesColons(t *testing.T) {
	if got := EbookTitle("Steins;Gate: Phase volume 1"); got != "Steins;Gate  Phase volume 1" {
		t.Fatalf("unexpected title %q", got)
	}
}
