package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters. Colons become
// spaces to match how ebook titles are rendered on the device.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " ",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName converts name to NFC, replaces filesystem-unsafe
// characters, and collapses runs of whitespace.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	return strings.Join(strings.Fields(fileNameReplacer.Replace(name)), " ")
}

// EbookTitle renders an ebook title with colons replaced by spaces.
func EbookTitle(title string) string {
	return strings.ReplaceAll(norm.NFC.String(strings.TrimSpace(title)), ":", " ")
}
