// Package textutil normalizes titles into ebook metadata and filesystem-safe
// artifact names.
package textutil
