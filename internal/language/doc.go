// Package language normalizes the translated-language setting used to query
// MangaDex.
//
// MangaDex keys translations by lowercase ISO 639-1 codes with an optional
// region ("en", "pt-br", "es-la"). Users tend to write "English", "eng", or
// "pt_BR", so Normalize maps those spellings onto the MangaDex form.
package language
