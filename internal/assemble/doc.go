// Package assemble turns a volume or chapter descriptor into a packaged
// ebook artifact.
//
// Pages are fetched through a bounded worker pool and collected by page
// index, so the packaged order always matches reading order regardless of
// completion order. The first failed fetch cancels the rest of the chapter.
// Marker pages close every chapter and volume; they are shared assets and
// are never removed during cleanup.
package assemble
