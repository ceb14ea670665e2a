// Package packager turns an ordered list of page images into a Kindle ebook.
//
// Kindle chains two steps: an EPUB builder that lays the pages out as a
// fixed-layout comic, and a converter that runs kindlegen on the EPUB. Both
// steps sit behind interfaces so the assembler can be tested without the
// external binary.
package packager
